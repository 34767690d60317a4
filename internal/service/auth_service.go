package service

import (
	"context"
	"time"

	"github.com/spec-kit/marketplace-bot/internal/auth"
	"github.com/spec-kit/marketplace-bot/internal/repository"
)

// AuthService issues operator API tokens. Chat identity itself comes from the transport.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(users repository.UserRepository, tokenMgr *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokenMgr: tokenMgr}
}

// IssueToken signs a bearer token for an existing user. Authorization is decided per request
// from the stored role, so a token never carries one.
func (s *AuthService) IssueToken(ctx context.Context, userID int64) (string, time.Time, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", time.Time{}, err
	}
	return s.tokenMgr.GenerateToken(userID)
}

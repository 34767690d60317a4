package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/repository"
)

// UserService keeps chat users in sync with the transport's view of them.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// Touch creates the user on first contact and refreshes its display name and handle afterwards.
// The stored role is returned unchanged.
func (s *UserService) Touch(ctx context.Context, id int64, displayName string, handle *string) (*domain.User, error) {
	if handle != nil {
		trimmed := strings.TrimPrefix(strings.TrimSpace(*handle), "@")
		if trimmed == "" {
			handle = nil
		} else {
			handle = &trimmed
		}
	}
	user := &domain.User{ID: id, DisplayName: strings.TrimSpace(displayName), Handle: handle}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns the stored user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// SeedAdmins grants the admin role to ids out of band, creating users that have never made
// contact. It is the only path to the first admin.
func (s *UserService) SeedAdmins(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if err := s.users.Upsert(ctx, &domain.User{ID: id}); err != nil {
				return err
			}
		}
		changed, err := s.users.Promote(ctx, id)
		if err != nil {
			return err
		}
		if changed {
			s.logger.Info("bootstrap admin seeded", zap.Int64("user_id", id))
		}
	}
	return nil
}

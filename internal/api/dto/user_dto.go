package dto

import (
	"time"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// UserResponse is the public view of a chat user.
type UserResponse struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name"`
	Handle      *string     `json:"handle"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PromoteResponse reports the outcome of POST /admin/users/:id/promote.
type PromoteResponse struct {
	UserID   int64 `json:"user_id"`
	Promoted bool  `json:"promoted"`
}

// AuthResponse standard response for token issuance.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Handle:      u.Handle,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}

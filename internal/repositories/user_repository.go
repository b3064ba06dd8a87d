package repositories

import (
	"context"

	"nikki/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create stores a new user. A username matching an existing one
	// case-insensitively is rejected with common.ErrDuplicateUser.
	Create(ctx context.Context, user *models.User) error
	// GetByUsername looks a user up by exact, case-sensitive username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// Delete removes the user together with all of their diaries.
	Delete(ctx context.Context, id uint) error
}

package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll finds all users matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]User, error)

	// FindInactiveSince finds active users whose last login (or creation,
	// if they never logged in) is before the cutoff
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]User, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteInactiveSince permanently removes deactivated users whose last
	// login is before the cutoff, returning how many were removed
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)

	// Count counts users matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// Package sessions declares the persistence contract for session records,
// with PostgreSQL and Redis implementations.
package sessions

import (
	"context"
	"time"

	"github.com/accountd/accountd/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// session tokens.
type Repository interface {
	// Create stores a new session binding token to username with an expiry
	// of now+validity.
	Create(ctx context.Context, token, username string, validity time.Duration) error

	// Find looks up a session by its opaque token and returns its record.
	// Implementations return common.ErrorNotFound when the token is absent.
	// A returned record may already be expired; callers check Expires.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by its token. Deleting a non-existent token
	// is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForUser removes every session bound to username.
	DeleteForUser(ctx context.Context, username string) error

	// DeleteExpired removes all sessions whose expiry has passed and returns
	// the number of sessions removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

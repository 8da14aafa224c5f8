// Package services contains server-side business logic. This file implements
// SessionService, which issues, resolves, and revokes opaque session tokens
// and purges expired sessions from the backing store.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/server/config"
	"github.com/accountd/accountd/internal/server/repositories/sessions"
	"github.com/sethvargo/go-retry"
)

// sessionTokenBytes is the entropy of issued tokens; the hex-encoded token
// is twice as long. 32 bytes keeps collision probability negligible over the
// system's lifetime.
const sessionTokenBytes = 32

// SessionService manages the session lifecycle:
// - Create: mint a random token bound to a username
// - Resolve: map a presented token back to its username
// - Invalidate / InvalidateForUser: revoke tokens
// - PurgeExpired / RunCleanup: remove expired rows from the store
type SessionService struct {
	repo     sessions.Repository
	validity time.Duration
	logger   logging.Logger
}

// NewSessionService constructs a SessionService using the given repository
// and server config.
func NewSessionService(repo sessions.Repository, cfg *config.Config, l logging.Logger) *SessionService {
	return &SessionService{
		repo:     repo,
		validity: cfg.SessionValidityDuration,
		logger:   l.With("module", "sessions"),
	}
}

// Validity returns the configured lifetime of issued tokens.
func (s *SessionService) Validity() time.Duration {
	return s.validity
}

// Create generates a cryptographically random token, stores it bound to
// username with the configured validity, and returns it.
func (s *SessionService) Create(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", common.ErrorMissingField
	}

	token, err := common.MakeRandHexString(sessionTokenBytes)
	if err != nil {
		return "", common.ErrorInternal
	}

	if err := s.repo.Create(ctx, token, username, s.validity); err != nil {
		return "", err
	}

	sessionsIssued.Inc()
	return token, nil
}

// Resolve returns the username bound to token, or an empty string for a
// missing, expired, or malformed token (an anonymous caller). It only
// returns an error when the backing store itself fails. Expired rows found
// here are removed best-effort; the periodic purge catches the rest.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}

	session, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}

	if !session.Expires.After(time.Now()) {
		if err := s.repo.Delete(ctx, token); err != nil {
			s.logger.Warn(ctx, "failed to delete expired session", "error", err)
		}
		return "", nil
	}

	return session.Username, nil
}

// Invalidate removes the session idempotently; revoking an unknown token is
// a no-op.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.Delete(ctx, token)
}

// InvalidateForUser revokes every session bound to username, e.g. after the
// account is deleted.
func (s *SessionService) InvalidateForUser(ctx context.Context, username string) error {
	return s.repo.DeleteForUser(ctx, username)
}

// PurgeExpired removes expired sessions, retrying transient store failures
// with exponential backoff before giving up until the next cycle.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := s.repo.DeleteExpired(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if n > 0 {
			sessionsPurged.Add(float64(n))
			s.logger.Info(ctx, "purged expired sessions", "count", n)
		}
		return nil
	})
}

// RunCleanup purges expired sessions once at startup and then on every tick
// of interval until ctx is cancelled. Purge failures are logged and retried
// on the next cycle; they never stop the loop.
func (s *SessionService) RunCleanup(ctx context.Context, interval time.Duration) {
	if err := s.PurgeExpired(ctx); err != nil {
		s.logger.Error(ctx, "session cleanup failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil {
				s.logger.Error(ctx, "session cleanup failed", "error", err)
			}
		}
	}
}

// This file implements AuthService, which handles login and logout on top
// of the account store and the session manager.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/cryptox"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/server/repositories/repomanager"
)

// decoyHash is verified against on the unknown-username path so that a
// failed login costs a full argon2id derivation whether or not the account
// exists. Without it, response timing would reveal which usernames are taken.
var decoyHash = mustDecoyHash()

func mustDecoyHash() string {
	h, err := cryptox.HashPassword("decoy")
	if err != nil {
		panic(err)
	}
	return h
}

// SessionIssuer mints and revokes session tokens. Implemented by
// SessionService.
type SessionIssuer interface {
	Create(ctx context.Context, username string) (string, error)
	Invalidate(ctx context.Context, token string) error
}

// AuthService verifies credentials and drives the session lifecycle around
// login and logout.
type AuthService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	sessions SessionIssuer
	logger   logging.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, sessions SessionIssuer, l logging.Logger) *AuthService {
	return &AuthService{
		db:       db,
		repos:    m,
		sessions: sessions,
		logger:   l.With("module", "auth"),
	}
}

// Login verifies the password against the stored hash and, on success,
// returns a fresh session token. An unknown username yields
// common.ErrorNotFound and a wrong password common.ErrorInvalidCredentials;
// the HTTP layer presents both identically so usernames cannot be
// enumerated, and both paths pay the same hashing cost so timing does not
// tell them apart either.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", common.ErrorMissingField
	}

	account, err := s.repos.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(password, decoyHash)
		}
		return "", err
	}

	if !cryptox.VerifyPassword(password, account.PasswordHash) {
		return "", common.ErrorInvalidCredentials
	}

	return s.sessions.Create(ctx, username)
}

// Logout revokes the presented token unconditionally. Revoking an unknown
// or already-revoked token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

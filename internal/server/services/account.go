// This file implements AccountService: signup plus profile fetch, update,
// and delete, with strict self-ownership authorization.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/cryptox"
	"github.com/accountd/accountd/internal/dbx"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/server/models"
	"github.com/accountd/accountd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionInvalidator revokes sessions after account-level events.
// Implemented by SessionService.
type SessionInvalidator interface {
	InvalidateForUser(ctx context.Context, username string) error
}

// Profile is the client-facing view of an account: the username and the
// stored profile payload decoded back into a JSON value. Data is the raw
// stored text when it does not parse as JSON, and nil when nothing is stored.
type Profile struct {
	Username string `json:"username"`
	Data     any    `json:"data"`
}

// AccountService provides account lifecycle operations. All profile
// operations take an explicit caller identity (already resolved from a
// session token) and enforce that callers only touch their own account.
type AccountService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	sessions SessionInvalidator
	logger   logging.Logger
}

// NewAccountService constructs an AccountService using repositories and the
// session invalidation hook.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, sessions SessionInvalidator, l logging.Logger) *AccountService {
	return &AccountService{
		db:       db,
		repos:    m,
		sessions: sessions,
		logger:   l.With("module", "accounts"),
	}
}

// SignUp creates a new account with a hashed password and optional profile
// payload, and returns a human-readable confirmation. A taken username
// yields common.ErrorAlreadyExists.
func (s *AccountService) SignUp(ctx context.Context, username, password, data string) (string, error) {
	if username == "" || password == "" {
		return "", common.ErrorMissingField
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Profile:      normalizeProfile(data),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repos.Accounts(tx).Create(ctx, account)
		return err
	}); err != nil {
		return "", err
	}

	accountsCreated.Inc()
	return fmt.Sprintf("Successfully signed up new user: %s", username), nil
}

// GetProfile returns the target account's username and profile data.
// The caller must be authenticated and must be the target.
func (s *AccountService) GetProfile(ctx context.Context, caller, target string) (*Profile, error) {
	if err := authorize(caller, target); err != nil {
		return nil, err
	}

	account, err := s.repos.Accounts(s.db).GetByUsername(ctx, target)
	if err != nil {
		return nil, err
	}

	return &Profile{Username: account.Username, Data: decodeProfile(account.Profile)}, nil
}

// UpdateProfile replaces the stored profile payload with data.
// The caller must be authenticated and must be the target.
func (s *AccountService) UpdateProfile(ctx context.Context, caller, target, data string) error {
	if err := authorize(caller, target); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Accounts(tx).UpdateProfile(ctx, target, normalizeProfile(data))
	})
}

// DeleteAccount removes the target account, then revokes the username's
// sessions best-effort: if the delete fails the sessions stay, and if the
// revocation fails the delete stands and the expiry purge cleans up later.
func (s *AccountService) DeleteAccount(ctx context.Context, caller, target string) error {
	if err := authorize(caller, target); err != nil {
		return err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Accounts(tx).Delete(ctx, target)
	}); err != nil {
		return err
	}

	accountsDeleted.Inc()

	if err := s.sessions.InvalidateForUser(ctx, target); err != nil {
		s.logger.Warn(ctx, "failed to invalidate sessions for deleted account",
			"username", target, "error", err)
	}

	return nil
}

// authorize enforces self-ownership: the caller must be authenticated and
// may only act on their own account.
func authorize(caller, target string) error {
	if caller == "" {
		return common.ErrorUnauthenticated
	}
	if caller != target {
		return common.ErrorForbidden
	}
	return nil
}

// normalizeProfile maps the client-supplied payload to its stored form:
// blank input means "no data" (SQL NULL), anything else is kept verbatim.
func normalizeProfile(data string) sql.NullString {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: trimmed, Valid: true}
}

// decodeProfile turns the stored profile text back into a JSON value.
// Text that fails to parse is returned unchanged rather than failing the
// read.
func decodeProfile(profile sql.NullString) any {
	if !profile.Valid {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(profile.String), &v); err != nil {
		return profile.String
	}
	return v
}

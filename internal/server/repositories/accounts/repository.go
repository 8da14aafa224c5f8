// Package accounts declares the persistence contract for account records and
// provides a PostgreSQL implementation.
package accounts

import (
	"context"
	"database/sql"

	"github.com/accountd/accountd/internal/server/models"
)

// Repository defines create/read/update/delete operations on accounts.
// Usernames are unique; Create of a taken username fails with
// common.ErrorAlreadyExists, and the other operations return
// common.ErrorNotFound for absent usernames.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateProfile(ctx context.Context, username string, profile sql.NullString) error
	Delete(ctx context.Context, username string) error
}

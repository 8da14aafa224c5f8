// Package models contains plain data records persisted by the server.
package models

import (
	"database/sql"
	"time"
)

// Account is a persisted username/password-hash/profile record. Profile holds
// the client-supplied JSON payload as opaque serialized text; an invalid
// NullString means no profile data has been stored.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Profile      sql.NullString
	CreatedAt    time.Time
}

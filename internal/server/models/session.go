package models

import "time"

// Session binds an opaque token to an authenticated username until Expires.
type Session struct {
	Token     string
	Username  string
	Expires   time.Time
	CreatedAt time.Time
}

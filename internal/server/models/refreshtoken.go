package models

import "time"

// RefreshToken is a stored refresh-token record. Token holds the salted hash of
// the signed refresh JWT, never the JWT itself. Name, Email and Expires are a
// snapshot of the claims at issuance.
//
// Used only ever moves from false to true.
type RefreshToken struct {
	ID      int64
	Token   string
	UserID  int64
	Name    string
	Email   string
	Expires time.Time
	Used    bool
}

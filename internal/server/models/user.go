// Package models holds the server-side persisted records.
package models

// User is a registered identity. PasswordHash is an argon2id PHC string.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
}

// Package refreshtokens declares the session store contract: persistence of
// hashed refresh tokens and their single-use rotation.
package refreshtokens

import (
	"context"

	"github.com/advn1/rback/internal/server/models"
)

// Repository stores hashed refresh tokens. Token values are never stored in
// clear; every method that names a token takes its stored hash.
type Repository interface {
	// Create persists a new unused refresh token row.
	Create(ctx context.Context, token *models.RefreshToken) error

	// ListUnused returns the user's rows that are neither used nor expired.
	ListUnused(ctx context.Context, userID int64) ([]models.RefreshToken, error)

	// ListByUser returns every row of the user, used or not.
	ListByUser(ctx context.Context, userID int64) ([]models.RefreshToken, error)

	// Rotate marks the row identified by consumedHash as used and persists next.
	// Exactly one concurrent caller can consume a given row; the others get
	// common.ErrInvalidOrExpiredToken and nothing is written for them.
	Rotate(ctx context.Context, consumedHash string, next *models.RefreshToken) error

	// Delete removes the user's row with the given hash and reports how many
	// rows were removed. Removing nothing is not an error.
	Delete(ctx context.Context, userID int64, hash string) (int64, error)
}

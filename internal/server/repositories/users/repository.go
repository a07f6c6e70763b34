package users

import (
	"context"

	"github.com/advn1/rback/internal/server/models"
)

// Repository is the identity store.
type Repository interface {
	// Create inserts user and fills its ID. A duplicate name or email yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail returns common.ErrorNotFound when no user has the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error)
}

// Package users declares the user directory contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores user accounts.
type Repository interface {
	// Create inserts user, assigning ID and CreatedAt. A taken email yields
	// common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByEmail returns common.ErrorNotFound for an unknown email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns common.ErrorNotFound for an unknown id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

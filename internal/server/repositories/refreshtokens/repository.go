// Package refreshtokens declares the server-side repository contract for
// persisted refresh token records.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores refresh token records keyed by the token's jti.
type Repository interface {
	// Create inserts rec. A record with the same id already present yields
	// common.ErrDuplicateKey.
	Create(ctx context.Context, rec *models.RefreshToken) error

	// FindByID returns common.ErrorNotFound when no record has id.
	FindByID(ctx context.Context, id string) (*models.RefreshToken, error)

	// Delete removes the record with id. It returns common.ErrorNotFound if
	// nothing was deleted, which lets a concurrent second use of the same
	// refresh token lose the race.
	Delete(ctx context.Context, id string) error
}

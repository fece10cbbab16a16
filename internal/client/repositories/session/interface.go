package session

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

// Repository stores at most one session. Get returns (nil, nil) when nothing
// is cached.
type Repository interface {
	Get(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

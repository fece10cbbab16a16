package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

type Client interface {
	Close() error
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) error
	Refresh(ctx context.Context) error
	Identify(ctx context.Context) (*models.Identity, error)
	PublicKey(ctx context.Context, kid string) (string, error)
	Ping(ctx context.Context) error
	Session() models.Session
	Restore(s models.Session)
	Forget()
}

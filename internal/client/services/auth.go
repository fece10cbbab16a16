// Package services contains application services for the authkeeper client.
// This file defines the authentication service: register, login, identify,
// token refresh and the local session cache kept alongside them.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
)

// AuthService defines authentication operations for the CLI.
//
// Every call that may change the token pair saves the resulting session, so
// a later run can resume with the latest refresh token.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Identify(ctx context.Context) (*models.Identity, error)
	Refresh(ctx context.Context) error
	PublicKey(ctx context.Context, kid string) (string, error)
	Restore(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	Current() models.Session
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client   client.Client
	sessions session.Repository
}

func NewAuthService(client client.Client, sessions session.Repository) AuthService {
	return &authService{client: client, sessions: sessions}
}

func (a *authService) persist(ctx context.Context) error {
	s := a.client.Session()
	if s.RefreshToken == "" {
		return nil
	}
	if err := a.sessions.Save(ctx, &s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *authService) Register(ctx context.Context, email string, password []byte) error {
	if err := a.client.Register(ctx, email, string(password)); err != nil {
		return err
	}
	return a.persist(ctx)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) error {
	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return err
	}
	return a.persist(ctx)
}

// Identify may rotate tokens underneath, so the session is saved even when
// the call itself fails after a successful refresh.
func (a *authService) Identify(ctx context.Context) (*models.Identity, error) {
	id, err := a.client.Identify(ctx)
	if perr := a.persist(ctx); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (a *authService) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return err
	}
	return a.persist(ctx)
}

func (a *authService) PublicKey(ctx context.Context, kid string) (string, error) {
	return a.client.PublicKey(ctx, kid)
}

// Restore loads the cached session into the client. It reports whether one
// was found.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	s, err := a.sessions.Get(ctx)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}
	a.client.Restore(*s)
	return true, nil
}

// Logout is local only: tokens already issued stay valid until they expire.
func (a *authService) Logout(ctx context.Context) error {
	a.client.Forget()
	return a.sessions.Clear(ctx)
}

func (a *authService) Current() models.Session {
	return a.client.Session()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

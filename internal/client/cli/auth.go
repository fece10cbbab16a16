package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// describe turns client errors into short user-facing messages.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "unauthorized, please log in again"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrConflict):
		return "account already exists"
	case errors.Is(err, client.ErrInvalidInput):
		return "email and password must not be empty"
	case errors.Is(err, client.ErrNotFound):
		return "not found"
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in"
	default:
		return err.Error()
	}
}

// Register prompts for an email and password and creates the account. The
// server signs the new user in straight away.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered and logged in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Login successful.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.authService.Identify(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\ncreated: %s\n", id.ID, id.Email, id.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Tokens refreshed.")
	return nil
}

func (a *App) PubKey(ctx context.Context, kid string) error {
	pem, err := a.authService.PublicKey(ctx, kid)
	if err != nil {
		return err
	}

	fmt.Fprint(a.out, pem)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

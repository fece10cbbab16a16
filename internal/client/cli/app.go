package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          io.Closer
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the session cache, dials the server and restores a cached
// session if one exists.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewAuthKeeperClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, session.NewSQLiteRepository(db))

	a := &App{config: c, authService: as, db: db, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	if ok, err := as.Restore(ctx); err != nil {
		log.Printf("could not restore session: %v", err)
	} else if ok {
		log.Printf("Restored session for %s", as.Current().Email)
	}

	return a, nil
}

func (a *App) Close() error {
	err := a.authService.Close(context.Background())
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) isLoggedIn() bool {
	return a.authService.Current().RefreshToken != ""
}

func (a *App) getStatus() string {
	if email := a.authService.Current().Email; email != "" {
		return fmt.Sprintf(" (%s)", email)
	}
	return ""
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to authkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

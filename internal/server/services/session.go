// Package services contains server-side business logic. SessionService
// implements registration, login, token refresh and identity lookup on top
// of the vault, the token issuer/verifier and the repositories.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// TokenPair is what a successful Register, Login or Refresh returns.
// ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type PasswordVault interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, hash string) bool
	VerifyNothing(ctx context.Context, secret string)
}

type TokenIssuer interface {
	IssueAccessToken(ctx context.Context, subject string) (string, error)
	IssueRefreshToken(ctx context.Context, subject string) (tokenID, token string, err error)
	AccessTTLSeconds() int64
}

type TokenVerifier interface {
	VerifyAccess(token string) (*tokens.Claims, error)
	VerifyRefresh(token string) (*tokens.Claims, error)
}

type KeyPublisher interface {
	PublicKeyPEM(kid string) ([]byte, error)
}

// SessionService orchestrates the user-facing authentication flows.
//
// Error contract: ErrInvalidInput for missing fields, ErrConflict for a
// taken email, ErrorUnauthorized for every credential or token failure,
// ErrorNotFound for unknown users and kids, ErrorInternal for storage and
// crypto faults (details are logged, never returned).
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       PasswordVault
	issuer      TokenIssuer
	verifier    TokenVerifier
	keys        KeyPublisher
	refresh     *refreshtokens.Store
	log         logging.Logger
}

func NewSessionService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	vault PasswordVault,
	issuer TokenIssuer,
	verifier TokenVerifier,
	keys KeyPublisher,
	log logging.Logger,
) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		vault:       vault,
		issuer:      issuer,
		verifier:    verifier,
		keys:        keys,
		refresh:     refreshtokens.NewStore(db, m, vault),
		log:         log.With("module", "session"),
	}
}

// Register creates the account and its first session. The user row and the
// refresh record are written in one transaction; hashing and signing happen
// before it opens.
func (s *SessionService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrInvalidInput
	}

	_, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrConflict
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Error(ctx, "register: lookup user", "err", err)
		return nil, common.ErrorInternal
	}

	hash, err := s.vault.Hash(ctx, password)
	if err != nil {
		s.log.Error(ctx, "register: hash password", "err", err)
		return nil, common.ErrorInternal
	}

	userID := uuid.NewString()
	pair, rec, err := s.mintPair(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "register: issue tokens", "err", err)
		return nil, common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user := &models.User{ID: userID, Email: email, PasswordHash: hash}
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.refresh.WithTx(tx).Save(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		s.log.Error(ctx, "register: create user", "err", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user registered")
	return pair, nil
}

// Login checks the password and starts a new session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrInvalidInput
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.vault.VerifyNothing(ctx, password)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "login: lookup user", "err", err)
		return nil, common.ErrorInternal
	}

	if !s.vault.Verify(ctx, password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	pair, rec, err := s.mintPair(ctx, user.ID)
	if err != nil {
		s.log.Error(ctx, "login: issue tokens", "err", err)
		return nil, common.ErrorInternal
	}
	if err := s.refresh.Save(ctx, rec); err != nil {
		s.log.Error(ctx, "login: store refresh token", "err", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

var errRefreshConsumed = errors.New("refresh token already consumed")

// Refresh exchanges a refresh token for a new pair. Refresh tokens are
// single use: the presented record is deleted in the same transaction that
// stores its successor, so a replayed token is rejected.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	rec, err := s.refresh.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh: unknown or consumed token", "jti", claims.ID)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "refresh: find record", "err", err)
		return nil, common.ErrorInternal
	}

	if !s.refresh.Verify(ctx, rec, refreshToken) || rec.UserID != claims.Subject {
		s.log.Warn(ctx, "refresh: token does not match record", "jti", claims.ID)
		return nil, common.ErrorUnauthorized
	}

	pair, next, err := s.mintPair(ctx, rec.UserID)
	if err != nil {
		s.log.Error(ctx, "refresh: issue tokens", "err", err)
		return nil, common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.refresh.WithTx(tx)
		if err := store.Delete(ctx, rec.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return errRefreshConsumed
			}
			return err
		}
		return store.Save(ctx, next)
	})
	if err != nil {
		if errors.Is(err, errRefreshConsumed) {
			s.log.Warn(ctx, "refresh: concurrent reuse", "jti", claims.ID)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "refresh: rotate", "err", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Identify returns the caller's own account. The access token's subject
// must be userID.
func (s *SessionService) Identify(ctx context.Context, userID, accessToken string) (*models.PublicUser, error) {
	claims, err := s.verifier.VerifyAccess(accessToken)
	if err != nil || claims.Subject != userID {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "identify: lookup user", "err", err)
		return nil, common.ErrorInternal
	}
	return user.Public(), nil
}

// PublicKey returns the PEM public key for kid so that external parties can
// verify tokens.
func (s *SessionService) PublicKey(ctx context.Context, kid string) ([]byte, error) {
	if kid == "" {
		return nil, common.ErrInvalidInput
	}
	pemBytes, err := s.keys.PublicKeyPEM(kid)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "public key", "kid", kid, "err", err)
		return nil, common.ErrorInternal
	}
	return pemBytes, nil
}

// mintPair signs both tokens for userID and seals the refresh record. It
// only waits on the CPU pool, never on the database.
func (s *SessionService) mintPair(ctx context.Context, userID string) (*TokenPair, *models.RefreshToken, error) {
	access, err := s.issuer.IssueAccessToken(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	tokenID, refresh, err := s.issuer.IssueRefreshToken(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	rec, err := s.refresh.Seal(ctx, tokenID, userID, refresh)
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.issuer.AccessTTLSeconds(),
	}, rec, nil
}

// Package refreshtokens keeps the server's record of issued refresh tokens.
// Only a vault hash of each token is stored, keyed by the token's jti.
package refreshtokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	repo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
)

// Hasher is the vault subset the store needs.
type Hasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, hash string) bool
}

type Store struct {
	repos repomanager.RepositoryManager
	db    dbx.DBTX
	vault Hasher
}

func NewStore(db dbx.DBTX, repos repomanager.RepositoryManager, vault Hasher) *Store {
	return &Store{repos: repos, db: db, vault: vault}
}

// WithTx returns a Store whose writes go through tx.
func (s *Store) WithTx(tx dbx.DBTX) *Store {
	return &Store{repos: s.repos, db: tx, vault: s.vault}
}

func (s *Store) repo() repo.Repository {
	return s.repos.RefreshTokens(s.db)
}

// Insert hashes secret and persists it under id for ownerID. A duplicate id
// is reported as common.ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, id, ownerID, secret string) error {
	rec, err := s.Seal(ctx, id, ownerID, secret)
	if err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

// Seal builds the record for secret without touching storage.
func (s *Store) Seal(ctx context.Context, id, ownerID, secret string) (*models.RefreshToken, error) {
	hash, err := s.vault.Hash(ctx, secret)
	if err != nil {
		return nil, err
	}
	return &models.RefreshToken{ID: id, UserID: ownerID, SecretHash: hash}, nil
}

// Save persists a record produced by Seal.
func (s *Store) Save(ctx context.Context, rec *models.RefreshToken) error {
	err := s.repo().Create(ctx, rec)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindByID returns common.ErrorNotFound for an unknown id.
func (s *Store) FindByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	return s.repo().FindByID(ctx, id)
}

// Verify reports whether presented is exactly the token rec was created for.
func (s *Store) Verify(ctx context.Context, rec *models.RefreshToken, presented string) bool {
	return s.vault.Verify(ctx, presented, rec.SecretHash)
}

// Delete consumes the record. common.ErrorNotFound means someone else
// already did.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.repo().Delete(ctx, id)
}

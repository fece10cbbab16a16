package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/poolx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/vault"
)

type memRepo struct {
	records   map[string]*models.RefreshToken
	createErr error
	boundTo   []dbx.DBTX
}

func (m *memRepo) Create(_ context.Context, rec *models.RefreshToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.records[rec.ID]; ok {
		return common.ErrDuplicateKey
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*models.RefreshToken, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.records, id)
	return nil
}

type fakeManager struct{ repo *memRepo }

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Users(dbx.DBTX) users.Repository              { return nil }
func (f *fakeManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	f.repo.boundTo = append(f.repo.boundTo, db)
	return f.repo
}

type fakeDB struct {
	dbx.DBTX
	name string
}

func newStore() (*Store, *memRepo) {
	r := &memRepo{records: map[string]*models.RefreshToken{}}
	v := vault.New(poolx.New(2), vault.WithCost(bcrypt.MinCost))
	return NewStore(&fakeDB{name: "db"}, &fakeManager{repo: r}, v), r
}

func TestStore_InsertFindVerify(t *testing.T) {
	s, r := newStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "t-1", "u-1", "token-string"))
	assert.NotEqual(t, "token-string", r.records["t-1"].SecretHash, "secret must be hashed")

	rec, err := s.FindByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", rec.UserID)

	assert.True(t, s.Verify(ctx, rec, "token-string"))
	assert.False(t, s.Verify(ctx, rec, "token-strinG"))
	assert.False(t, s.Verify(ctx, rec, ""))
}

func TestStore_Insert_Duplicate(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "t-1", "u-1", "a"))
	err := s.Insert(ctx, "t-1", "u-2", "b")
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
}

func TestStore_Insert_RepoError(t *testing.T) {
	s, r := newStore()
	r.createErr = errors.New("db down")

	err := s.Insert(context.Background(), "t-1", "u-1", "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateKey)
	assert.ErrorContains(t, err, "db down")
}

func TestStore_FindByID_NotFound(t *testing.T) {
	s, _ := newStore()
	_, err := s.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "t-1", "u-1", "a"))
	require.NoError(t, s.Delete(ctx, "t-1"))
	assert.ErrorIs(t, s.Delete(ctx, "t-1"), common.ErrorNotFound)

	_, err := s.FindByID(ctx, "t-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_WithTx(t *testing.T) {
	s, r := newStore()
	tx := &fakeDB{name: "tx"}

	require.NoError(t, s.WithTx(tx).Insert(context.Background(), "t-1", "u-1", "a"))
	require.NotEmpty(t, r.boundTo)
	assert.Same(t, tx, r.boundTo[len(r.boundTo)-1])
}

func TestStore_SealThenSave(t *testing.T) {
	s, r := newStore()
	ctx := context.Background()

	rec, err := s.Seal(ctx, "t-1", "u-1", "token-string")
	require.NoError(t, err)
	assert.Empty(t, r.boundTo, "seal does not touch storage")
	assert.Empty(t, r.records)
	assert.Equal(t, "u-1", rec.UserID)
	assert.True(t, s.Verify(ctx, rec, "token-string"))

	tx := &fakeDB{name: "tx"}
	require.NoError(t, s.WithTx(tx).Save(ctx, rec))
	assert.Same(t, tx, r.boundTo[len(r.boundTo)-1])
	assert.Contains(t, r.records, "t-1")
}

package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.RefreshToken) error {
	query :=
		`INSERT INTO refresh_tokens (id, user_id, token)
		 VALUES ($1, $2, $3)
		 RETURNING date_created`

	err := r.db.QueryRowContext(ctx, query, rec.ID, rec.UserID, rec.SecretHash).Scan(&rec.CreatedAt)
	if err != nil {
		if _, dup := dbx.IsUniqueViolation(err); dup {
			return fmt.Errorf("refresh token %s: %w", rec.ID, common.ErrDuplicateKey)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	query :=
		`SELECT id, user_id, token, date_created FROM refresh_tokens
		 WHERE id = $1`

	rec := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.UserID, &rec.SecretHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

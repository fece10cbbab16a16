package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

const (
	insertQ = `(?s)^INSERT\s+INTO\s+refresh_tokens\s*\(id,\s*user_id,\s*token\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+date_created$`
	findQ   = `(?s)^SELECT\s+id,\s*user_id,\s*token,\s*date_created\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1$`
	deleteQ = `^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(insertQ).
		WithArgs("t-1", "u-1", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"date_created"}).AddRow(created))

	rec := &models.RefreshToken{ID: "t-1", UserID: "u-1", SecretHash: "hash"}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt not filled: %v", rec.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantDup bool
	}{
		{"duplicate id", &pgconn.PgError{Code: "23505", ConstraintName: "refresh_tokens_pkey"}, true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"connection", errors.New("conn reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(insertQ).WithArgs("t-1", "u-1", "hash").WillReturnError(tt.dbErr)

			err := repo.Create(context.Background(), &models.RefreshToken{ID: "t-1", UserID: "u-1", SecretHash: "hash"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, common.ErrDuplicateKey); got != tt.wantDup {
				t.Fatalf("ErrDuplicateKey = %v, want %v (err %v)", got, tt.wantDup, err)
			}
		})
	}
}

func TestFindByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(findQ).WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "date_created"}).AddRow("t-1", "u-1", "hash", created))

	rec, err := repo.FindByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	want := models.RefreshToken{ID: "t-1", UserID: "u-1", SecretHash: "hash", CreatedAt: created}
	if *rec != want {
		t.Fatalf("got %+v, want %+v", *rec, want)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(findQ).WithArgs("t-9").WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), "t-9"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(findQ).WithArgs("t-1").WillReturnError(errors.New("boom"))

	_, err := repo.FindByID(context.Background(), "t-1")
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		result  sql.Result
		dbErr   error
		wantErr error
	}{
		{name: "deleted", result: sqlmock.NewResult(0, 1)},
		{name: "already gone", result: sqlmock.NewResult(0, 0), wantErr: common.ErrorNotFound},
		{name: "db error", dbErr: errors.New("boom")},
		{name: "rows affected error", result: sqlmock.NewErrorResult(errors.New("no count"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			exp := mock.ExpectExec(deleteQ).WithArgs("t-1")
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Delete(context.Background(), "t-1")
			switch {
			case tt.name == "deleted":
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
			default:
				if err == nil {
					t.Fatal("expected error")
				}
			}
		})
	}
}

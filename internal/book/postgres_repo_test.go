package book

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindQuery(t *testing.T) {
	sql, args, err := findQuery(Filter{Author: "herb", Genre: "sci"}, Bounds{Skip: 10, Limit: 5}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "SELECT id::text, title, author, genre, published_year, version, created_at, updated_at FROM books")
	assert.Contains(t, sql, "WHERE (author ~* $1 AND genre ~* $2)")
	assert.Contains(t, sql, "ORDER BY created_at, id")
	assert.Contains(t, sql, "LIMIT 5")
	assert.Contains(t, sql, "OFFSET 10")
	assert.Equal(t, []interface{}{"herb", "sci"}, args[:2])
}

func TestFindQuery_NoFilter(t *testing.T) {
	sql, _, err := findQuery(Filter{}, Bounds{Limit: 10}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "WHERE")
}

func TestCountQuery(t *testing.T) {
	sql, args, err := countQuery(Filter{Genre: "sci"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM books WHERE (genre ~* $1)", sql)
	assert.Equal(t, []interface{}{"sci"}, args)
}

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not null", &pgconn.PgError{Code: "23502"}, ErrInvalidDocument},
		{"check", &pgconn.PgError{Code: "23514"}, ErrInvalidDocument},
		{"invalid regular expression", &pgconn.PgError{Code: "2201B", Message: "invalid regular expression: invalid escape \\ sequence"}, ErrInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyPgError(tt.err), tt.want)
		})
	}

	other := &pgconn.PgError{Code: "08006"}
	assert.Same(t, error(other), classifyPgError(other))
}

func TestCheckUUID(t *testing.T) {
	assert.NoError(t, checkUUID(uuid.NewString()))
	assert.ErrorIs(t, checkUUID("6523d7f1e4b0a1b2c3d4e5f6"), ErrInvalidID)
}

// newPostgresRepo connects to TEST_DB_DSN and applies the migrations.
func newPostgresRepo(t *testing.T) *PostgresRepo {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../../db/migrations"))

	_, err = pool.Exec(ctx, "TRUNCATE books")
	require.NoError(t, err)
	return NewPostgresRepo(pool, 5*time.Second)
}

func TestPostgresRepo_Lifecycle(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	svc := NewService(repo)

	created, err := svc.Create(ctx, NewBook{Title: "Dune", Author: "Frank Herbert", Genre: "SciFi", PublishedYear: intPtr(1965)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	page, err := svc.List(ctx, ListQuery{Author: "HERB", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, 1, page.TotalPages)

	stale := got
	updated, err := svc.Update(ctx, created.ID, Patch{Genre: stringPtr("Sci-Fi")})
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi", updated.Genre)
	assert.Equal(t, int64(2), updated.Version)

	stale.Title = "Dune Messiah"
	assert.ErrorIs(t, repo.Save(ctx, &stale), ErrVersionConflict)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, KindNotFound, KindOf(svc.Delete(ctx, created.ID)))
}

func TestPostgresRepo_RejectsBlankTitle(t *testing.T) {
	repo := newPostgresRepo(t)

	b := Book{Title: "", Author: "Frank Herbert"}
	assert.ErrorIs(t, repo.Save(context.Background(), &b), ErrInvalidDocument)
}

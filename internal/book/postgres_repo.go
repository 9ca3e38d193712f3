package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookColumns = []string{
	"id::text", "title", "author", "genre", "published_year", "version", "created_at", "updated_at",
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
	now     func() time.Time
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{
		db:      db,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func findQuery(f Filter, b Bounds) squirrel.SelectBuilder {
	q := psql.Select(bookColumns...).
		From("books").
		OrderBy("created_at", "id").
		Limit(uint64(b.Limit)).
		Offset(uint64(b.Skip))
	if !f.IsEmpty() {
		q = q.Where(f.SQL())
	}
	return q
}

func countQuery(f Filter) squirrel.SelectBuilder {
	q := psql.Select("COUNT(*)").From("books")
	if !f.IsEmpty() {
		q = q.Where(f.SQL())
	}
	return q
}

func (r *PostgresRepo) Find(ctx context.Context, f Filter, b Bounds) ([]Book, error) {
	sql, args, err := findQuery(f, b).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", classifyPgError(err))
	}
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Book, error) {
		return scanBook(row)
	})
	if err != nil {
		return nil, fmt.Errorf("find books: %w", classifyPgError(err))
	}
	return books, nil
}

func (r *PostgresRepo) Count(ctx context.Context, f Filter) (int, error) {
	sql, args, err := countQuery(f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count books: %w", classifyPgError(err))
	}
	return total, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Book, error) {
	if err := checkUUID(id); err != nil {
		return Book{}, err
	}
	sql, args, err := psql.Select(bookColumns...).From("books").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build find query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("find book %s: %w", id, err)
	}
	return b, nil
}

func (r *PostgresRepo) Save(ctx context.Context, b *Book) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if b.ID == "" {
		return r.insert(ctx, b)
	}
	return r.update(ctx, b)
}

func (r *PostgresRepo) insert(ctx context.Context, b *Book) error {
	now := r.now()
	id := uuid.NewString()
	sql, args, err := psql.Insert("books").
		Columns("id", "title", "author", "genre", "published_year", "version", "created_at", "updated_at").
		Values(id, b.Title, b.Author, b.Genre, b.PublishedYear, 1, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert book: %w", classifyPgError(err))
	}

	b.ID = id
	b.Version = 1
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (r *PostgresRepo) update(ctx context.Context, b *Book) error {
	if err := checkUUID(b.ID); err != nil {
		return err
	}
	now := r.now()
	sql, args, err := psql.Update("books").
		SetMap(map[string]interface{}{
			"title":          b.Title,
			"author":         b.Author,
			"genre":          b.Genre,
			"published_year": b.PublishedYear,
			"updated_at":     now,
			"version":        squirrel.Expr("version + 1"),
		}).
		Where(squirrel.Eq{"id": b.ID, "version": b.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update book %s: %w", b.ID, classifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)", b.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update book %s: %w", b.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	b.Version++
	b.UpdatedAt = now
	return nil
}

func (r *PostgresRepo) Remove(ctx context.Context, b Book) error {
	if err := checkUUID(b.ID); err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, "DELETE FROM books WHERE id = $1", b.ID)
	if err != nil {
		return fmt.Errorf("delete book %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.PublishedYear,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// classifyPgError maps constraint violations to ErrInvalidDocument.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", "23514":
			return fmt.Errorf("%w: %s", ErrInvalidDocument, pgErr.Message)
		case "2201B":
			return fmt.Errorf("%w: %s", ErrInvalidFilter, pgErr.Message)
		}
	}
	return err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store implements app.Store on Postgres through pgx.
type Store struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ app.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// WithinTx runs fn in one database transaction. Enrollment reads made
// through the transactional store lock their rows until commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &Store{pool: s.pool, q: tx, inTx: true})
	})
}

// forUpdate appends a row lock when running inside a transaction.
func (s *Store) forUpdate(query string) string {
	if s.inTx {
		return query + " FOR UPDATE"
	}
	return query
}

// mapError turns driver errors into domain errors. notFound is returned for
// pgx.ErrNoRows.
func mapError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "enrollments_current_uniq" {
				return domain.ErrAlreadyEnrolled
			}
			return fmt.Errorf("%s: %w", op, domain.ErrAlreadyEnrolled.Detail("duplicate %s", pgErr.ConstraintName))
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, domain.ErrInvalidInput.Detail("missing reference: %s", pgErr.ConstraintName))
		case "23514": // check_violation
			return fmt.Errorf("%s: %w", op, domain.ErrInvalidInput.Detail("check failed: %s", pgErr.ConstraintName))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

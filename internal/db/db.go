package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Psql builds PostgreSQL statements with $n placeholders.
var Psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

/* ===================== CONNECT ===================== */

// Connect opens a pool and keeps pinging until the database answers or
// timeout elapses.
func Connect(ctx context.Context, url string, maxConns int32, timeout time.Duration, log zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = maxConns

	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
		if err == nil {
			err = pool.Ping(pingCtx)
			if err == nil {
				cancel()
				log.Info().Int("attempt", attempt).Int32("max_conns", maxConns).Msg("database connected")
				return pool, nil
			}
			pool.Close()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect database after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

/* ===================== TX ===================== */

// WithTx runs fn inside a transaction. Any error from fn, or a panic, rolls
// the transaction back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

/* ===================== SQUIRREL HELPERS ===================== */

func Exec(ctx context.Context, q Querier, b sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build query: %w", err)
	}
	return q.Exec(ctx, sql, args...)
}

func Query(ctx context.Context, q Querier, b sq.Sqlizer) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.Query(ctx, sql, args...)
}

func QueryRow(ctx context.Context, q Querier, b sq.Sqlizer) pgx.Row {
	sql, args, err := b.ToSql()
	if err != nil {
		return errRow{fmt.Errorf("build query: %w", err)}
	}
	return q.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// Select runs b and collects every row into T by column name.
func Select[T any](ctx context.Context, q Querier, b sq.Sqlizer) ([]T, error) {
	rows, err := Query(ctx, q, b)
	if err != nil {
		return nil, err
	}
	return Collect[T](rows)
}

// Collect scans rows into T by column name and closes them. It never
// returns a nil slice.
func Collect[T any](rows pgx.Rows) ([]T, error) {
	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Get runs b and scans exactly one row into T by column name.
func Get[T any](ctx context.Context, q Querier, b sq.Sqlizer) (T, error) {
	rows, err := Query(ctx, q, b)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[T])
}

/* ===================== PG ERRORS ===================== */

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// UniqueViolation reports whether err is a unique violation and, if so, the
// violated constraint.
func UniqueViolation(err error) (string, bool) {
	return pgCode(err, codeUniqueViolation)
}

func ForeignKeyViolation(err error) (string, bool) {
	return pgCode(err, codeForeignKeyViolation)
}

func CheckViolation(err error) (string, bool) {
	return pgCode(err, codeCheckViolation)
}

func pgCode(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

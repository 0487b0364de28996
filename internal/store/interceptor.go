package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// QueryInterceptor is the subset of *sql.DB used by the repositories.
type QueryInterceptor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryInterceptor logs every statement with its duration. Arguments are
// counted, not logged: they carry icon blobs.
type queryInterceptor struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func newQueryInterceptor(db *sql.DB) *queryInterceptor {
	return &queryInterceptor{
		db:     db,
		logger: zap.S().Named("store"),
	}
}

func (q *queryInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := q.db.QueryRowContext(ctx, query, args...)
	q.log("query_row", query, len(args), start, row.Err())
	return row
}

func (q *queryInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.db.QueryContext(ctx, query, args...)
	q.log("query", query, len(args), start, err)
	return rows, err
}

func (q *queryInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := q.db.ExecContext(ctx, query, args...)
	q.log("exec", query, len(args), start, err)
	return res, err
}

func (q *queryInterceptor) log(kind, query string, nargs int, start time.Time, err error) {
	fields := []any{"query", query, "args_count", nargs, "duration", time.Since(start)}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		q.logger.Warnw(kind, append(fields, "error", err)...)
		return
	}
	q.logger.Debugw(kind, fields...)
}

package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type retryRow struct {
	ctx         context.Context
	query       func() *sql.Row
	timeout     time.Duration
	queryText   string
	queryArgs   []any
	queryCaller string
}

func (r retryRow) Scan(dest ...any) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := r.query().Scan(dest...)
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql query row done", "caller", r.queryCaller, "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return err
		}
		slog.Debug("sql query row busy", "query", r.queryText, "args", r.queryArgs, "caller", r.queryCaller, "attempt", attempt+1, "err", err)
		if reason := stopRetry(r.ctx, start, r.timeout); reason != "" {
			slog.Debug("sql query row done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			if reason == "context" {
				return r.ctx.Err()
			}
			return err
		}
		time.Sleep(retryDelay(attempt))
	}
}

func (r *Repository) queryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	_, file, line, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		caller = file + ":" + fmt.Sprint(line)
	}
	slog.Debug("sql query row", "query", query, "args", args, "caller", caller)
	return retryRow{
		ctx:         ctx,
		query:       func() *sql.Row { return r.q.QueryRowContext(ctx, query, args...) },
		timeout:     r.lockTimeout,
		queryText:   query,
		queryArgs:   args,
		queryCaller: caller,
	}
}

func (r *Repository) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	slog.Debug("sql exec", "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		res, err := r.q.ExecContext(ctx, query, args...)
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql exec done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return res, err
		}
		if reason := stopRetry(ctx, start, r.lockTimeout); reason != "" {
			slog.Debug("sql exec done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			if reason == "context" {
				return nil, ctx.Err()
			}
			return nil, err
		}
		time.Sleep(retryDelay(attempt))
	}
}

func (r *Repository) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	slog.Debug("sql query", "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		rows, err := r.q.QueryContext(ctx, query, args...)
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql query done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return rows, err
		}
		if reason := stopRetry(ctx, start, r.lockTimeout); reason != "" {
			slog.Debug("sql query done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			if reason == "context" {
				return nil, ctx.Err()
			}
			return nil, err
		}
		time.Sleep(retryDelay(attempt))
	}
}

// stopRetry returns a non-empty reason when a busy statement should not be
// retried again.
func stopRetry(ctx context.Context, start time.Time, timeout time.Duration) string {
	switch {
	case timeout <= 0:
		return "no-timeout"
	case ctx.Err() != nil:
		return "context"
	case time.Since(start) >= timeout:
		return "timeout"
	}
	return ""
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * 40 * time.Millisecond
	if delay > 300*time.Millisecond {
		delay = 300 * time.Millisecond
	}
	return delay
}

func isSQLiteBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

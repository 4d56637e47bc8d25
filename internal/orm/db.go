package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shardroute/internal/shard"
)

// StatementHook observes every statement right before it is sent, together
// with the label of the shard it runs on.
type StatementHook func(shard, query string)

// DB issues statements on the active handle of the scope found in the context.
type DB struct {
	hook StatementHook
}

// Option customizes a DB.
type Option func(*DB)

// WithStatementHook installs a hook called for every statement.
func WithStatementHook(h StatementHook) Option {
	return func(db *DB) { db.hook = h }
}

// New constructs a DB.
func New(opts ...Option) *DB {
	db := &DB{}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) notify(h *shard.Handle, query string) {
	if db.hook != nil {
		db.hook(h.Label(), query)
	}
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	scope, err := shard.Current(ctx)
	if err != nil {
		return nil, err
	}
	var res sql.Result
	err = scope.Do(func(h *shard.Handle) error {
		q := rebind(h.Dialect, query)
		db.notify(h, q)
		var execErr error
		res, execErr = h.Conn.ExecContext(ctx, q, args...)
		return execErr
	})
	if c := cacheFrom(ctx); c != nil {
		c.clear()
	}
	return res, err
}

func (db *DB) insertReturning(ctx context.Context, query string, args ...any) (int64, error) {
	scope, err := shard.Current(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	err = scope.Do(func(h *shard.Handle) error {
		q := rebind(h.Dialect, query)
		db.notify(h, q)
		return h.Conn.QueryRowContext(ctx, q, args...).Scan(&id)
	})
	if c := cacheFrom(ctx); c != nil {
		c.clear()
	}
	return id, err
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*resultSet, error) {
	scope, err := shard.Current(ctx)
	if err != nil {
		return nil, err
	}
	cache := readCache(ctx)
	var rs *resultSet
	err = scope.Do(func(h *shard.Handle) error {
		key := queryCacheKey(h.Label(), query, args)
		if cache != nil {
			if hit, ok := cache.get(key); ok {
				rs = hit
				return nil
			}
		}
		q := rebind(h.Dialect, query)
		db.notify(h, q)
		rows, qErr := h.Conn.QueryContext(ctx, q, args...)
		if qErr != nil {
			return qErr
		}
		read, rErr := readRows(rows)
		if rErr != nil {
			return rErr
		}
		rs = read
		if cache != nil {
			cache.put(key, read)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", firstWords(query), err)
	}
	return rs, nil
}

// rebind rewrites '?' markers outside string literals into dialect placeholders.
func rebind(d shard.Dialect, query string) string {
	if d == nil || d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstWords(query string) string {
	fields := strings.Fields(query)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

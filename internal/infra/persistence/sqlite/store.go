// Package sqlite opens SQLite databases as shard handles using the pure Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"shardroute/internal/shard"
)

const driverName = "sqlite"

// Open opens (creating if needed) the SQLite file at path and verifies it
// answers. A busy timeout is set so that concurrent units of work writing to
// the same shard wait instead of failing immediately.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewHandle opens path and wraps it as a shard handle.
func NewHandle(ctx context.Context, path string) (shard.Handle, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return shard.Handle{}, err
	}
	return shard.Handle{Conn: db, Dialect: shard.SQLite}, nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

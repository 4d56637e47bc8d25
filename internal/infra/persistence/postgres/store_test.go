package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"shardroute/internal/infra/persistence/postgres/testutil"
	"shardroute/internal/shard"
)

func TestOpenUsesDefaultDSNAndPings(t *testing.T) {
	db, _ := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()

	opened, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != db {
		t.Fatalf("expected stub db to be returned")
	}
	if gotDriver != defaultDriver {
		t.Fatalf("expected driver %s, got %s", defaultDriver, gotDriver)
	}
	if gotDSN != defaultDSN {
		t.Fatalf("expected default dsn, got %s", gotDSN)
	}
}

func TestOpenFailures(t *testing.T) {
	t.Run("open error", func(t *testing.T) {
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) {
			return nil, errors.New("boom")
		})
		defer restore()
		if _, err := Open(context.Background(), "postgres://x"); err == nil {
			t.Fatalf("expected open error")
		}
	})
	t.Run("ping error", func(t *testing.T) {
		db, conn := testutil.NewStubDB()
		conn.FailPing = true
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
		defer restore()
		if _, err := Open(context.Background(), "postgres://x"); err == nil {
			t.Fatalf("expected ping error")
		}
	})
}

func TestNewHandleUsesPostgresDialect(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	h, err := NewHandle(context.Background(), "postgres://shard-2")
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if h.Dialect != shard.Postgres {
		t.Fatalf("expected postgres dialect, got %s", h.Dialect.Name())
	}
	if h.Conn == nil {
		t.Fatalf("expected connection on handle")
	}
}

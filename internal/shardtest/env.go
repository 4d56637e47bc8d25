package shardtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"shardroute/internal/infra/persistence/sqlite"
	"shardroute/internal/shard"
)

// Schema creates every fixture table. Each shard gets its own copy.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, balance INTEGER NOT NULL DEFAULT 0, active BOOLEAN NOT NULL DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS orders (id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL DEFAULT 0, product_id INTEGER, amount INTEGER NOT NULL DEFAULT 0, paid BOOLEAN NOT NULL DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS products (id INTEGER PRIMARY KEY AUTOINCREMENT, sku TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS line_items (id INTEGER PRIMARY KEY AUTOINCREMENT, order_id INTEGER NOT NULL DEFAULT 0, quantity INTEGER NOT NULL DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS profiles (id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER, bio TEXT NOT NULL DEFAULT '')`,
	`CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL DEFAULT 0, body TEXT NOT NULL DEFAULT '', pinned BOOLEAN NOT NULL DEFAULT 0, votes INTEGER NOT NULL DEFAULT 0)`,
}

// Statement is one SQL statement observed on a shard.
type Statement struct {
	Shard string
	Query string
}

// Env is a registry whose default shard and named shards are separate SQLite
// files under a test temp dir.
type Env struct {
	Registry *shard.Registry

	dbs map[string]*sql.DB

	mu  sync.Mutex
	log []Statement
}

// NewEnv opens the default shard plus one database per name and applies Schema to each.
func NewEnv(t testing.TB, names ...string) *Env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	env := &Env{dbs: make(map[string]*sql.DB)}

	open := func(name string) shard.Handle {
		label := name
		if label == "" {
			label = shard.DefaultShardName
		}
		h, err := sqlite.NewHandle(ctx, filepath.Join(dir, label+".db"))
		if err != nil {
			t.Fatalf("open shard %s: %v", label, err)
		}
		h.Name = name
		db := h.Conn.(*sql.DB)
		for _, stmt := range Schema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				t.Fatalf("schema on %s: %v", label, err)
			}
		}
		env.dbs[name] = db
		return h
	}

	def := open("")
	shards := make(map[string]shard.Handle, len(names))
	for _, name := range names {
		shards[name] = open(name)
	}
	reg, err := shard.NewRegistry(def, shards)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	env.Registry = reg
	t.Cleanup(func() { _ = reg.Close() })
	return env
}

// DB returns the raw database behind a shard; "" is the default shard.
func (e *Env) DB(name string) *sql.DB { return e.dbs[name] }

// Record is a statement hook that appends to the environment log.
func (e *Env) Record(shardLabel, query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, Statement{Shard: shardLabel, Query: query})
}

// Statements returns a copy of the observed statements.
func (e *Env) Statements() []Statement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Statement(nil), e.log...)
}

// ResetStatements clears the statement log.
func (e *Env) ResetStatements() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = nil
}

// Count returns the number of rows in table on the named shard.
func (e *Env) Count(t testing.TB, name, table string) int {
	t.Helper()
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := e.DB(name).QueryRowContext(context.Background(), q).Scan(&n); err != nil {
		t.Fatalf("count %s on %q: %v", table, name, err)
	}
	return n
}

// Exec runs a raw statement on the named shard, bypassing any scope.
func (e *Env) Exec(t testing.TB, name, query string, args ...any) {
	t.Helper()
	if _, err := e.DB(name).ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec on %q: %v", name, err)
	}
}

// Scope returns a context carrying a fresh scope over the environment registry.
func (e *Env) Scope(ctx context.Context, opts ...shard.ScopeOption) (context.Context, *shard.Scope) {
	s := shard.NewScope(e.Registry, opts...)
	return shard.WithScope(ctx, s), s
}

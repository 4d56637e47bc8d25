package core

import (
	"context"
	"sync"
	"testing"

	"shardroute/internal/orm"
	"shardroute/internal/shardtest"
	"shardroute/pkg/domain"
)

type activation struct {
	from, to string
}

type captureObserver struct {
	mu    sync.Mutex
	moves []activation
}

func (c *captureObserver) ObserveActivation(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moves = append(c.moves, activation{from: from, to: to})
}

func (c *captureObserver) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.moves)
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+":"+msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func (l *captureLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e == entry {
			return true
		}
	}
	return false
}

type fixture struct {
	env      *shardtest.Env
	router   *Router
	observer *captureObserver
	ctx      context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	env := shardtest.NewEnv(t, "s1", "s2")
	observer := &captureObserver{}
	opts = append([]Option{
		WithDB(orm.New(orm.WithStatementHook(env.Record))),
		WithObserver(observer),
	}, opts...)
	r := NewRouter(env.Registry, opts...)
	registrations := []struct {
		proto  domain.Record
		assocs []domain.Association
	}{
		{&shardtest.Account{}, shardtest.AccountAssociations()},
		{&shardtest.Order{}, shardtest.OrderAssociations()},
		{&shardtest.Note{}, shardtest.NoteAssociations()},
		{&shardtest.Product{}, nil},
		{&shardtest.LineItem{}, nil},
		{&shardtest.Profile{}, nil},
	}
	for _, reg := range registrations {
		if err := r.Register(reg.proto, reg.assocs...); err != nil {
			t.Fatalf("register %s: %v", reg.proto.TableName(), err)
		}
	}
	return &fixture{env: env, router: r, observer: observer, ctx: r.Begin(context.Background())}
}

// account creates an account pinned to shardName through the router.
func (f *fixture) account(t *testing.T, shardName, name string) *shardtest.Account {
	t.Helper()
	acct := &shardtest.Account{Name: name}
	acct.SetCurrentShard(shardName)
	if err := f.router.Create(f.ctx, acct); err != nil {
		t.Fatalf("create account on %q: %v", shardName, err)
	}
	return acct
}

func (f *fixture) active(t *testing.T) string {
	t.Helper()
	name, err := activeShard(f.ctx)
	if err != nil {
		t.Fatalf("active shard: %v", err)
	}
	return name
}

// assertShards fails unless every statement logged since the last reset ran
// on want and at least one statement ran.
func (f *fixture) assertShards(t *testing.T, want string) {
	t.Helper()
	stmts := f.env.Statements()
	if len(stmts) == 0 {
		t.Fatalf("no statements issued")
	}
	for _, s := range stmts {
		if s.Shard != want {
			t.Fatalf("statement %q ran on %s, want %s", s.Query, s.Shard, want)
		}
	}
}

func keysOfRecords(recs []domain.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Key())
	}
	return out
}

package shard

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingObserver struct {
	mu    sync.Mutex
	moves []string
}

func (o *recordingObserver) ObserveActivation(from, to string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves = append(o.moves, from+"->"+to)
}

func TestScopeActivate(t *testing.T) {
	reg := newTestRegistry(t, "s1", "s2")
	obs := &recordingObserver{}
	scope := NewScope(reg, WithObserver(obs))

	if scope.Active() != reg.Default() {
		t.Fatalf("expected scope to start on default shard")
	}
	if err := scope.Activate("s2"); err != nil {
		t.Fatalf("Activate(s2): %v", err)
	}
	if got := scope.Active().Name; got != "s2" {
		t.Fatalf("expected s2 active, got %q", got)
	}
	// Redundant activation is a no-op.
	if err := scope.Activate("s2"); err != nil {
		t.Fatalf("Activate(s2) again: %v", err)
	}
	if err := scope.Activate(""); err != nil {
		t.Fatalf("Activate(default): %v", err)
	}
	want := []string{"default->s2", "s2->default"}
	if len(obs.moves) != len(want) {
		t.Fatalf("expected moves %v, got %v", want, obs.moves)
	}
	for i := range want {
		if obs.moves[i] != want[i] {
			t.Fatalf("expected moves %v, got %v", want, obs.moves)
		}
	}
}

func TestScopeUnknownShardKeepsActive(t *testing.T) {
	reg := newTestRegistry(t, "s1")
	scope := NewScope(reg)
	if err := scope.Activate("s1"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	err := scope.Activate("missing")
	if !IsUnknownShard(err) {
		t.Fatalf("expected unknown shard error, got %v", err)
	}
	if got := scope.Active().Name; got != "s1" {
		t.Fatalf("failed activation must not move the scope, got %q", got)
	}
}

func TestScopeRefusesSwitchDuringStatement(t *testing.T) {
	reg := newTestRegistry(t, "s1", "s2")
	scope := NewScope(reg)
	err := scope.Do(func(h *Handle) error {
		if h.Name != "" {
			t.Fatalf("expected default handle, got %q", h.Name)
		}
		return scope.Activate("s1")
	})
	if !errors.Is(err, ErrStatementInFlight) {
		t.Fatalf("expected ErrStatementInFlight, got %v", err)
	}
	// Activating the shard already in use is still allowed mid-statement.
	if err := scope.Do(func(*Handle) error { return scope.Activate("") }); err != nil {
		t.Fatalf("idempotent activation mid-statement: %v", err)
	}
	if err := scope.Activate("s1"); err != nil {
		t.Fatalf("Activate after statement: %v", err)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	reg := newTestRegistry(t, "s1", "s2")
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		name := "s1"
		if i%2 == 1 {
			name = "s2"
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			scope := NewScope(reg)
			for j := 0; j < 100; j++ {
				if err := scope.Activate(name); err != nil {
					errs <- err
					return
				}
				if got := scope.Active().Name; got != name {
					errs <- errors.New("scope observed foreign activation: " + got)
					return
				}
				if err := scope.Activate(""); err != nil {
					errs <- err
					return
				}
			}
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestScopeContext(t *testing.T) {
	ctx := context.Background()
	if _, err := Current(ctx); !errors.Is(err, ErrNoScope) {
		t.Fatalf("expected ErrNoScope, got %v", err)
	}
	scope := NewScope(newTestRegistry(t))
	ctx = WithScope(ctx, scope)
	got, err := Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != scope {
		t.Fatalf("expected the attached scope back")
	}
}

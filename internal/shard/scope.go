package shard

import (
	"context"
	"sync"
)

// ActivationObserver is notified whenever a scope actually changes shard.
type ActivationObserver interface {
	ObserveActivation(from, to string)
}

// Scope is the connection switcher of a single unit of work. It starts on
// the default shard.
type Scope struct {
	registry *Registry
	observer ActivationObserver

	mu       sync.Mutex
	active   *Handle
	inFlight int
}

// ScopeOption customizes a Scope.
type ScopeOption func(*Scope)

// WithObserver reports shard switches to o.
func WithObserver(o ActivationObserver) ScopeOption {
	return func(s *Scope) { s.observer = o }
}

// NewScope creates a scope bound to the registry.
func NewScope(registry *Registry, opts ...ScopeOption) *Scope {
	s := &Scope{registry: registry, active: registry.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate makes the named shard the active one. Activating the shard that is
// already active does nothing; unknown names leave the scope untouched.
func (s *Scope) Activate(name string) error {
	s.mu.Lock()
	if s.active.Name == name {
		s.mu.Unlock()
		return nil
	}
	if s.inFlight > 0 {
		s.mu.Unlock()
		return ErrStatementInFlight
	}
	h, err := s.registry.Lookup(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	from := s.active.Label()
	s.active = h
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveActivation(from, h.Label())
	}
	return nil
}

// Active returns the handle statements currently run on.
func (s *Scope) Active() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Registry returns the registry the scope resolves names against.
func (s *Scope) Registry() *Registry { return s.registry }

// Do runs fn against the active handle. The shard cannot be switched until fn returns.
func (s *Scope) Do(fn func(h *Handle) error) error {
	s.mu.Lock()
	h := s.active
	s.inFlight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()
	return fn(h)
}

type scopeKey struct{}

// WithScope attaches the scope to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope carried by ctx.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// Current returns the scope carried by ctx or ErrNoScope.
func Current(ctx context.Context) (*Scope, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoScope
	}
	return s, nil
}

package shard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
)

// DefaultShardName labels the default handle in logs and metrics. It is not a
// routable name: the empty string selects the default shard.
const DefaultShardName = "default"

// Conn is the slice of *sql.DB the persistence layer issues statements through.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

var _ Conn = (*sql.DB)(nil)

// Handle is one registered physical database.
type Handle struct {
	Name    string
	Conn    Conn
	Dialect Dialect
}

// Label returns the handle name, substituting DefaultShardName for the default handle.
func (h *Handle) Label() string {
	if h.Name == "" {
		return DefaultShardName
	}
	return h.Name
}

// Registry maps shard names to handles. It is immutable after NewRegistry.
type Registry struct {
	def    *Handle
	shards map[string]*Handle
	names  []string
}

// NewRegistry builds a registry from the default handle and the named shards.
func NewRegistry(def Handle, shards map[string]Handle) (*Registry, error) {
	if def.Conn == nil {
		return nil, errors.New("shard: default connection is required")
	}
	if def.Dialect == nil {
		def.Dialect = SQLite
	}
	def.Name = ""
	r := &Registry{
		def:    &def,
		shards: make(map[string]*Handle, len(shards)),
		names:  make([]string, 0, len(shards)),
	}
	for name, h := range shards {
		if name == "" {
			return nil, errors.New("shard: shard name cannot be empty")
		}
		if h.Conn == nil {
			return nil, fmt.Errorf("shard: %s has no connection", name)
		}
		if h.Dialect == nil {
			h.Dialect = SQLite
		}
		h.Name = name
		handle := h
		r.shards[name] = &handle
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup resolves a shard name; the empty name resolves to the default handle.
func (r *Registry) Lookup(name string) (*Handle, error) {
	if name == "" {
		return r.def, nil
	}
	h, ok := r.shards[name]
	if !ok {
		return nil, &UnknownShardError{Name: name}
	}
	return h, nil
}

// Default returns the default handle.
func (r *Registry) Default() *Handle { return r.def }

// Names returns the registered shard names in sorted order, excluding the default.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Ping checks every handle, default first, and reports the first failure per shard.
func (r *Registry) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error, len(r.names)+1)
	out[r.def.Label()] = r.def.Conn.PingContext(ctx)
	for _, name := range r.names {
		out[name] = r.shards[name].Conn.PingContext(ctx)
	}
	return out
}

// Close closes every handle whose connection is an io.Closer.
func (r *Registry) Close() error {
	var errs []error
	closeConn := func(h *Handle) {
		if c, ok := h.Conn.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", h.Label(), err))
			}
		}
	}
	closeConn(r.def)
	for _, name := range r.names {
		closeConn(r.shards[name])
	}
	return errors.Join(errs...)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"shardroute/internal/orm"
	"shardroute/internal/shard"
	"shardroute/pkg/domain"
)

// Router is the shard-aware front of the orm. It is safe for concurrent use;
// per unit of work state lives in the scope carried by the context.
type Router struct {
	registry  *shard.Registry
	db        *orm.DB
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	clock     Clock
	observers []shard.ActivationObserver

	mu     sync.RWMutex
	models map[reflect.Type]*model
}

// Option customizes a Router.
type Option func(*Router)

// WithLogger sets the logger used for activation and failure reports.
func WithLogger(l Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the operation metrics recorder. Recorders that also
// implement shard.ActivationObserver receive shard switches.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer sets the tracer wrapping each operation.
func WithTracer(t Tracer) Option {
	return func(r *Router) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithObserver adds an observer notified of every shard switch in scopes
// started by the router.
func WithObserver(o shard.ActivationObserver) Option {
	return func(r *Router) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithClock overrides the clock used for latency measurements.
func WithClock(c Clock) Option {
	return func(r *Router) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithDB sets the orm handle operations are delegated to.
func WithDB(db *orm.DB) Option {
	return func(r *Router) {
		if db != nil {
			r.db = db
		}
	}
}

// NewRouter constructs a router over the registry.
func NewRouter(registry *shard.Registry, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		db:       orm.New(),
		logger:   noopLogger{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		clock:    ClockFunc(time.Now),
		models:   make(map[reflect.Type]*model),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the shard registry.
func (r *Router) Registry() *shard.Registry { return r.registry }

// DB returns the orm handle operations are delegated to.
func (r *Router) DB() *orm.DB { return r.db }

// Begin starts a unit of work on the default shard and returns a context
// carrying its scope. Each request or job should begin its own.
func (r *Router) Begin(ctx context.Context) context.Context {
	return shard.WithScope(ctx, shard.NewScope(r.registry, shard.WithObserver(r)))
}

// ObserveActivation implements shard.ActivationObserver for scopes started by Begin.
func (r *Router) ObserveActivation(from, to string) {
	r.logger.Debug("shard activated", "from", from, "to", to)
	if o, ok := r.metrics.(shard.ActivationObserver); ok {
		o.ObserveActivation(from, to)
	}
	for _, o := range r.observers {
		o.ObserveActivation(from, to)
	}
}

// ResolveShard returns the shard a record is pinned to and whether the record
// takes part in routing at all. An empty name means the default shard.
func (r *Router) ResolveShard(rec domain.Record) (string, bool) {
	if !r.modelOf(rec).aware {
		return "", false
	}
	return rec.(domain.ShardAware).CurrentShard(), true
}

// activate switches the unit of work to the record's shard. Records without
// shard capability leave the scope untouched.
func (r *Router) activate(ctx context.Context, rec domain.Record) error {
	name, aware := r.ResolveShard(rec)
	if !aware {
		return nil
	}
	scope, err := shard.Current(ctx)
	if err != nil {
		return err
	}
	if err := scope.Activate(name); err != nil {
		var unknown *shard.UnknownShardError
		if errors.As(err, &unknown) {
			r.logger.Warn("record pinned to unknown shard", "table", rec.TableName(), "shard", unknown.Name)
		}
		return err
	}
	return nil
}

// activeShard returns the name of the shard the unit of work is on.
func activeShard(ctx context.Context) (string, error) {
	scope, err := shard.Current(ctx)
	if err != nil {
		return "", err
	}
	return scope.Active().Name, nil
}

// instrument runs fn inside a span and records its latency.
func (r *Router) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	start := r.clock.Now()
	ctx, span := r.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	r.metrics.Observe(ctx, op, err == nil, r.clock.Now().Sub(start))
	return err
}

// stamp pins target to the owner's shard when the owner takes part in routing.
func (r *Router) stamp(owner, target domain.Record) {
	if target == nil {
		return
	}
	name, aware := r.ResolveShard(owner)
	if !aware {
		return
	}
	if r.modelOf(target).aware {
		target.(domain.ShardAware).SetCurrentShard(name)
	}
}

func describe(rec domain.Record, name string) string {
	return fmt.Sprintf("%s.%s", rec.TableName(), name)
}

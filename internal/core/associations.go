package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"shardroute/internal/orm"
	"shardroute/pkg/domain"
)

// prepare activates the owner's shard and reports the shard the unit of work
// is on afterwards together with whether a cached load must be discarded.
// The cache is not consulted until activation succeeded.
func (r *Router) prepare(ctx context.Context, owner domain.Record, reload []bool) (string, bool, error) {
	force := len(reload) > 0 && reload[0]
	if name, aware := r.ResolveShard(owner); aware {
		if name != "" {
			force = true
		}
		if err := r.activate(ctx, owner); err != nil {
			return "", false, err
		}
	}
	active, err := activeShard(ctx)
	if err != nil {
		return "", false, err
	}
	return active, force, nil
}

// fresh reports whether a cached state may be served on the active shard.
func fresh(st *domain.AssociationState, active string) bool {
	return st != nil && st.Loaded && st.Shard == active
}

func (r *Router) toOne(owner domain.Record, name string) (*domain.Association, error) {
	a, err := r.association(owner, name)
	if err != nil {
		return nil, err
	}
	if !a.Kind.ToOne() {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongAssociationKind, describe(owner, name), a.Kind)
	}
	return a, nil
}

func (r *Router) toMany(owner domain.Record, name string) (*domain.Association, error) {
	a, err := r.association(owner, name)
	if err != nil {
		return nil, err
	}
	if a.Kind != domain.HasMany {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongAssociationKind, describe(owner, name), a.Kind)
	}
	return a, nil
}

// One returns the target of a to-one association, loading it from the
// owner's shard when it is not cached, when reload is requested, when the
// owner is pinned to a non-default shard, or when the cached load came from
// another shard. A missing target is cached as loaded and returned as nil.
func (r *Router) One(ctx context.Context, owner domain.Record, name string, reload ...bool) (domain.Record, error) {
	a, err := r.toOne(owner, name)
	if err != nil {
		return nil, err
	}
	var target domain.Record
	err = r.instrument(ctx, "association.one", func(ctx context.Context) error {
		active, force, err := r.prepare(ctx, owner, reload)
		if err != nil {
			return err
		}
		cache := owner.Associations()
		st := cache.Get(name)
		if fresh(st, active) && !force {
			target = st.Target
			return nil
		}
		loadCtx := ctx
		if force || st != nil {
			loadCtx = orm.Uncached(ctx)
		}
		loaded, err := r.db.LoadOne(loadCtx, owner, a)
		if err != nil {
			return err
		}
		r.stamp(owner, loaded)
		cache.Set(name, &domain.AssociationState{Loaded: true, Target: loaded, Shard: active})
		target = loaded
		return nil
	})
	return target, err
}

// Many returns the targets of a collection association under the same
// reload rules as One.
func (r *Router) Many(ctx context.Context, owner domain.Record, name string, reload ...bool) ([]domain.Record, error) {
	a, err := r.toMany(owner, name)
	if err != nil {
		return nil, err
	}
	var targets []domain.Record
	err = r.instrument(ctx, "association.many", func(ctx context.Context) error {
		var err error
		targets, err = r.loadMany(ctx, owner, a, reload)
		return err
	})
	return targets, err
}

func (r *Router) loadMany(ctx context.Context, owner domain.Record, a *domain.Association, reload []bool) ([]domain.Record, error) {
	active, force, err := r.prepare(ctx, owner, reload)
	if err != nil {
		return nil, err
	}
	cache := owner.Associations()
	st := cache.Get(a.Name)
	if fresh(st, active) && !force {
		return slices.Clone(st.Targets), nil
	}
	path, err := r.path(owner, a)
	if err != nil {
		return nil, err
	}
	loadCtx := ctx
	if force || st != nil {
		loadCtx = orm.Uncached(ctx)
	}
	targets, err := r.db.LoadMany(loadCtx, owner, a, path)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		r.stamp(owner, t)
	}
	cache.Set(a.Name, &domain.AssociationState{Loaded: true, Targets: targets, Shard: active})
	return slices.Clone(targets), nil
}

// LoadedOne reports whether a to-one association is cached for the owner's
// shard. The owner's shard is activated first.
func (r *Router) LoadedOne(ctx context.Context, owner domain.Record, name string) (bool, error) {
	if _, err := r.toOne(owner, name); err != nil {
		return false, err
	}
	active, _, err := r.prepare(ctx, owner, nil)
	if err != nil {
		return false, err
	}
	return fresh(owner.Associations().Get(name), active), nil
}

// SetOne assigns the target of a to-one association. For belongs-to the
// owner's foreign key follows the target. For has-one the previous target is
// detached and the new one attached, both written immediately when the owner
// is persisted. A nil value caches a loaded empty association.
func (r *Router) SetOne(ctx context.Context, owner domain.Record, name string, value domain.Record) error {
	a, err := r.toOne(owner, name)
	if err != nil {
		return err
	}
	return r.instrument(ctx, "association.set", func(ctx context.Context) error {
		active, _, err := r.prepare(ctx, owner, nil)
		if err != nil {
			return err
		}
		cache := owner.Associations()
		st := cache.Get(name)
		var previous domain.Record
		switch {
		case fresh(st, active):
			previous = st.Target
		case a.Kind == domain.HasOne && !domain.NewRecord(owner):
			if previous, err = r.db.LoadOne(orm.Uncached(ctx), owner, a); err != nil {
				return err
			}
		}
		if st == nil || st.Target != value {
			st = &domain.AssociationState{}
		}
		if err := r.replace(ctx, owner, a, previous, value); err != nil {
			return err
		}
		st.Loaded = true
		st.Target = value
		st.Shard = active
		cache.Set(name, st)
		return nil
	})
}

func (r *Router) replace(ctx context.Context, owner domain.Record, a *domain.Association, previous, value domain.Record) error {
	r.stamp(owner, value)
	switch a.Kind {
	case domain.BelongsTo:
		if value == nil {
			return clearForeignKey(owner, a.ForeignKey)
		}
		return domain.SetAttribute(owner, a.ForeignKey, value.Key())
	case domain.HasOne:
		persisted := !domain.NewRecord(owner)
		if previous != nil && !sameRecord(previous, value) {
			if err := clearForeignKey(previous, a.ForeignKey); err != nil {
				return err
			}
			if persisted && !domain.NewRecord(previous) {
				if err := r.db.UpdateColumns(ctx, previous, a.ForeignKey); err != nil {
					return err
				}
			}
		}
		if value == nil {
			return nil
		}
		if err := domain.SetAttribute(value, a.ForeignKey, owner.Key()); err != nil {
			return err
		}
		if persisted {
			return r.db.SaveStrict(ctx, value)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s is %s", ErrWrongAssociationKind, describe(owner, a.Name), a.Kind)
	}
}

func sameRecord(a, b domain.Record) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || (!domain.NewRecord(a) && a.TableName() == b.TableName() && a.Key() == b.Key())
}

// clearForeignKey nulls a nullable key column and zeroes a plain one.
func clearForeignKey(rec domain.Record, column string) error {
	err := domain.SetAttribute(rec, column, nil)
	if errors.Is(err, domain.ErrAttributeType) {
		return domain.SetAttribute(rec, column, int64(0))
	}
	return err
}

// SetTarget caches an already resolved target for a to-one association
// without touching foreign keys. A nil target is ignored.
func (r *Router) SetTarget(ctx context.Context, owner domain.Record, name string, target domain.Record) error {
	if _, err := r.toOne(owner, name); err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	active, _, err := r.prepare(ctx, owner, nil)
	if err != nil {
		return err
	}
	r.stamp(owner, target)
	owner.Associations().Set(name, &domain.AssociationState{Loaded: true, Target: target, Shard: active})
	return nil
}

// IDs returns the keys of a collection association, read from the loaded
// collection when it is cached for the active shard or uses a custom
// finder, and from a key-only query otherwise. Unsaved members are skipped.
func (r *Router) IDs(ctx context.Context, owner domain.Record, name string) ([]int64, error) {
	a, err := r.toMany(owner, name)
	if err != nil {
		return nil, err
	}
	var ids []int64
	err = r.instrument(ctx, "association.ids", func(ctx context.Context) error {
		active, _, err := r.prepare(ctx, owner, nil)
		if err != nil {
			return err
		}
		if st := owner.Associations().Get(name); fresh(st, active) {
			ids = keysOf(st.Targets)
			return nil
		}
		if a.FinderSQL != "" {
			targets, err := r.loadMany(ctx, owner, a, nil)
			if err != nil {
				return err
			}
			ids = keysOf(targets)
			return nil
		}
		path, err := r.path(owner, a)
		if err != nil {
			return err
		}
		ids, err = r.db.AssociationIDs(ctx, owner, a, path)
		return err
	})
	return ids, err
}

func keysOf(recs []domain.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, rec := range recs {
		if domain.NewRecord(rec) {
			continue
		}
		out = append(out, rec.Key())
	}
	return out
}

package core

import (
	"context"

	"shardroute/internal/shard"
	"shardroute/pkg/domain"
)

// Each mutation entry point activates the record's shard before delegating.
// Errors from the orm are returned as they are.

func (r *Router) routed(ctx context.Context, op string, rec domain.Record, fn func(context.Context) error) error {
	return r.instrument(ctx, op, func(ctx context.Context) error {
		if err := r.activate(ctx, rec); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// Create inserts a new record on its shard.
func (r *Router) Create(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "create", rec, func(ctx context.Context) error {
		return r.db.Create(ctx, rec)
	})
}

// Save validates and writes the record on its shard. Invalid records yield (false, nil).
func (r *Router) Save(ctx context.Context, rec domain.Record) (bool, error) {
	var saved bool
	err := r.routed(ctx, "save", rec, func(ctx context.Context) error {
		var err error
		saved, err = r.db.Save(ctx, rec)
		return err
	})
	return saved, err
}

// SaveStrict validates and writes the record on its shard, failing with
// *orm.RecordInvalidError when invalid.
func (r *Router) SaveStrict(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "save", rec, func(ctx context.Context) error {
		return r.db.SaveStrict(ctx, rec)
	})
}

// Update writes every column of a persisted record on its shard.
func (r *Router) Update(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "update", rec, func(ctx context.Context) error {
		return r.db.Update(ctx, rec)
	})
}

// UpdateAttribute assigns and writes a single column without validation.
func (r *Router) UpdateAttribute(ctx context.Context, rec domain.Record, name string, value any) error {
	return r.routed(ctx, "update_attribute", rec, func(ctx context.Context) error {
		return r.db.UpdateAttribute(ctx, rec, name, value)
	})
}

// UpdateAttributes assigns attrs and saves the record on its shard.
func (r *Router) UpdateAttributes(ctx context.Context, rec domain.Record, attrs domain.Attributes) (bool, error) {
	var saved bool
	err := r.routed(ctx, "update_attributes", rec, func(ctx context.Context) error {
		var err error
		saved, err = r.db.UpdateAttributes(ctx, rec, attrs)
		return err
	})
	return saved, err
}

// UpdateAttributesStrict assigns attrs and saves strictly on the record's shard.
func (r *Router) UpdateAttributesStrict(ctx context.Context, rec domain.Record, attrs domain.Attributes) error {
	return r.routed(ctx, "update_attributes", rec, func(ctx context.Context) error {
		return r.db.UpdateAttributesStrict(ctx, rec, attrs)
	})
}

// Delete removes the row on the record's shard without destroy hooks.
func (r *Router) Delete(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "delete", rec, func(ctx context.Context) error {
		return r.db.Delete(ctx, rec)
	})
}

// Destroy runs destroy hooks and removes the row on the record's shard. The
// record's association cache is dropped.
func (r *Router) Destroy(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "destroy", rec, func(ctx context.Context) error {
		return r.db.Destroy(ctx, rec)
	})
}

// Increment adds by to a numeric attribute in memory.
func (r *Router) Increment(ctx context.Context, rec domain.Record, name string, by int64) error {
	return r.routed(ctx, "increment", rec, func(context.Context) error {
		return r.db.Increment(rec, name, by)
	})
}

// IncrementSave increments the attribute and writes it on the record's shard.
func (r *Router) IncrementSave(ctx context.Context, rec domain.Record, name string, by int64) error {
	return r.routed(ctx, "increment", rec, func(ctx context.Context) error {
		return r.db.IncrementSave(ctx, rec, name, by)
	})
}

// Decrement subtracts by from a numeric attribute in memory.
func (r *Router) Decrement(ctx context.Context, rec domain.Record, name string, by int64) error {
	return r.routed(ctx, "decrement", rec, func(context.Context) error {
		return r.db.Decrement(rec, name, by)
	})
}

// DecrementSave decrements the attribute and writes it on the record's shard.
func (r *Router) DecrementSave(ctx context.Context, rec domain.Record, name string, by int64) error {
	return r.routed(ctx, "decrement", rec, func(ctx context.Context) error {
		return r.db.DecrementSave(ctx, rec, name, by)
	})
}

// Toggle flips a boolean attribute in memory.
func (r *Router) Toggle(ctx context.Context, rec domain.Record, name string) error {
	return r.routed(ctx, "toggle", rec, func(context.Context) error {
		return r.db.Toggle(rec, name)
	})
}

// ToggleSave flips a boolean attribute and writes it on the record's shard.
func (r *Router) ToggleSave(ctx context.Context, rec domain.Record, name string) error {
	return r.routed(ctx, "toggle", rec, func(ctx context.Context) error {
		return r.db.ToggleSave(ctx, rec, name)
	})
}

// Find loads a record from the active shard and pins it there when its type
// is shard aware. Callers pick the shard by activating it or by finding
// through an owner.
func (r *Router) Find(ctx context.Context, newFn func() domain.Record, id int64) (domain.Record, error) {
	var rec domain.Record
	err := r.instrument(ctx, "find", func(ctx context.Context) error {
		active, err := activeShard(ctx)
		if err != nil {
			return err
		}
		rec, err = r.db.Find(ctx, newFn, id)
		if err != nil {
			return err
		}
		if r.modelOf(rec).aware {
			rec.(domain.ShardAware).SetCurrentShard(active)
		}
		return nil
	})
	return rec, err
}

// Reload refreshes the record from its shard, bypassing the query cache.
func (r *Router) Reload(ctx context.Context, rec domain.Record) error {
	return r.routed(ctx, "reload", rec, func(ctx context.Context) error {
		return r.db.Reload(ctx, rec)
	})
}

// Activate switches the unit of work in ctx to the named shard.
func (r *Router) Activate(ctx context.Context, name string) error {
	scope, err := shard.Current(ctx)
	if err != nil {
		return err
	}
	return scope.Activate(name)
}

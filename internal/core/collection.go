package core

import (
	"context"
	"fmt"

	"shardroute/pkg/domain"
)

// Collection builds and creates records through a direct has-many
// association. Every record it instantiates is pinned to the owner's shard
// and carries the owner's key.
type Collection struct {
	router *Router
	owner  domain.Record
	assoc  *domain.Association
}

// Collection returns the builder for the named has-many association of owner.
func (r *Router) Collection(owner domain.Record, name string) (*Collection, error) {
	a, err := r.toMany(owner, name)
	if err != nil {
		return nil, err
	}
	if a.Indirect() {
		return nil, fmt.Errorf("%w: %s goes through %s", ErrWrongAssociationKind, describe(owner, name), a.Through)
	}
	return &Collection{router: r, owner: owner, assoc: a}, nil
}

// Build instantiates one unsaved record. customize runs after the owner's
// shard is stamped and before the foreign key is set.
func (c *Collection) Build(attrs domain.Attributes, customize ...func(domain.Record)) (domain.Record, error) {
	return c.build(attrs, customize)
}

// BuildMany builds one record per attribute set, in order.
func (c *Collection) BuildMany(attrs []domain.Attributes, customize ...func(domain.Record)) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(attrs))
	for _, a := range attrs {
		rec, err := c.build(a, customize)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create builds a record and saves it on the owner's shard. A record that
// fails validation is returned unsaved without an error.
func (c *Collection) Create(ctx context.Context, attrs domain.Attributes, customize ...func(domain.Record)) (domain.Record, error) {
	return c.create(ctx, attrs, customize, false)
}

// CreateMany creates one record per attribute set, in order.
func (c *Collection) CreateMany(ctx context.Context, attrs []domain.Attributes, customize ...func(domain.Record)) ([]domain.Record, error) {
	return c.createMany(ctx, attrs, customize, false)
}

// CreateStrict is Create failing with *orm.RecordInvalidError on invalid records.
func (c *Collection) CreateStrict(ctx context.Context, attrs domain.Attributes, customize ...func(domain.Record)) (domain.Record, error) {
	return c.create(ctx, attrs, customize, true)
}

// CreateStrictMany is CreateMany with strict saves. It stops at the first failure.
func (c *Collection) CreateStrictMany(ctx context.Context, attrs []domain.Attributes, customize ...func(domain.Record)) ([]domain.Record, error) {
	return c.createMany(ctx, attrs, customize, true)
}

func (c *Collection) createMany(ctx context.Context, attrs []domain.Attributes, customize []func(domain.Record), strict bool) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(attrs))
	for _, a := range attrs {
		rec, err := c.create(ctx, a, customize, strict)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection) create(ctx context.Context, attrs domain.Attributes, customize []func(domain.Record), strict bool) (domain.Record, error) {
	if domain.NewRecord(c.owner) {
		return nil, fmt.Errorf("%w: %s", ErrOwnerNotPersisted, describe(c.owner, c.assoc.Name))
	}
	if err := c.router.activate(ctx, c.owner); err != nil {
		return nil, err
	}
	rec, err := c.build(attrs, customize)
	if err != nil {
		return nil, err
	}
	c.router.stamp(c.owner, rec)
	if strict {
		err = c.router.SaveStrict(ctx, rec)
	} else {
		_, err = c.router.Save(ctx, rec)
	}
	return rec, err
}

func (c *Collection) build(attrs domain.Attributes, customize []func(domain.Record)) (domain.Record, error) {
	rec := c.assoc.Target()
	if err := domain.Assign(rec, attrs); err != nil {
		return nil, err
	}
	c.router.stamp(c.owner, rec)
	for _, fn := range customize {
		if fn != nil {
			fn(rec)
		}
	}
	if err := domain.SetAttribute(rec, c.assoc.ForeignKey, c.owner.Key()); err != nil {
		return nil, err
	}
	if st := c.owner.Associations().Get(c.assoc.Name); st != nil && st.Loaded {
		st.Targets = append(st.Targets, rec)
	}
	return rec, nil
}

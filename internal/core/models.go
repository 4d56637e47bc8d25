package core

import (
	"errors"
	"fmt"
	"reflect"

	"shardroute/internal/orm"
	"shardroute/pkg/domain"
)

type model struct {
	aware  bool
	assocs map[string]*domain.Association
}

func classify(rec domain.Record) *model {
	_, aware := rec.(domain.ShardAware)
	return &model{aware: aware, assocs: map[string]*domain.Association{}}
}

// Register records the shard capability and associations of proto's type.
// Registering a type again replaces its associations.
func (r *Router) Register(proto domain.Record, assocs ...domain.Association) error {
	if proto == nil {
		return errors.New("core: register needs a record prototype")
	}
	m := classify(proto)
	for i := range assocs {
		a := assocs[i]
		if err := checkAssociation(a); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAssociation, describe(proto, a.Name), err)
		}
		if _, dup := m.assocs[a.Name]; dup {
			return fmt.Errorf("%w: %s declared twice", ErrInvalidAssociation, describe(proto, a.Name))
		}
		m.assocs[a.Name] = &a
	}
	for _, a := range m.assocs {
		if !a.Indirect() {
			continue
		}
		through, ok := m.assocs[a.Through]
		if !ok {
			return fmt.Errorf("%w: %s goes through %q", ErrUnknownAssociation, describe(proto, a.Name), a.Through)
		}
		if through.Indirect() || through.Kind != domain.HasMany {
			return fmt.Errorf("%w: %s must go through a direct has_many", ErrInvalidAssociation, describe(proto, a.Name))
		}
	}

	r.mu.Lock()
	r.models[reflect.TypeOf(proto)] = m
	r.mu.Unlock()
	return nil
}

func checkAssociation(a domain.Association) error {
	switch {
	case a.Name == "":
		return errors.New("name is required")
	case a.Kind != domain.BelongsTo && a.Kind != domain.HasOne && a.Kind != domain.HasMany:
		return fmt.Errorf("unsupported kind %s", a.Kind)
	case a.Target == nil:
		return errors.New("target constructor is required")
	case a.Indirect() && a.Source == "":
		return errors.New("through association needs a source")
	case a.Indirect() && a.Kind != domain.HasMany:
		return errors.New("through association must be has_many")
	case !a.Indirect() && a.ForeignKey == "":
		return errors.New("foreign key is required")
	}
	return nil
}

// modelOf returns the registered model of rec's type, classifying and
// caching unregistered types on first use.
func (r *Router) modelOf(rec domain.Record) *model {
	t := reflect.TypeOf(rec)
	r.mu.RLock()
	m, ok := r.models[t]
	r.mu.RUnlock()
	if ok {
		return m
	}
	m = classify(rec)
	r.mu.Lock()
	if existing, ok := r.models[t]; ok {
		m = existing
	} else {
		r.models[t] = m
	}
	r.mu.Unlock()
	return m
}

func (r *Router) association(owner domain.Record, name string) (*domain.Association, error) {
	a, ok := r.modelOf(owner).assocs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAssociation, describe(owner, name))
	}
	return a, nil
}

// path resolves the hops of a through association. The source association
// is looked up on the intermediate type when first used.
func (r *Router) path(owner domain.Record, a *domain.Association) (*orm.Path, error) {
	if !a.Indirect() {
		return nil, nil
	}
	through, err := r.association(owner, a.Through)
	if err != nil {
		return nil, err
	}
	source, err := r.association(through.Target(), a.Source)
	if err != nil {
		return nil, err
	}
	return &orm.Path{Through: through, Source: source}, nil
}

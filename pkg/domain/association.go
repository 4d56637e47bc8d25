package domain

import "fmt"

// AssociationKind distinguishes to-one from to-many relationships.
type AssociationKind int

// Supported association kinds.
const (
	// BelongsTo is a to-one link whose foreign key lives on the owner.
	BelongsTo AssociationKind = iota + 1
	// HasOne is a to-one link whose foreign key lives on the target.
	HasOne
	// HasMany is a collection whose foreign key lives on the targets.
	HasMany
)

func (k AssociationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	default:
		return fmt.Sprintf("association_kind(%d)", int(k))
	}
}

// ToOne reports whether the kind resolves to a single target.
func (k AssociationKind) ToOne() bool { return k == BelongsTo || k == HasOne }

// Association describes one relationship of a record type.
type Association struct {
	Name       string
	Kind       AssociationKind
	Target     func() Record
	ForeignKey string

	// Through names another association of the owner that is traversed to
	// reach the targets; Source names the association on that intermediate
	// model pointing at the targets.
	Through string
	Source  string

	// FinderSQL replaces the generated finder. It must select target columns
	// and take exactly one placeholder bound to the owner key.
	FinderSQL string
}

// Indirect reports whether the association hops through another one.
func (a Association) Indirect() bool { return a.Through != "" }

// AssociationState is the cached materialization of one association.
type AssociationState struct {
	Loaded  bool
	Target  Record
	Targets []Record
	// Shard is the shard that was active when the state was loaded.
	Shard string
}

// AssociationCache holds association states keyed by association name.
type AssociationCache struct {
	entries map[string]*AssociationState
}

// Get returns the cached state or nil.
func (c *AssociationCache) Get(name string) *AssociationState {
	if c.entries == nil {
		return nil
	}
	return c.entries[name]
}

// Set stores a state; a nil state removes the entry.
func (c *AssociationCache) Set(name string, state *AssociationState) {
	if state == nil {
		delete(c.entries, name)
		return
	}
	if c.entries == nil {
		c.entries = make(map[string]*AssociationState)
	}
	c.entries[name] = state
}

// Reset drops every cached state.
func (c *AssociationCache) Reset() { c.entries = nil }

// Len returns the number of cached associations.
func (c *AssociationCache) Len() int { return len(c.entries) }

// Package domain defines the record, shard capability, and association
// primitives shared by the shard router and the persistence framework.
package domain

// Field binds a column name to the address of the struct field holding it.
type Field struct {
	Column string
	Ptr    any
}

// Record is a persisted entity. Implementations usually embed Base and list
// their non-key columns from Fields.
type Record interface {
	TableName() string
	PrimaryKey() string
	Key() int64
	SetKey(int64)
	Fields() []Field
	Associations() *AssociationCache
}

// Validator is implemented by records that reject invalid state before save.
type Validator interface {
	Validate() error
}

// DestroyHook runs before a record is destroyed. Delete skips it.
type DestroyHook interface {
	BeforeDestroy() error
}

// Attributes is an attribute set used for builds and partial updates.
type Attributes map[string]any

// Base carries the primary key and the owner-held association cache.
type Base struct {
	ID int64 `json:"id"`

	associations AssociationCache
}

// PrimaryKey returns the primary key column name.
func (b *Base) PrimaryKey() string { return "id" }

// Key returns the primary key value; zero means not yet persisted.
func (b *Base) Key() int64 { return b.ID }

// SetKey assigns the primary key value.
func (b *Base) SetKey(id int64) { b.ID = id }

// Associations exposes the association cache owned by the record.
func (b *Base) Associations() *AssociationCache { return &b.associations }

// NewRecord reports whether the record has not been persisted yet.
func NewRecord(r Record) bool { return r.Key() == 0 }


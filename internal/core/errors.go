package core

import "errors"

var (
	// ErrUnknownAssociation is returned when a record type has no association with the requested name.
	ErrUnknownAssociation = errors.New("core: unknown association")
	// ErrOwnerNotPersisted is returned when creating through an owner that has no key yet.
	ErrOwnerNotPersisted = errors.New("core: owner must be persisted before creating associated records")
	// ErrInvalidAssociation is returned by Register for a malformed association descriptor.
	ErrInvalidAssociation = errors.New("core: invalid association")
	// ErrWrongAssociationKind is returned when an accessor is used with an association of another kind.
	ErrWrongAssociationKind = errors.New("core: wrong association kind")
)

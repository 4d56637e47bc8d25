// Package core routes record persistence and association traversal to the
// shard a record is pinned to.
//
// A Router wraps the orm entry points. Before any mutation, association read,
// association write, or id projection issued for a shard-aware record, the
// router resolves the record's shard and activates it on the unit of work's
// scope carried in the context. Records created, built, assigned, or loaded
// through an owner's associations inherit the owner's shard.
package core

// Package shard holds the shard registry and the per-unit-of-work scope that
// selects which shard connection subsequent statements run on.
//
// The registry is built once at configuration time and shared read-only. A
// Scope is created for every request or job and travels in its
// context.Context; activating a shard on one scope never affects another.
package shard

// Package orm is the record persistence layer the shard router sits in front
// of. It generates SQL for domain.Record values, materializes associations,
// and keeps an optional per-request query cache. It knows nothing about
// shard selection: every statement runs on whatever handle the shard.Scope in
// the context has active.
package orm

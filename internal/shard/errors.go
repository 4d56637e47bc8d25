package shard

import (
	"errors"
	"fmt"
)

var (
	// ErrNoScope is returned when an operation runs without a Scope in its context.
	ErrNoScope = errors.New("shard: no scope in context")
	// ErrStatementInFlight is returned when a switch is attempted while a statement runs on the active shard.
	ErrStatementInFlight = errors.New("shard: statement in flight on active shard")
)

// UnknownShardError reports a shard name that is not registered.
type UnknownShardError struct {
	Name string
}

func (e *UnknownShardError) Error() string {
	return fmt.Sprintf("shard: unknown shard %q", e.Name)
}

// IsUnknownShard reports whether err carries an UnknownShardError.
func IsUnknownShard(err error) bool {
	var target *UnknownShardError
	return errors.As(err, &target)
}

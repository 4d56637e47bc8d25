package domain

// ShardAware is the capability a record type exposes to take part in shard
// routing. An empty shard name means the default shard.
type ShardAware interface {
	CurrentShard() string
	SetCurrentShard(name string)
}

// Sharded is the embeddable ShardAware implementation. The shard designation
// is not a column: it survives save and reload untouched.
type Sharded struct {
	Shard string `json:"-"`
}

// CurrentShard returns the designated shard name.
func (s *Sharded) CurrentShard() string { return s.Shard }

// SetCurrentShard pins the record to a shard.
func (s *Sharded) SetCurrentShard(name string) { s.Shard = name }

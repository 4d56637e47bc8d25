package orm

import (
	"context"
	"fmt"
	"strings"

	"shardroute/pkg/domain"
)

// Columns returns the qualified select list of a record type, key first.
func Columns(rec domain.Record) string {
	cols, _ := domain.Values(rec)
	qualified := make([]string, 0, len(cols)+1)
	qualified = append(qualified, rec.TableName()+"."+rec.PrimaryKey())
	for _, c := range cols {
		qualified = append(qualified, rec.TableName()+"."+c)
	}
	return strings.Join(qualified, ", ")
}

// Find loads the record with the given key.
func (db *DB) Find(ctx context.Context, newFn func() domain.Record, id int64) (domain.Record, error) {
	proto := newFn()
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s = ?", Columns(proto), proto.TableName(), proto.TableName(), proto.PrimaryKey())
	recs, err := db.Query(ctx, newFn, q, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrRecordNotFound, proto.TableName(), id)
	}
	return recs[0], nil
}

// Reload refreshes every column of a persisted record from the active shard.
func (db *DB) Reload(ctx context.Context, rec domain.Record) error {
	if domain.NewRecord(rec) {
		return ErrNotPersisted
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s = ?", Columns(rec), rec.TableName(), rec.TableName(), rec.PrimaryKey())
	rs, err := db.query(Uncached(ctx), q, rec.Key())
	if err != nil {
		return err
	}
	if len(rs.rows) == 0 {
		return fmt.Errorf("%w: %s %d", ErrRecordNotFound, rec.TableName(), rec.Key())
	}
	return populate(rec, rs.cols, rs.rows[0])
}

// Where loads the records whose column equals value, ordered by key.
func (db *DB) Where(ctx context.Context, newFn func() domain.Record, column string, value any) ([]domain.Record, error) {
	proto := newFn()
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s = ? ORDER BY %s.%s",
		Columns(proto), proto.TableName(), proto.TableName(), column, proto.TableName(), proto.PrimaryKey())
	return db.Query(ctx, newFn, q, value)
}

// Query runs a raw select and materializes the rows as records.
func (db *DB) Query(ctx context.Context, newFn func() domain.Record, query string, args ...any) ([]domain.Record, error) {
	rs, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rs.materialize(newFn)
}

// PluckInt64 runs a single-column select and returns the values.
func (db *DB) PluckInt64(ctx context.Context, query string, args ...any) ([]int64, error) {
	rs, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rs.cols) != 1 {
		return nil, fmt.Errorf("pluck: expected one column, got %d", len(rs.cols))
	}
	return rs.int64Column(0)
}

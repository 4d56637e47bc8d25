package orm

import (
	"context"
	"errors"
	"fmt"

	"shardroute/pkg/domain"
)

// ErrIndirect is returned when a through association is loaded without its hops.
var ErrIndirect = errors.New("orm: through association needs its intermediate hops")

// Path carries the hops of an indirect association: the owner association
// leading to the intermediate records and the intermediate association
// leading to the targets.
type Path struct {
	Through *domain.Association
	Source  *domain.Association
}

// LoadOne materializes a to-one association. A missing target yields nil.
func (db *DB) LoadOne(ctx context.Context, owner domain.Record, a *domain.Association) (domain.Record, error) {
	switch a.Kind {
	case domain.BelongsTo:
		fk, err := domain.Attribute(owner, a.ForeignKey)
		if err != nil {
			return nil, err
		}
		var id int64
		if fk != nil {
			if err := convertInto(&id, fk); err != nil {
				return nil, err
			}
		}
		if id == 0 {
			return nil, nil
		}
		rec, err := db.Find(ctx, a.Target, id)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return rec, err
	case domain.HasOne:
		if domain.NewRecord(owner) {
			return nil, nil
		}
		recs, err := db.Where(ctx, a.Target, a.ForeignKey, owner.Key())
		if err != nil || len(recs) == 0 {
			return nil, err
		}
		return recs[0], nil
	default:
		return nil, fmt.Errorf("orm: %s is %s, not a to-one association", a.Name, a.Kind)
	}
}

// LoadMany materializes a collection association.
func (db *DB) LoadMany(ctx context.Context, owner domain.Record, a *domain.Association, path *Path) ([]domain.Record, error) {
	if domain.NewRecord(owner) {
		return nil, nil
	}
	if a.FinderSQL != "" {
		return db.Query(ctx, a.Target, a.FinderSQL, owner.Key())
	}
	if !a.Indirect() {
		return db.Where(ctx, a.Target, a.ForeignKey, owner.Key())
	}
	if path == nil || path.Through == nil || path.Source == nil {
		return nil, ErrIndirect
	}
	target := a.Target()
	mid := path.Through.Target()
	var q string
	switch path.Source.Kind {
	case domain.BelongsTo:
		q = fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s IN (SELECT %s.%s FROM %s WHERE %s.%s = ?) ORDER BY %s.%s",
			Columns(target), target.TableName(), target.TableName(), target.PrimaryKey(),
			mid.TableName(), path.Source.ForeignKey, mid.TableName(), mid.TableName(), path.Through.ForeignKey,
			target.TableName(), target.PrimaryKey())
	default:
		q = fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s IN (SELECT %s.%s FROM %s WHERE %s.%s = ?) ORDER BY %s.%s",
			Columns(target), target.TableName(), target.TableName(), path.Source.ForeignKey,
			mid.TableName(), mid.PrimaryKey(), mid.TableName(), mid.TableName(), path.Through.ForeignKey,
			target.TableName(), target.PrimaryKey())
	}
	return db.Query(ctx, a.Target, q, owner.Key())
}

// AssociationIDs selects only the keys of a collection association. Through
// associations whose source is a belongs-to link read the distinct foreign
// keys of the intermediate table instead of touching the target table.
func (db *DB) AssociationIDs(ctx context.Context, owner domain.Record, a *domain.Association, path *Path) ([]int64, error) {
	if domain.NewRecord(owner) {
		return nil, nil
	}
	target := a.Target()
	if !a.Indirect() {
		q := fmt.Sprintf("SELECT %s.%s FROM %s WHERE %s.%s = ? ORDER BY %s.%s",
			target.TableName(), target.PrimaryKey(), target.TableName(), target.TableName(), a.ForeignKey,
			target.TableName(), target.PrimaryKey())
		return db.PluckInt64(ctx, q, owner.Key())
	}
	if path == nil || path.Through == nil || path.Source == nil {
		return nil, ErrIndirect
	}
	mid := path.Through.Target()
	if path.Source.Kind == domain.BelongsTo {
		q := fmt.Sprintf("SELECT DISTINCT %s.%s FROM %s WHERE %s.%s = ? AND %s.%s IS NOT NULL ORDER BY %s.%s",
			mid.TableName(), path.Source.ForeignKey, mid.TableName(), mid.TableName(), path.Through.ForeignKey,
			mid.TableName(), path.Source.ForeignKey, mid.TableName(), path.Source.ForeignKey)
		return db.PluckInt64(ctx, q, owner.Key())
	}
	q := fmt.Sprintf("SELECT %s.%s FROM %s JOIN %s ON %s.%s = %s.%s WHERE %s.%s = ? ORDER BY %s.%s",
		target.TableName(), target.PrimaryKey(), target.TableName(), mid.TableName(),
		target.TableName(), path.Source.ForeignKey, mid.TableName(), mid.PrimaryKey(),
		mid.TableName(), path.Through.ForeignKey, target.TableName(), target.PrimaryKey())
	return db.PluckInt64(ctx, q, owner.Key())
}

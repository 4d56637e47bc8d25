package orm

import (
	"context"
	"fmt"
	"strings"

	"shardroute/pkg/domain"
)

func validate(rec domain.Record) error {
	if v, ok := rec.(domain.Validator); ok {
		if err := v.Validate(); err != nil {
			return &RecordInvalidError{Table: rec.TableName(), Err: err}
		}
	}
	return nil
}

// Insert writes a new row and assigns the generated key.
func (db *DB) Insert(ctx context.Context, rec domain.Record) error {
	cols, vals := domain.Values(rec)
	var q string
	if len(cols) == 0 {
		q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", rec.TableName(), rec.PrimaryKey())
	} else {
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			rec.TableName(), strings.Join(cols, ", "), placeholders(len(cols)), rec.PrimaryKey())
	}
	id, err := db.insertReturning(ctx, q, vals...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.TableName(), err)
	}
	rec.SetKey(id)
	return nil
}

// Update writes every column of a persisted record.
func (db *DB) Update(ctx context.Context, rec domain.Record) error {
	cols, _ := domain.Values(rec)
	return db.UpdateColumns(ctx, rec, cols...)
}

// UpdateColumns writes the named columns of a persisted record.
func (db *DB) UpdateColumns(ctx context.Context, rec domain.Record, cols ...string) error {
	if domain.NewRecord(rec) {
		return ErrNotPersisted
	}
	if len(cols) == 0 {
		return nil
	}
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		v, err := domain.Attribute(rec, col)
		if err != nil {
			return err
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	args = append(args, rec.Key())
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", rec.TableName(), strings.Join(sets, ", "), rec.PrimaryKey())
	if _, err := db.exec(ctx, q, args...); err != nil {
		return fmt.Errorf("update %s: %w", rec.TableName(), err)
	}
	return nil
}

func (db *DB) write(ctx context.Context, rec domain.Record) error {
	if domain.NewRecord(rec) {
		return db.Insert(ctx, rec)
	}
	return db.Update(ctx, rec)
}

// Save validates and writes the record. A validation failure yields (false, nil).
func (db *DB) Save(ctx context.Context, rec domain.Record) (bool, error) {
	if err := validate(rec); err != nil {
		return false, nil
	}
	if err := db.write(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// SaveStrict validates and writes the record, returning a RecordInvalidError on validation failure.
func (db *DB) SaveStrict(ctx context.Context, rec domain.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	return db.write(ctx, rec)
}

// Create validates and inserts a record that has no key yet.
func (db *DB) Create(ctx context.Context, rec domain.Record) error {
	if !domain.NewRecord(rec) {
		return ErrAlreadyPersisted
	}
	return db.SaveStrict(ctx, rec)
}

// Delete removes the row without running destroy hooks.
func (db *DB) Delete(ctx context.Context, rec domain.Record) error {
	if domain.NewRecord(rec) {
		return ErrNotPersisted
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", rec.TableName(), rec.PrimaryKey())
	if _, err := db.exec(ctx, q, rec.Key()); err != nil {
		return fmt.Errorf("delete %s: %w", rec.TableName(), err)
	}
	return nil
}

// Destroy runs the destroy hook, removes the row, and drops cached associations.
func (db *DB) Destroy(ctx context.Context, rec domain.Record) error {
	if hook, ok := rec.(domain.DestroyHook); ok {
		if err := hook.BeforeDestroy(); err != nil {
			return err
		}
	}
	if err := db.Delete(ctx, rec); err != nil {
		return err
	}
	rec.Associations().Reset()
	return nil
}

// UpdateAttribute assigns one attribute and writes the record without validation.
func (db *DB) UpdateAttribute(ctx context.Context, rec domain.Record, name string, value any) error {
	if err := domain.SetAttribute(rec, name, value); err != nil {
		return err
	}
	if domain.NewRecord(rec) {
		return db.Insert(ctx, rec)
	}
	return db.UpdateColumns(ctx, rec, name)
}

// UpdateAttributes assigns the attribute set and saves the record.
func (db *DB) UpdateAttributes(ctx context.Context, rec domain.Record, attrs domain.Attributes) (bool, error) {
	if err := domain.Assign(rec, attrs); err != nil {
		return false, err
	}
	return db.Save(ctx, rec)
}

// UpdateAttributesStrict assigns the attribute set and saves strictly.
func (db *DB) UpdateAttributesStrict(ctx context.Context, rec domain.Record, attrs domain.Attributes) error {
	if err := domain.Assign(rec, attrs); err != nil {
		return err
	}
	return db.SaveStrict(ctx, rec)
}

// Increment adds by to a numeric attribute in memory.
func (db *DB) Increment(rec domain.Record, name string, by int64) error {
	current, err := domain.Attribute(rec, name)
	if err != nil {
		return err
	}
	switch v := current.(type) {
	case int64:
		return domain.SetAttribute(rec, name, v+by)
	case float64:
		return domain.SetAttribute(rec, name, v+float64(by))
	case nil:
		return domain.SetAttribute(rec, name, by)
	default:
		return fmt.Errorf("%w: %s.%s is not numeric", domain.ErrAttributeType, rec.TableName(), name)
	}
}

// IncrementSave increments the attribute and writes it.
func (db *DB) IncrementSave(ctx context.Context, rec domain.Record, name string, by int64) error {
	if err := db.Increment(rec, name, by); err != nil {
		return err
	}
	v, _ := domain.Attribute(rec, name)
	return db.UpdateAttribute(ctx, rec, name, v)
}

// Decrement subtracts by from a numeric attribute in memory.
func (db *DB) Decrement(rec domain.Record, name string, by int64) error {
	return db.Increment(rec, name, -by)
}

// DecrementSave decrements the attribute and writes it.
func (db *DB) DecrementSave(ctx context.Context, rec domain.Record, name string, by int64) error {
	return db.IncrementSave(ctx, rec, name, -by)
}

// Toggle flips a boolean attribute in memory.
func (db *DB) Toggle(rec domain.Record, name string) error {
	current, err := domain.Attribute(rec, name)
	if err != nil {
		return err
	}
	b, ok := current.(bool)
	if !ok {
		return fmt.Errorf("%w: %s.%s is not boolean", domain.ErrAttributeType, rec.TableName(), name)
	}
	return domain.SetAttribute(rec, name, !b)
}

// ToggleSave flips a boolean attribute and writes it.
func (db *DB) ToggleSave(ctx context.Context, rec domain.Record, name string) error {
	if err := db.Toggle(rec, name); err != nil {
		return err
	}
	v, _ := domain.Attribute(rec, name)
	return db.UpdateAttribute(ctx, rec, name, v)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

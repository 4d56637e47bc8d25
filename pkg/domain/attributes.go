package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownAttribute is returned when a record has no column with the requested name.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAttributeType is returned when a value cannot be stored in the target column.
	ErrAttributeType = errors.New("attribute type mismatch")
)

func lookupField(r Record, name string) (Field, bool) {
	for _, f := range r.Fields() {
		if f.Column == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasAttribute reports whether the record exposes the column.
func HasAttribute(r Record, name string) bool {
	if name == r.PrimaryKey() {
		return true
	}
	_, ok := lookupField(r, name)
	return ok
}

// Attribute reads a column value. Nullable columns yield nil when unset.
func Attribute(r Record, name string) (any, error) {
	if name == r.PrimaryKey() {
		return r.Key(), nil
	}
	f, ok := lookupField(r, name)
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", ErrUnknownAttribute, name, r.TableName())
	}
	return deref(f.Ptr), nil
}

// Values returns the column names and current values of the non-key fields.
func Values(r Record) ([]string, []any) {
	fields := r.Fields()
	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.Column)
		vals = append(vals, deref(f.Ptr))
	}
	return cols, vals
}

// SetAttribute assigns a column value, converting between integer widths.
func SetAttribute(r Record, name string, value any) error {
	if name == r.PrimaryKey() {
		id, ok := toInt64(value)
		if !ok {
			return fmt.Errorf("%w: %s.%s wants an integer, got %T", ErrAttributeType, r.TableName(), name, value)
		}
		r.SetKey(id)
		return nil
	}
	f, ok := lookupField(r, name)
	if !ok {
		return fmt.Errorf("%w %q on %s", ErrUnknownAttribute, name, r.TableName())
	}
	if err := assign(f.Ptr, value); err != nil {
		return fmt.Errorf("%s.%s: %w", r.TableName(), name, err)
	}
	return nil
}

// Assign applies an attribute set in column order so that failures are deterministic.
func Assign(r Record, attrs Attributes) error {
	if len(attrs) == 0 {
		return nil
	}
	seen := 0
	if v, ok := attrs[r.PrimaryKey()]; ok {
		if err := SetAttribute(r, r.PrimaryKey(), v); err != nil {
			return err
		}
		seen++
	}
	for _, f := range r.Fields() {
		v, ok := attrs[f.Column]
		if !ok {
			continue
		}
		if err := SetAttribute(r, f.Column, v); err != nil {
			return err
		}
		seen++
	}
	if seen != len(attrs) {
		for name := range attrs {
			if !HasAttribute(r, name) {
				return fmt.Errorf("%w %q on %s", ErrUnknownAttribute, name, r.TableName())
			}
		}
	}
	return nil
}

func deref(ptr any) any {
	switch p := ptr.(type) {
	case *string:
		return *p
	case *int:
		return int64(*p)
	case *int64:
		return *p
	case *float64:
		return *p
	case *bool:
		return *p
	case *time.Time:
		return *p
	case **int64:
		if *p == nil {
			return nil
		}
		return **p
	case **string:
		if *p == nil {
			return nil
		}
		return **p
	default:
		return nil
	}
}

func assign(ptr any, value any) error {
	switch p := ptr.(type) {
	case *string:
		if s, ok := value.(string); ok {
			*p = s
			return nil
		}
	case *int:
		if n, ok := toInt64(value); ok {
			*p = int(n)
			return nil
		}
	case *int64:
		if n, ok := toInt64(value); ok {
			*p = n
			return nil
		}
	case *float64:
		if f, ok := toFloat64(value); ok {
			*p = f
			return nil
		}
	case *bool:
		if b, ok := value.(bool); ok {
			*p = b
			return nil
		}
	case *time.Time:
		if t, ok := value.(time.Time); ok {
			*p = t
			return nil
		}
	case **int64:
		if value == nil {
			*p = nil
			return nil
		}
		if n, ok := toInt64(value); ok {
			*p = &n
			return nil
		}
	case **string:
		switch v := value.(type) {
		case nil:
			*p = nil
			return nil
		case string:
			*p = &v
			return nil
		case *string:
			*p = v
			return nil
		}
	default:
		return fmt.Errorf("%w: unsupported field pointer %T", ErrAttributeType, ptr)
	}
	return fmt.Errorf("%w: cannot store %T in %T", ErrAttributeType, value, ptr)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

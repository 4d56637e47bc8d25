package orm

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"shardroute/pkg/domain"
)

type resultSet struct {
	cols []string
	rows [][]any
}

func readRows(rows *sql.Rows) (*resultSet, error) {
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	rs := &resultSet{cols: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rs.rows = append(rs.rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return rs, nil
}

// materialize builds one record per row, matching columns by name. Columns
// the record does not declare are ignored.
func (rs *resultSet) materialize(newFn func() domain.Record) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(rs.rows))
	for _, row := range rs.rows {
		rec := newFn()
		if err := populate(rec, rs.cols, row); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (rs *resultSet) int64Column(idx int) ([]int64, error) {
	out := make([]int64, 0, len(rs.rows))
	for _, row := range rs.rows {
		var n int64
		if err := convertInto(&n, row[idx]); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func populate(rec domain.Record, cols []string, row []any) error {
	fields := rec.Fields()
	for i, col := range cols {
		if col == rec.PrimaryKey() {
			var id int64
			if err := convertInto(&id, row[i]); err != nil {
				return fmt.Errorf("%s.%s: %w", rec.TableName(), col, err)
			}
			rec.SetKey(id)
			continue
		}
		for _, f := range fields {
			if f.Column != col {
				continue
			}
			if err := convertInto(f.Ptr, row[i]); err != nil {
				return fmt.Errorf("%s.%s: %w", rec.TableName(), col, err)
			}
			break
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func convertInto(ptr any, v any) error {
	switch p := ptr.(type) {
	case *string:
		switch x := v.(type) {
		case nil:
			*p = ""
		case string:
			*p = x
		case []byte:
			*p = string(x)
		default:
			*p = fmt.Sprint(x)
		}
		return nil
	case *int:
		var n int64
		if err := convertInto(&n, v); err != nil {
			return err
		}
		*p = int(n)
		return nil
	case *int64:
		switch x := v.(type) {
		case nil:
			*p = 0
		case int64:
			*p = x
		case int32:
			*p = int64(x)
		case float64:
			*p = int64(x)
		case bool:
			*p = 0
			if x {
				*p = 1
			}
		case []byte:
			n, err := strconv.ParseInt(string(x), 10, 64)
			if err != nil {
				return err
			}
			*p = n
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return err
			}
			*p = n
		default:
			return fmt.Errorf("cannot convert %T to int64", v)
		}
		return nil
	case *float64:
		switch x := v.(type) {
		case nil:
			*p = 0
		case float64:
			*p = x
		case int64:
			*p = float64(x)
		case []byte:
			f, err := strconv.ParseFloat(string(x), 64)
			if err != nil {
				return err
			}
			*p = f
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return err
			}
			*p = f
		default:
			return fmt.Errorf("cannot convert %T to float64", v)
		}
		return nil
	case *bool:
		switch x := v.(type) {
		case nil:
			*p = false
		case bool:
			*p = x
		case int64:
			*p = x != 0
		case []byte:
			b, err := strconv.ParseBool(string(x))
			if err != nil {
				return err
			}
			*p = b
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return err
			}
			*p = b
		default:
			return fmt.Errorf("cannot convert %T to bool", v)
		}
		return nil
	case *time.Time:
		switch x := v.(type) {
		case nil:
			*p = time.Time{}
			return nil
		case time.Time:
			*p = x
			return nil
		case []byte:
			return parseTime(p, string(x))
		case string:
			return parseTime(p, x)
		default:
			return fmt.Errorf("cannot convert %T to time", v)
		}
	case **int64:
		if v == nil {
			*p = nil
			return nil
		}
		var n int64
		if err := convertInto(&n, v); err != nil {
			return err
		}
		*p = &n
		return nil
	case **string:
		if v == nil {
			*p = nil
			return nil
		}
		var s string
		if err := convertInto(&s, v); err != nil {
			return err
		}
		*p = &s
		return nil
	default:
		return fmt.Errorf("unsupported field pointer %T", ptr)
	}
}

func parseTime(dst *time.Time, s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*dst = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

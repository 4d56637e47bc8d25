package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	rows, err := conn.QueryContext(ctx, "INSERT INTO orders (amount, account_id) VALUES ($1, $2) RETURNING id", []driver.NamedValue{
		{Value: int64(10)},
		{Value: int64(7)},
	})
	if err != nil {
		t.Fatalf("QueryContext insert: %v", err)
	}
	id := make([]driver.Value, 1)
	if err := rows.Next(id); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if id[0] != int64(1) {
		t.Fatalf("expected generated id 1, got %v", id[0])
	}

	rows, err = conn.QueryContext(ctx, "SELECT orders.id, orders.amount FROM orders WHERE orders.account_id = $1", nil)
	if err != nil {
		t.Fatalf("QueryContext select: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if cols := rows.Columns(); cols[0] != "id" || cols[1] != "amount" {
		t.Fatalf("expected unqualified columns, got %v", cols)
	}
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != int64(1) || dest[1] != int64(10) {
		t.Fatalf("unexpected row values: %v", dest)
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", []driver.NamedValue{{Value: int64(1)}}); err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if len(conn.Tables["orders"]) != 0 {
		t.Fatalf("expected row deleted, got %v", conn.Tables["orders"])
	}
	if got := len(conn.Statements()); got != 3 {
		t.Fatalf("expected 3 recorded statements, got %d", got)
	}
}

func TestStubDBFailures(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, "UPDATE orders SET amount = $1 WHERE id = $2", nil); err == nil {
		t.Fatalf("expected exec failure")
	}
	if _, err := conn.QueryContext(ctx, "INSERT INTO orders (amount) VALUES ($1) RETURNING id", []driver.NamedValue{{Value: int64(1)}}); err == nil {
		t.Fatalf("expected insert failure")
	}
	if _, err := conn.QueryContext(ctx, "not sql", nil); err == nil {
		t.Fatalf("expected parse failure")
	}
}

package domain

import (
	"errors"
	"testing"
	"time"
)

type widget struct {
	Base
	Sharded
	Name     string
	Count    int
	Total    int64
	Ratio    float64
	Enabled  bool
	Seen     time.Time
	ParentID *int64
	Label    *string
}

func (w *widget) TableName() string { return "widgets" }

func (w *widget) Fields() []Field {
	return []Field{
		{Column: "name", Ptr: &w.Name},
		{Column: "count", Ptr: &w.Count},
		{Column: "total", Ptr: &w.Total},
		{Column: "ratio", Ptr: &w.Ratio},
		{Column: "enabled", Ptr: &w.Enabled},
		{Column: "seen", Ptr: &w.Seen},
		{Column: "parent_id", Ptr: &w.ParentID},
		{Column: "label", Ptr: &w.Label},
	}
}

func TestSetAttributeConversions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		column string
		value  any
		check  func(*widget) bool
	}{
		{"string", "name", "gear", func(w *widget) bool { return w.Name == "gear" }},
		{"int from int64", "count", int64(4), func(w *widget) bool { return w.Count == 4 }},
		{"int64 from int", "total", 9, func(w *widget) bool { return w.Total == 9 }},
		{"float from int", "ratio", 2, func(w *widget) bool { return w.Ratio == 2 }},
		{"bool", "enabled", true, func(w *widget) bool { return w.Enabled }},
		{"time", "seen", now, func(w *widget) bool { return w.Seen.Equal(now) }},
		{"nullable int", "parent_id", 7, func(w *widget) bool { return w.ParentID != nil && *w.ParentID == 7 }},
		{"nullable int cleared", "parent_id", nil, func(w *widget) bool { return w.ParentID == nil }},
		{"nullable string", "label", "x", func(w *widget) bool { return w.Label != nil && *w.Label == "x" }},
		{"primary key", "id", int32(3), func(w *widget) bool { return w.ID == 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &widget{}
			if err := SetAttribute(w, tt.column, tt.value); err != nil {
				t.Fatalf("SetAttribute: %v", err)
			}
			if !tt.check(w) {
				t.Fatalf("value not stored: %+v", w)
			}
		})
	}
}

func TestSetAttributeErrors(t *testing.T) {
	w := &widget{}
	if err := SetAttribute(w, "nope", 1); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	if err := SetAttribute(w, "enabled", "yes"); !errors.Is(err, ErrAttributeType) {
		t.Fatalf("expected ErrAttributeType, got %v", err)
	}
	if err := SetAttribute(w, "id", "one"); !errors.Is(err, ErrAttributeType) {
		t.Fatalf("expected ErrAttributeType for key, got %v", err)
	}
}

func TestAttributeReadsNullableAsNil(t *testing.T) {
	w := &widget{Count: 2}
	v, err := Attribute(w, "parent_id")
	if err != nil || v != nil {
		t.Fatalf("Attribute(parent_id) = %v, %v", v, err)
	}
	v, err = Attribute(w, "count")
	if err != nil || v != int64(2) {
		t.Fatalf("Attribute(count) = %v (%T), %v", v, v, err)
	}
	if _, err := Attribute(w, "nope"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestAssignReportsUnknownAttribute(t *testing.T) {
	w := &widget{}
	if err := Assign(w, Attributes{"name": "a", "total": 2}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if w.Name != "a" || w.Total != 2 {
		t.Fatalf("attributes not applied: %+v", w)
	}
	if err := Assign(w, Attributes{"name": "b", "bogus": 1}); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	if err := Assign(w, nil); err != nil {
		t.Fatalf("Assign(nil): %v", err)
	}
}

func TestValuesExcludeKey(t *testing.T) {
	w := &widget{Name: "n"}
	w.ID = 5
	cols, vals := Values(w)
	if len(cols) != 8 || len(vals) != 8 {
		t.Fatalf("cols=%v vals=%v", cols, vals)
	}
	for _, c := range cols {
		if c == "id" {
			t.Fatalf("key column listed in values")
		}
	}
	if !HasAttribute(w, "id") || !HasAttribute(w, "label") || HasAttribute(w, "nope") {
		t.Fatalf("HasAttribute mismatch")
	}
}

package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSnapshot(t *testing.T) {
	body := []byte(`{"totalWeight": 162.5, "items": [
		{"item": "Iron", "amount": 3, "singleWeight": 2.5, "totalWeight": 7.5},
		{"item": "Wood", "amount": 10, "singleWeight": 1, "totalWeight": 10}
	]}`)

	s, err := ParseSnapshot(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !s.TotalWeight.Equal(decimal.RequireFromString("162.5")) {
		t.Fatalf("unexpected total %s", s.TotalWeight)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", s.Len())
	}
	iron := s.Items["Iron"]
	if !iron.Amount.Equal(decimal.NewFromInt(3)) || !iron.SingleWeight.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected iron record %+v", iron)
	}
	if names := s.Names(); names[0] != "Iron" || names[1] != "Wood" {
		t.Fatalf("names not sorted: %v", names)
	}
}

func TestParseSnapshotMissingFields(t *testing.T) {
	s, err := ParseSnapshot([]byte(`{}`))
	if err != nil {
		t.Fatalf("missing fields should decode to zero: %v", err)
	}
	if !s.TotalWeight.IsZero() || s.Len() != 0 || s.Items == nil {
		t.Fatalf("expected empty snapshot, got %+v", s)
	}
}

func TestParseSnapshotRejectsBadBodies(t *testing.T) {
	if _, err := ParseSnapshot([]byte(`not json`)); err == nil {
		t.Fatal("malformed json should fail")
	}
	_, err := ParseSnapshot([]byte(`{"items": [{"amount": 1}]}`))
	if !errors.Is(err, ErrMissingItemName) {
		t.Fatalf("expected ErrMissingItemName, got %v", err)
	}
}

func TestCloneDoesNotShareItems(t *testing.T) {
	s := Empty()
	s.Items["A"] = Item{Name: "A", Amount: decimal.NewFromInt(1)}
	c := s.Clone()
	delete(c.Items, "A")
	if s.Len() != 1 {
		t.Fatal("clone mutated the original")
	}
}

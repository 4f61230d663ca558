package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("ParseRunID(%q): %v", id, err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseRunID(""); err == nil {
		t.Error("Expected error for empty run ID")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("Expected error for malformed run ID")
	}
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	var a, b, c Fingerprint
	a.AddString("SIX1")
	a.AddFloats(0.5, -1.25)
	b.AddString("SIX1")
	b.AddFloats(0.5, -1.25)
	c.AddString("SIX1")
	c.AddFloats(0.5, -1.2500000000000002)

	if !a.Sum().Equals(b.Sum()) {
		t.Error("Expected identical inputs to produce identical fingerprints")
	}
	if a.Sum().Equals(c.Sum()) {
		t.Error("Expected a one-ulp difference to change the fingerprint")
	}

	// Length prefixing keeps ("ab","c") distinct from ("a","bc")
	var d, e Fingerprint
	d.AddString("ab")
	d.AddString("c")
	e.AddString("a")
	e.AddString("bc")
	if d.Sum().Equals(e.Sum()) {
		t.Error("Expected length-prefixed strings to differ")
	}
}

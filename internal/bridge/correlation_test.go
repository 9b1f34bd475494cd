package bridge

import "testing"

// TestCorrelationStoreRecordLookup verifies the basic mapping round trip and
// that a repeated record for the same source message overwrites the old
// value.
func TestCorrelationStoreRecordLookup(t *testing.T) {
	s := NewCorrelationStore()

	if _, ok := s.Lookup(1, 10); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Record(1, 10, 100)
	got, ok := s.Lookup(1, 10)
	if !ok || got != 100 {
		t.Fatalf("Lookup(1, 10) = %d, %v; want 100, true", got, ok)
	}

	s.Record(1, 10, 200)
	got, _ = s.Lookup(1, 10)
	if got != 200 {
		t.Fatalf("after overwrite Lookup(1, 10) = %d; want 200", got)
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", s.Len())
	}
}

// TestCorrelationStoreIndependentKeys verifies entries do not interfere.
func TestCorrelationStoreIndependentKeys(t *testing.T) {
	s := NewCorrelationStore()
	s.Record(1, 1, 11)
	s.Record(1, 2, 22)

	if got, _ := s.Lookup(1, 1); got != 11 {
		t.Fatalf("Lookup(1, 1) = %d; want 11", got)
	}
	if got, _ := s.Lookup(1, 2); got != 22 {
		t.Fatalf("Lookup(1, 2) = %d; want 22", got)
	}
	if _, ok := s.Lookup(1, 3); ok {
		t.Fatal("expected miss for unrecorded key")
	}
}

// TestCorrelationStorePerSourceScoping verifies two source chats emitting
// the same message ID map independently; message IDs are only unique within
// one chat.
func TestCorrelationStorePerSourceScoping(t *testing.T) {
	s := NewCorrelationStore()
	s.Record(1, 10, 100)
	s.Record(2, 10, 200)

	if got, _ := s.Lookup(1, 10); got != 100 {
		t.Fatalf("Lookup(1, 10) = %d; want 100", got)
	}
	if got, _ := s.Lookup(2, 10); got != 200 {
		t.Fatalf("Lookup(2, 10) = %d; want 200", got)
	}
	if _, ok := s.Lookup(3, 10); ok {
		t.Fatal("expected miss for a source that never recorded this ID")
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", s.Len())
	}
}

package source

import (
	"context"
	"testing"
)

func TestStatic_ExtractAll(t *testing.T) {
	t.Parallel()

	s := NewStatic([]Post{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}})
	got, err := s.Extract(context.Background(), 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestStatic_ExtractLimit(t *testing.T) {
	t.Parallel()

	s := NewStatic([]Post{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}})
	got, err := s.Extract(context.Background(), 2)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Errorf("got %v, want p1,p2 in order", got)
	}
}

func TestStatic_ExtractCopies(t *testing.T) {
	t.Parallel()

	s := NewStatic([]Post{{ID: "p1", Content: "original"}})
	got, _ := s.Extract(context.Background(), 0)
	got[0].Content = "mutated"

	again, _ := s.Extract(context.Background(), 0)
	if again[0].Content != "original" {
		t.Error("Extract should return copies, not shared backing storage")
	}
}

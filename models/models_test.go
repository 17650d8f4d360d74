package models

import "testing"

func TestBatchIsolatedFromSource(t *testing.T) {
	src := []Candidate{{Title: "A", MediaURL: "a"}, {Title: "B", MediaURL: "b"}}
	b := NewBatch(src)
	src[0].Title = "changed"
	got, ok := b.Item(1)
	if !ok || got.Title != "A" {
		t.Fatalf("expected batch to keep original item, got %+v", got)
	}
	items := b.Items()
	items[1].Title = "changed"
	if got, _ := b.Item(2); got.Title != "B" {
		t.Fatalf("Items must return a copy")
	}
}

func TestBatchItemBounds(t *testing.T) {
	b := NewBatch([]Candidate{{MediaURL: "a"}})
	if _, ok := b.Item(0); ok {
		t.Fatalf("index 0 must be out of range")
	}
	if _, ok := b.Item(2); ok {
		t.Fatalf("index 2 must be out of range")
	}
	if _, ok := b.Item(1); !ok {
		t.Fatalf("index 1 must be in range")
	}
}

func TestCandidateIdentityUsesMediaURL(t *testing.T) {
	c := Candidate{SourceLink: "https://reddit.com/x", MediaURL: " https://i.redd.it/x.png "}
	if c.Identity() != "https://i.redd.it/x.png" {
		t.Fatalf("unexpected identity %q", c.Identity())
	}
}

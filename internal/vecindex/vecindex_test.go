package vecindex

import (
	"errors"
	"testing"

	"github.com/devmalya99/rag-agent/pkg/models"
)

func entry(text string, vec ...float32) Entry {
	return Entry{Embedding: vec, Chunk: models.Chunk{Text: text}}
}

func TestQuery_EmptyIndex(t *testing.T) {
	ix := New()
	_, err := ix.Query([]float32{1, 0}, 5)
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestReplace_DimensionMismatch(t *testing.T) {
	ix := New()
	if err := ix.Replace([]Entry{entry("a", 1, 0), entry("b", 0, 1)}); err != nil {
		t.Fatalf("initial Replace failed: %v", err)
	}

	err := ix.Replace([]Entry{entry("c", 1, 0), entry("d", 0, 1, 1)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	// Prior index must be unchanged.
	if ix.Len() != 2 {
		t.Errorf("index size after failed Replace = %d, want 2", ix.Len())
	}
	res, err := ix.Query([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query after failed Replace: %v", err)
	}
	if res[0].Chunk.Text != "a" {
		t.Errorf("top result = %q, want %q", res[0].Chunk.Text, "a")
	}
}

func TestReplace_Wholesale(t *testing.T) {
	ix := New()
	if err := ix.Replace([]Entry{entry("old", 1, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Replace([]Entry{entry("new a", 1, 0), entry("new b", 0, 1)}); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 2 {
		t.Fatalf("index size = %d, want 2", ix.Len())
	}
	res, err := ix.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range res {
		if r.Chunk.Text == "old" {
			t.Errorf("stale entry survived Replace")
		}
	}
}

func TestQuery_RoundTrip(t *testing.T) {
	// Querying with a chunk's own embedding must return that chunk first.
	ix := New()
	entries := []Entry{
		entry("first", 0.9, 0.1, 0.3),
		entry("second", 0.2, 0.8, 0.1),
		entry("third", 0.1, 0.2, 0.9),
	}
	if err := ix.Replace(entries); err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		res, err := ix.Query(e.Embedding, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 1 || res[0].Chunk.Text != e.Chunk.Text {
			t.Errorf("query with embedding of %q returned %+v", e.Chunk.Text, res)
		}
	}
}

func TestQuery_OrderAndTruncation(t *testing.T) {
	ix := New()
	err := ix.Replace([]Entry{
		entry("far", -1, 0),
		entry("near", 1, 0),
		entry("mid", 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := ix.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if res[0].Chunk.Text != "near" || res[1].Chunk.Text != "mid" {
		t.Errorf("order = [%s, %s], want [near, mid]", res[0].Chunk.Text, res[1].Chunk.Text)
	}
	if res[0].Score < res[1].Score {
		t.Errorf("scores not descending: %v", res)
	}

	// k larger than the index returns everything.
	res, err = ix.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Errorf("got %d results, want 3", len(res))
	}
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	ix := New()
	// Identical vectors score identically; insertion order breaks the tie.
	err := ix.Replace([]Entry{
		entry("alpha", 1, 0),
		entry("beta", 1, 0),
		entry("gamma", 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := ix.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "beta", "gamma"}
	for i, w := range want {
		if res[i].Chunk.Text != w {
			t.Errorf("result %d = %q, want %q", i, res[i].Chunk.Text, w)
		}
	}
}

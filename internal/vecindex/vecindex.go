package vecindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/devmalya99/rag-agent/pkg/models"
)

var (
	// ErrNotInitialized is returned when querying before any ingestion has
	// populated the index.
	ErrNotInitialized = errors.New("vector index is empty")

	// ErrDimensionMismatch is returned when a Replace is attempted with
	// embeddings of differing dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Entry pairs a chunk with its embedding vector.
type Entry struct {
	Embedding []float32
	Chunk     models.Chunk
}

// Index is an in-memory vector index over transcript chunks. Contents are
// replaced wholesale on each ingestion; the index holds exactly the entries
// of the most recent successful Replace.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
}

func New() *Index { return &Index{} }

// Replace atomically installs entries as the new index contents, discarding
// any previous contents. Validation happens before the swap, so a failed
// Replace leaves the prior index intact.
func (ix *Index) Replace(entries []Entry) error {
	dim := 0
	if len(entries) > 0 {
		dim = len(entries[0].Embedding)
		for i, e := range entries {
			if len(e.Embedding) != dim {
				return fmt.Errorf("%w: entry %d has dimension %d, want %d", ErrDimensionMismatch, i, len(e.Embedding), dim)
			}
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.dim = dim
	ix.entries = entries
	return nil
}

// Query returns up to k chunks whose embeddings are closest to vec under
// cosine similarity, ordered by descending similarity. Equal scores keep
// insertion order.
func (ix *Index) Query(vec []float32, k int) ([]models.SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil, ErrNotInitialized
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]models.SearchResult, 0, len(ix.entries))
	for _, e := range ix.entries {
		results = append(results, models.SearchResult{
			Chunk: e.Chunk,
			Score: cosineSimilarity(vec, e.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dim returns the dimension of the indexed embeddings, 0 when empty.
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

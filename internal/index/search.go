package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/resume-agent/internal/retrieval"
)

// Search embeds query and returns the k most similar chunks, best first.
// Fewer than k passages are returned when the index is smaller.
func (s *Store) Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
	if len(s.chunks) == 0 {
		return nil, ErrEmpty
	}
	if k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("embed query: no vector returned")
	}
	q := vectors[0]

	type scored struct {
		chunk *Chunk
		score float64
	}

	results := make([]scored, 0, len(s.chunks))
	for i := range s.chunks {
		results = append(results, scored{chunk: &s.chunks[i], score: cosine(q, s.chunks[i].Vector)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	k = min(k, len(results))
	passages := make([]retrieval.Passage, 0, k)
	for i, r := range results[:k] {
		passages = append(passages, retrieval.Passage{
			ID:    i + 1,
			Page:  r.chunk.Page,
			Text:  r.chunk.Text,
			Score: r.score,
		})
	}

	return passages, nil
}

// cosine returns the cosine similarity of a and b, or zero for mismatched or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

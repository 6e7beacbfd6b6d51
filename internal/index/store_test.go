package index

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spigell/resume-agent/internal/ingest"

	"go.uber.org/zap"
)

// keywordEmbedder maps text onto fixed axes by keyword presence.
type keywordEmbedder struct {
	model string
	calls int
	err   error
}

var axes = []string{"go", "python", "university", "kubernetes"}

func (e *keywordEmbedder) Model() string { return e.model }

func (e *keywordEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		lower := strings.ToLower(in)
		v := make([]float32, len(axes))
		for i, axis := range axes {
			if strings.Contains(lower, axis) {
				v[i] = 1
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func newTestStore(t *testing.T, embedder Embedder) *Store {
	t.Helper()

	store, err := OpenInMemory(embedder, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var resumeDocs = []ingest.Document{
	{Page: 1, Text: "Senior Go engineer building Kubernetes operators"},
	{Page: 1, Text: "Python data pipelines"},
	{Page: 2, Text: "University of Somewhere, BSc"},
}

func TestBuildAndSearch(t *testing.T) {
	embedder := &keywordEmbedder{model: "all-minilm:l6-v2"}
	store := newTestStore(t, embedder)

	n, err := store.Build(context.Background(), resumeDocs, "resume.pdf", 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected 2 embedding batches, got %d", embedder.calls)
	}

	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 3 || store.Source() != "resume.pdf" {
		t.Fatalf("unexpected loaded state: len=%d source=%q", store.Len(), store.Source())
	}

	passages, err := store.Search(context.Background(), "Which university?", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].ID != 1 || passages[0].Page != 2 || !strings.Contains(passages[0].Text, "University") {
		t.Fatalf("unexpected best passage: %+v", passages[0])
	}
	if passages[1].ID != 2 {
		t.Fatalf("expected sequential ids, got %d", passages[1].ID)
	}
	if passages[0].Score < passages[1].Score {
		t.Fatalf("expected passages sorted by score")
	}
}

func TestSearchReturnsFewerThanK(t *testing.T) {
	store := newTestStore(t, &keywordEmbedder{model: "m"})
	if _, err := store.Build(context.Background(), resumeDocs, "resume.pdf", 0); err != nil {
		t.Fatalf("build: %v", err)
	}

	passages, err := store.Search(context.Background(), "go", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(passages) != len(resumeDocs) {
		t.Fatalf("expected %d passages, got %d", len(resumeDocs), len(passages))
	}
}

func TestRebuildRemovesStaleChunks(t *testing.T) {
	store := newTestStore(t, &keywordEmbedder{model: "m"})
	ctx := context.Background()

	if _, err := store.Build(ctx, resumeDocs, "old.pdf", 0); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := store.Build(ctx, resumeDocs[:1], "new.pdf", 0); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 1 || store.Source() != "new.pdf" {
		t.Fatalf("expected only the new chunk, got len=%d source=%q", store.Len(), store.Source())
	}
}

func TestLoadErrors(t *testing.T) {
	store := newTestStore(t, &keywordEmbedder{model: "m"})
	if err := store.Load(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	if _, err := store.Build(context.Background(), resumeDocs, "resume.pdf", 0); err != nil {
		t.Fatalf("build: %v", err)
	}

	store.embedder = &keywordEmbedder{model: "other"}
	if err := store.Load(); !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("expected ErrModelMismatch, got %v", err)
	}
}

func TestBuildEmbeddingFailure(t *testing.T) {
	store := newTestStore(t, &keywordEmbedder{model: "m", err: errors.New("ollama down")})

	if _, err := store.Build(context.Background(), resumeDocs, "resume.pdf", 0); err == nil {
		t.Fatalf("expected build to fail when embeddings fail")
	}
	if _, err := store.Build(context.Background(), nil, "resume.pdf", 0); err == nil {
		t.Fatalf("expected build to fail without documents")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	store := newTestStore(t, &keywordEmbedder{model: "m"})
	if _, err := store.Search(context.Background(), "q", 4); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   []float32
		expect float64
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{1, 2}, expect: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expect: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expect: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, expect: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.expect) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

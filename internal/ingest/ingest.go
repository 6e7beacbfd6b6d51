package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Separators are tried in order: paragraphs, lines, words, characters.
var Separators = []string{"\n\n", "\n", " ", ""}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Document is one chunk of source text with its page.
type Document struct {
	Page int
	Text string
}

func (o Options) splitter() textsplitter.TextSplitter {
	size := o.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}

	overlap := o.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}

	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(Separators),
	)
}

// LoadPDF reads the PDF at path and splits every page into chunks.
func LoadPDF(ctx context.Context, path string, opts Options) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	docs, err := documentloaders.NewPDF(f, info.Size()).LoadAndSplit(ctx, opts.splitter())
	if err != nil {
		return nil, fmt.Errorf("load pdf %q: %w", path, err)
	}

	return fromSchema(docs), nil
}

// SplitPages splits already extracted page texts; pages are numbered from 1.
func SplitPages(pages []string, opts Options) ([]Document, error) {
	metadatas := make([]map[string]any, 0, len(pages))
	for i := range pages {
		metadatas = append(metadatas, map[string]any{"page": i + 1})
	}

	docs, err := textsplitter.CreateDocuments(opts.splitter(), pages, metadatas)
	if err != nil {
		return nil, fmt.Errorf("split pages: %w", err)
	}

	return fromSchema(docs), nil
}

func fromSchema(docs []schema.Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		text := strings.TrimSpace(d.PageContent)
		if text == "" {
			continue
		}
		out = append(out, Document{Page: pageOf(d.Metadata), Text: text})
	}
	return out
}

func pageOf(meta map[string]any) int {
	switch v := meta["page"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/resume-agent/internal/ingest"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const defaultBatchSize = 16

var (
	chunkPrefix = []byte("chunk/")
	keyModel    = []byte("meta/embedding-model")
	keySource   = []byte("meta/source")
)

var (
	// ErrEmpty is returned when the index holds no chunks.
	ErrEmpty = errors.New("index is empty: run the ingest command first")
	// ErrModelMismatch is returned when the index was built with another embedding model.
	ErrModelMismatch = errors.New("index was built with a different embedding model")
)

// Embedder computes one vector per input.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Chunk is a persisted piece of the source document.
type Chunk struct {
	ID     int       `json:"id"`
	Page   int       `json:"page"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Store is a badger-backed vector index.
type Store struct {
	db       *badger.DB
	embedder Embedder
	logger   *zap.Logger

	chunks []Chunk
	source string
}

// Open opens or creates the index stored in dir.
func Open(dir string, embedder Embedder, logger *zap.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("index directory is required")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create index directory %s: %w", dir, err)
	}

	return open(badger.DefaultOptions(dir), embedder, logger)
}

// OpenInMemory opens a throwaway index.
func OpenInMemory(embedder Embedder, logger *zap.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), embedder, logger)
}

func open(opts badger.Options, embedder Embedder, logger *zap.Logger) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := badger.Open(opts.WithLogger(newBadgerLogger(logger)))
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Len returns the number of loaded chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Source returns the name of the ingested file.
func (s *Store) Source() string {
	return s.source
}

// Build replaces the index content with embeddings of docs.
func (s *Store) Build(ctx context.Context, docs []ingest.Document, source string, batchSize int) (int, error) {
	if len(docs) == 0 {
		return 0, errors.New("no documents to index")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	chunks := make([]Chunk, 0, len(docs))
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Text)
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}

		for i, v := range vectors {
			d := docs[start+i]
			chunks = append(chunks, Chunk{ID: start + i, Page: d.Page, Text: d.Text, Vector: v})
		}

		s.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end-1))
	}

	stale, err := s.chunkKeysFrom(len(chunks))
	if err != nil {
		return 0, fmt.Errorf("list previous chunks: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete stale chunk %s: %w", key, err)
		}
	}

	for _, c := range chunks {
		value, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("marshal chunk %d: %w", c.ID, err)
		}
		if err := wb.Set(chunkKey(c.ID), value); err != nil {
			return 0, fmt.Errorf("write chunk %d: %w", c.ID, err)
		}
	}

	if err := wb.Set(keyModel, []byte(s.embedder.Model())); err != nil {
		return 0, fmt.Errorf("write metadata: %w", err)
	}
	if err := wb.Set(keySource, []byte(source)); err != nil {
		return 0, fmt.Errorf("write metadata: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush index: %w", err)
	}

	s.chunks = chunks
	s.source = source

	s.logger.Info("index built",
		zap.Int("chunks", len(chunks)),
		zap.String("source", source),
		zap.String("embedding_model", s.embedder.Model()),
	)

	return len(chunks), nil
}

// Load reads every chunk into memory and checks the embedding model.
func (s *Store) Load() error {
	var (
		model  string
		chunks []Chunk
	)

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if model, err = getString(txn, keyModel); err != nil {
			return err
		}
		if s.source, err = getString(txn, keySource); err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(chunkPrefix); it.ValidForPrefix(chunkPrefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var c Chunk
			if err := json.Unmarshal(value, &c); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			chunks = append(chunks, c)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	if len(chunks) == 0 {
		return ErrEmpty
	}

	if model != s.embedder.Model() {
		return fmt.Errorf("%w: index=%q configured=%q", ErrModelMismatch, model, s.embedder.Model())
	}

	s.chunks = chunks

	s.logger.Debug("index loaded", zap.Int("chunks", len(chunks)), zap.String("source", s.source))

	return nil
}

// chunkKeysFrom lists stored chunk keys with an id of at least from.
func (s *Store) chunkKeysFrom(from int) ([][]byte, error) {
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(chunkKey(from)); it.ValidForPrefix(chunkPrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})

	return keys, err
}

func chunkKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%08d", chunkPrefix, id))
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

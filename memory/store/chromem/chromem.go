// Package chromem backs the memory.Store interface with chromem-go,
// a pure Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/finquill/advisor/memory"
)

// Store wraps a chromem database. Collections are created lazily on first
// use and cached; chromem itself is safe for concurrent readers/writers.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-process chromem store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[name]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, exists := s.collections[name]; exists {
		return col, nil
	}

	// Embeddings are provided by the caller, so no embedding func;
	// default cosine similarity.
	col, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

// Save persists a fact with its embedding under the collection.
func (s *Store) Save(ctx context.Context, collection, id, text string, embedding []float32) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Content:   text,
		Embedding: embedding,
		Metadata:  map[string]string{"collection": collection},
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query retrieves facts by vector similarity, highest first.
func (s *Store) Query(ctx context.Context, collection string, embedding []float32, limit int) ([]memory.SearchResult, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size; walk the limit down
	// rather than pre-counting under a lock.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				log.Printf("[CHROMEM] Collection %s is empty", collection)
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]memory.SearchResult, 0, len(results))
	for _, res := range results {
		out = append(out, memory.SearchResult{
			Text:      res.Content,
			Relevance: res.Similarity,
		})
	}
	return out, nil
}

// Close releases resources. chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

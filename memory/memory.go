// Package memory provides the semantic memory backing the advisory
// pipeline's retrieval-augmented step.
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded database)
//   - Embedder: text-to-vector conversion (mock for tests, ONNX for local)
//   - Recall: orchestrates embedding, querying, and relevance filtering
//
// Facts are namespaced by collection name so unrelated corpora (finance
// facts, support notes) never bleed into each other's similarity search.
package memory

import "context"

// SearchResult is one (text, relevance) pair from a similarity search.
// Results are ordered by descending relevance.
type SearchResult struct {
	Text      string
	Relevance float32
}

// Store is the vector storage backend.
type Store interface {
	// Save persists a fact with its embedding under the collection.
	Save(ctx context.Context, collection, id, text string, embedding []float32) error

	// Query returns up to limit facts most similar to the embedding,
	// ordered by descending similarity. An empty collection yields an
	// empty result, not an error.
	Query(ctx context.Context, collection string, embedding []float32, limit int) ([]SearchResult, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to a vector. Implementations must be safe for
// concurrent use; the pipeline calls Embed on every request.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

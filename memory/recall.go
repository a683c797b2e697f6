package memory

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Recall orchestrates the store and embedder for the pipeline.
// It embeds queries, applies the relevance threshold, and logs what it
// found so a failing retrieval is diagnosable from the server log.
type Recall struct {
	store    Store
	embedder Embedder
}

// NewRecall creates a Recall over the given store and embedder.
func NewRecall(store Store, embedder Embedder) *Recall {
	return &Recall{store: store, embedder: embedder}
}

// Search returns up to limit facts from the collection scoring at or above
// the relevance threshold, ordered by descending relevance.
func (r *Recall) Search(ctx context.Context, collection, query string, limit int, relevance float32) ([]SearchResult, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Query(ctx, collection, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	filtered := results[:0]
	for _, res := range results {
		if res.Relevance >= relevance {
			filtered = append(filtered, res)
		}
	}

	log.Printf("[RECALL] collection=%s query=%q kept %d/%d results (threshold %.2f)",
		collection, truncateLog(query, 50), len(filtered), len(results), relevance)
	return filtered, nil
}

// Save embeds and stores a fact in the collection.
func (r *Recall) Save(ctx context.Context, collection, text string) error {
	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed fact: %w", err)
	}
	if err := r.store.Save(ctx, collection, uuid.New().String(), text, embedding); err != nil {
		return fmt.Errorf("save fact: %w", err)
	}
	return nil
}

// SeedFromFile loads one fact per non-empty line into the collection.
// Lines starting with '#' are skipped.
func (r *Recall) SeedFromFile(ctx context.Context, collection, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.Save(ctx, collection, line); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read seed file: %w", err)
	}

	log.Printf("[RECALL] Seeded %d facts into collection %s", count, collection)
	return count, nil
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

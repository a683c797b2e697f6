//go:build !onnx

package main

import (
	"log"

	"github.com/finquill/advisor/memory"
	"github.com/finquill/advisor/memory/embedder/mock"
)

// newEmbedder returns the hash-based embedder. Build with -tags onnx for
// real semantic similarity with a local all-MiniLM-L6-v2 model.
func newEmbedder() (memory.Embedder, func() error, error) {
	log.Println("⚠️ Using mock embedder (build with -tags onnx for semantic search)")
	return mock.New(), func() error { return nil }, nil
}

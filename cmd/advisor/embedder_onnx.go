//go:build onnx

package main

import (
	"os"

	"github.com/finquill/advisor/memory"
	"github.com/finquill/advisor/memory/embedder/onnx"
)

// newEmbedder loads the local ONNX embedding model.
func newEmbedder() (memory.Embedder, func() error, error) {
	embedder, err := onnx.New(onnx.Config{
		ModelPath:     os.Getenv("ONNX_MODEL_PATH"),
		TokenizerPath: os.Getenv("ONNX_TOKENIZER_PATH"),
		LibraryPath:   os.Getenv("ONNX_LIBRARY_PATH"),
	})
	if err != nil {
		return nil, nil, err
	}
	return embedder, embedder.Close, nil
}

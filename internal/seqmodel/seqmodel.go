// Package seqmodel provides pluggable next-token sequence models.
package seqmodel

import (
	"context"
	"fmt"
	"strings"
)

// Model returns a probability distribution over the vocabulary given a
// one-hot context window of shape (len, VocabSize).
type Model interface {
	Predict(ctx context.Context, window [][]float32) ([]float64, error)
	VocabSize() int
}

// Config selects and locates a model.
type Config struct {
	Provider  string
	Path      string
	VocabSize int
}

// New creates a model from cfg.
// Provider "ngram" (default) loads a trained n-gram model from Path;
// "onnx" loads an exported network and needs the onnx build tag.
func New(cfg Config) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "ngram", "markov":
		m, err := LoadNGramFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		if cfg.VocabSize > 0 && m.VocabSize() != cfg.VocabSize {
			return nil, fmt.Errorf("ngram model vocabulary %d does not match %d", m.VocabSize(), cfg.VocabSize)
		}
		return m, nil
	case "onnx":
		return newONNXModel(cfg.Path, cfg.VocabSize)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func checkWindow(window [][]float32, vocabSize int) error {
	if len(window) == 0 {
		return fmt.Errorf("empty context window")
	}
	for i, row := range window {
		if len(row) != vocabSize {
			return fmt.Errorf("window row %d has width %d, want %d", i, len(row), vocabSize)
		}
	}
	return nil
}

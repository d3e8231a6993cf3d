// Package store provides the melody storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PutMelodyParams holds parameters for storing a generated melody.
type PutMelodyParams struct {
	Seed        []string
	Tokens      []string
	Temperature float64
	Steps       int
	Reason      model.StopReason
	Model       string
}

// ListParams holds parameters for listing melodies.
type ListParams struct {
	Reason model.StopReason
	Model  string
	Limit  int
}

// RmParams holds parameters for deleting a melody.
type RmParams struct {
	ID   string
	Hard bool
}

// SaveCorpusParams describes a corpus snapshot to persist.
type SaveCorpusParams struct {
	Corpus   *corpus.Corpus
	Rejected int
	TimeStep float64
}

// Store defines the melody storage interface.
type Store interface {
	corpus.VocabularyStore

	// SaveCorpus stores a corpus snapshot. Returns its description.
	SaveCorpus(ctx context.Context, p SaveCorpusParams) (*model.CorpusInfo, error)

	// LatestCorpus returns the most recently saved corpus.
	LatestCorpus(ctx context.Context) (*model.CorpusInfo, *corpus.Corpus, error)

	// PutMelody stores a generated melody. Returns the created melody.
	PutMelody(ctx context.Context, p PutMelodyParams) (*model.Melody, error)

	// GetMelody retrieves a melody by id.
	GetMelody(ctx context.Context, id string) (*model.Melody, error)

	// ListMelodies lists melodies newest first.
	ListMelodies(ctx context.Context, p ListParams) ([]model.Melody, error)

	// RmMelody soft-deletes (or hard-deletes) a melody.
	RmMelody(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}

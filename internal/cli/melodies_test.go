package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/store"
)

func TestCheckMelodies(t *testing.T) {
	vocab := corpus.NewVocabulary(strings.Fields("60 _ / 62 r"))
	good := model.Melody{ID: "a", Seed: []string{"60"}, Tokens: strings.Fields("60 _ r 62")}

	assert.NoError(t, checkMelodies([]model.Melody{good}, vocab, 0.25))
	assert.NoError(t, checkMelodies(nil, vocab, 0.25))

	tests := []struct {
		name  string
		mel   model.Melody
		vocab *corpus.Vocabulary
		want  error
	}{
		{"leading sustain", model.Melody{Tokens: strings.Fields("_ 60")}, nil, codec.ErrMalformedTokenStream},
		{"token outside vocabulary", model.Melody{Tokens: strings.Fields("64 _")}, vocab, corpus.ErrUnknownSymbol},
		{"seed outside vocabulary", model.Melody{Seed: []string{"71"}, Tokens: []string{"60"}}, vocab, corpus.ErrUnknownSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMelodies([]model.Melody{good, tt.mel}, tt.vocab, 0.25)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorContains(t, err, "melody 1")
		})
	}

	// Without a vocabulary only decodability is checked.
	assert.NoError(t, checkMelodies([]model.Melody{{Tokens: strings.Fields("64 _")}}, nil, 0.25))
}

func TestLibraryStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	empty, err := libraryStats(ctx, s, dbPath)
	require.NoError(t, err)
	assert.Nil(t, empty.LatestCorpus)
	assert.False(t, empty.Generatable)

	c, v, err := corpus.Assemble([][]string{strings.Fields("60 _"), strings.Fields("62")}, 2)
	require.NoError(t, err)
	require.NoError(t, s.SaveVocabulary(ctx, v))
	info, err := s.SaveCorpus(ctx, store.SaveCorpusParams{Corpus: c, Rejected: 1, TimeStep: 0.25})
	require.NoError(t, err)
	_, err = s.PutMelody(ctx, store.PutMelodyParams{Tokens: strings.Fields("60 _ 62"), Reason: model.StopSeparator})
	require.NoError(t, err)

	got, err := libraryStats(ctx, s, dbPath)
	require.NoError(t, err)
	require.NotNil(t, got.LatestCorpus)
	assert.Equal(t, info.ID, got.LatestCorpus.ID)
	assert.Equal(t, 1, got.LatestCorpus.Rejected)
	assert.True(t, got.Generatable)
	assert.Equal(t, 4, got.VocabularySize)
	assert.Equal(t, 1, got.ActiveMelodies)
}

package seqmodel

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/melodygen/internal/window"
)

func oneHot(t *testing.T, ids []int, size int) [][]float32 {
	t.Helper()
	rows, err := window.OneHot(ids, size)
	require.NoError(t, err)
	return rows
}

func sum(p []float64) float64 {
	var s float64
	for _, x := range p {
		s += x
	}
	return s
}

func TestNGram_PredictsSeenContinuation(t *testing.T) {
	// 0 1 2 0 1 2 0 1 2: after "0 1" always comes 2.
	ids := []int{0, 1, 2, 0, 1, 2, 0, 1, 2}
	m, err := TrainNGram(ids, 4, 2, 0)
	require.NoError(t, err)

	probs, err := m.Predict(context.Background(), oneHot(t, []int{2, 0, 1}, 4))
	require.NoError(t, err)
	require.Len(t, probs, 4)
	assert.InDelta(t, 1.0, probs[2], 1e-9)
	assert.InDelta(t, 1.0, sum(probs), 1e-9)
}

func TestNGram_BacksOff(t *testing.T) {
	m, err := TrainNGram([]int{0, 1, 0, 2}, 3, 3, 0)
	require.NoError(t, err)

	// Context "2 2" never seen; "2" never followed by anything; unigram it is.
	probs, err := m.Predict(context.Background(), oneHot(t, []int{2, 2}, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, probs[0], 1e-9)
	assert.InDelta(t, 0.25, probs[1], 1e-9)
	assert.InDelta(t, 0.25, probs[2], 1e-9)
}

func TestNGram_SmoothingKeepsAllSymbolsReachable(t *testing.T) {
	m, err := TrainNGram([]int{0, 1, 0, 1}, 3, 1, DefaultAlpha)
	require.NoError(t, err)
	probs, err := m.Predict(context.Background(), oneHot(t, []int{0}, 3))
	require.NoError(t, err)
	for i, p := range probs {
		assert.Greater(t, p, 0.0, "id %d", i)
	}
	assert.InDelta(t, 1.0, sum(probs), 1e-9)
}

func TestNGram_UniformWhenUntrained(t *testing.T) {
	m, err := TrainNGram(nil, 4, 2, 0)
	require.NoError(t, err)
	probs, err := m.Predict(context.Background(), oneHot(t, []int{1}, 4))
	require.NoError(t, err)
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}

func TestNGram_RejectsBadWindow(t *testing.T) {
	m, err := TrainNGram([]int{0, 1}, 2, 1, 0)
	require.NoError(t, err)
	_, err = m.Predict(context.Background(), nil)
	assert.Error(t, err)
	_, err = m.Predict(context.Background(), [][]float32{{1, 0, 0}})
	assert.Error(t, err)
}

func TestTrainNGram_Validation(t *testing.T) {
	_, err := TrainNGram([]int{0, 5}, 3, 2, 0)
	assert.Error(t, err)
	_, err = TrainNGram(nil, 0, 2, 0)
	assert.Error(t, err)
	_, err = TrainNGram(nil, 3, -1, 0)
	assert.Error(t, err)
}

func TestNGram_SaveLoad(t *testing.T) {
	m, err := TrainNGram([]int{0, 1, 2, 1, 0}, 3, 2, 0.5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	got, err := LoadNGram(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.SaveFile(path))
	loaded, err := New(Config{Provider: "ngram", Path: path, VocabSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.VocabSize())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown provider", Config{Provider: "lstm"}},
		{"ngram without path", Config{Provider: "ngram"}},
		{"onnx without tag or path", Config{Provider: "onnx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestNew_VocabMismatch(t *testing.T) {
	m, err := TrainNGram([]int{0, 1}, 2, 1, 0)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.SaveFile(path))

	_, err = New(Config{Path: path, VocabSize: 5})
	assert.Error(t, err)
}

func TestDistributionIsFinite(t *testing.T) {
	m, err := TrainNGram([]int{0, 0, 0}, 2, 2, 0)
	require.NoError(t, err)
	probs, err := m.Predict(context.Background(), oneHot(t, []int{0, 0}, 2))
	require.NoError(t, err)
	for _, p := range probs {
		assert.False(t, math.IsNaN(p))
	}
	assert.InDelta(t, 1.0, probs[0], 1e-12)
}

package seqmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rcliao/melodygen/internal/window"
)

const (
	DefaultOrder = 4
	DefaultAlpha = 0.01
)

// NGram is a back-off n-gram model over token ids. It is trained from the
// integer-encoded corpus and stands in for a neural network.
type NGram struct {
	Order  int                       `json:"order"`
	Alpha  float64                   `json:"alpha"`
	Size   int                       `json:"vocab_size"`
	Counts map[string]map[int]uint32 `json:"counts"`
}

// TrainNGram counts every context of length 0..order preceding each id.
func TrainNGram(ids []int, vocabSize, order int, alpha float64) (*NGram, error) {
	if vocabSize <= 0 {
		return nil, fmt.Errorf("train ngram: vocabulary size must be positive")
	}
	if order < 0 {
		return nil, fmt.Errorf("train ngram: order must not be negative")
	}
	if alpha < 0 {
		return nil, fmt.Errorf("train ngram: alpha must not be negative")
	}
	m := &NGram{Order: order, Alpha: alpha, Size: vocabSize, Counts: make(map[string]map[int]uint32)}
	for i, id := range ids {
		if id < 0 || id >= vocabSize {
			return nil, fmt.Errorf("train ngram: id %d outside vocabulary of %d", id, vocabSize)
		}
		for k := 0; k <= order && k <= i; k++ {
			key := contextKey(ids[i-k : i])
			next := m.Counts[key]
			if next == nil {
				next = make(map[int]uint32)
				m.Counts[key] = next
			}
			next[id]++
		}
	}
	return m, nil
}

func (m *NGram) VocabSize() int { return m.Size }

// Predict backs off from the longest known context to the unigram
// distribution, and to uniform when the model saw nothing.
func (m *NGram) Predict(ctx context.Context, win [][]float32) ([]float64, error) {
	if err := checkWindow(win, m.Size); err != nil {
		return nil, err
	}
	ids := window.ArgMax(win)

	k := min(m.Order, len(ids))
	for ; k >= 0; k-- {
		next, ok := m.Counts[contextKey(ids[len(ids)-k:])]
		if ok && len(next) > 0 {
			return m.distribution(next), nil
		}
	}

	probs := make([]float64, m.Size)
	for i := range probs {
		probs[i] = 1 / float64(m.Size)
	}
	return probs, nil
}

func (m *NGram) distribution(next map[int]uint32) []float64 {
	var total float64
	for _, c := range next {
		total += float64(c)
	}
	denom := total + m.Alpha*float64(m.Size)
	probs := make([]float64, m.Size)
	for i := range probs {
		probs[i] = m.Alpha / denom
	}
	for id, c := range next {
		probs[id] += float64(c) / denom
	}
	return probs
}

// Save writes the model as JSON.
func (m *NGram) Save(w io.Writer) error {
	return json.NewEncoder(w).Encode(m)
}

// SaveFile writes the model to path.
func (m *NGram) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("write model: %w", err)
	}
	return f.Close()
}

// LoadNGram reads a model written by Save.
func LoadNGram(r io.Reader) (*NGram, error) {
	var m NGram
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode ngram model: %w", err)
	}
	if m.Size <= 0 {
		return nil, fmt.Errorf("decode ngram model: missing vocabulary size")
	}
	return &m, nil
}

// LoadNGramFile reads a model from path.
func LoadNGramFile(path string) (*NGram, error) {
	if path == "" {
		return nil, fmt.Errorf("ngram model path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return LoadNGram(f)
}

func contextKey(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

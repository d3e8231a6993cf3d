// Package window slices an integer token stream into fixed-length training
// pairs.
package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInsufficientCorpus    = errors.New("corpus shorter than sequence length")
	ErrInvalidSequenceLength = errors.New("sequence length must be positive")
)

// Pair is one (context, next-token) training example.
type Pair struct {
	Context []int `json:"context"`
	Target  int   `json:"target"`
}

// Count returns the number of pairs Windows yields for n ids.
func Count(n, sequenceLength int) int {
	return n - sequenceLength
}

// Windows returns every stride-1 window of sequenceLength ids followed by the
// id after it. It yields len(ids)-sequenceLength pairs and fails when that is
// not positive.
func Windows(ids []int, sequenceLength int) ([]Pair, error) {
	if sequenceLength <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSequenceLength, sequenceLength)
	}
	n := Count(len(ids), sequenceLength)
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d tokens, window %d", ErrInsufficientCorpus, len(ids), sequenceLength)
	}

	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		// Contexts alias ids; callers must not mutate them.
		pairs[i] = Pair{
			Context: ids[i : i+sequenceLength : i+sequenceLength],
			Target:  ids[i+sequenceLength],
		}
	}
	return pairs, nil
}

// OneHot expands ids into rows of width vocabSize.
func OneHot(ids []int, vocabSize int) ([][]float32, error) {
	rows := make([][]float32, len(ids))
	backing := make([]float32, len(ids)*vocabSize)
	for i, id := range ids {
		if id < 0 || id >= vocabSize {
			return nil, fmt.Errorf("one-hot: id %d outside vocabulary of %d", id, vocabSize)
		}
		rows[i] = backing[i*vocabSize : (i+1)*vocabSize : (i+1)*vocabSize]
		rows[i][id] = 1
	}
	return rows, nil
}

// ArgMax returns the hot index of each one-hot row, or -1 for an all-zero row.
func ArgMax(rows [][]float32) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		best := -1
		var bestVal float32
		for j, x := range row {
			if x > bestVal {
				best, bestVal = j, x
			}
		}
		out[i] = best
	}
	return out
}

// WriteNDJSON writes one JSON pair per line.
func WriteNDJSON(w io.Writer, pairs []Pair) (int, error) {
	enc := json.NewEncoder(w)
	for i, p := range pairs {
		if err := enc.Encode(p); err != nil {
			return i, fmt.Errorf("write pair %d: %w", i, err)
		}
	}
	return len(pairs), nil
}

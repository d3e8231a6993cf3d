package window

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows(t *testing.T) {
	ids := []int{0, 0, 1, 2, 3, 4}
	pairs, err := Windows(ids, 3)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	assert.Equal(t, []int{0, 0, 1}, pairs[0].Context)
	assert.Equal(t, 2, pairs[0].Target)
	assert.Equal(t, []int{1, 2, 3}, pairs[2].Context)
	assert.Equal(t, 4, pairs[2].Target)
}

func TestWindows_Count(t *testing.T) {
	for _, n := range []int{5, 6, 10, 100} {
		ids := make([]int, n)
		pairs, err := Windows(ids, 4)
		require.NoError(t, err)
		assert.Len(t, pairs, n-4)
		assert.Equal(t, n-4, Count(n, 4))
	}
}

func TestWindows_InsufficientCorpus(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4} {
		_, err := Windows(make([]int, n), 4)
		assert.ErrorIs(t, err, ErrInsufficientCorpus, "n=%d", n)
	}
}

func TestWindows_InvalidLength(t *testing.T) {
	_, err := Windows([]int{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidSequenceLength)
}

func TestWindows_ContextCannotGrowIntoTarget(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	pairs, err := Windows(ids, 2)
	require.NoError(t, err)
	_ = append(pairs[0].Context, 99)
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestOneHot(t *testing.T) {
	rows, err := OneHot([]int{2, 0, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{
		{0, 0, 1, 0},
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}, rows)
	assert.Equal(t, []int{2, 0, 1}, ArgMax(rows))

	_, err = OneHot([]int{4}, 4)
	assert.Error(t, err)
}

func TestWriteNDJSON(t *testing.T) {
	pairs, err := Windows([]int{5, 6, 7, 8}, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteNDJSON(&buf, pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sc := bufio.NewScanner(&buf)
	var got []Pair
	for sc.Scan() {
		var p Pair
		require.NoError(t, json.Unmarshal(sc.Bytes(), &p))
		got = append(got, p)
	}
	require.Len(t, got, 2)
	assert.Equal(t, Pair{Context: []int{6, 7}, Target: 8}, got[1])
}

package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestReweight_UnitTemperatureIsIdentity(t *testing.T) {
	p := []float64{0.1, 0.2, 0.1, 0.6}
	got, err := Reweight(p, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, p, got, 1e-12)
}

func TestReweight_Normalizes(t *testing.T) {
	got, err := Reweight([]float64{2, 6}, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, got, 1e-12)
}

func TestReweight_HighTemperatureFlattens(t *testing.T) {
	got, err := Reweight([]float64{0.1, 0.2, 0.1, 0.6}, 1e6)
	require.NoError(t, err)
	for _, w := range got {
		assert.InDelta(t, 0.25, w, 1e-3)
	}
}

func TestReweight_ZeroProbabilityStaysZero(t *testing.T) {
	got, err := Reweight([]float64{0, 0.5, 0.5}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0])
	for _, w := range got {
		assert.False(t, math.IsNaN(w))
	}
	assert.InDelta(t, 0.5, got[1], 1e-12)
}

func TestReweight_Degenerate(t *testing.T) {
	_, err := Reweight([]float64{0.5, 0.5}, 0)
	assert.ErrorIs(t, err, ErrDegenerateTemperature)
	_, err = Reweight([]float64{0.5, 0.5}, -2)
	assert.ErrorIs(t, err, ErrDegenerateTemperature)
	_, err = Reweight([]float64{0.5, 0.5}, math.NaN())
	assert.ErrorIs(t, err, ErrDegenerateTemperature)
	_, err = Reweight([]float64{0.5, 0.5}, math.Inf(1))
	assert.ErrorIs(t, err, ErrDegenerateTemperature)

	_, err = Reweight([]float64{0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDegenerateDistribution)
	_, err = Reweight(nil, 1)
	assert.ErrorIs(t, err, ErrDegenerateDistribution)
	_, err = Reweight([]float64{math.NaN(), 1}, 1)
	assert.ErrorIs(t, err, ErrDegenerateDistribution)
}

func TestSampleWithTemperature_NearZeroIsGreedy(t *testing.T) {
	p := []float64{0.1, 0.2, 0.1, 0.6}
	src := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		idx, err := SampleWithTemperature(p, 0.001, src)
		require.NoError(t, err)
		require.Equal(t, 3, idx)
	}
}

func TestSampleWithTemperature_MatchesDistribution(t *testing.T) {
	p := []float64{0.1, 0.2, 0.1, 0.6}
	src := rand.New(rand.NewSource(7))
	counts := make([]int, len(p))
	const trials = 20000
	for i := 0; i < trials; i++ {
		idx, err := SampleWithTemperature(p, 1, src)
		require.NoError(t, err)
		counts[idx]++
	}
	for i, c := range counts {
		assert.InDelta(t, p[i], float64(c)/trials, 0.02, "index %d", i)
	}
}

func TestSampleWithTemperature_ZeroFails(t *testing.T) {
	_, err := SampleWithTemperature([]float64{0.1, 0.2, 0.1, 0.6}, 0, fixedSource(0.5))
	assert.ErrorIs(t, err, ErrDegenerateTemperature)
}

func TestCategorical(t *testing.T) {
	w := []float64{0.25, 0, 0.5, 0.25}
	tests := []struct {
		u    float64
		want int
	}{
		{0, 0},
		{0.2499, 0},
		{0.25, 2},
		{0.74, 2},
		{0.75, 3},
		{0.9999, 3},
		{1.0, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorical(w, tt.u), "u=%g", tt.u)
	}
	assert.Equal(t, 1, categorical([]float64{0, 1, 0}, 0.999999))
}

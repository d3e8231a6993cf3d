package sampler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrDegenerateTemperature  = errors.New("temperature must be a positive finite number")
	ErrDegenerateDistribution = errors.New("probability vector has no positive mass")
)

// Source is a uniform random source on [0, 1). *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Reweight rescales p by temperature: softmax(log(p)/T). Zero probabilities
// stay at zero.
func Reweight(p []float64, temperature float64) ([]float64, error) {
	if !validTemperature(temperature) {
		return nil, fmt.Errorf("%w: %g", ErrDegenerateTemperature, temperature)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDegenerateDistribution)
	}

	logits := make([]float64, len(p))
	for i, x := range p {
		switch {
		case math.IsNaN(x) || x < 0:
			return nil, fmt.Errorf("%w: p[%d] = %g", ErrDegenerateDistribution, i, x)
		case x == 0:
			logits[i] = math.Inf(-1)
		default:
			logits[i] = math.Log(x) / temperature
		}
	}

	peak := floats.Max(logits)
	if math.IsInf(peak, -1) {
		return nil, fmt.Errorf("%w: all entries are zero", ErrDegenerateDistribution)
	}
	for i, l := range logits {
		logits[i] = math.Exp(l - peak)
	}
	floats.Scale(1/floats.Sum(logits), logits)
	return logits, nil
}

// SampleWithTemperature draws one index from p reweighted by temperature.
func SampleWithTemperature(p []float64, temperature float64, src Source) (int, error) {
	w, err := Reweight(p, temperature)
	if err != nil {
		return 0, err
	}
	return categorical(w, src.Float64()), nil
}

// categorical returns the index whose cumulative mass first exceeds u.
func categorical(w []float64, u float64) int {
	var cum float64
	last := 0
	for i, x := range w {
		if x <= 0 {
			continue
		}
		cum += x
		last = i
		if u < cum {
			return i
		}
	}
	// Rounding can leave cum just under 1.
	return last
}

func validTemperature(t float64) bool {
	return t > 0 && !math.IsInf(t, 1)
}

package codec

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rcliao/melodygen/internal/model"
)

// Encode flattens events onto a fixed time-step grid. Each event emits its
// base token followed by round(d/t)-1 sustain tokens.
func Encode(events []model.Event, timeStep float64) ([]string, error) {
	if !(timeStep > 0) || math.IsInf(timeStep, 1) {
		return nil, fmt.Errorf("encode: %w: %g", ErrInvalidTimeStep, timeStep)
	}

	var tokens []string
	for i, ev := range events {
		steps, err := Steps(ev.Duration, timeStep)
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
		base, err := BaseToken(ev)
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
		if steps < 1 {
			return nil, fmt.Errorf("encode event %d: %w: %d steps", i, ErrInvalidDuration, steps)
		}
		tokens = append(tokens, base)
		for j := 1; j < steps; j++ {
			tokens = append(tokens, model.SustainSymbol)
		}
	}
	return tokens, nil
}

// Steps returns round(d/t). Durations shorter than one step are an error,
// never a zero-length run. So are durations whose step count does not fit
// in an int.
func Steps(d, timeStep float64) (int, error) {
	if math.IsNaN(d) || d < timeStep {
		return 0, fmt.Errorf("%w: %g < %g", ErrDurationBelowStep, d, timeStep)
	}
	n := math.Round(d / timeStep)
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
	if math.IsInf(n, 0) || n >= float64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %g is too many steps of %g", ErrInvalidDuration, d, timeStep)
	}
	return int(n), nil
}

// BaseToken is the decimal pitch for notes and "r" for rests.
func BaseToken(ev model.Event) (string, error) {
	switch ev.Kind {
	case model.KindPitch:
		return strconv.Itoa(ev.Pitch), nil
	case model.KindRest:
		return model.RestSymbol, nil
	}
	return "", fmt.Errorf("unknown event kind %d", ev.Kind)
}

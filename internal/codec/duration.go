// Package codec converts between timed events and the time-step token representation.
package codec

import (
	"slices"

	"github.com/rcliao/melodygen/internal/model"
)

// IsAcceptable reports whether d is exactly one of the allowed durations.
func IsAcceptable(d float64, allowed []float64) bool {
	return slices.Contains(allowed, d)
}

// Quantizer gates whole scores on their event durations.
type Quantizer struct {
	Allowed []float64
}

// NewQuantizer returns a Quantizer over allowed, or the default set when empty.
func NewQuantizer(allowed []float64) Quantizer {
	if len(allowed) == 0 {
		allowed = model.AcceptableDurations
	}
	return Quantizer{Allowed: slices.Clone(allowed)}
}

// Check returns a *RejectedScoreError for the first unacceptable event.
// One bad event rejects the whole score.
func (q Quantizer) Check(score model.Score) error {
	for i, ev := range score.Events {
		if !IsAcceptable(ev.Duration, q.Allowed) {
			return &RejectedScoreError{Score: score.Name, Index: i, Duration: ev.Duration}
		}
	}
	return nil
}

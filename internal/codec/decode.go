package codec

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rcliao/melodygen/internal/model"
)

// Decode rebuilds events from a token stream. A sustain token extends the
// open run; any other token closes it. The run still open at the end of
// input is flushed as well.
func Decode(tokens []string, stepDuration float64) ([]model.Event, error) {
	if !(stepDuration > 0) || math.IsInf(stepDuration, 1) {
		return nil, fmt.Errorf("decode: %w: %g", ErrInvalidTimeStep, stepDuration)
	}

	var events []model.Event
	var (
		base    string
		baseIdx int
		open    bool
		run     = 1
	)

	flush := func() error {
		if !open {
			return nil
		}
		ev, err := baseEvent(base, stepDuration*float64(run))
		if err != nil {
			return &MalformedTokenError{Index: baseIdx, Token: base, Reason: err.Error()}
		}
		events = append(events, ev)
		return nil
	}

	for i, tok := range tokens {
		if tok == model.SustainSymbol {
			if !open {
				return nil, &MalformedTokenError{Index: i, Token: tok, Reason: "sustain without a preceding note or rest"}
			}
			run++
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		base, baseIdx, open, run = tok, i, true, 1
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return events, nil
}

func baseEvent(tok string, duration float64) (model.Event, error) {
	if tok == model.RestSymbol {
		return model.Rest(duration), nil
	}
	p, err := strconv.Atoi(tok)
	if err != nil {
		return model.Event{}, fmt.Errorf("not a pitch or rest")
	}
	return model.Pitch(p, duration), nil
}

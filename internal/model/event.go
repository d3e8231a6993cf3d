// Package model defines the core melody data types.
package model

import (
	"encoding/json"
	"fmt"
)

// Token symbols used by the time-step representation.
const (
	RestSymbol      = "r"
	SustainSymbol   = "_"
	SeparatorSymbol = "/"
)

const (
	// DefaultTimeStep is one sixteenth note, in quarter lengths.
	DefaultTimeStep = 0.25
	// DefaultSequenceLength is the training window and the separator run width.
	DefaultSequenceLength = 64
)

// AcceptableDurations is the default set of allowed quarter-length durations.
var AcceptableDurations = []float64{0.25, 0.5, 0.75, 1.0, 1.5, 2, 3, 4}

// Kind tags an Event as a pitch or a rest.
type Kind uint8

const (
	KindPitch Kind = iota
	KindRest
)

func (k Kind) String() string {
	switch k {
	case KindPitch:
		return "pitch"
	case KindRest:
		return "rest"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Event is a single timed note or rest. Duration is in quarter lengths.
type Event struct {
	Kind     Kind
	Pitch    int
	Duration float64
}

// Pitch returns a pitch event.
func Pitch(pitch int, duration float64) Event {
	return Event{Kind: KindPitch, Pitch: pitch, Duration: duration}
}

// Rest returns a rest event.
func Rest(duration float64) Event {
	return Event{Kind: KindRest, Duration: duration}
}

// IsRest reports whether e is a rest.
func (e Event) IsRest() bool { return e.Kind == KindRest }

func (e Event) String() string {
	if e.Kind == KindRest {
		return fmt.Sprintf("rest(%g)", e.Duration)
	}
	return fmt.Sprintf("%d(%g)", e.Pitch, e.Duration)
}

type eventJSON struct {
	Kind     string  `json:"kind"`
	Pitch    *int    `json:"pitch,omitempty"`
	Duration float64 `json:"duration"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{Kind: e.Kind.String(), Duration: e.Duration}
	switch e.Kind {
	case KindPitch:
		p := e.Pitch
		out.Pitch = &p
	case KindRest:
	default:
		return nil, fmt.Errorf("marshal event: unknown kind %d", e.Kind)
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var in eventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "pitch":
		if in.Pitch == nil {
			return fmt.Errorf("pitch event without pitch")
		}
		*e = Pitch(*in.Pitch, in.Duration)
	case "rest":
		*e = Rest(in.Duration)
	default:
		return fmt.Errorf("unknown event kind %q", in.Kind)
	}
	return nil
}

// Score is one parsed score handed over by a score source.
type Score struct {
	Name   string  `json:"name"`
	Path   string  `json:"path,omitempty"`
	Events []Event `json:"events"`
}

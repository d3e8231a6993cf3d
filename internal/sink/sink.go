// Package sink renders decoded melodies.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/model"
)

// Sink accepts a decoded event sequence. stepDuration is the time-step the
// events were decoded with.
type Sink interface {
	Write(events []model.Event, stepDuration float64) error
}

// Validate checks that every event is a pitch or rest with a positive,
// finite duration.
func Validate(events []model.Event) error {
	for i, ev := range events {
		if !(ev.Duration > 0) || math.IsInf(ev.Duration, 1) {
			return fmt.Errorf("event %d: invalid duration %g", i, ev.Duration)
		}
		switch ev.Kind {
		case model.KindRest:
		case model.KindPitch:
			if ev.Pitch < 0 || ev.Pitch > 127 {
				return fmt.Errorf("event %d: pitch %d outside 0..127", i, ev.Pitch)
			}
		default:
			return fmt.Errorf("event %d: unknown kind %d", i, ev.Kind)
		}
	}
	return nil
}

// TokenSink writes the time-step token text of the events.
type TokenSink struct {
	W io.Writer
}

func (s TokenSink) Write(events []model.Event, stepDuration float64) error {
	if err := Validate(events); err != nil {
		return err
	}
	tokens, err := codec.Encode(events, stepDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.W, strings.Join(tokens, " "))
	return err
}

// JSONSink writes the events as a JSON array.
type JSONSink struct {
	W io.Writer
}

func (s JSONSink) Write(events []model.Event, stepDuration float64) error {
	if err := Validate(events); err != nil {
		return err
	}
	if events == nil {
		events = []model.Event{}
	}
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.W, string(b))
	return err
}

// FileSink renders to a file, choosing the format from its extension:
// .mid/.midi, .json, anything else gets tokens.
type FileSink struct {
	Path string
	MIDI MIDIOptions
}

func (s FileSink) Write(events []model.Event, stepDuration float64) error {
	if err := Validate(events); err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path, err)
	}

	var inner Sink
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".mid", ".midi":
		inner = &MIDISink{W: f, Options: s.MIDI}
	case ".json":
		inner = JSONSink{W: f}
	default:
		inner = TokenSink{W: f}
	}
	if err := inner.Write(events, stepDuration); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

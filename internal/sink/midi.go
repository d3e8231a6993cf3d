package sink

import (
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/rcliao/melodygen/internal/model"
)

// MIDIOptions controls Standard MIDI File output.
type MIDIOptions struct {
	TicksPerQuarter uint16
	Tempo           float64
	Velocity        uint8
	Channel         uint8
}

// DefaultMIDIOptions returns 480 ticks per quarter at 120 bpm.
func DefaultMIDIOptions() MIDIOptions {
	return MIDIOptions{TicksPerQuarter: 480, Tempo: 120, Velocity: 100}
}

// MIDISink writes a single-track Standard MIDI File.
type MIDISink struct {
	W       io.Writer
	Options MIDIOptions
}

func (s *MIDISink) Write(events []model.Event, stepDuration float64) error {
	if err := Validate(events); err != nil {
		return err
	}
	file, err := BuildSMF(events, s.Options)
	if err != nil {
		return err
	}
	if _, err := file.WriteTo(s.W); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// BuildSMF lays events out back to back on one track. Rests only advance time.
func BuildSMF(events []model.Event, opts MIDIOptions) (*smf.SMF, error) {
	def := DefaultMIDIOptions()
	if opts.TicksPerQuarter == 0 {
		opts.TicksPerQuarter = def.TicksPerQuarter
	}
	if opts.Tempo <= 0 {
		opts.Tempo = def.Tempo
	}
	if opts.Velocity == 0 {
		opts.Velocity = def.Velocity
	}
	tpq := float64(opts.TicksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(opts.Tempo))

	var delta uint32
	for _, ev := range events {
		ticks := uint32(math.Round(ev.Duration * tpq))
		if ev.IsRest() {
			delta += ticks
			continue
		}
		key := uint8(ev.Pitch)
		tr.Add(delta, midi.NoteOn(opts.Channel, key, opts.Velocity))
		tr.Add(ticks, midi.NoteOff(opts.Channel, key))
		delta = 0
	}
	tr.Close(delta)

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)
	if err := file.Add(tr); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return file, nil
}

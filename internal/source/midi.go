package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/rcliao/melodygen/internal/model"
)

// ReadMIDIScore reads a Standard MIDI File as a monophonic melody. The track
// with the most notes is used; an overlapping note cuts off the sounding one
// and silence between notes becomes a rest.
func ReadMIDIScore(path string) (model.Score, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return model.Score{}, err
	}
	events, err := melodyFromSMF(s)
	if err != nil {
		return model.Score{}, err
	}
	return model.Score{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:   path,
		Events: events,
	}, nil
}

func melodyFromSMF(s *smf.SMF) ([]model.Event, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || ticks == 0 {
		return nil, fmt.Errorf("unsupported time format %v", s.TimeFormat)
	}
	tpq := float64(uint16(ticks))

	track := busiestTrack(s.Tracks)
	if track == nil {
		return nil, fmt.Errorf("no notes")
	}

	var (
		events   []model.Event
		now      uint64
		lastEnd  uint64
		sounding = -1
		start    uint64
	)
	closeNote := func(at uint64) {
		if at > start {
			events = append(events, model.Pitch(sounding, float64(at-start)/tpq))
		}
		sounding = -1
		lastEnd = at
	}

	for _, ev := range track {
		now += uint64(ev.Delta)
		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			if sounding >= 0 {
				closeNote(now)
			}
			if now > lastEnd {
				events = append(events, model.Rest(float64(now-lastEnd)/tpq))
			}
			sounding, start = int(key), now
		case msg.GetNoteEnd(&ch, &key):
			if int(key) == sounding {
				closeNote(now)
			}
		}
	}
	if sounding >= 0 {
		closeNote(now)
	}
	return events, nil
}

func busiestTrack(tracks []smf.Track) smf.Track {
	var best smf.Track
	bestNotes := 0
	for _, tr := range tracks {
		n := 0
		for _, ev := range tr {
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				n++
			}
		}
		if n > bestNotes {
			best, bestNotes = tr, n
		}
	}
	return best
}

package model

import "time"

// StopReason records why a generation ended.
type StopReason string

const (
	StopSeparator StopReason = "separator"
	StopStepLimit StopReason = "step_limit"
)

// Melody represents a stored generation.
type Melody struct {
	ID          string     `json:"id"`
	Seed        []string   `json:"seed"`
	Tokens      []string   `json:"tokens"`
	Temperature float64    `json:"temperature"`
	Steps       int        `json:"steps"`
	Reason      StopReason `json:"reason"`
	Model       string     `json:"model,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CorpusInfo describes a stored corpus snapshot.
type CorpusInfo struct {
	ID             string    `json:"id"`
	Scores         int       `json:"scores"`
	Rejected       int       `json:"rejected"`
	Tokens         int       `json:"tokens"`
	SequenceLength int       `json:"sequence_length"`
	TimeStep       float64   `json:"time_step"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidReasons are the allowed stop reasons.
var ValidReasons = map[StopReason]bool{
	StopSeparator: true,
	StopStepLimit: true,
}

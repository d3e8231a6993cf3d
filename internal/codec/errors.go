package codec

import (
	"errors"
	"fmt"
)

var (
	ErrRejectedScore        = errors.New("score rejected: unacceptable duration")
	ErrMalformedTokenStream = errors.New("malformed token stream")
	ErrDurationBelowStep    = errors.New("duration shorter than time step")
	ErrInvalidTimeStep      = errors.New("time step must be positive")
	ErrInvalidDuration      = errors.New("duration not representable as a step count")
)

// RejectedScoreError reports the first event that failed the duration gate.
type RejectedScoreError struct {
	Score    string
	Index    int
	Duration float64
}

func (e *RejectedScoreError) Error() string {
	return fmt.Sprintf("score %q: event %d has duration %g", e.Score, e.Index, e.Duration)
}

func (e *RejectedScoreError) Unwrap() error { return ErrRejectedScore }

// MalformedTokenError reports the position of an undecodable token.
type MalformedTokenError struct {
	Index  int
	Token  string
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("token %d %q: %s", e.Index, e.Token, e.Reason)
}

func (e *MalformedTokenError) Unwrap() error { return ErrMalformedTokenStream }

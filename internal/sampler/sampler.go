// Package sampler generates token sequences by autoregressively sampling a
// sequence model.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/seqmodel"
	"github.com/rcliao/melodygen/internal/window"
)

// ErrInvalidParams is returned for out-of-range generation parameters.
var ErrInvalidParams = errors.New("invalid generation parameters")

// State is the phase of one generation.
type State int

const (
	StateRunning State = iota
	StateStepping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStepping:
		return "stepping"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Params configures one generation.
type Params struct {
	Seed              []string
	NumSteps          int
	MaxSequenceLength int
	Temperature       float64
}

// Result is the outcome of a generation. Melody starts with the seed.
type Result struct {
	Melody    []string         `json:"melody"`
	Generated int              `json:"generated"`
	Steps     int              `json:"steps"`
	Reason    model.StopReason `json:"reason"`
}

// Sampler drives a sequence model over a fixed vocabulary. It is safe for
// concurrent use; every Generate call owns its own state.
type Sampler struct {
	vocab          *corpus.Vocabulary
	model          seqmodel.Model
	log            zerolog.Logger
	sequenceLength int
	separatorID    int

	mu  sync.Mutex
	rng Source
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithRand sets the random source used for categorical draws.
func WithRand(src Source) Option {
	return func(s *Sampler) { s.rng = src }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sampler) { s.log = l }
}

// WithSequenceLength sets how many separators prefix the seed.
func WithSequenceLength(n int) Option {
	return func(s *Sampler) { s.sequenceLength = n }
}

// New returns a Sampler. The vocabulary must contain the separator, and the
// model must cover exactly the vocabulary.
func New(vocab *corpus.Vocabulary, m seqmodel.Model, opts ...Option) (*Sampler, error) {
	sepID, err := vocab.ID(model.SeparatorSymbol)
	if err != nil {
		return nil, fmt.Errorf("new sampler: %w", err)
	}
	if m.VocabSize() != vocab.Size() {
		return nil, fmt.Errorf("new sampler: model covers %d symbols, vocabulary has %d", m.VocabSize(), vocab.Size())
	}
	s := &Sampler{
		vocab:          vocab,
		model:          m,
		log:            zerolog.Nop(),
		sequenceLength: model.DefaultSequenceLength,
		separatorID:    sepID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sequenceLength <= 0 {
		return nil, fmt.Errorf("new sampler: sequence length must be positive")
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s, nil
}

// generation is the state of one Generate call. Never shared.
type generation struct {
	state  State
	buf    []int
	melody []string
	steps  int
	reason model.StopReason
}

// Generate samples up to p.NumSteps tokens after the seed. Sampling the
// separator ends the melody early; running out of steps is not an error.
func (s *Sampler) Generate(ctx context.Context, p Params) (*Result, error) {
	if !validTemperature(p.Temperature) {
		return nil, fmt.Errorf("generate: %w: %g", ErrDegenerateTemperature, p.Temperature)
	}
	if p.NumSteps < 0 {
		return nil, fmt.Errorf("generate: %w: negative step count %d", ErrInvalidParams, p.NumSteps)
	}
	if p.MaxSequenceLength <= 0 {
		return nil, fmt.Errorf("generate: %w: max sequence length must be positive, got %d", ErrInvalidParams, p.MaxSequenceLength)
	}

	seedIDs, err := s.vocab.Encode(p.Seed)
	if err != nil {
		return nil, fmt.Errorf("generate: seed: %w", err)
	}

	g := &generation{
		state:  StateRunning,
		buf:    make([]int, 0, s.sequenceLength+len(seedIDs)+p.NumSteps),
		melody: append(make([]string, 0, len(p.Seed)+p.NumSteps), p.Seed...),
		reason: model.StopStepLimit,
	}
	for i := 0; i < s.sequenceLength; i++ {
		g.buf = append(g.buf, s.separatorID)
	}
	g.buf = append(g.buf, seedIDs...)

	for g.state != StateTerminated {
		if g.steps >= p.NumSteps {
			g.state = StateTerminated
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.state = StateStepping
		if err := s.step(ctx, g, p); err != nil {
			return nil, fmt.Errorf("generate step %d: %w", g.steps, err)
		}
	}

	s.log.Debug().
		Int("steps", g.steps).
		Int("tokens", len(g.melody)).
		Str("reason", string(g.reason)).
		Msg("generation finished")

	return &Result{
		Melody:    g.melody,
		Generated: len(g.melody) - len(p.Seed),
		Steps:     g.steps,
		Reason:    g.reason,
	}, nil
}

func (s *Sampler) step(ctx context.Context, g *generation, p Params) error {
	ctxIDs := g.buf
	if len(ctxIDs) > p.MaxSequenceLength {
		ctxIDs = ctxIDs[len(ctxIDs)-p.MaxSequenceLength:]
	}
	onehot, err := window.OneHot(ctxIDs, s.vocab.Size())
	if err != nil {
		return err
	}
	probs, err := s.model.Predict(ctx, onehot)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if len(probs) != s.vocab.Size() {
		return fmt.Errorf("model returned %d probabilities for %d symbols", len(probs), s.vocab.Size())
	}

	s.mu.Lock()
	id, err := SampleWithTemperature(probs, p.Temperature, s.rng)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	g.buf = append(g.buf, id)
	g.steps++

	tok, err := s.vocab.Token(id)
	if err != nil {
		return err
	}
	if tok == model.SeparatorSymbol {
		g.state = StateTerminated
		g.reason = model.StopSeparator
		return nil
	}
	g.melody = append(g.melody, tok)
	return nil
}

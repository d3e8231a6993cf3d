// Package pipeline wires scores, the codec, the corpus and the sampler into
// the preprocessing and generation workflows.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/seqmodel"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/source"
	"github.com/rcliao/melodygen/internal/window"
)

// Options configures preprocessing.
type Options struct {
	TimeStep       float64
	SequenceLength int
	// Allowed durations; empty uses model.AcceptableDurations.
	Allowed []float64
	Log     zerolog.Logger
}

// PreprocessResult is the corpus built from the accepted scores.
type PreprocessResult struct {
	Corpus     *corpus.Corpus
	Vocabulary *corpus.Vocabulary
	Accepted   int
	// Rejected names the scores that failed the duration gate.
	Rejected []string
	// Generatable is false when the vocabulary has no separator, which
	// happens when fewer than two scores were accepted. The sampler needs
	// the separator to seed and stop generation.
	Generatable bool
}

// Preprocess loads scores, drops those with unacceptable durations, encodes
// the rest and assembles the corpus and its vocabulary.
func Preprocess(ctx context.Context, src source.Source, opts Options) (*PreprocessResult, error) {
	if !(opts.TimeStep > 0) {
		return nil, fmt.Errorf("preprocess: %w", codec.ErrInvalidTimeStep)
	}
	if opts.SequenceLength <= 0 {
		return nil, fmt.Errorf("preprocess: sequence length must be positive, got %d", opts.SequenceLength)
	}

	scores, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	opts.Log.Info().Int("scores", len(scores)).Msg("loaded scores")

	q := codec.NewQuantizer(opts.Allowed)
	res := &PreprocessResult{Rejected: []string{}}
	sequences := make([][]string, 0, len(scores))
	for _, score := range scores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := q.Check(score); err != nil {
			opts.Log.Warn().Err(err).Str("score", score.Name).Msg("rejecting score")
			res.Rejected = append(res.Rejected, score.Name)
			continue
		}
		tokens, err := codec.Encode(score.Events, opts.TimeStep)
		if errors.Is(err, codec.ErrDurationBelowStep) || errors.Is(err, codec.ErrInvalidDuration) {
			opts.Log.Warn().Err(err).Str("score", score.Name).Msg("rejecting score")
			res.Rejected = append(res.Rejected, score.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", score.Name, err)
		}
		sequences = append(sequences, tokens)
	}

	c, v, err := corpus.Assemble(sequences, opts.SequenceLength)
	if err != nil {
		return nil, err
	}
	res.Corpus = c
	res.Vocabulary = v
	res.Accepted = c.Scores
	res.Generatable = v.Contains(model.SeparatorSymbol)
	if !res.Generatable {
		opts.Log.Warn().
			Int("accepted", res.Accepted).
			Msg("vocabulary has no separator; generation needs at least two accepted scores")
	}

	opts.Log.Info().
		Int("accepted", res.Accepted).
		Int("rejected", len(res.Rejected)).
		Int("tokens", c.Len()).
		Int("vocabulary", v.Size()).
		Msg("preprocessed corpus")
	return res, nil
}

// Dataset integer-encodes the corpus and slides the training window over it.
func Dataset(c *corpus.Corpus, v *corpus.Vocabulary, sequenceLength int) ([]window.Pair, error) {
	ids, err := v.Encode(c.Tokens)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	return window.Windows(ids, sequenceLength)
}

// Train fits an n-gram model on the integer-encoded corpus.
func Train(c *corpus.Corpus, v *corpus.Vocabulary, order int, alpha float64) (*seqmodel.NGram, error) {
	ids, err := v.Encode(c.Tokens)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("train: %w", window.ErrInsufficientCorpus)
	}
	return seqmodel.TrainNGram(ids, v.Size(), order, alpha)
}

// Generation is a sampled melody with its decoded events.
type Generation struct {
	*sampler.Result
	Events []model.Event `json:"events"`
}

// Generate samples a melody, decodes it with stepDuration and hands the
// events to out. A nil out skips rendering.
func Generate(ctx context.Context, s *sampler.Sampler, p sampler.Params, stepDuration float64, out sink.Sink) (*Generation, error) {
	res, err := s.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	events, err := codec.Decode(res.Melody, stepDuration)
	if err != nil {
		return nil, fmt.Errorf("decode melody: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	if out != nil {
		if err := out.Write(events, stepDuration); err != nil {
			return nil, fmt.Errorf("write melody: %w", err)
		}
	}
	return &Generation{Result: res, Events: events}, nil
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/source"
	"github.com/rcliao/melodygen/internal/window"
)

var testScores = source.Static{
	{Name: "a", Events: []model.Event{model.Pitch(60, 1), model.Rest(0.5)}},
	{Name: "b", Events: []model.Event{model.Pitch(62, 0.3)}},
	{Name: "c", Events: []model.Event{model.Pitch(64, 0.25), model.Pitch(65, 0.5)}},
}

func preprocess(t *testing.T) *PreprocessResult {
	t.Helper()
	res, err := Preprocess(context.Background(), testScores, Options{
		TimeStep:       0.25,
		SequenceLength: 2,
		Log:            zerolog.Nop(),
	})
	require.NoError(t, err)
	return res
}

func TestPreprocess(t *testing.T) {
	res := preprocess(t)

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, []string{"b"}, res.Rejected)
	assert.Equal(t, "60 _ _ _ r _ / / 64 65 _", res.Corpus.String())
	assert.Equal(t, []string{"60", "_", "r", "/", "64", "65"}, res.Vocabulary.Tokens())
	assert.Equal(t, 2, res.Vocabulary.DocFreq("_"))
	assert.Equal(t, 1, res.Vocabulary.DocFreq("60"))
	assert.True(t, res.Generatable)
}

func TestPreprocess_SingleScoreNotGeneratable(t *testing.T) {
	var buf bytes.Buffer
	scores := source.Static{
		{Name: "only", Events: []model.Event{model.Pitch(60, 1)}},
		{Name: "bad", Events: []model.Event{model.Pitch(62, 0.3)}},
	}
	res, err := Preprocess(context.Background(), scores, Options{
		TimeStep:       0.25,
		SequenceLength: 4,
		Log:            zerolog.New(&buf),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	assert.False(t, res.Generatable)
	assert.Contains(t, buf.String(), "vocabulary has no separator")

	_, err = sampler.New(res.Vocabulary, &sequenceModel{size: res.Vocabulary.Size(), ids: []int{0}})
	assert.ErrorIs(t, err, corpus.ErrUnknownSymbol)
}

func TestPreprocess_RejectsDurationBelowStep(t *testing.T) {
	scores := source.Static{
		{Name: "fine", Events: []model.Event{model.Pitch(60, 0.5), model.Pitch(62, 0.75)}},
		{Name: "short", Events: []model.Event{model.Pitch(60, 0.25)}},
	}
	res, err := Preprocess(context.Background(), scores, Options{TimeStep: 0.5, SequenceLength: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, res.Rejected)
	assert.Equal(t, "60 62 _", res.Corpus.String())
}

func TestPreprocess_InvalidOptions(t *testing.T) {
	_, err := Preprocess(context.Background(), testScores, Options{TimeStep: 0, SequenceLength: 2})
	assert.ErrorIs(t, err, codec.ErrInvalidTimeStep)

	_, err = Preprocess(context.Background(), testScores, Options{TimeStep: 0.25})
	assert.Error(t, err)
}

type failingSource struct{}

func (failingSource) Load(ctx context.Context) ([]model.Score, error) {
	return nil, errors.New("disk on fire")
}

func TestPreprocess_SourceError(t *testing.T) {
	_, err := Preprocess(context.Background(), failingSource{}, Options{TimeStep: 0.25, SequenceLength: 2})
	assert.ErrorContains(t, err, "disk on fire")
}

func TestDataset(t *testing.T) {
	res := preprocess(t)

	pairs, err := Dataset(res.Corpus, res.Vocabulary, 2)
	require.NoError(t, err)
	require.Len(t, pairs, res.Corpus.Len()-2)
	assert.Equal(t, []int{0, 1}, pairs[0].Context)
	assert.Equal(t, 1, pairs[0].Target)

	_, err = Dataset(res.Corpus, res.Vocabulary, res.Corpus.Len())
	assert.ErrorIs(t, err, window.ErrInsufficientCorpus)
}

func TestTrain(t *testing.T) {
	res := preprocess(t)

	m, err := Train(res.Corpus, res.Vocabulary, 2, 0.01)
	require.NoError(t, err)
	assert.Equal(t, res.Vocabulary.Size(), m.VocabSize())

	_, err = Train(&corpus.Corpus{}, res.Vocabulary, 2, 0.01)
	assert.ErrorIs(t, err, window.ErrInsufficientCorpus)
}

// sequenceModel returns all probability mass on the next id of a script.
type sequenceModel struct {
	size  int
	ids   []int
	calls int
}

func (m *sequenceModel) VocabSize() int { return m.size }

func (m *sequenceModel) Predict(ctx context.Context, win [][]float32) ([]float64, error) {
	p := make([]float64, m.size)
	p[m.ids[min(m.calls, len(m.ids)-1)]] = 1
	m.calls++
	return p, nil
}

func newSampler(t *testing.T, v *corpus.Vocabulary, ids ...int) *sampler.Sampler {
	t.Helper()
	s, err := sampler.New(v, &sequenceModel{size: v.Size(), ids: ids},
		sampler.WithRand(rand.New(rand.NewSource(1))),
		sampler.WithSequenceLength(2))
	require.NoError(t, err)
	return s
}

func TestGenerate(t *testing.T) {
	v := preprocess(t).Vocabulary
	// 64 _ /
	s := newSampler(t, v, 4, 1, 3)

	var buf bytes.Buffer
	gen, err := Generate(context.Background(), s, sampler.Params{
		Seed:              []string{"60", "_"},
		NumSteps:          10,
		MaxSequenceLength: 8,
		Temperature:       1,
	}, 0.25, sink.TokenSink{W: &buf})
	require.NoError(t, err)

	assert.Equal(t, []string{"60", "_", "64", "_"}, gen.Melody)
	assert.Equal(t, model.StopSeparator, gen.Reason)
	assert.Equal(t, 3, gen.Steps)
	assert.Equal(t, []model.Event{model.Pitch(60, 0.5), model.Pitch(64, 0.5)}, gen.Events)
	assert.Equal(t, "60 _ 64 _\n", buf.String())
}

func TestGenerate_NilSink(t *testing.T) {
	v := preprocess(t).Vocabulary
	s := newSampler(t, v, 3)

	gen, err := Generate(context.Background(), s, sampler.Params{
		NumSteps: 5, MaxSequenceLength: 8, Temperature: 1,
	}, 0.25, nil)
	require.NoError(t, err)
	assert.Empty(t, gen.Melody)
	assert.Equal(t, []model.Event{}, gen.Events)
}

func TestGenerate_UndecodableMelody(t *testing.T) {
	v := preprocess(t).Vocabulary
	s := newSampler(t, v, 3)

	_, err := Generate(context.Background(), s, sampler.Params{
		Seed: strings.Fields("_ 60"), NumSteps: 1, MaxSequenceLength: 8, Temperature: 1,
	}, 0.25, nil)
	assert.ErrorIs(t, err, codec.ErrMalformedTokenStream)
}

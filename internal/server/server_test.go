package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/store"
)

// constModel always predicts the same id.
type constModel struct {
	size int
	id   int
}

func (m constModel) VocabSize() int { return m.size }

func (m constModel) Predict(ctx context.Context, win [][]float32) ([]float64, error) {
	p := make([]float64, m.size)
	p[m.id] = 1
	return p, nil
}

// vocab ids: 60:0 _:1 /:2 62:3
func setupServer(t *testing.T, predict int, withStore bool) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	vocab := corpus.NewVocabulary(strings.Fields("60 _ / 62"))
	smp, err := sampler.New(vocab, constModel{size: vocab.Size(), id: predict},
		sampler.WithRand(rand.New(rand.NewSource(1))),
		sampler.WithSequenceLength(4))
	require.NoError(t, err)

	srv := &Server{
		Vocab:   vocab,
		Sampler: smp,
		Defaults: Defaults{
			Seed:              []string{"60", "_"},
			NumSteps:          3,
			MaxSequenceLength: 8,
			Temperature:       1,
			TimeStep:          0.25,
		},
		MIDI:  sink.DefaultMIDIOptions(),
		Model: "ngram",
		Log:   zerolog.Nop(),
	}
	if withStore {
		st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		srv.Store = st
	}
	return srv.Router(), srv
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupServer(t, 2, false)

	w := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, float64(4), resp["vocabulary"])
	assert.Equal(t, "disabled", resp["store"])
}

func TestVocabulary(t *testing.T) {
	router, _ := setupServer(t, 2, false)

	w := do(t, router, http.MethodGet, "/vocabulary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"size":4,"tokens":["60","_","/","62"]}`, w.Body.String())
}

func TestGenerate_Defaults(t *testing.T) {
	// Always predicting 62 runs until the step limit.
	router, _ := setupServer(t, 3, true)

	w := do(t, router, http.MethodPost, "/generate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "60 _ 62 62 62", resp.Melody)
	assert.Equal(t, 3, resp.Generated)
	assert.Equal(t, model.StopStepLimit, resp.Reason)
	assert.Equal(t, []model.Event{
		model.Pitch(60, 0.5), model.Pitch(62, 0.25), model.Pitch(62, 0.25), model.Pitch(62, 0.25),
	}, resp.Events)
	assert.NotEmpty(t, resp.ID)

	w = do(t, router, http.MethodGet, "/melodies/"+resp.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var mel model.Melody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mel))
	assert.Equal(t, strings.Fields("60 _ 62 62 62"), mel.Tokens)
	assert.Equal(t, "ngram", mel.Model)
}

func TestGenerate_SeparatorStops(t *testing.T) {
	router, _ := setupServer(t, 2, false)

	w := do(t, router, http.MethodPost, "/generate", `{"seed":"62 _ _","num_steps":50}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "62 _ _", resp.Melody)
	assert.Equal(t, 1, resp.Steps)
	assert.Equal(t, model.StopSeparator, resp.Reason)
	assert.Empty(t, resp.ID)
}

func TestGenerate_BadRequests(t *testing.T) {
	router, _ := setupServer(t, 2, false)

	tests := []struct {
		name string
		body string
	}{
		{"unknown seed token", `{"seed":"61"}`},
		{"zero temperature", `{"temperature":0}`},
		{"negative steps", `{"num_steps":-1}`},
		{"leading sustain", `{"seed":"_ 60"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestMelodies(t *testing.T) {
	router, srv := setupServer(t, 3, true)
	ctx := context.Background()

	a, err := srv.Store.PutMelody(ctx, store.PutMelodyParams{Tokens: []string{"60", "_"}, Reason: model.StopSeparator})
	require.NoError(t, err)
	b, err := srv.Store.PutMelody(ctx, store.PutMelodyParams{Tokens: []string{"62"}, Reason: model.StopStepLimit})
	require.NoError(t, err)

	w := do(t, router, http.MethodGet, "/melodies", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Melody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	w = do(t, router, http.MethodGet, "/melodies?reason=separator", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/melodies?limit=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/melodies?reason=bored", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/melodies/missing", "").Code)

	w = do(t, router, http.MethodGet, "/melodies/"+a.ID+"/midi", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")))

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/melodies/"+a.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/melodies/"+a.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/melodies/"+a.ID, "").Code)
}

func TestMelodies_NoStore(t *testing.T) {
	router, _ := setupServer(t, 2, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/melodies", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/melodies/x", "").Code)
}

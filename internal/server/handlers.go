package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/pipeline"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/store"
)

// GenerateRequest is the body of POST /generate. Omitted fields use the
// server defaults.
type GenerateRequest struct {
	Seed              string   `json:"seed"`
	NumSteps          *int     `json:"num_steps"`
	MaxSequenceLength int      `json:"max_sequence_length"`
	Temperature       *float64 `json:"temperature"`
	Store             *bool    `json:"store"`
}

// GenerateResponse is the body returned by POST /generate.
type GenerateResponse struct {
	ID        string           `json:"id,omitempty"`
	Melody    string           `json:"melody"`
	Generated int              `json:"generated"`
	Steps     int              `json:"steps"`
	Reason    model.StopReason `json:"reason"`
	Events    []model.Event    `json:"events"`
}

func (s *Server) health(c *gin.Context) {
	storeStatus := "disabled"
	if s.Store != nil {
		storeStatus = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"vocabulary": s.Vocab.Size(),
		"model":      s.Model,
		"store":      storeStatus,
	})
}

func (s *Server) vocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"size":   s.Vocab.Size(),
		"tokens": s.Vocab.Tokens(),
	})
}

func (s *Server) generate(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	p := sampler.Params{
		Seed:              s.Defaults.Seed,
		NumSteps:          s.Defaults.NumSteps,
		MaxSequenceLength: s.Defaults.MaxSequenceLength,
		Temperature:       s.Defaults.Temperature,
	}
	if req.Seed != "" {
		p.Seed = strings.Fields(req.Seed)
	}
	if req.NumSteps != nil {
		p.NumSteps = *req.NumSteps
	}
	if req.MaxSequenceLength > 0 {
		p.MaxSequenceLength = req.MaxSequenceLength
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}

	gen, err := pipeline.Generate(c.Request.Context(), s.Sampler, p, s.Defaults.TimeStep, nil)
	if err != nil {
		c.JSON(generateStatus(err), gin.H{"error": err.Error()})
		return
	}

	resp := GenerateResponse{
		Melody:    strings.Join(gen.Melody, " "),
		Generated: gen.Generated,
		Steps:     gen.Steps,
		Reason:    gen.Reason,
		Events:    gen.Events,
	}

	if s.Store != nil && (req.Store == nil || *req.Store) {
		mel, err := s.Store.PutMelody(c.Request.Context(), store.PutMelodyParams{
			Seed:        p.Seed,
			Tokens:      gen.Melody,
			Temperature: p.Temperature,
			Steps:       gen.Steps,
			Reason:      gen.Reason,
			Model:       s.Model,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.ID = mel.ID
	}

	c.JSON(http.StatusOK, resp)
}

// generateStatus maps caller mistakes to 400 and everything else to 500.
func generateStatus(err error) int {
	switch {
	case errors.Is(err, corpus.ErrUnknownSymbol),
		errors.Is(err, sampler.ErrDegenerateTemperature),
		errors.Is(err, codec.ErrMalformedTokenStream),
		errors.Is(err, sampler.ErrInvalidParams):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "melody store disabled"})
		return false
	}
	return true
}

func (s *Server) listMelodies(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit := 20
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	reason := model.StopReason(c.Query("reason"))
	if reason != "" && !model.ValidReasons[reason] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reason " + strconv.Quote(string(reason))})
		return
	}

	melodies, err := s.Store.ListMelodies(c.Request.Context(), store.ListParams{Reason: reason, Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, melodies)
}

func (s *Server) loadMelody(c *gin.Context) (*model.Melody, bool) {
	if !s.requireStore(c) {
		return nil, false
	}
	mel, err := s.Store.GetMelody(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return mel, true
}

func (s *Server) getMelody(c *gin.Context) {
	mel, ok := s.loadMelody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mel)
}

func (s *Server) getMelodyMIDI(c *gin.Context) {
	mel, ok := s.loadMelody(c)
	if !ok {
		return
	}
	events, err := codec.Decode(mel.Tokens, s.Defaults.TimeStep)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	out := &sink.MIDISink{W: &buf, Options: s.MIDI}
	if err := out.Write(events, s.Defaults.TimeStep); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+mel.ID+`.mid"`)
	c.Data(http.StatusOK, "audio/midi", buf.Bytes())
}

func (s *Server) rmMelody(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	hard := c.Query("hard") == "true"
	err := s.Store.RmMelody(c.Request.Context(), store.RmParams{ID: c.Param("id"), Hard: hard})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": c.Param("id")})
}

// Package server exposes the sampler and the melody store over HTTP.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/store"
)

// Defaults fill in generation parameters a request leaves out.
type Defaults struct {
	Seed              []string
	NumSteps          int
	MaxSequenceLength int
	Temperature       float64
	TimeStep          float64
}

// Server holds the handlers' dependencies.
type Server struct {
	Vocab    *corpus.Vocabulary
	Sampler  *sampler.Sampler
	Store    store.Store
	Defaults Defaults
	MIDI     sink.MIDIOptions
	// Model names the provider recorded with stored melodies.
	Model string
	Log   zerolog.Logger
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/vocabulary", s.vocabulary)
	router.POST("/generate", s.generate)

	melodies := router.Group("/melodies")
	{
		melodies.GET("", s.listMelodies)
		melodies.GET("/:id", s.getMelody)
		melodies.GET("/:id/midi", s.getMelodyMIDI)
		melodies.DELETE("/:id", s.rmMelody)
	}
	return router
}

// requestLogger tags each request with an id and logs its completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ulid.Make().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := s.Log.Info()
		switch {
		case status >= 500:
			ev = s.Log.Error()
		case status >= 400:
			ev = s.Log.Warn()
		}
		ev.Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

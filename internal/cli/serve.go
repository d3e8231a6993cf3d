package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generation over HTTP",
		Long: "Starts an HTTP server with GET /health, GET /vocabulary, POST /generate and the " +
			"/melodies endpoints.",
		Run: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr)")
	cmd.Flags().Bool("no-store", false, "Do not persist generated melodies")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	noStore, _ := cmd.Flags().GetBool("no-store")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vocab, err := loadVocabulary(ctx)
	if err != nil {
		exitErr("load vocabulary", err)
	}
	m, err := loadModel(vocab)
	if err != nil {
		exitErr("load model", err)
	}
	smp, err := newSampler(vocab, m, cfg.Generation.RandSeed)
	if err != nil {
		exitErr("sampler", err)
	}

	srv := &server.Server{
		Vocab:   vocab,
		Sampler: smp,
		Defaults: server.Defaults{
			Seed:              cfg.SeedTokens(),
			NumSteps:          cfg.Generation.NumSteps,
			MaxSequenceLength: cfg.Generation.MaxSequenceLength,
			Temperature:       cfg.Generation.Temperature,
			TimeStep:          cfg.TimeStep,
		},
		MIDI:  midiOptions(),
		Model: cfg.Model.Provider,
		Log:   log,
	}
	if !noStore {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()
		srv.Store = s
	}

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Int("vocabulary", vocab.Size()).Msg("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitErr("serve", err)
	}
	log.Info().Msg("server stopped")
}

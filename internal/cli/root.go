// Package cli implements the melodygen CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/config"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/logger"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/seqmodel"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/store"
)

var (
	cfgFile string
	dbPath  string

	cfg *config.Config
	log zerolog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "melodygen",
	Short: "Time-step melody codec and sampler",
	Long: "Turns monophonic scores into a time-step token corpus, trains a next-token model " +
		"over it and samples new melodies, rendered as MIDI, JSON or tokens.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./melodygen.yaml or ~/.config/melodygen/melodygen.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MELODYGEN_DB_PATH or ~/.melodygen/melodygen.db)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log = logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// loadVocabulary prefers the mapping file and falls back to the store.
func loadVocabulary(ctx context.Context) (*corpus.Vocabulary, error) {
	v, err := corpus.FileStore{Path: cfg.MappingPath}.LoadVocabulary(ctx)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	log.Debug().Str("path", cfg.MappingPath).Msg("no mapping file, reading vocabulary from store")

	s, serr := openStore()
	if serr != nil {
		return nil, serr
	}
	defer s.Close()
	return s.LoadVocabulary(ctx)
}

func loadModel(vocab *corpus.Vocabulary) (seqmodel.Model, error) {
	return seqmodel.New(seqmodel.Config{
		Provider:  cfg.Model.Provider,
		Path:      cfg.Model.Path,
		VocabSize: vocab.Size(),
	})
}

func newSampler(vocab *corpus.Vocabulary, m seqmodel.Model, randSeed int64) (*sampler.Sampler, error) {
	opts := []sampler.Option{
		sampler.WithLogger(log),
		sampler.WithSequenceLength(cfg.SequenceLength),
	}
	if randSeed != 0 {
		opts = append(opts, sampler.WithRand(rand.New(rand.NewSource(randSeed))))
	}
	return sampler.New(vocab, m, opts...)
}

func midiOptions() sink.MIDIOptions {
	return sink.MIDIOptions{
		TicksPerQuarter: uint16(cfg.MIDI.TicksPerQuarter),
		Tempo:           cfg.MIDI.Tempo,
		Velocity:        uint8(cfg.MIDI.Velocity),
		Channel:         uint8(cfg.MIDI.Channel),
	}
}

// loadCorpus prefers the corpus file and falls back to the latest stored
// corpus.
func loadCorpus(ctx context.Context) (*corpus.Corpus, error) {
	c, err := corpus.ReadFile(cfg.CorpusPath, cfg.SequenceLength)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	log.Debug().Str("path", cfg.CorpusPath).Msg("no corpus file, reading latest corpus from store")

	s, serr := openStore()
	if serr != nil {
		return nil, serr
	}
	defer s.Close()
	_, c, err = s.LatestCorpus(ctx)
	return c, err
}

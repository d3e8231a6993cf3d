package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored corpus, vocabulary and melodies",
		Long: "Reports the vocabulary size, the most recent corpus snapshot, melody counts per stop " +
			"reason and the mean melody length in tokens.",
		Run: runStats,
	}

	RootCmd.AddCommand(cmd)
}

// LibraryStats is the stats report: database counts plus the latest corpus.
type LibraryStats struct {
	*store.Stats
	LatestCorpus *model.CorpusInfo `json:"latest_corpus"`
	// Generatable is true when the stored vocabulary holds the separator.
	Generatable bool `json:"generatable"`
}

func libraryStats(ctx context.Context, s *store.SQLiteStore, dbPath string) (*LibraryStats, error) {
	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	out := &LibraryStats{Stats: st}

	info, _, err := s.LatestCorpus(ctx)
	switch {
	case err == nil:
		out.LatestCorpus = info
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("latest corpus: %w", err)
	}

	v, err := s.LoadVocabulary(ctx)
	switch {
	case err == nil:
		out.Generatable = v.Contains(model.SeparatorSymbol)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return out, nil
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := libraryStats(cmd.Context(), s, cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/pipeline"
	"github.com/rcliao/melodygen/internal/window"
)

func init() {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Export training windows as NDJSON",
		Long: "Integer-encodes the corpus and writes every (context, target) training pair as one " +
			"JSON object per line, for an external trainer.",
		Run: runDataset,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	cmd.Flags().IntP("sequence-length", "l", 0, "Window length (default: sequence_length from config)")

	RootCmd.AddCommand(cmd)
}

func runDataset(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	seqLen, _ := cmd.Flags().GetInt("sequence-length")
	if seqLen == 0 {
		seqLen = cfg.SequenceLength
	}
	ctx := cmd.Context()

	c, err := loadCorpus(ctx)
	if err != nil {
		exitErr("load corpus", err)
	}
	v, err := loadVocabulary(ctx)
	if err != nil {
		exitErr("load vocabulary", err)
	}

	pairs, err := pipeline.Dataset(c, v, seqLen)
	if err != nil {
		exitErr("dataset", err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("create output", err)
		}
		defer f.Close()
		w = f
	}

	n, err := window.WriteNDJSON(w, pairs)
	if err != nil {
		exitErr("write dataset", err)
	}
	log.Info().Int("pairs", n).Int("vocabulary", v.Size()).Int("sequence_length", seqLen).Msg("wrote dataset")
	if out != "" {
		fmt.Printf(`{"ok":true,"pairs":%d,"out":%q}`+"\n", n, out)
	}
}

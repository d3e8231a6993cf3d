package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load melodies written by `melodies export`",
		Long: "Reads an exported melody list from the file or stdin and stores each melody under a new id. " +
			"Every melody must decode as a token stream. With --check, every token must also be in the " +
			"current vocabulary, so melodies sampled from another corpus are refused.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().Bool("check", false, "Refuse melodies with tokens outside the current vocabulary")

	melodiesCmd.AddCommand(cmd)
}

// checkMelodies reports the first melody that does not decode, or, when
// vocab is non-nil, that uses a token outside it.
func checkMelodies(melodies []model.Melody, vocab *corpus.Vocabulary, timeStep float64) error {
	for i, m := range melodies {
		if _, err := codec.Decode(m.Tokens, timeStep); err != nil {
			return fmt.Errorf("melody %d (%s): %w", i, m.ID, err)
		}
		if vocab == nil {
			continue
		}
		if _, err := vocab.Encode(m.Seed); err != nil {
			return fmt.Errorf("melody %d (%s) seed: %w", i, m.ID, err)
		}
		if _, err := vocab.Encode(m.Tokens); err != nil {
			return fmt.Errorf("melody %d (%s): %w", i, m.ID, err)
		}
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) {
	check, _ := cmd.Flags().GetBool("check")
	ctx := cmd.Context()

	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open export", err)
		}
		defer f.Close()
		r = f
	}

	var melodies []model.Melody
	if err := json.NewDecoder(r).Decode(&melodies); err != nil {
		exitErr("parse export", err)
	}

	var vocab *corpus.Vocabulary
	if check {
		v, err := loadVocabulary(ctx)
		if err != nil {
			exitErr("load vocabulary", err)
		}
		vocab = v
	}
	if err := checkMelodies(melodies, vocab, cfg.TimeStep); err != nil {
		exitErr("check melodies", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.ImportMelodies(ctx, melodies)
	if err != nil {
		exitErr("import", err)
	}

	b, _ := json.MarshalIndent(map[string]interface{}{
		"ok":       true,
		"imported": imported,
		"checked":  check,
	}, "", "  ")
	fmt.Println(string(b))
}

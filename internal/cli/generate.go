package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/config"
	"github.com/rcliao/melodygen/internal/pipeline"
	"github.com/rcliao/melodygen/internal/sampler"
	"github.com/rcliao/melodygen/internal/sink"
	"github.com/rcliao/melodygen/internal/store"
)

func init() {
	RootCmd.AddCommand(newGenerateCmd())
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [seed tokens...]",
		Short: "Sample a melody from the model",
		Long: "Samples a melody continuing the seed (positional tokens or generation.seed from config). " +
			"The melody is rendered to --out, whose extension picks the format: .mid/.midi, .json " +
			"or token text for anything else.",
		Run: runGenerate,
	}

	cmd.Flags().IntP("steps", "n", 0, "Maximum number of sampled tokens (default: generation.num_steps)")
	cmd.Flags().Float64P("temperature", "t", 0, "Sampling temperature (default: generation.temperature)")
	cmd.Flags().Int("max-sequence-length", 0, "Context window fed to the model (default: generation.max_sequence_length)")
	cmd.Flags().Int64("rand-seed", 0, "Fix the random source (default: generation.rand_seed, 0 uses the clock)")
	cmd.Flags().StringP("out", "o", "", "Render the melody to this file")
	cmd.Flags().Bool("no-store", false, "Do not save the melody to the database")

	return cmd
}

// generateParams resolves sampling parameters from the flags, falling back
// to the config only for flags that were not given. An explicit zero is
// passed through so the sampler can reject it.
func generateParams(cmd *cobra.Command, args []string, gen config.GenerationConfig) (sampler.Params, int64) {
	flags := cmd.Flags()
	p := sampler.Params{
		Seed:              strings.Fields(gen.Seed),
		NumSteps:          gen.NumSteps,
		MaxSequenceLength: gen.MaxSequenceLength,
		Temperature:       gen.Temperature,
	}
	randSeed := gen.RandSeed

	if flags.Changed("steps") {
		p.NumSteps, _ = flags.GetInt("steps")
	}
	if flags.Changed("temperature") {
		p.Temperature, _ = flags.GetFloat64("temperature")
	}
	if flags.Changed("max-sequence-length") {
		p.MaxSequenceLength, _ = flags.GetInt("max-sequence-length")
	}
	if flags.Changed("rand-seed") {
		randSeed, _ = flags.GetInt64("rand-seed")
	}
	if len(args) > 0 {
		p.Seed = strings.Fields(strings.Join(args, " "))
	}
	return p, randSeed
}

func runGenerate(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	noStore, _ := cmd.Flags().GetBool("no-store")

	params, randSeed := generateParams(cmd, args, cfg.Generation)
	ctx := cmd.Context()

	vocab, err := loadVocabulary(ctx)
	if err != nil {
		exitErr("load vocabulary", err)
	}
	m, err := loadModel(vocab)
	if err != nil {
		exitErr("load model", err)
	}
	smp, err := newSampler(vocab, m, randSeed)
	if err != nil {
		exitErr("sampler", err)
	}

	var target sink.Sink
	if out != "" {
		target = sink.FileSink{Path: out, MIDI: midiOptions()}
	}

	gen, err := pipeline.Generate(ctx, smp, params, cfg.TimeStep, target)
	if err != nil {
		exitErr("generate", err)
	}

	result := map[string]interface{}{
		"melody":    strings.Join(gen.Melody, " "),
		"generated": gen.Generated,
		"steps":     gen.Steps,
		"reason":    gen.Reason,
		"events":    len(gen.Events),
	}
	if out != "" {
		result["out"] = out
	}

	if !noStore {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()

		mel, err := s.PutMelody(ctx, store.PutMelodyParams{
			Seed:        params.Seed,
			Tokens:      gen.Melody,
			Temperature: params.Temperature,
			Steps:       gen.Steps,
			Reason:      gen.Reason,
			Model:       cfg.Model.Provider,
		})
		if err != nil {
			exitErr("save melody", err)
		}
		result["id"] = mel.ID
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}

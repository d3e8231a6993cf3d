package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/pipeline"
	"github.com/rcliao/melodygen/internal/source"
	"github.com/rcliao/melodygen/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "preprocess [dataset-dir]",
		Short: "Build the token corpus and vocabulary from a score directory",
		Long: "Reads every .json, .mid and .midi score under the dataset directory, drops scores " +
			"with unacceptable durations, encodes the rest and writes the corpus file and the " +
			"vocabulary mapping. Both are also saved to the database unless --no-store is given.",
		Args: cobra.MaximumNArgs(1),
		Run:  runPreprocess,
	}

	cmd.Flags().Bool("no-store", false, "Do not save the corpus and vocabulary to the database")

	RootCmd.AddCommand(cmd)
}

func runPreprocess(cmd *cobra.Command, args []string) {
	noStore, _ := cmd.Flags().GetBool("no-store")
	dir := cfg.DatasetDir
	if len(args) > 0 {
		dir = args[0]
	}
	ctx := cmd.Context()

	src := source.NewDirSource(dir, cfg.Workers, log)
	res, err := pipeline.Preprocess(ctx, src, pipeline.Options{
		TimeStep:       cfg.TimeStep,
		SequenceLength: cfg.SequenceLength,
		Allowed:        cfg.AcceptableDurations,
		Log:            log,
	})
	if err != nil {
		exitErr("preprocess", err)
	}

	if err := res.Corpus.WriteFile(cfg.CorpusPath); err != nil {
		exitErr("write corpus", err)
	}
	if err := (corpus.FileStore{Path: cfg.MappingPath}).SaveVocabulary(ctx, res.Vocabulary); err != nil {
		exitErr("write mapping", err)
	}

	out := map[string]interface{}{
		"ok":          true,
		"accepted":    res.Accepted,
		"rejected":    len(res.Rejected),
		"tokens":      res.Corpus.Len(),
		"vocabulary":  res.Vocabulary.Size(),
		"corpus":      cfg.CorpusPath,
		"mapping":     cfg.MappingPath,
		"generatable": res.Generatable,
	}
	if !res.Generatable {
		out["warning"] = "vocabulary has no separator; generate needs at least two accepted scores"
	}

	if !noStore {
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()

		if err := s.SaveVocabulary(ctx, res.Vocabulary); err != nil {
			exitErr("save vocabulary", err)
		}
		info, err := s.SaveCorpus(ctx, store.SaveCorpusParams{
			Corpus:   res.Corpus,
			Rejected: len(res.Rejected),
			TimeStep: cfg.TimeStep,
		})
		if err != nil {
			exitErr("save corpus", err)
		}
		out["corpus_id"] = info.ID
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

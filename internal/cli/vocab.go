package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/corpus"
)

type vocabEntry struct {
	ID     int    `json:"id"`
	Token  string `json:"token"`
	Scores int    `json:"scores"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Show the vocabulary",
		Long:  "Lists every token with its id and the number of scores in the corpus that use it.",
		Run:   runVocab,
	}

	cmd.Flags().Bool("tokens-only", false, "Only output tokens in id order")

	RootCmd.AddCommand(cmd)
}

func runVocab(cmd *cobra.Command, args []string) {
	tokensOnly, _ := cmd.Flags().GetBool("tokens-only")
	ctx := cmd.Context()

	v, err := loadVocabulary(ctx)
	if err != nil {
		exitErr("load vocabulary", err)
	}

	if tokensOnly {
		for _, tok := range v.Tokens() {
			fmt.Println(tok)
		}
		return
	}

	// Score membership is not persisted with the mapping, so it comes from
	// the corpus when one is available.
	freq := v
	if c, err := loadCorpus(ctx); err == nil {
		freq = corpus.NewVocabulary(c.Tokens)
	} else {
		log.Warn().Err(err).Msg("no corpus, score counts unavailable")
	}

	entries := make([]vocabEntry, 0, v.Size())
	for id, tok := range v.Tokens() {
		entries = append(entries, vocabEntry{ID: id, Token: tok, Scores: freq.DocFreq(tok)})
	}
	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/pipeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the n-gram model on the corpus",
		Long:  "Fits a back-off n-gram model over the integer-encoded corpus and saves it to model.path.",
		Run:   runTrain,
	}

	cmd.Flags().Int("order", 0, "Context length (default: model.order from config)")
	cmd.Flags().Float64("alpha", -1, "Additive smoothing (default: model.alpha from config)")
	cmd.Flags().StringP("out", "o", "", "Model file (default: model.path from config)")

	RootCmd.AddCommand(cmd)
}

func runTrain(cmd *cobra.Command, args []string) {
	order, _ := cmd.Flags().GetInt("order")
	alpha, _ := cmd.Flags().GetFloat64("alpha")
	out, _ := cmd.Flags().GetString("out")
	if order == 0 {
		order = cfg.Model.Order
	}
	if alpha < 0 {
		alpha = cfg.Model.Alpha
	}
	if out == "" {
		out = cfg.Model.Path
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

	m, err := pipeline.Train(c, v, order, alpha)
	if err != nil {
		exitErr("train", err)
	}
	if err := m.SaveFile(out); err != nil {
		exitErr("save model", err)
	}

	log.Info().Int("order", order).Float64("alpha", alpha).Int("contexts", len(m.Counts)).Msg("trained model")
	fmt.Printf(`{"ok":true,"order":%d,"contexts":%d,"vocabulary":%d,"out":%q}`+"\n", order, len(m.Counts), m.VocabSize(), out)
}

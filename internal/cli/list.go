package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/model"
	"github.com/rcliao/melodygen/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List melodies, newest first",
		Run:   runList,
	}

	cmd.Flags().String("reason", "", "Filter by stop reason: separator or step_limit")
	cmd.Flags().String("model", "", "Filter by model provider")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output melody ids")

	melodiesCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	reason, _ := cmd.Flags().GetString("reason")
	modelName, _ := cmd.Flags().GetString("model")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	if reason != "" && !model.ValidReasons[model.StopReason(reason)] {
		exitErr("list", fmt.Errorf("unknown reason %q", reason))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	melodies, err := s.ListMelodies(cmd.Context(), store.ListParams{
		Reason: model.StopReason(reason),
		Model:  modelName,
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, m := range melodies {
			fmt.Println(m.ID)
		}
		return
	}

	type row struct {
		ID     string           `json:"id"`
		Melody string           `json:"melody"`
		Reason model.StopReason `json:"reason"`
		Temp   float64          `json:"temperature"`
	}
	rows := make([]row, 0, len(melodies))
	for _, m := range melodies {
		rows = append(rows, row{ID: m.ID, Melody: strings.Join(m.Tokens, " "), Reason: m.Reason, Temp: m.Temperature})
	}
	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

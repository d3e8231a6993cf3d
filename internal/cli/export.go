package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export melodies as JSON",
		Long:  "Export every stored melody, oldest first, in the format read by import.",
		Run:   runExport,
	}

	melodiesCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	melodies, err := s.ExportMelodies(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(melodies, "", "  ")
	fmt.Println(string(b))
}

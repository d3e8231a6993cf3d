package cli

import "github.com/spf13/cobra"

var melodiesCmd = &cobra.Command{
	Use:     "melodies",
	Aliases: []string{"mel"},
	Short:   "Manage stored melodies",
}

func init() {
	RootCmd.AddCommand(melodiesCmd)
}

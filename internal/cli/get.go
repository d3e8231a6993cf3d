package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/sink"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a melody",
		Long:  "Prints a stored melody. With --out the melody is decoded and rendered to the file.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().StringP("out", "o", "", "Render to this file (.mid/.midi, .json or tokens)")

	melodiesCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := s.GetMelody(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	if out != "" {
		events, err := codec.Decode(m.Tokens, cfg.TimeStep)
		if err != nil {
			exitErr("decode", err)
		}
		if err := (sink.FileSink{Path: out, MIDI: midiOptions()}).Write(events, cfg.TimeStep); err != nil {
			exitErr("write", err)
		}
	}

	b, _ := json.MarshalIndent(m, "", "  ")
	fmt.Println(string(b))
}

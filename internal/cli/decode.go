package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/melodygen/internal/codec"
	"github.com/rcliao/melodygen/internal/sink"
)

func init() {
	cmd := &cobra.Command{
		Use:   "decode [tokens...]",
		Short: "Decode a token melody into notes and rests",
		Long: "Decodes time-step tokens (positional args or stdin) into events. Prints the events as " +
			"JSON, or renders them to --out.",
		Run: runDecode,
	}

	cmd.Flags().Float64("step", 0, "Step duration in quarter lengths (default: time_step)")
	cmd.Flags().StringP("out", "o", "", "Render to this file (.mid/.midi, .json or tokens)")

	RootCmd.AddCommand(cmd)
}

func runDecode(cmd *cobra.Command, args []string) {
	step, _ := cmd.Flags().GetFloat64("step")
	out, _ := cmd.Flags().GetString("out")
	if step == 0 {
		step = cfg.TimeStep
	}

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}

	events, err := codec.Decode(strings.Fields(text), step)
	if err != nil {
		exitErr("decode", err)
	}

	if out != "" {
		if err := (sink.FileSink{Path: out, MIDI: midiOptions()}).Write(events, step); err != nil {
			exitErr("write", err)
		}
		fmt.Printf(`{"ok":true,"events":%d,"out":%q}`+"\n", len(events), out)
		return
	}

	if err := (sink.JSONSink{W: os.Stdout}).Write(events, step); err != nil {
		exitErr("write", err)
	}
}

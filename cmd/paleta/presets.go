package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rafabd1/Paleta/internal/presets"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Inspect workspace presets",
}

var presetsCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a presets file and list what it defines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Presets.File
		if len(args) == 1 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read presets")
		}
		table, problems := presets.Parse(data)
		out := cmd.OutOrStdout()
		for _, name := range table.Names() {
			def, _ := table.Find(name)
			fmt.Fprintf(out, "%s: %d actions\n", name, len(def.Commands()))
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "problem: %v\n", p)
		}
		if len(problems) > 0 {
			return errors.Errorf("%d problems in %s", len(problems), path)
		}
		return nil
	},
}

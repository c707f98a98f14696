package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rafabd1/Paleta/internal/client"
	"github.com/rafabd1/Paleta/internal/tui"
)

var waitForTrigger bool

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Open the command palette",
	Long: `Opens the terminal palette against a running daemon. With --wait it
first blocks until "paleta trigger" raises the show flag, which lets a
hotkey daemon keep a hidden palette terminal ready.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		c := client.New(cfg.Server.Addr)
		if err := c.Health(ctx); err != nil {
			return err
		}
		if waitForTrigger {
			ticker := time.NewTicker(300 * time.Millisecond)
			defer ticker.Stop()
			for {
				show, err := c.PaletteRequested(ctx)
				if err != nil {
					return err
				}
				if show {
					break
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		}
		return tui.Run(c)
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask waiting palettes to show themselves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client.New(cfg.Server.Addr).ShowPalette(cmd.Context())
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Ask open palettes to close",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return client.New(cfg.Server.Addr).RequestClose(cmd.Context())
	},
}

func init() {
	paletteCmd.Flags().BoolVar(&waitForTrigger, "wait", false, "wait for a trigger before showing")
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/zerovo-site/internal/loader"
	"github.com/JakeFAU/zerovo-site/internal/loader/tui"
)

func newLoaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loader",
		Short: "Preview the loading animation in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			drv := loader.New(loader.Config{
				FrameInterval: a.cfg.Loader.FrameInterval(),
				HoldDelay:     a.cfg.Loader.HoldDelay(),
				UnmountDelay:  a.cfg.Loader.UnmountDelay(),
				MaxTicks:      a.cfg.Loader.MaxStreamTicks,
				OmitWave:      true,
			})
			return tui.Run(a.cfg.Site.Name, drv)
		},
	}
}

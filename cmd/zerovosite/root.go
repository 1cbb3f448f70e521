package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/config"
	"github.com/JakeFAU/zerovo-site/internal/logging"
)

// app holds the services every subcommand shares.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func (a *app) close() {
	// Sync fails on terminals; nothing useful to do about it.
	_ = a.logger.Sync()
}

type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory. Tests swap it to skip disk and env.
var newApp = func(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "zerovosite",
		Short: "Zerovo Labs marketing site and its tooling.",
		Long: `zerovosite serves the Zerovo Labs marketing site, including the
first-visit loader, the scheduling widget and the widget performance
endpoint, and ships the link checker and page timing sweep used to
audit a running instance.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				a.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env ZEROVO_* overrides apply either way)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoaderCmd())
	cmd.AddCommand(newLinkCheckCmd())
	cmd.AddCommand(newVitalsCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

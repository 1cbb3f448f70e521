package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
	"github.com/JakeFAU/zerovo-site/internal/reporting"
	"github.com/JakeFAU/zerovo-site/internal/reporting/sinks"
	"github.com/JakeFAU/zerovo-site/internal/site"
	"github.com/JakeFAU/zerovo-site/internal/vitals"
)

func newVitalsCmd() *cobra.Command {
	var submit bool
	cmd := &cobra.Command{
		Use:   "vitals [base-url]",
		Short: "Measure navigation timings of every page in headless Chrome",
		Long: `Loads each catalog page in headless Chrome and prints its load
event, DOMContentLoaded and total navigation times. With --submit the
samples are posted to the instance's /api/metrics endpoint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			base := a.cfg.Site.BaseURL
			if len(args) == 1 {
				base = args[0]
			}
			base = strings.TrimRight(base, "/")

			catalog, err := site.NewCatalog(site.DefaultPages()...)
			if err != nil {
				return fmt.Errorf("build page catalog: %w", err)
			}
			urls := make([]string, 0, len(catalog.Pages()))
			for _, p := range catalog.Pages() {
				urls = append(urls, base+p.Path)
			}

			browser, err := vitals.NewBrowser(vitals.Config{
				UserAgent:  a.cfg.Vitals.UserAgent,
				NavTimeout: a.cfg.Vitals.NavTimeout(),
				Viewport:   metricstore.Viewport{Width: a.cfg.Vitals.ViewportWidth, Height: a.cfg.Vitals.ViewportHeight},
				QPS:        a.cfg.Vitals.QPS,
				ExecPath:   a.cfg.Vitals.ExecPath,
				Logger:     a.logger.Named("vitals"),
			})
			if err != nil {
				return err
			}
			defer func() { _ = browser.Close() }()

			var sink reporting.Sink
			if submit {
				client := &http.Client{Timeout: 10 * time.Second}
				sink = sinks.NewHTTPSink(base+"/api/metrics", a.cfg.Vitals.UserAgent, client, a.logger.Named("vitals.submit"))
			}
			outcomes, err := vitals.Sweep(cmd.Context(), browser, urls, sink, nil, a.logger.Named("vitals"))
			printOutcomes(cmd.OutOrStdout(), outcomes)
			return err
		},
	}
	cmd.Flags().BoolVar(&submit, "submit", false, "post samples to the target's /api/metrics endpoint")
	return cmd
}

func printOutcomes(w io.Writer, outcomes []vitals.Outcome) {
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%-48s FAILED %v\n", o.URL, o.Err)
			continue
		}
		n := o.Navigation
		fmt.Fprintf(w, "%-48s %3d load=%.0fms dcl=%.0fms total=%.0fms bytes=%d\n",
			o.URL, n.Status, n.LoadEventEnd, n.DOMContentLoaded, n.Duration, n.TransferSize)
	}
}

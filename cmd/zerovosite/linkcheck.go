package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/zerovo-site/internal/linkcheck"
)

// errBrokenLinks makes the command exit non-zero without repeating the report.
var errBrokenLinks = errors.New("broken links found")

func newLinkCheckCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "linkcheck [base-url]",
		Short: "Crawl a running site from its sitemap and report broken links",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			base := a.cfg.Site.BaseURL
			if len(args) == 1 {
				base = args[0]
			}
			checker := linkcheck.New(linkcheck.Config{
				UserAgent:   a.cfg.LinkCheck.UserAgent,
				Parallelism: a.cfg.LinkCheck.Parallelism,
				Timeout:     a.cfg.LinkCheck.Timeout(),
				Logger:      a.logger.Named("linkcheck"),
			})
			report, err := checker.Run(cmd.Context(), base)
			if err != nil {
				return err
			}
			if err := printReport(cmd.OutOrStdout(), report, asJSON); err != nil {
				return err
			}
			if !report.OK() {
				return errBrokenLinks
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func printReport(w io.Writer, report linkcheck.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	broken := report.Broken()
	for _, res := range broken {
		reason := res.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", res.Status)
		}
		if res.Referrer != "" {
			fmt.Fprintf(w, "BROKEN  %s (%s) linked from %s\n", res.URL, reason, res.Referrer)
		} else {
			fmt.Fprintf(w, "BROKEN  %s (%s)\n", res.URL, reason)
		}
	}
	for _, page := range report.Blocked {
		fmt.Fprintf(w, "BLOCKED %s (disallowed by robots.txt)\n", page)
	}
	var slowest time.Duration
	for _, res := range report.Results {
		slowest = max(slowest, res.Duration)
	}
	_, err := fmt.Fprintf(w, "checked %d urls on %s: %d broken, %d blocked, %d external skipped, slowest %s\n",
		len(report.Results), report.Base, len(broken), len(report.Blocked), report.External, slowest.Round(time.Millisecond))
	return err
}

// Package main hosts the zerovo-site entrypoint.
//
// Architecture overview:
//   - HTTP site: internal/api.Server renders the marketing pages from internal/site, gates the first-visit loader per
//     browser session (internal/session), streams loader frames over SSE (internal/loader) and annotates reveal
//     targets (internal/reveal). Health, readiness, sitemap, manifest and robots endpoints stay outside the request
//     timeout.
//   - Scheduling widget: internal/scheduling keeps one controller per (browser session, namespace). Controllers preload
//     the embed script on open, lock scroll while the modal is open and recover from widget panics by falling back to
//     a plain link. A background sweeper evicts idle sessions.
//   - Performance reporting: internal/perf times preload and render phases and forwards completed samples to the
//     internal/reporting Hub, which batches them to sinks: the in-memory store behind /api/metrics, the zap log,
//     Prometheus collectors, an optional HTTP collector and an optional Pub/Sub topic.
//   - Configuration & plumbing: Viper populates config from env (ZEROVO_*) and files; zap provides structured logging;
//     Prometheus metrics are exported on /metrics; OpenTelemetry spans are exported over OTLP when tracing is enabled.
//
// Commands:
//   - serve: run the site until SIGINT/SIGTERM, then drain readiness and shut down gracefully.
//   - loader: preview the loading animation in the terminal.
//   - linkcheck: crawl a running instance from its sitemap and fail on broken links.
//   - vitals: load every catalog page in headless Chrome and report navigation timings.
//
// Quick checklist:
//   - Run locally: go run ./cmd/zerovosite serve --config config.yaml (or rely solely on env overrides).
//   - Cloud Run: the server listens on server.port (ZEROVO_SERVER_PORT) and shuts down cleanly on SIGTERM.
package main

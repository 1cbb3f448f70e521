// Package api hosts the HTTP server, middleware, and handlers for the site.
// Notable routes:
//   - GET /healthz / readyz for Kubernetes health checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /loader/stream streams loading animation frames as server-sent events.
//   - POST/GET /api/metrics collects and reports scheduling widget timings.
//     The store is in memory, so numbers are per instance. Submissions are
//     throttled per client IP.
//   - /api/scheduling/{namespace} drives the per-session widget controller.
//   - Everything else renders a catalog page or the 404 page.
package api

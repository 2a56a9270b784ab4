// Package api hosts the operator HTTP server that runs alongside a scrape:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /progress for a JSON snapshot of the current run.
package api

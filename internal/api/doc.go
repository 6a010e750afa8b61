// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/sync/{family} to start a sync job, with 409 on conflict.
//   - GET /v1/sync/jobs/{id} and /logs, POST /v1/sync/jobs/{id}/cancel.
//   - GET /v1/sync/active and /v1/sync/history for job reporting.
package api

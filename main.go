// Package main hosts the aftt-sync service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and sync job endpoints. A POST per job
//     family starts a crawl through the driver; progress, logs, cancellation and history are served
//     from the in-memory job registry.
//   - Driver & engine: internal/driver loads each family's catalog, expands it into an ordered crawl
//     space, and hands it to the generic coordinator in internal/engine, which walks the space with
//     per-item retries, fixed-delay pacing, cooperative cancellation and a resume checkpoint.
//   - Site adapters: the rankings family drives a headless Chromedp session against the federation's
//     JS-backed standings page; rosters and tournaments use a plain Resty HTTP client. Parsers in
//     internal/parser are pure goquery functions over captured page snapshots.
//   - Persistence & fanout: records land in Postgres via pgx with idempotent merge upserts (or the
//     in-memory store when no DSN is configured). Raw page snapshots can be archived to local disk or
//     GCS, and job lifecycle events are published to Pub/Sub when configured.
//   - Configuration & plumbing: Viper populates config from env/files (AFTT_ prefix); zap provides
//     structured logging; Prometheus metrics are exported via the metrics middleware and /metrics.
//
// Operational notes:
//   - Concurrency model: at most one job per family at a time, each owning one remote session; the
//     registry enforces the single-flight rule and serves all reads without blocking on a crawl.
//   - Rate limiting/backoff: a fixed delay between page loads plus extra headroom after failures;
//     per-item retries use pure exponential backoff so repeated runs stay polite to the remote site.
//   - Shutdown: the process reacts to SIGTERM; running jobs stop at the next work item boundary and
//     a later run resumes from the last recorded checkpoint.
//
// Quick checklist:
//   - Configure env vars: AFTT_SERVER_PORT, AFTT_DATABASE_DSN, AFTT_PACE_DELAY_MS,
//     AFTT_RETRY_MAX_RETRIES, AFTT_ARCHIVE_BACKEND, AFTT_PUBSUB_* when fanout is required.
//   - Run locally: go run . serve --config config.yaml, or go run . sync rankings --weeks 1,2.
package main

import "github.com/afttdata/aftt-sync/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}

// Package main hosts the docwatch service entrypoint.
//
// Architecture overview:
//   - Target registry: internal/registry loads an ordered YAML list of
//     monitored endpoints and rejects malformed entries before any fetch.
//   - Fetch pipeline: internal/fetcher probes each target with a Colly
//     collector, retrying transient failures with capped jittered backoff;
//     HTML targets whose body looks like a JS shell can be promoted to a
//     headless Chromedp fetch.
//   - Normalization: internal/classify resolves the real content family
//     (servers frequently return HTML error pages where a spec should be),
//     then internal/parse reduces each family (HTML, OpenAPI, JSON,
//     Postman, Markdown) to a common normalized document.
//   - Change detection: internal/fingerprint hashes the normalized content
//     and internal/detect compares it against the most recent snapshot,
//     producing a per-target change verdict with a best-effort summary.
//   - Persistence: internal/snapshot appends one row per observation to
//     Postgres (or process memory when no DSN is configured); history is
//     never rewritten.
//   - Orchestration: internal/pipeline fans targets out over a bounded
//     worker pool under a per-run deadline; one target's failure never
//     aborts another's task or the run.
//
// Operational notes:
//   - Configuration: Viper populates config from a YAML file and DOCWATCH_*
//     env vars; zap provides structured logging; Prometheus collectors are
//     exported by the ops server at /metrics.
//   - The 'once' command runs a single pass; 'watch' repeats it on the
//     configured interval and serves /healthz, /readyz and /v1/runs/latest
//     while running. SIGTERM drains the in-flight run before exit.
package main

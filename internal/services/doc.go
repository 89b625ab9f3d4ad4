// Package services defines shared utilities consumed by the pipeline stage
// implementations and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, job IDs, stage names, and
//     correlation identifiers for logging.
//   - Error classification markers plus the Wrap helper that translate stage
//     failures into consistent retry-or-fail transitions.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services

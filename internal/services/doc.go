// Package services defines shared utilities consumed by the release pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, group IDs, and batch run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger outcomes (permanent, deferred, retryable) and
//     separate batch aborts from ordinary per-item errors.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error classification, observability, retries) stays uniform.
package services

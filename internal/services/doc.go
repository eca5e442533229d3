// Package services defines shared utilities consumed by the split pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs, and stage names for logging
//     and history records.
//   - Structured error markers plus the Wrap helper so every failure carries
//     the pipeline stage and a stable kind (unsupported format, decode, model
//     load, separation, write).
//
// Use these helpers when wiring new pipeline steps so error reporting stays
// uniform from the format gate to the stem writer.
package services

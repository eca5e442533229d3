// Package preflight provides readiness checks for the filesystem and the
// optional remote services stemsplit depends on.
//
// These checks run in two contexts:
//   - `stemsplit doctor` prints every result.
//   - `stemsplit split`, `watch` and `serve` run them at startup and log
//     failures and warnings without blocking the run.
package preflight

// Package history stores job outcomes in an opt-in SQLite database.
//
// Records are append-only. When history is disabled nothing besides the
// stems and the status log is written to disk.
package history

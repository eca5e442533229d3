// Package ffprobe wraps the ffprobe CLI to inspect audio containers before the
// fallback decoder runs.
//
// Inspect returns a typed Result with stream and format metadata so the
// loader can pick the primary audio stream, its sample rate and channel
// count.
package ffprobe

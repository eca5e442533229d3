// Package deps checks that external binaries (demucs, ffmpeg, ffprobe,
// nvidia-smi) are resolvable on PATH.
package deps

// Package audio holds the in-memory audio model and its file boundaries.
//
// Buffer is channel-major float32 PCM. Loader turns any supported input into
// a stereo Buffer, decoding WAV natively with go-audio/wav and everything else
// through ffprobe and ffmpeg. StemSet carries the four separated stems and
// WriteStems saves them as 24-bit WAV files.
package audio

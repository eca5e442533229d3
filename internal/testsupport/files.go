package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"stemsplit/internal/audio"
)

// WriteFile writes size bytes of filler to path. A size <= 0 writes a single
// byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteToneWAV writes a short stereo sine WAV at path and returns its buffer.
func WriteToneWAV(t testing.TB, path string, frames int) *audio.Buffer {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	const rate = 44100
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range left {
		left[i] = 0.4 * float32(math.Sin(2*math.Pi*440*float64(i)/rate))
		right[i] = 0.2 * float32(math.Sin(2*math.Pi*220*float64(i)/rate))
	}
	buf := &audio.Buffer{SampleRate: rate, Channels: [][]float32{left, right}}
	if err := audio.WriteWAVFile(path, buf); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
	return buf
}

package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stemsplit/internal/logging"
	"stemsplit/internal/media/ffprobe"
	"stemsplit/internal/services"
)

var errNativeUnsupported = errors.New("unsupported by native decoder")

// OutputRunner executes a command and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober inspects a media file.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Loader decodes audio files into stereo Buffers. WAV files are decoded
// natively; everything else, and any WAV the native decoder rejects, goes
// through ffprobe and ffmpeg.
type Loader struct {
	ffmpegBinary  string
	ffprobeBinary string
	logger        *slog.Logger
	runner        OutputRunner
	prober        Prober
}

// NewLoader constructs a loader using the given external binaries.
func NewLoader(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Loader {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Loader{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		logger:        logging.NewComponentLogger(logger, "audio"),
		runner:        runOutput,
		prober:        ffprobe.Inspect,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (l *Loader) WithCommandRunner(runner OutputRunner) {
	if runner != nil {
		l.runner = runner
	}
}

// WithProber sets a custom ffprobe implementation (for testing).
func (l *Loader) WithProber(prober Prober) {
	if prober != nil {
		l.prober = prober
	}
}

// Load decodes path into a two-channel Buffer at the source sample rate.
func (l *Loader) Load(ctx context.Context, path string) (*Buffer, error) {
	buf, primaryErr := l.decodeNative(path)
	if primaryErr == nil {
		return finish(buf, path)
	}

	logger := logging.WithContext(ctx, l.logger)
	if !errors.Is(primaryErr, errNativeUnsupported) {
		logging.WarnWithContext(logger, "native decode failed; trying ffmpeg", "decode_fallback",
			logging.Input(path),
			logging.Error(primaryErr),
			logging.String(logging.FieldImpact, "decoding falls back to ffmpeg"),
		)
	} else {
		logger.Debug("decoding with ffmpeg", logging.Input(path))
	}

	buf, fallbackErr := l.decodeFFmpeg(ctx, path, 0)
	if fallbackErr == nil {
		return finish(buf, path)
	}
	return nil, services.Wrap(
		services.ErrDecode,
		"load",
		"decode audio",
		filepath.Base(path),
		errors.Join(fmt.Errorf("primary: %w", primaryErr), fmt.Errorf("fallback: %w", fallbackErr)),
	)
}

// LoadResampled decodes path through ffmpeg, resampling to rate.
func (l *Loader) LoadResampled(ctx context.Context, path string, rate int) (*Buffer, error) {
	buf, err := l.decodeFFmpeg(ctx, path, rate)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "load", "resample audio", filepath.Base(path), err)
	}
	return finish(buf, path)
}

func finish(buf *Buffer, path string) (*Buffer, error) {
	buf.toStereo()
	if err := buf.validate(); err != nil {
		return nil, services.Wrap(services.ErrDecode, "load", "decode audio", filepath.Base(path), err)
	}
	return buf, nil
}

func (l *Loader) decodeNative(path string) (*Buffer, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(path), errNativeUnsupported)
	}
	return ReadWAVFile(path)
}

func (l *Loader) decodeFFmpeg(ctx context.Context, path string, targetRate int) (*Buffer, error) {
	probe, err := l.prober(ctx, l.ffprobeBinary, path)
	if err != nil {
		return nil, err
	}
	stream, ok := probe.PrimaryAudio()
	if !ok {
		return nil, errors.New("no audio stream found")
	}
	rate := stream.SampleRateHz()
	channels := stream.Channels
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("unusable stream layout (rate=%d channels=%d)", rate, channels)
	}
	l.logger.Debug("probed audio stream",
		logging.Input(path),
		logging.String("codec", stream.CodecName),
		logging.Int("sample_rate", rate),
		logging.Int("channels", channels),
		logging.Duration("duration", time.Duration(probe.DurationSeconds()*float64(time.Second))),
	)
	if targetRate > 0 {
		rate = targetRate
	}

	args := []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:a:0",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-",
	}
	raw, err := l.runner(ctx, l.ffmpegBinary, args...)
	if err != nil {
		return nil, err
	}
	return deinterleaveF32LE(raw, channels, rate)
}

// deinterleaveF32LE converts interleaved little-endian float32 PCM.
func deinterleaveF32LE(raw []byte, channels, rate int) (*Buffer, error) {
	frameBytes := 4 * channels
	if len(raw)%frameBytes != 0 {
		return nil, fmt.Errorf("truncated pcm stream (%d bytes, %d channels)", len(raw), channels)
	}
	frames := len(raw) / frameBytes
	buf := &Buffer{SampleRate: rate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames*channels; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		buf.Channels[i%channels][i/channels] = math.Float32frombits(bits)
	}
	return buf, nil
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "load", name, strings.TrimSpace(stderr.String()), err)
	}
	return out, nil
}

package separation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"stemsplit/internal/audio"
	"stemsplit/internal/logging"
	"stemsplit/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// StemReader decodes the files demucs produces.
type StemReader interface {
	Load(ctx context.Context, path string) (*audio.Buffer, error)
	LoadResampled(ctx context.Context, path string, rate int) (*audio.Buffer, error)
}

// Options configures the demucs backend.
type Options struct {
	Command string
	Model   string
	Device  string
	Timeout time.Duration
}

// Demucs runs the demucs CLI as a subprocess.
type Demucs struct {
	opts     Options
	reader   StemReader
	logger   *slog.Logger
	runner   CommandRunner
	platform platform

	mu         sync.Mutex
	loaded     bool
	executable string
	device     string
}

// NewDemucs constructs a demucs-backed separator.
func NewDemucs(opts Options, reader StemReader, logger *slog.Logger) *Demucs {
	opts.Command = strings.TrimSpace(opts.Command)
	if opts.Command == "" {
		opts.Command = "demucs"
	}
	opts.Model = strings.ToLower(strings.TrimSpace(opts.Model))
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	d := &Demucs{
		opts:     opts,
		reader:   reader,
		logger:   logging.NewComponentLogger(logger, "separation"),
		platform: hostPlatform(),
	}
	d.runner = d.execCommand
	return d
}

// WithCommandRunner sets a custom command runner (for testing).
func (d *Demucs) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		d.runner = runner
	}
}

// withPlatform overrides host detection (for testing).
func (d *Demucs) withPlatform(p platform) {
	d.platform = p
}

// Model returns the configured model name.
func (d *Demucs) Model() string {
	return d.opts.Model
}

// Device returns the resolved device after Load, otherwise the configured one.
func (d *Demucs) Device() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return d.device
	}
	if d.opts.Device == "" {
		return DeviceAuto
	}
	return d.opts.Device
}

// Load validates the model, resolves the executable and picks the device.
// A successful load is remembered; failed loads are retried on the next call.
func (d *Demucs) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return nil
	}

	if !IsKnownModel(d.opts.Model) {
		return services.Wrap(services.ErrModelLoad, "load model", d.opts.Model, "unknown model (run 'stemsplit models')", nil)
	}
	executable, err := d.platform.lookPath(d.opts.Command)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "load model", d.opts.Command, "separator command not found in PATH", err)
	}
	device, err := d.platform.resolveDevice(d.opts.Device)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "load model", d.opts.Model, "", err)
	}

	d.executable = executable
	d.device = device
	d.loaded = true
	logging.WithContext(ctx, d.logger).Info("separator ready",
		logging.String("model", d.opts.Model),
		logging.String("device", device),
		logging.String("command", executable),
		logging.String(logging.FieldEventType, "model_loaded"),
	)
	return nil
}

// Separate writes buf to a scratch WAV, runs demucs over it and reads the four
// stems back. The result matches buf's sample rate and length, or an
// ErrSeparation error is returned; partial sets are never produced.
func (d *Demucs) Separate(ctx context.Context, buf *audio.Buffer) (audio.StemSet, error) {
	if buf == nil || buf.Frames() == 0 {
		return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "", "empty input buffer", nil)
	}
	if err := d.Load(ctx); err != nil {
		return audio.StemSet{}, err
	}

	workDir, err := os.MkdirTemp("", "stemsplit-*")
	if err != nil {
		return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "create scratch dir", "", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.wav")
	if err := audio.WriteWAVFile(input, buf); err != nil {
		return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "stage input", "", err)
	}

	outDir := filepath.Join(workDir, "out")
	runCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	d.mu.Lock()
	executable, device := d.executable, d.device
	d.mu.Unlock()

	started := time.Now()
	if err := d.runner(runCtx, executable, d.buildArgs(device, outDir, input)...); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "demucs", fmt.Sprintf("timed out after %s", d.opts.Timeout), err)
		}
		return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "demucs", "", err)
	}
	logging.WithContext(ctx, d.logger).Debug("demucs finished", logging.Duration("elapsed", time.Since(started)))

	return d.collect(ctx, filepath.Join(outDir, d.opts.Model), buf)
}

func (d *Demucs) buildArgs(device, outDir, input string) []string {
	return []string{
		"-n", d.opts.Model,
		"-d", device,
		"-o", outDir,
		"--filename", "{stem}.{ext}",
		"--int24",
		input,
	}
}

func (d *Demucs) collect(ctx context.Context, dir string, source *audio.Buffer) (audio.StemSet, error) {
	stems := make(map[audio.Stem]*audio.Buffer, len(audio.StemOrder))
	for _, stem := range audio.StemOrder {
		path := filepath.Join(dir, string(stem)+".wav")
		if _, err := os.Stat(path); err != nil {
			return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "collect stems", "missing "+string(stem)+" output", err)
		}
		buf, err := d.reader.Load(ctx, path)
		if err != nil {
			return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "read stem", string(stem), err)
		}
		if buf.SampleRate != source.SampleRate {
			buf, err = d.reader.LoadResampled(ctx, path, source.SampleRate)
			if err != nil {
				return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "resample stem", string(stem), err)
			}
		}
		if err := conformLength(buf, source); err != nil {
			return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "collect stems", string(stem), err)
		}
		stems[stem] = buf
	}
	return audio.NewStemSet(stems)
}

// conformLength absorbs resampler rounding of up to 10ms; larger differences
// mean the backend returned something other than the source audio.
func conformLength(buf, source *audio.Buffer) error {
	diff := buf.Frames() - source.Frames()
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return nil
	}
	if diff > source.SampleRate/100 {
		return fmt.Errorf("stem has %d samples, source has %d", buf.Frames(), source.Frames())
	}
	buf.FitFrames(source.Frames())
	return nil
}

func (d *Demucs) execCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, tail(strings.TrimSpace(string(output)), 2000))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

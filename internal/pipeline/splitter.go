package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stemsplit/internal/audio"
	"stemsplit/internal/formats"
	"stemsplit/internal/history"
	"stemsplit/internal/logging"
	"stemsplit/internal/notifications"
	"stemsplit/internal/publish"
	"stemsplit/internal/separation"
	"stemsplit/internal/services"
)

// AudioLoader decodes an input file into a stereo buffer.
type AudioLoader interface {
	Load(ctx context.Context, path string) (*audio.Buffer, error)
}

// Options wires a Splitter. Separator and Loader are required; the rest are
// optional post-steps.
type Options struct {
	Separator separation.Separator
	Loader    AudioLoader
	Publisher publish.Publisher
	History   history.Recorder
	Notifier  notifications.Service
	Reporter  Reporter
	Logger    *slog.Logger
	// OutputRoot mirrors paths.output_dir. When set, single-file jobs without
	// an explicit output dir write to OutputRoot/<basename>.
	OutputRoot string
}

// Splitter runs split jobs. A Splitter is not safe for concurrent jobs;
// callers serialize runs (see session.Controller and runlock).
type Splitter struct {
	sep        separation.Separator
	loader     AudioLoader
	publisher  publish.Publisher
	history    history.Recorder
	notifier   notifications.Service
	reporter   Reporter
	logger     *slog.Logger
	outputRoot string
	now        func() time.Time
}

// New constructs a Splitter from opts.
func New(opts Options) (*Splitter, error) {
	if opts.Separator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "separator is required", nil)
	}
	if opts.Loader == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "audio loader is required", nil)
	}
	return &Splitter{
		sep:        opts.Separator,
		loader:     opts.Loader,
		publisher:  opts.Publisher,
		history:    opts.History,
		notifier:   opts.Notifier,
		reporter:   opts.Reporter,
		logger:     logging.NewComponentLogger(opts.Logger, "pipeline"),
		outputRoot: strings.TrimSpace(opts.OutputRoot),
		now:        time.Now,
	}, nil
}

// Model returns the configured separation model.
func (s *Splitter) Model() string {
	return s.sep.Model()
}

// Device returns the separator device.
func (s *Splitter) Device() string {
	return s.sep.Device()
}

// DefaultOutputDir returns where a single-file job writes when no output
// directory is given.
func (s *Splitter) DefaultOutputDir(input string) string {
	if s.outputRoot != "" {
		return filepath.Join(s.outputRoot, BaseName(input))
	}
	return filepath.Join(filepath.Dir(input), BaseName(input)+"_stems")
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SplitFile runs one job: format gate, existence check, lazy model load,
// decode, separation and stem write. Errors never escape; they are returned
// in the JobResult and logged.
func (s *Splitter) SplitFile(ctx context.Context, input, outputDir string) JobResult {
	ctx = ensureRunID(ctx)
	return s.splitOne(ctx, input, outputDir, 0, 0, true)
}

func (s *Splitter) splitOne(ctx context.Context, input, outputDir string, index, total int, notifyJob bool) JobResult {
	started := s.now()
	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)

	input = strings.TrimSpace(input)
	if strings.TrimSpace(outputDir) == "" {
		outputDir = s.DefaultOutputDir(input)
	}
	result := JobResult{Input: input, JobID: jobID, OutputDir: outputDir}

	emit := func(stage Stage, message string) {
		s.report(Event{Stage: stage, Message: message, Input: input, JobID: jobID, Index: index, Total: total, Time: s.now()})
	}

	logger.Info("split started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Input(input),
		logging.OutputDir(outputDir),
		logging.String("model", s.sep.Model()),
	)
	emit(StageQueued, "queued "+filepath.Base(input))

	// Jobs are not cancelled midway; callers observe ctx between files.
	stems, err := s.run(context.WithoutCancel(ctx), input, outputDir, emit)
	result.Stems = stems
	result.Duration = s.now().Sub(started)

	if err != nil {
		result.Err = err
		logging.ErrorWithContext(logger, "split failed", "job_failed",
			logging.Input(input),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Duration("duration", result.Duration),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		emit(StageFailed, "failed: "+err.Error())
		if notifyJob {
			s.notifyError(ctx, logger, err, filepath.Base(input))
		}
		s.record(ctx, logger, result, started)
		return result
	}

	result.OK = true
	logger.Info("split complete",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Input(input),
		logging.OutputDir(outputDir),
		logging.Int("stems", len(stems)),
		logging.Duration("duration", result.Duration),
	)
	emit(StageComplete, fmt.Sprintf("complete: %d stems in %s", len(stems), outputDir))

	result.Uploaded = s.upload(ctx, logger, input, stems)
	s.record(ctx, logger, result, started)
	if notifyJob && s.notifier != nil {
		if err := s.notifier.NotifyJobCompleted(ctx, input, outputDir, result.Duration); err != nil {
			logging.WarnWithContext(logger, "job notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no push notification for this job"),
			)
		}
	}
	return result
}

func (s *Splitter) run(ctx context.Context, input, outputDir string, emit func(Stage, string)) (stems []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("split panicked: %v", r)
		}
	}()

	if err := formats.Check(input); err != nil {
		return nil, err
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "validate", "stat input", input, err)
	}
	if !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrNotFound, "validate", "stat input", input+" is not a regular file", nil)
	}

	emit(StageLoadingModel, "loading model "+s.sep.Model())
	if err := s.sep.Load(services.WithStage(ctx, string(StageLoadingModel))); err != nil {
		return nil, err
	}

	emit(StageLoadingAudio, "loading "+filepath.Base(input))
	buf, err := s.loader.Load(services.WithStage(ctx, string(StageLoadingAudio)), input)
	if err != nil {
		return nil, err
	}

	emit(StageSeparating, fmt.Sprintf("separating %s of audio on %s", buf.Duration().Round(time.Second), s.sep.Device()))
	set, err := s.sep.Separate(services.WithStage(ctx, string(StageSeparating)), buf)
	if err != nil {
		return nil, err
	}

	emit(StageSaving, "saving stems to "+outputDir)
	return audio.WriteStems(outputDir, BaseName(input), set)
}

func (s *Splitter) report(evt Event) {
	if s.reporter != nil {
		s.reporter.Report(evt)
	}
}

func (s *Splitter) upload(ctx context.Context, logger *slog.Logger, input string, stems []string) []string {
	if s.publisher == nil || !s.publisher.Enabled() || len(stems) == 0 {
		return nil
	}
	keys, err := s.publisher.Publish(ctx, BaseName(input), stems)
	if err != nil {
		logging.WarnWithContext(logger, "stem upload failed", "upload_failed",
			logging.Input(input),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check upload endpoint and credentials with stemsplit doctor"),
			logging.String(logging.FieldImpact, "stems remain on local disk only"),
		)
	}
	return keys
}

func (s *Splitter) record(ctx context.Context, logger *slog.Logger, result JobResult, started time.Time) {
	if s.history == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	rec := history.Record{
		RunID:     runID,
		JobID:     result.JobID,
		Input:     result.Input,
		OutputDir: result.OutputDir,
		OK:        result.OK,
		ErrorKind: services.Kind(result.Err),
		Model:     s.sep.Model(),
		Device:    s.sep.Device(),
		Stems:     len(result.Stems),
		StartedAt: started,
		Duration:  result.Duration,
	}
	if result.Err != nil {
		rec.ErrorMessage = result.Err.Error()
	}
	if err := s.history.Append(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "history append failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from stemsplit history"),
		)
	}
}

func (s *Splitter) notifyError(ctx context.Context, logger *slog.Logger, err error, label string) {
	if s.notifier == nil {
		return
	}
	if nerr := s.notifier.NotifyError(ctx, err, label); nerr != nil {
		logging.WarnWithContext(logger, "error notification failed", "notification_failed",
			logging.Error(nerr),
			logging.String(logging.FieldImpact, "failure not pushed to ntfy"),
		)
	}
}

func ensureRunID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		return ctx
	}
	return services.WithRunID(ctx, uuid.NewString())
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "unsupported_format":
		return "supported extensions: " + strings.Join(formats.Extensions(), " ")
	case "not_found":
		return "check the input path"
	case "model_load":
		return "run stemsplit doctor to verify the separator install and model name"
	case "decode":
		return "install ffmpeg or convert the file to WAV"
	case "separation":
		return "inspect the separator output in the log; try --device cpu"
	case "write":
		return "check permissions and free space in the output directory"
	default:
		return "check logs for details"
	}
}

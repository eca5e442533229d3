package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stemsplit/internal/formats"
	"stemsplit/internal/logging"
	"stemsplit/internal/services"
)

// Enumerate lists the regular files directly inside dir whose extension
// passes the format gate, sorted by name.
func Enumerate(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "batch", "read dir", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !formats.IsSupported(entry.Name()) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, full)
	}
	return files, nil
}

// SplitDir splits every supported file in dir, one at a time. Each file goes
// to outputRoot/<basename>; outputRoot defaults to dir/stems. A failing file
// never aborts the batch. Cancelling ctx stops before the next file starts.
func (s *Splitter) SplitDir(ctx context.Context, dir, outputRoot string) BatchResult {
	ctx = ensureRunID(ctx)
	started := s.now()
	logger := logging.WithContext(ctx, s.logger)

	dir = strings.TrimSpace(dir)
	if strings.TrimSpace(outputRoot) == "" {
		outputRoot = filepath.Join(dir, "stems")
	}
	result := BatchResult{Dir: dir, OutputRoot: outputRoot}

	files, err := Enumerate(dir)
	if err != nil {
		result.Err = err
		result.Duration = s.now().Sub(started)
		logging.ErrorWithContext(logger, "batch directory unreadable", "batch_failed",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the directory path"),
		)
		return result
	}
	if len(files) == 0 {
		result.Duration = s.now().Sub(started)
		logging.WarnWithContext(logger, "no supported audio files found", "batch_empty",
			logging.String("dir", dir),
			logging.String(logging.FieldErrorHint, "supported extensions: "+strings.Join(formats.Extensions(), " ")),
			logging.String(logging.FieldImpact, "nothing to split"),
		)
		return result
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("dir", dir),
		logging.String("output_root", outputRoot),
		logging.Int("files", len(files)),
	)
	s.report(Event{Stage: StageBatchStarted, Message: fmt.Sprintf("found %d files", len(files)), Total: len(files), Time: s.now()})

	for i, file := range files {
		if ctx.Err() != nil {
			result.Canceled = true
			logging.WarnWithContext(logger, "batch canceled", "batch_canceled",
				logging.Int("remaining", len(files)-i),
				logging.String(logging.FieldImpact, "remaining files were not split"),
			)
			break
		}
		job := s.splitOne(ctx, file, filepath.Join(outputRoot, BaseName(file)), i+1, len(files), false)
		result.Results = append(result.Results, job)
		if job.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.Duration = s.now().Sub(started)

	logger.Info("batch complete",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("total", len(files)),
		logging.Duration("duration", result.Duration),
	)
	s.report(Event{
		Stage:   StageBatchDone,
		Message: fmt.Sprintf("%d of %d files split", result.Succeeded, len(files)),
		Total:   len(files),
		Time:    s.now(),
	})
	if s.notifier != nil {
		if err := s.notifier.NotifyBatchCompleted(ctx, result.Succeeded, result.Failed, result.Duration); err != nil {
			logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no push notification for this batch"),
			)
		}
	}
	return result
}

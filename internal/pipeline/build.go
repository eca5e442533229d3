package pipeline

import (
	"log/slog"

	"stemsplit/internal/audio"
	"stemsplit/internal/config"
	"stemsplit/internal/history"
	"stemsplit/internal/notifications"
	"stemsplit/internal/publish"
	"stemsplit/internal/separation"
)

// Build wires the production collaborators described by cfg: the ffmpeg
// backed loader, the demucs separator, the optional publisher, history store
// and notifier. The history store is returned (nil when disabled) so callers
// can read it and must close it.
func Build(cfg *config.Config, logger *slog.Logger, reporter Reporter) (*Splitter, *history.Store, error) {
	loader := audio.NewLoader(cfg.Separator.FFmpegBinary, cfg.Separator.FFprobeBinary, logger)
	sep := separation.NewDemucs(separation.Options{
		Command: cfg.Separator.Command,
		Model:   cfg.Separator.Model,
		Device:  cfg.Separator.Device,
		Timeout: cfg.SeparatorTimeout(),
	}, loader, logger)

	pub, err := publish.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var (
		store    *history.Store
		recorder history.Recorder
	)
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, nil, err
		}
		recorder = store
	}

	splitter, err := New(Options{
		Separator:  sep,
		Loader:     loader,
		Publisher:  pub,
		History:    recorder,
		Notifier:   notifications.NewService(cfg),
		Reporter:   reporter,
		Logger:     logger,
		OutputRoot: cfg.Paths.OutputDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return splitter, store, nil
}

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestTeeHandlerFiltersPerSink(t *testing.T) {
	var terminal, file bytes.Buffer
	h := teeHandler{
		terminal: slog.NewJSONHandler(&terminal, &slog.HandlerOptions{Level: slog.LevelWarn}),
		file:     slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	logger := slog.New(h)
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected tee to accept info for the file sink")
	}
	logger.Info("stems written")

	if file.Len() == 0 {
		t.Error("expected info record in the status log")
	}
	if terminal.Len() != 0 {
		t.Error("expected terminal to drop info at warn level")
	}
}

func TestTeeHandlerWithAttrsReachesBothSinks(t *testing.T) {
	var terminal, file bytes.Buffer
	h := teeHandler{
		terminal: slog.NewJSONHandler(&terminal, nil),
		file:     slog.NewJSONHandler(&file, nil),
	}
	slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldComponent, "watch")})).Info("queued")

	for name, buf := range map[string]*bytes.Buffer{"terminal": &terminal, "file": &file} {
		if !bytes.Contains(buf.Bytes(), []byte(`"component":"watch"`)) {
			t.Errorf("expected component attr in %s sink: %s", name, buf.String())
		}
	}
}

package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stemsplit/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecentNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []history.Record{
		{RunID: "run-1", JobID: "job-a", Input: "/music/a.wav", OutputDir: "/out/a", OK: true, Model: "htdemucs", Device: "cpu", Stems: 4, StartedAt: base, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", JobID: "job-b", Input: "/music/b.mp3", OK: false, ErrorKind: "decode", ErrorMessage: "bad header", StartedAt: base.Add(time.Minute), Duration: 20 * time.Millisecond},
		{RunID: "run-2", JobID: "job-c", Input: "/music/c.flac", OK: true, Stems: 4, StartedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append %s: %v", rec.JobID, err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].JobID != "job-c" || got[1].JobID != "job-b" {
		t.Fatalf("unexpected order: %s, %s", got[0].JobID, got[1].JobID)
	}

	failed := got[1]
	if failed.OK {
		t.Fatal("expected failed record")
	}
	if failed.ErrorKind != "decode" || failed.ErrorMessage != "bad header" {
		t.Fatalf("unexpected error fields: %+v", failed)
	}
	if failed.Duration != 20*time.Millisecond {
		t.Fatalf("duration = %s", failed.Duration)
	}
	if !failed.StartedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("started_at = %s", failed.StartedAt)
	}
}

func TestRecentRoundTripsAllFields(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	want := history.Record{
		RunID:     "run-9",
		JobID:     "job-9",
		Input:     "/music/song.wav",
		OutputDir: "/music/song_stems",
		OK:        true,
		Model:     "htdemucs_ft",
		Device:    "cuda",
		Stems:     4,
		StartedAt: started,
		Duration:  90 * time.Second,
	}
	if err := store.Append(ctx, want); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got[0]
	if rec.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if !rec.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("started_at = %s, want %s", rec.StartedAt, want.StartedAt)
	}
	rec.ID = 0
	rec.StartedAt = want.StartedAt
	if rec != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", rec, want)
	}
}

func TestAppendRequiresJobAndInput(t *testing.T) {
	store := openStore(t)
	tests := []struct {
		name string
		rec  history.Record
	}{
		{name: "missing job id", rec: history.Record{Input: "/music/a.wav"}},
		{name: "missing input", rec: history.Record{JobID: "job"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Append(context.Background(), tt.rec); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(context.Background(), history.Record{JobID: "j", Input: "/a.wav", OK: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Fatalf("path = %q", reopened.Path())
	}
	got, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].JobID != "j" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemsplit/internal/audio"
	"stemsplit/internal/history"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/runlock"
	"stemsplit/internal/testsupport"
)

func TestSplitSingleFileEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "music", "Track One.wav")
	testsupport.WriteToneWAV(t, input, 4410)

	stdout, _, err := runCLI(t, []string{"split", input, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v\n%s", err, stdout)
	}
	var summary pipeline.JobSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, stdout)
	}
	wantDir := filepath.Join(env.baseDir, "music", "Track One_stems")
	if !summary.OK || summary.OutputDir != wantDir || len(summary.Stems) != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, stem := range audio.StemOrder {
		buf, err := audio.ReadWAVFile(filepath.Join(wantDir, audio.StemFileName("Track One", stem)))
		if err != nil {
			t.Fatalf("read %s stem: %v", stem, err)
		}
		if buf.Frames() != 4410 || buf.SampleRate != 44100 {
			t.Fatalf("%s stem frames=%d rate=%d", stem, buf.Frames(), buf.SampleRate)
		}
	}
}

func TestSplitExplicitOutputAndHumanSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "song.wav")
	testsupport.WriteToneWAV(t, input, 512)
	out := filepath.Join(env.baseDir, "custom")

	stdout, _, err := runCLI(t, []string{"split", input, "-o", out, "-m", "htdemucs_ft"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !strings.Contains(stdout, "[OK]") || !strings.Contains(stdout, "song_vocals.wav") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
	for _, stem := range audio.StemOrder {
		if !strings.Contains(stdout, stem.Label()) {
			t.Fatalf("expected %q label in summary:\n%s", stem.Label(), stdout)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "song_drums.wav")); err != nil {
		t.Fatalf("expected drums stem in explicit output dir: %v", err)
	}
}

func TestSplitUsesConfiguredOutputDir(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOutputDir("stems-out"))
	input := filepath.Join(env.baseDir, "incoming", "take.wav")
	testsupport.WriteToneWAV(t, input, 256)

	stdout, _, err := runCLI(t, []string{"split", input, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v\n%s", err, stdout)
	}
	var summary pipeline.JobSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, stdout)
	}
	wantDir := filepath.Join(env.baseDir, "stems-out", "take")
	if summary.OutputDir != wantDir {
		t.Fatalf("output dir = %q, want %q", summary.OutputDir, wantDir)
	}
	for _, stem := range audio.StemOrder {
		if _, err := os.Stat(filepath.Join(wantDir, audio.StemFileName("take", stem))); err != nil {
			t.Fatalf("expected %s stem under paths.output_dir: %v", stem, err)
		}
	}
}

func TestSplitFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	notes := filepath.Join(env.baseDir, "notes.txt")
	testsupport.WriteFile(t, notes, 4)
	song := filepath.Join(env.baseDir, "song.wav")
	testsupport.WriteToneWAV(t, song, 64)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unsupported format", args: []string{"split", notes}, want: "unsupported format"},
		{name: "missing input", args: []string{"split", filepath.Join(env.baseDir, "absent.mp3")}, want: "not found"},
		{name: "unknown model", args: []string{"split", song, "-m", "spleeter"}, want: "unknown model"},
		{name: "bad device", args: []string{"split", song, "-d", "tpu"}, want: "unsupported device"},
		{name: "batch on a file", args: []string{"split", song, "-b"}, want: "--batch requires a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSplitRefusesWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	song := filepath.Join(env.baseDir, "song.wav")
	testsupport.WriteToneWAV(t, song, 64)

	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"split", song}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another stemsplit run is active") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestSplitBatchAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory())
	dir := filepath.Join(env.baseDir, "album")
	testsupport.WriteToneWAV(t, filepath.Join(dir, "01.wav"), 256)
	testsupport.WriteToneWAV(t, filepath.Join(dir, "02.WAV"), 256)
	testsupport.WriteFile(t, filepath.Join(dir, "cover.jpg"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "broken.wav"), 16)

	stdout, _, err := runCLI(t, []string{"split", dir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("batch split should exit zero with partial failures: %v", err)
	}
	var summary pipeline.BatchSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || len(summary.Results) != 3 {
		t.Fatalf("unexpected batch summary: %+v", summary)
	}
	if summary.Results[2].ErrorKind != "decode" {
		t.Fatalf("expected decode failure for broken.wav, got %+v", summary.Results[2])
	}
	if _, err := os.Stat(filepath.Join(dir, "stems", "02", "02_bass.wav")); err != nil {
		t.Fatalf("expected batch output: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode history: %v\n%s", err, stdout)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 history records, got %d", len(records))
	}

	stdout, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	if !strings.Contains(stdout, "failed: decode") {
		t.Fatalf("expected failure row in history table:\n%s", stdout)
	}
}

func TestSplitBatchMissingDirectoryFails(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"split", filepath.Join(env.baseDir, "missing"), "-b"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing batch directory")
	}
}

func TestHistoryDisabledAndNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil || !strings.Contains(stdout, "History is disabled") {
		t.Fatalf("history: err=%v out=%q", err, stdout)
	}

	stdout, _, err = runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil || !strings.Contains(stdout, "Notifications disabled") {
		t.Fatalf("test-notify: err=%v out=%q", err, stdout)
	}
}

func TestModelsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"models", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var payload struct {
		Default string `json:"default"`
		Models  []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Default != "htdemucs" || len(payload.Models) != 7 {
		t.Fatalf("unexpected models payload: %+v", payload)
	}

	stdout, _, err = runCLI(t, []string{"models"}, env.configPath)
	if err != nil || !strings.Contains(stdout, "mdx_extra_q") {
		t.Fatalf("models table: err=%v\n%s", err, stdout)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("STEMSPLIT_UPLOAD_SECRET_KEY", "")
	target := filepath.Join(base, "conf", "stemsplit.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("unexpected init output: %q", stdout)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil || !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("validate: err=%v out=%q", err, stdout)
	}

	stdout, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(stdout, "[separator]") || !strings.Contains(stdout, "htdemucs") {
		t.Fatalf("unexpected show output:\n%s", stdout)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Upload.AccessKey = "AKIAEXAMPLE"
	env.cfg.Upload.SecretKey = "super-secret"
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(stdout, "super-secret") || strings.Contains(stdout, "AKIAEXAMPLE") {
		t.Fatalf("secrets leaked:\n%s", stdout)
	}
	if !strings.Contains(stdout, redacted) {
		t.Fatalf("expected redaction marker:\n%s", stdout)
	}
}

func TestDoctorReportsMissingSeparator(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))
	env.cfg.Separator.Command = "stemsplit-no-such-demucs"
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, []string{"doctor", "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without the separator")
	}
	var report doctorReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy report")
	}
	available := make(map[string]bool)
	for _, dep := range report.Dependencies {
		available[dep.Name] = dep.Available
	}
	if available["Separator"] {
		t.Fatalf("expected missing separator in %+v", report.Dependencies)
	}
	if !available["FFmpeg"] || !available["FFprobe"] {
		t.Fatalf("expected stubbed ffmpeg and ffprobe to be found: %+v", report.Dependencies)
	}
}

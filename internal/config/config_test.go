package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"stemsplit/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "stemsplit")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir by default, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Separator.Model != "htdemucs" {
		t.Fatalf("unexpected default model: %q", cfg.Separator.Model)
	}
	if cfg.Separator.Device != "auto" {
		t.Fatalf("unexpected default device: %q", cfg.Separator.Device)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled by default")
	}
	if cfg.Upload.Enabled {
		t.Fatal("expected upload disabled by default")
	}
	if cfg.SeparatorTimeout() != time.Hour {
		t.Fatalf("unexpected separator timeout: %s", cfg.SeparatorTimeout())
	}
	if got := cfg.LogFilePath(); got != filepath.Join(wantState, "logs", "stemsplit.log") {
		t.Fatalf("unexpected log file path: %q", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "stemsplit.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Separator struct {
			Model          string `toml:"model"`
			Device         string `toml:"device"`
			TimeoutMinutes int    `toml:"timeout_minutes"`
		} `toml:"separator"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Separator.Model = "  HTDemucs_FT "
	custom.Separator.Device = "CPU"
	custom.Separator.TimeoutMinutes = 5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Separator.Model != "htdemucs_ft" {
		t.Fatalf("expected normalized model, got %q", cfg.Separator.Model)
	}
	if cfg.Separator.Device != "cpu" {
		t.Fatalf("expected normalized device, got %q", cfg.Separator.Device)
	}
	if cfg.SeparatorTimeout() != 5*time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.SeparatorTimeout())
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
}

func TestEnvFileSuppliesUploadCredentials(t *testing.T) {
	tempDir := t.TempDir()
	t.Chdir(tempDir)
	configPath := filepath.Join(tempDir, "stemsplit.toml")
	content := `
[upload]
enabled = true
endpoint = "localhost:9000"
bucket = "stems"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envFile := "STEMSPLIT_UPLOAD_ACCESS_KEY=from-dotenv\nSTEMSPLIT_UPLOAD_SECRET_KEY=secret-dotenv\n"
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// Pre-existing environment wins over the .env file.
	t.Setenv("STEMSPLIT_UPLOAD_SECRET_KEY", "secret-env")
	t.Cleanup(func() { _ = os.Unsetenv("STEMSPLIT_UPLOAD_ACCESS_KEY") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Upload.AccessKey != "from-dotenv" {
		t.Fatalf("expected access key from .env, got %q", cfg.Upload.AccessKey)
	}
	if cfg.Upload.SecretKey != "secret-env" {
		t.Fatalf("expected secret key from environment, got %q", cfg.Upload.SecretKey)
	}
}

func TestNtfyTopicFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("STEMSPLIT_NTFY_TOPIC", " https://ntfy.sh/stems ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/stems" {
		t.Fatalf("unexpected topic: %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "device",
			mutate: func(c *config.Config) { c.Separator.Device = "tpu" },
			want:   "separator.device",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
		{
			name: "upload endpoint",
			mutate: func(c *config.Config) {
				c.Upload.Enabled = true
				c.Upload.Bucket = "b"
			},
			want: "upload.endpoint",
		},
		{
			name: "upload credentials",
			mutate: func(c *config.Config) {
				c.Upload.Enabled = true
				c.Upload.Endpoint = "localhost:9000"
				c.Upload.Bucket = "b"
			},
			want: "upload credentials",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Server.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
}

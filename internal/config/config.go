package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// OutputDir overrides the default output location. Empty means stems are
	// written next to the input file.
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Separator configures the external source-separation backend.
type Separator struct {
	Command        string `toml:"command"`
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output and the rotating status log.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Job            bool   `toml:"job"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// History toggles the sqlite job history. Disabled by default.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Upload configures the optional S3-compatible stem upload.
type Upload struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Prefix    string `toml:"prefix"`
}

// Server configures the local interactive surface.
type Server struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for stemsplit.
//
// Configuration sections by subsystem:
//   - Paths: output, log and state directories
//   - Separator: demucs command, model, device and timeouts
//   - Logging: log format, level and rotation
//   - Notifications: ntfy push notification settings
//   - History: opt-in sqlite job history
//   - Upload: opt-in stem upload to S3-compatible storage
//   - Server: bind address for `stemsplit serve`
type Config struct {
	Paths         Paths         `toml:"paths"`
	Separator     Separator     `toml:"separator"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Upload        Upload        `toml:"upload"`
	Server        Server        `toml:"server"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathUnexpanded)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadEnvFiles(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFiles reads .env files beside the config and in the working
// directory. Variables already present in the environment are not replaced.
func loadEnvFiles(configDir string) error {
	candidates := []string{filepath.Join(configDir, defaultEnvFileName)}
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, defaultEnvFileName)
		if local != candidates[0] {
			candidates = append(candidates, local)
		}
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return nil
}

// resolveConfigPath returns the config file to read and whether it exists.
// An explicit path wins; otherwise the user config and then ./stemsplit.toml
// are tried, falling back to the (missing) user config path.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		case err != nil:
			return "", false, fmt.Errorf("stat config: %w", err)
		case info.IsDir():
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	userPath, err := expandPath(defaultConfigPathUnexpanded)
	if err != nil {
		return "", false, err
	}
	projectPath, err := expandPath(defaultProjectConfigFileName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the log and state directories. The output
// directory is created per job by the stem writer.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the append-only status log location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, defaultLogFileName)
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, defaultLockFileName)
}

// HistoryPath returns the sqlite job history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
}

// SeparatorTimeout returns the per-job subprocess deadline.
func (c *Config) SeparatorTimeout() time.Duration {
	return time.Duration(c.Separator.TimeoutMinutes) * time.Minute
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

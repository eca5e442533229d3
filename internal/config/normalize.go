package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSeparator()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeUpload()
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
			return fmt.Errorf("paths.output_dir: %w", err)
		}
	} else {
		c.Paths.OutputDir = ""
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSeparator() {
	c.Separator.Command = strings.TrimSpace(c.Separator.Command)
	if c.Separator.Command == "" {
		c.Separator.Command = defaultSeparatorCommand
	}
	c.Separator.Model = strings.ToLower(strings.TrimSpace(c.Separator.Model))
	if c.Separator.Model == "" {
		c.Separator.Model = defaultSeparatorModel
	}
	c.Separator.Device = strings.ToLower(strings.TrimSpace(c.Separator.Device))
	if c.Separator.Device == "" {
		c.Separator.Device = defaultSeparatorDevice
	}
	if c.Separator.TimeoutMinutes == 0 {
		c.Separator.TimeoutMinutes = defaultSeparatorTimeout
	}
	c.Separator.FFmpegBinary = strings.TrimSpace(c.Separator.FFmpegBinary)
	if c.Separator.FFmpegBinary == "" {
		c.Separator.FFmpegBinary = defaultFFmpegBinary
	}
	c.Separator.FFprobeBinary = strings.TrimSpace(c.Separator.FFprobeBinary)
	if c.Separator.FFprobeBinary == "" {
		c.Separator.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("STEMSPLIT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.Endpoint = strings.TrimSpace(c.Upload.Endpoint)
	c.Upload.Bucket = strings.TrimSpace(c.Upload.Bucket)
	c.Upload.Region = strings.TrimSpace(c.Upload.Region)
	if c.Upload.Region == "" {
		c.Upload.Region = defaultUploadRegion
	}
	c.Upload.Prefix = strings.Trim(strings.TrimSpace(c.Upload.Prefix), "/")
	if value, ok := os.LookupEnv("STEMSPLIT_UPLOAD_ACCESS_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Upload.AccessKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("STEMSPLIT_UPLOAD_SECRET_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Upload.SecretKey = strings.TrimSpace(value)
	}
	c.Upload.AccessKey = strings.TrimSpace(c.Upload.AccessKey)
	c.Upload.SecretKey = strings.TrimSpace(c.Upload.SecretKey)
}

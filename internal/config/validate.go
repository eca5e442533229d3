package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSeparator(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSeparator() error {
	if c.Separator.Command == "" {
		return errors.New("separator.command must be set")
	}
	if c.Separator.Model == "" {
		return errors.New("separator.model must be set")
	}
	switch c.Separator.Device {
	case "auto", "cpu", "cuda", "mps":
	default:
		return fmt.Errorf("separator.device: unsupported value %q (expected auto, cpu, cuda or mps)", c.Separator.Device)
	}
	if c.Separator.TimeoutMinutes < 0 {
		return errors.New("separator.timeout_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 {
		return errors.New("logging.max_size_mb must be positive")
	}
	if c.Logging.MaxBackups < 0 {
		return errors.New("logging.max_backups must be zero or positive")
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	if c.Upload.Endpoint == "" {
		return errors.New("upload.endpoint is required when upload is enabled")
	}
	if c.Upload.Bucket == "" {
		return errors.New("upload.bucket is required when upload is enabled")
	}
	if c.Upload.AccessKey == "" || c.Upload.SecretKey == "" {
		return errors.New("upload credentials missing. Set STEMSPLIT_UPLOAD_ACCESS_KEY and STEMSPLIT_UPLOAD_SECRET_KEY or edit the [upload] section")
	}
	return nil
}

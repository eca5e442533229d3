package config

const (
	defaultLogDir                = "~/.local/share/stemsplit/logs"
	defaultStateDir              = "~/.local/share/stemsplit"
	defaultSeparatorCommand      = "demucs"
	defaultSeparatorModel        = "htdemucs"
	defaultSeparatorDevice       = "auto"
	defaultSeparatorTimeout      = 60
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 10
	defaultLogMaxBackups         = 5
	defaultLogRetentionDays      = 30
	defaultNotifyRequestTimeout  = 10
	defaultUploadRegion          = "us-east-1"
	defaultUploadPrefix          = "stems"
	defaultServerBind            = "127.0.0.1:7490"
	defaultHistoryFileName       = "history.db"
	defaultLockFileName          = "stemsplit.lock"
	defaultLogFileName           = "stemsplit.log"
	defaultEnvFileName           = ".env"
	defaultConfigPathUnexpanded  = "~/.config/stemsplit/config.toml"
	defaultProjectConfigFileName = "stemsplit.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Separator: Separator{
			Command:        defaultSeparatorCommand,
			Model:          defaultSeparatorModel,
			Device:         defaultSeparatorDevice,
			TimeoutMinutes: defaultSeparatorTimeout,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Job:            true,
			Batch:          true,
			Errors:         true,
		},
		Upload: Upload{
			Region: defaultUploadRegion,
			Prefix: defaultUploadPrefix,
			UseSSL: true,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}

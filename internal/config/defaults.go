package config

const (
	defaultConfigPath            = "~/.config/recproc/config.toml"
	defaultArchiveSuffix         = "_archive"
	defaultLogDir                = "~/.local/share/recproc/logs"
	defaultStateDir              = "~/.local/share/recproc"
	defaultDirectiveFileName     = "extract.txt"
	defaultCompressCodec         = "libx265"
	defaultCompressPreset        = "medium"
	defaultCompressCRF           = 28
	defaultCompressWidth         = 1280
	defaultCompressHeight        = 720
	defaultCompressFPS           = 30
	defaultExtractCodec          = "libx264"
	defaultExtractPreset         = "medium"
	defaultExtractCRF            = 18
	defaultExtractKeyint         = 30
	defaultExtractContainer      = "mov"
	defaultExtractPrefix         = "clip"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultInterruptGraceSeconds = 10
	defaultDurationTolerance     = 0.5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveSuffix: defaultArchiveSuffix,
			LogDir:        defaultLogDir,
			StateDir:      defaultStateDir,
		},
		Directives: Directives{
			FileName: defaultDirectiveFileName,
		},
		Compress: Compress{
			Codec:  defaultCompressCodec,
			Preset: defaultCompressPreset,
			CRF:    defaultCompressCRF,
			Width:  defaultCompressWidth,
			Height: defaultCompressHeight,
			FPS:    defaultCompressFPS,
		},
		Extract: Extract{
			Codec:     defaultExtractCodec,
			Preset:    defaultExtractPreset,
			CRF:       defaultExtractCRF,
			Keyint:    defaultExtractKeyint,
			Container: defaultExtractContainer,
			Prefix:    defaultExtractPrefix,
		},
		Transcoder: Transcoder{
			FFmpegBinary:             defaultFFmpegBinary,
			FFprobeBinary:            defaultFFprobeBinary,
			InterruptGraceSeconds:    defaultInterruptGraceSeconds,
			DurationToleranceSeconds: defaultDurationTolerance,
		},
		Run: Run{
			CopyTimelapses: true,
			RecordHistory:  true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

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
	c.normalizeDirectives()
	c.normalizeEncoders()
	c.normalizeTranscoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TargetDir) != "" {
		if c.Paths.TargetDir, err = expandPath(strings.TrimSpace(c.Paths.TargetDir)); err != nil {
			return fmt.Errorf("paths.target_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.ArchiveSuffix) == "" {
		c.Paths.ArchiveSuffix = defaultArchiveSuffix
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

func (c *Config) normalizeDirectives() {
	c.Directives.FileName = strings.TrimSpace(c.Directives.FileName)
	if c.Directives.FileName == "" {
		c.Directives.FileName = defaultDirectiveFileName
	}
}

func (c *Config) normalizeEncoders() {
	c.Compress.Codec = strings.TrimSpace(c.Compress.Codec)
	if c.Compress.Codec == "" {
		c.Compress.Codec = defaultCompressCodec
	}
	c.Compress.Preset = strings.ToLower(strings.TrimSpace(c.Compress.Preset))
	if c.Compress.Preset == "" {
		c.Compress.Preset = defaultCompressPreset
	}
	c.Extract.Codec = strings.TrimSpace(c.Extract.Codec)
	if c.Extract.Codec == "" {
		c.Extract.Codec = defaultExtractCodec
	}
	c.Extract.Preset = strings.ToLower(strings.TrimSpace(c.Extract.Preset))
	if c.Extract.Preset == "" {
		c.Extract.Preset = defaultExtractPreset
	}
	c.Extract.Container = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Extract.Container)), ".")
	c.Extract.Prefix = strings.TrimSpace(c.Extract.Prefix)
}

func (c *Config) normalizeTranscoder() {
	if value, ok := os.LookupEnv("RECPROC_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Transcoder.FFmpegBinary = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("RECPROC_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Transcoder.FFprobeBinary = strings.TrimSpace(value)
	}
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDirectives(); err != nil {
		return err
	}
	if err := c.validateCompress(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateTranscoder(); err != nil {
		return err
	}
	if c.Run.MaxCount < 0 {
		return errors.New("run.max_count must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateDirectives() error {
	if strings.ContainsAny(c.Directives.FileName, `/\`) {
		return fmt.Errorf("directives.file_name %q must be a bare file name", c.Directives.FileName)
	}
	return nil
}

func (c *Config) validateCompress() error {
	if c.Compress.CRF < 0 {
		return errors.New("compress.crf must be >= 0")
	}
	if c.Compress.Width <= 0 || c.Compress.Height <= 0 {
		return errors.New("compress.width and compress.height must be positive")
	}
	if c.Compress.FPS <= 0 {
		return errors.New("compress.fps must be positive")
	}
	return nil
}

func (c *Config) validateExtract() error {
	if c.Extract.CRF < 0 {
		return errors.New("extract.crf must be >= 0")
	}
	if c.Extract.Keyint <= 0 {
		return errors.New("extract.keyint must be positive")
	}
	if c.Extract.Container == "" {
		return errors.New("extract.container must be set")
	}
	if c.Extract.Prefix == "" {
		return errors.New("extract.prefix must be set")
	}
	return nil
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.JobTimeoutSeconds < 0 {
		return errors.New("transcoder.job_timeout_seconds must be >= 0")
	}
	if c.Transcoder.InterruptGraceSeconds < 0 {
		return errors.New("transcoder.interrupt_grace_seconds must be >= 0")
	}
	if c.Transcoder.DurationToleranceSeconds < 0 {
		return errors.New("transcoder.duration_tolerance_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

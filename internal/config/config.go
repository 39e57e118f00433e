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

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TargetDir     string `toml:"target_dir"`
	ArchiveSuffix string `toml:"archive_suffix"`
	LogDir        string `toml:"log_dir"`
	StateDir      string `toml:"state_dir"`
}

// Directives locates the extraction directive file inside a source directory.
type Directives struct {
	FileName string `toml:"file_name"`
}

// Compress contains encoder settings for recording compression.
type Compress struct {
	Codec  string `toml:"codec"`
	Preset string `toml:"preset"`
	CRF    int    `toml:"crf"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	FPS    int    `toml:"fps"`
}

// Extract contains encoder and naming settings for clip extraction.
type Extract struct {
	Codec     string `toml:"codec"`
	Preset    string `toml:"preset"`
	CRF       int    `toml:"crf"`
	Keyint    int    `toml:"keyint"`
	Container string `toml:"container"`
	Prefix    string `toml:"prefix"`
}

// Transcoder contains external binary locations and execution limits.
type Transcoder struct {
	FFmpegBinary             string  `toml:"ffmpeg_binary"`
	FFprobeBinary            string  `toml:"ffprobe_binary"`
	JobTimeoutSeconds        int     `toml:"job_timeout_seconds"`
	InterruptGraceSeconds    int     `toml:"interrupt_grace_seconds"`
	VerifyOutputs            bool    `toml:"verify_outputs"`
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
}

// Run contains per-invocation batch behaviour.
type Run struct {
	MaxCount       int  `toml:"max_count"`
	CopyTimelapses bool `toml:"copy_timelapses"`
	RecordHistory  bool `toml:"record_history"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recproc.
//
// Configuration sections by subsystem:
//   - Paths: archive target, log and state directories
//   - Directives: directive file lookup
//   - Compress: recording compression encoder settings
//   - Extract: clip extraction encoder settings and naming
//   - Transcoder: ffmpeg/ffprobe binaries, watchdog and verification
//   - Run: batch caps and optional phases
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Directives Directives `toml:"directives"`
	Compress   Compress   `toml:"compress"`
	Extract    Extract    `toml:"extract"`
	Transcoder Transcoder `toml:"transcoder"`
	Run        Run        `toml:"run"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
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

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recproc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for compression and extraction.
func (c *Config) FFmpegBinary() string {
	if c.Transcoder.FFmpegBinary == "" {
		return defaultFFmpegBinary
	}
	return c.Transcoder.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for output verification.
func (c *Config) FFprobeBinary() string {
	if c.Transcoder.FFprobeBinary == "" {
		return defaultFFprobeBinary
	}
	return c.Transcoder.FFprobeBinary
}

// JobTimeout returns the per-job watchdog duration; zero disables it.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Transcoder.JobTimeoutSeconds) * time.Second
}

// InterruptGrace returns how long an interrupted transcoder may take to exit
// before it is killed.
func (c *Config) InterruptGrace() time.Duration {
	return time.Duration(c.Transcoder.InterruptGraceSeconds) * time.Second
}

// DurationTolerance returns the accepted duration drift when verifying outputs.
func (c *Config) DurationTolerance() time.Duration {
	return time.Duration(c.Transcoder.DurationToleranceSeconds * float64(time.Second))
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
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

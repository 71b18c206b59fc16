// Package config provides configuration management for the DocuForge Bridge.
// Configuration is resolved in three layers: built-in defaults, an optional
// TOML config file, and environment variable overrides (highest precedence).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort        = 5001
	DefaultLogLevel    = "info"
	DefaultDataDir     = ".docuforge"
	DefaultWorkdirRoot = "/tmp/docuforge"

	// Default external tool commands (resolved via PATH unless absolute)
	DefaultFFmpegPath  = "ffmpeg"
	DefaultFFprobePath = "ffprobe"
	DefaultTTSPath     = "tts"

	// Shared color-grading lookup table location. Absence is not an error;
	// the planner silently skips grading when the file is missing.
	DefaultLUTPath = "/usr/local/share/luts/documentary.cube"

	// Per-stage timeouts, in seconds
	DefaultTimeoutRank      = 120
	DefaultTimeoutVoiceover = 300
	DefaultTimeoutAssemble  = 600
	DefaultTimeoutProbe     = 10

	// Environment variable names
	EnvPort        = "BRIDGE_PORT"
	EnvLogLevel    = "BRIDGE_LOG_LEVEL"
	EnvDataDir     = "BRIDGE_DATA_DIR"
	EnvWorkdirRoot = "BRIDGE_WORKDIR"
	EnvConfigFile  = "BRIDGE_CONFIG"
	EnvFFmpegPath  = "BRIDGE_FFMPEG"
	EnvFFprobePath = "BRIDGE_FFPROBE"
	EnvTTSPath     = "BRIDGE_TTS"
	EnvRankerCmd   = "BRIDGE_RANKER"
	EnvLUTPath     = "BRIDGE_LUT"

	// Database filename
	DBFilename = "bridge.db"
)

// Config holds the resolved bridge configuration. Fields carry toml tags so
// the same struct decodes the optional config file.
type Config struct {
	Port        int    `toml:"port"`
	LogLevel    string `toml:"log_level"`
	DataDir     string `toml:"data_dir"`
	WorkdirRoot string `toml:"workdir_root"`

	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
	TTSPath     string `toml:"tts_path"`
	// RankerCommand is the external relevance-ranking tool, given as a
	// command line (binary plus fixed leading arguments). The request JSON
	// is appended as the final argument. Empty disables the rank stage.
	RankerCommand string `toml:"ranker_command"`
	LUTPath       string `toml:"lut_path"`

	TimeoutRankS      int `toml:"timeout_rank_s"`
	TimeoutVoiceoverS int `toml:"timeout_voiceover_s"`
	TimeoutAssembleS  int `toml:"timeout_assemble_s"`
	TimeoutProbeS     int `toml:"timeout_probe_s"`
}

// Load builds a Config from defaults, the optional TOML file at path (or
// $BRIDGE_CONFIG when path is empty), and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort,
		LogLevel:          DefaultLogLevel,
		DataDir:           defaultDataDir(),
		WorkdirRoot:       DefaultWorkdirRoot,
		FFmpegPath:        DefaultFFmpegPath,
		FFprobePath:       DefaultFFprobePath,
		TTSPath:           DefaultTTSPath,
		LUTPath:           DefaultLUTPath,
		TimeoutRankS:      DefaultTimeoutRank,
		TimeoutVoiceoverS: DefaultTimeoutVoiceover,
		TimeoutAssembleS:  DefaultTimeoutAssemble,
		TimeoutProbeS:     DefaultTimeoutProbe,
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.LogLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.DataDir = dd
	}
	if wr := os.Getenv(EnvWorkdirRoot); wr != "" {
		cfg.WorkdirRoot = wr
	}
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv(EnvFFprobePath); v != "" {
		cfg.FFprobePath = v
	}
	if v := os.Getenv(EnvTTSPath); v != "" {
		cfg.TTSPath = v
	}
	if v := os.Getenv(EnvRankerCmd); v != "" {
		cfg.RankerCommand = v
	}
	if v := os.Getenv(EnvLUTPath); v != "" {
		cfg.LUTPath = v
	}
	return nil
}

// Validate checks the invariants the rest of the bridge relies on.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.WorkdirRoot == "" {
		return errors.New("workdir_root must not be empty")
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return errors.New("ffmpeg_path and ffprobe_path must not be empty")
	}
	for name, v := range map[string]int{
		"timeout_rank_s":      c.TimeoutRankS,
		"timeout_voiceover_s": c.TimeoutVoiceoverS,
		"timeout_assemble_s":  c.TimeoutAssembleS,
		"timeout_probe_s":     c.TimeoutProbeS,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

// DBPath returns the full path to the SQLite database file
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

func (c *Config) TimeoutRank() time.Duration {
	return time.Duration(c.TimeoutRankS) * time.Second
}

func (c *Config) TimeoutVoiceover() time.Duration {
	return time.Duration(c.TimeoutVoiceoverS) * time.Second
}

func (c *Config) TimeoutAssemble() time.Duration {
	return time.Duration(c.TimeoutAssembleS) * time.Second
}

func (c *Config) TimeoutProbe() time.Duration {
	return time.Duration(c.TimeoutProbeS) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

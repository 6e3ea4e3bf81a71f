package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config stores runtime configuration for the desk client.
type Config struct {
	Backend BackendConfig
	Audio   AudioConfig
	Rules   RulesConfig
	Session SessionConfig
	Store   StoreConfig
}

type BackendConfig struct {
	BaseURL        string        `env:"HERELAW_API_BASE" envDefault:"http://localhost:5000"`
	RequestTimeout time.Duration `env:"HERELAW_REQUEST_TIMEOUT" envDefault:"90s"`
	UploadTimeout  time.Duration `env:"HERELAW_UPLOAD_TIMEOUT" envDefault:"120s"`
}

type AudioConfig struct {
	RecorderCommand string `env:"HERELAW_FFMPEG_COMMAND" envDefault:"ffmpeg"`
	InputFormat     string `env:"HERELAW_AUDIO_INPUT_FORMAT" envDefault:"pulse"`
	InputDevice     string `env:"HERELAW_AUDIO_INPUT_DEVICE" envDefault:"default"`
	SampleRate      int    `env:"HERELAW_SAMPLE_RATE" envDefault:"16000"`
	Channels        int    `env:"HERELAW_CHANNELS" envDefault:"1"`
}

type RulesConfig struct {
	Path           string `env:"HERELAW_RULES_FILE"`
	IterationLimit int    `env:"HERELAW_RULE_ITERATION_LIMIT" envDefault:"30"`
}

type SessionConfig struct {
	ChunkSize      int           `env:"HERELAW_AUDIO_CHUNK_SIZE" envDefault:"4096"`
	StreamingGrace time.Duration `env:"HERELAW_STREAMING_GRACE" envDefault:"1s"`
}

type StoreConfig struct {
	CredentialsPath string `env:"HERELAW_CREDENTIALS_FILE"`
	ExportDir       string `env:"HERELAW_EXPORT_DIR"`
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000"
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.StreamingGrace < 0 {
		cfg.Session.StreamingGrace = 0
	}

	if cfg.Store.CredentialsPath == "" || cfg.Store.ExportDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("could not determine home directory: %w", err)
		}
		if cfg.Store.CredentialsPath == "" {
			cfg.Store.CredentialsPath = filepath.Join(home, ".config", "herelaw", "credentials.json")
		}
		if cfg.Store.ExportDir == "" {
			cfg.Store.ExportDir = filepath.Join(home, "Documents", "herelaw")
		}
	}

	return cfg, nil
}

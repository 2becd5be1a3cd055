// Package config loads PulseTrack settings with priority
// env > .env > YAML file > defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBConfig selects the remote row store
type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// B2Config holds Backblaze credentials for syllabus uploads
type B2Config struct {
	KeyID  string `yaml:"key_id"`
	AppKey string `yaml:"app_key"`
	Bucket string `yaml:"bucket"`
}

// Configured reports whether every credential is present.
func (b B2Config) Configured() bool {
	return b.KeyID != "" && b.AppKey != "" && b.Bucket != ""
}

// Config is the merged configuration
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	DB              DBConfig      `yaml:"db"`
	JWTSecret       string        `yaml:"jwt_secret"`
	LogLevel        string        `yaml:"log_level"`
	PrefsPath       string        `yaml:"prefs_path"`
	PersistTimeout  time.Duration `yaml:"persist_timeout"`
	Addr            string        `yaml:"addr"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	B2              B2Config      `yaml:"b2"`
}

// DefaultDir returns ~/.pulsetrack.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pulsetrack"), nil
}

// Default returns the built-in settings rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		DataDir:        dataDir,
		DB:             DBConfig{Driver: DriverSQLite, DSN: filepath.Join(dataDir, "pulsetrack.db")},
		LogLevel:       "warn",
		PrefsPath:      filepath.Join(dataDir, "prefs.db"),
		PersistTimeout: 10 * time.Second,
		Addr:           ":8080",
	}
}

// Load merges defaults, the YAML file at path, a .env file in the working
// directory and the environment. An empty path means
// ~/.pulsetrack/config.yaml, which may be absent; an explicit path must
// exist.
func Load(path string) (Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, "config.yaml")
	}
	if err := loadFile(path, explicit, &cfg); err != nil {
		return cfg, fmt.Errorf("load config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, mustExist bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.DB.Driver, "PULSETRACK_DB_DRIVER")
	set(&cfg.DB.DSN, "PULSETRACK_DB_DSN")
	set(&cfg.JWTSecret, "PULSETRACK_JWT_SECRET")
	set(&cfg.LogLevel, "PULSETRACK_LOG_LEVEL")
	set(&cfg.PrefsPath, "PULSETRACK_PREFS_PATH")
	set(&cfg.Addr, "PULSETRACK_ADDR")
	set(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	set(&cfg.B2.KeyID, "B2_KEY_ID")
	set(&cfg.B2.AppKey, "B2_APP_KEY")
	set(&cfg.B2.Bucket, "B2_BUCKET")

	if v := os.Getenv("PULSETRACK_PERSIST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PersistTimeout = d
		}
	}
}

// Validate checks the merged settings.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown db driver %q (want sqlite or postgres)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db dsn is required")
	}
	if c.DB.Driver == DriverPostgres && c.JWTSecret == "" {
		return errors.New("jwt_secret is required with the postgres driver")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("persist_timeout must be positive, got %s", c.PersistTimeout)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

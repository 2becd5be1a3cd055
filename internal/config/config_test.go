package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"PULSETRACK_DB_DRIVER", "PULSETRACK_DB_DSN", "PULSETRACK_JWT_SECRET",
		"PULSETRACK_LOG_LEVEL", "PULSETRACK_PREFS_PATH", "PULSETRACK_ADDR",
		"PULSETRACK_PERSIST_TIMEOUT", "ANTHROPIC_API_KEY",
		"B2_KEY_ID", "B2_APP_KEY", "B2_BUCKET",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	dir := filepath.Join(home, ".pulsetrack")
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, filepath.Join(dir, "pulsetrack.db"), cfg.DB.DSN)
	assert.Equal(t, filepath.Join(dir, "prefs.db"), cfg.PrefsPath)
	assert.Equal(t, 10*time.Second, cfg.PersistTimeout)
	assert.False(t, cfg.B2.Configured())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestFileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  driver: postgres
  dsn: postgres://localhost/pulsetrack
jwt_secret: from-file
log_level: debug
persist_timeout: 3s
b2:
  key_id: k
  app_key: a
  bucket: syllabi
`), 0o644))

	t.Setenv("PULSETRACK_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/pulsetrack", cfg.DB.DSN)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.PersistTimeout)
	assert.True(t, cfg.B2.Configured())
}

func TestDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("PULSETRACK_LOG_LEVEL=error\nANTHROPIC_API_KEY=sk-test\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("PULSETRACK_LOG_LEVEL")
		os.Unsetenv("ANTHROPIC_API_KEY")
	})
	// godotenv never overrides variables that are already set, even empty
	os.Unsetenv("PULSETRACK_LOG_LEVEL")
	os.Unsetenv("ANTHROPIC_API_KEY")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
}

func TestExplicitPathMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Default("/tmp/pt")

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "unknown db driver"},
		{"empty dsn", func(c *Config) { c.DB.DSN = "" }, "dsn is required"},
		{"postgres needs secret", func(c *Config) { c.DB.Driver = DriverPostgres }, "jwt_secret"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero timeout", func(c *Config) { c.PersistTimeout = 0 }, "persist_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

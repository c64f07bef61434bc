package config_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cmdcache/internal/config"
	"github.com/rshade/cmdcache/internal/engine/cache"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.CurrentVersion, cfg.Version)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, cache.Overrides{}, cfg.Cache.Overrides())

	every, ttl, err := cfg.Watch.Durations()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, every)
	assert.Equal(t, cache.DefaultTTL, ttl)
}

func TestLoadFile(t *testing.T) {
	path := writeOverlay(t, `
version: 1.2.0
cache:
  cleanup_interval_ms: 1000
  max_keys: 10
  window_size: 20
  interval_duration_ms: 30000
logging:
  level: warn
watch:
  every: 250ms
  ttl: 2s
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	ov := cfg.Cache.Overrides()
	require.NotNil(t, ov.CleanupInterval)
	assert.Equal(t, time.Second, *ov.CleanupInterval)
	require.NotNil(t, ov.MaxKeys)
	assert.Equal(t, 10, *ov.MaxKeys)
	require.NotNil(t, ov.WindowSize)
	assert.Equal(t, 20, *ov.WindowSize)
	require.NotNil(t, ov.IntervalDuration)
	assert.Equal(t, 30*time.Second, *ov.IntervalDuration)

	every, ttl, err := cfg.Watch.Durations()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, every)
	assert.Equal(t, 2*time.Second, ttl)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantMsg string
	}{
		{"future version", "version: 2.0.0\n", config.ErrUnsupportedConfigVersion, "supported"},
		{"old version", "version: 0.9.0\n", config.ErrUnsupportedConfigVersion, "0.9.0"},
		{"garbage version", "version: latest\n", config.ErrUnsupportedConfigVersion, "not a semantic version"},
		{"zero window", "cache:\n  window_size: 0\n", cache.ErrInvalidConfig, "windowSize"},
		{"negative cleanup", "cache:\n  cleanup_interval_ms: -5\n", cache.ErrInvalidConfig, "cleanupIntervalMs"},
		{"bad level", "logging:\n  level: loud\n", nil, "logging.level"},
		{"bad ttl", "watch:\n  ttl: never\n", nil, "watch.ttl"},
		{"zero every", "watch:\n  every: 0\n", cache.ErrInvalidTTL, "watch.every"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadFile(writeOverlay(t, tt.content))
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	envFile := func(p string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			if key == config.EnvConfigFile {
				return p, true
			}
			return "", false
		}
	}

	t.Run("missing default file uses defaults", func(t *testing.T) {
		cfg, path, err := config.Load("", envFile(filepath.Join(t.TempDir(), "absent.yaml")))
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("env file is read", func(t *testing.T) {
		p := writeOverlay(t, "logging:\n  level: error\n")
		cfg, path, err := config.Load("", envFile(p))
		require.NoError(t, err)
		assert.Equal(t, p, path)
		assert.Equal(t, "error", cfg.Logging.Level)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), envFile(""))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDefaultPath(t *testing.T) {
	t.Run("lookup wins over process env", func(t *testing.T) {
		t.Setenv(config.EnvConfigFile, "/from/process.yaml")
		lookup := func(key string) (string, bool) {
			if key == config.EnvConfigFile {
				return "/from/lookup.yaml", true
			}
			return "", false
		}

		path, err := config.DefaultPath(lookup)
		require.NoError(t, err)
		assert.Equal(t, "/from/lookup.yaml", path)
	})

	t.Run("unset falls back to home", func(t *testing.T) {
		t.Setenv(config.EnvConfigFile, "/from/process.yaml")
		home := t.TempDir()
		t.Setenv("HOME", home)

		path, err := config.DefaultPath(func(string) (string, bool) { return "", false })
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".cmdcache", "config.yaml"), path)
	})

	t.Run("nil lookup reads process env", func(t *testing.T) {
		t.Setenv(config.EnvConfigFile, "/from/process.yaml")

		path, err := config.DefaultPath(nil)
		require.NoError(t, err)
		assert.Equal(t, "/from/process.yaml", path)
	})
}

func TestLogFilePath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cmdcache.log")
	require.NoError(t, config.InitLogger(config.LoggingConfig{Level: "info", File: logPath}, io.Discard))
	assert.Equal(t, logPath, config.LogFilePath())

	config.CloseLogFile()
	assert.Empty(t, config.LogFilePath())
}

func TestKeyLimit_MarshalRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(config.CacheSection{MaxKeys: &config.KeyLimit{Unlimited: true}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_keys: unlimited")

	out, err = yaml.Marshal(config.CacheSection{MaxKeys: &config.KeyLimit{N: 7}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_keys: 7")
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(config.CloseLogFile)

	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "cmdcache.log")

	require.NoError(t, config.InitLogger(config.LoggingConfig{Level: "debug", File: logPath}, &console))

	logger := config.GetLogger()
	logger.Debug().Str("component", "test").Msg("hello file")

	assert.Contains(t, console.String(), "hello file")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello file"`)

	config.SetLogLevel("warn")
	console.Reset()
	logger = config.GetLogger()
	logger.Info().Msg("suppressed")
	assert.Empty(t, console.String())
}

func TestInitLogger_BadLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, config.InitLogger(config.LoggingConfig{Level: "chatty"}, &console))

	logger := config.GetLogger()
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envMap returns a lookup func backed by m.
func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := ResolveConfig(noEnv, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.True(t, cfg.Unlimited())
	assert.Equal(t, "unlimited", cfg.MaxKeysString())
	assert.Equal(t, 100, cfg.WindowSize)
	assert.Equal(t, time.Minute, cfg.IntervalDuration)
}

func TestResolveConfig_EnvOverrides(t *testing.T) {
	env := envMap(map[string]string{
		EnvCleanupInterval:  "5000",
		EnvMaxKeys:          "50",
		EnvWindowSize:       "25",
		EnvIntervalDuration: "1000",
	})

	cfg, err := ResolveConfig(env, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 50, cfg.MaxKeys)
	assert.Equal(t, "50", cfg.MaxKeysString())
	assert.Equal(t, 25, cfg.WindowSize)
	assert.Equal(t, time.Second, cfg.IntervalDuration)
}

func TestResolveConfig_ExplicitWins(t *testing.T) {
	env := envMap(map[string]string{
		EnvMaxKeys:    "50",
		EnvWindowSize: "25",
	})

	c, err := New(WithoutJanitor(), WithLookupEnv(env), WithWindowSize(7), WithUnlimitedKeys())
	require.NoError(t, err)
	defer c.Destroy()

	assert.Equal(t, 7, c.Config().WindowSize)
	assert.True(t, c.Config().Unlimited())
}

func TestResolveConfig_ProcessEnv(t *testing.T) {
	t.Setenv(EnvWindowSize, "12")
	t.Setenv(EnvMaxKeys, "unlimited")

	cfg, err := ResolveConfig(nil, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.WindowSize)
	assert.True(t, cfg.Unlimited())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		env     map[string]string
		wantMsg string
	}{
		{"zero cleanup interval", []Option{WithCleanupInterval(0)}, nil, "cleanupIntervalMs"},
		{"negative cleanup interval", []Option{WithCleanupInterval(-time.Second)}, nil, "cleanupIntervalMs"},
		{"zero max keys", []Option{WithMaxKeys(0)}, nil, "maxKeys"},
		{"negative max keys", []Option{WithMaxKeys(-3)}, nil, "maxKeys"},
		{"zero window", []Option{WithWindowSize(0)}, nil, "windowSize"},
		{"zero interval duration", []Option{WithIntervalDuration(0)}, nil, "intervalDuration"},
		{"env zero max keys", nil, map[string]string{EnvMaxKeys: "0"}, "maxKeys"},
		{"env negative window", nil, map[string]string{EnvWindowSize: "-1"}, "windowSize"},
		{"env malformed", nil, map[string]string{EnvCleanupInterval: "soon"}, EnvCleanupInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithoutJanitor(), WithLookupEnv(envMap(tt.env))}, tt.opts...)
			c, err := New(opts...)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNew_ExplicitFixesInvalidEnv(t *testing.T) {
	env := envMap(map[string]string{EnvWindowSize: "0"})
	c, err := New(WithoutJanitor(), WithLookupEnv(env), WithWindowSize(3))
	require.NoError(t, err)
	defer c.Destroy()
	assert.Equal(t, 3, c.Config().WindowSize)
}

func TestParseMaxKeys(t *testing.T) {
	o, err := ParseMaxKeys(" Unlimited ")
	require.NoError(t, err)
	assert.True(t, o.UnlimitedKeys)

	o, err = ParseMaxKeys("8")
	require.NoError(t, err)
	require.NotNil(t, o.MaxKeys)
	assert.Equal(t, 8, *o.MaxKeys)

	_, err = ParseMaxKeys("0")
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseMaxKeys("lots")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOverridesMerge(t *testing.T) {
	five := 5
	base := Overrides{UnlimitedKeys: true}
	merged := base.Merge(Overrides{MaxKeys: &five})

	assert.False(t, merged.UnlimitedKeys)
	require.NotNil(t, merged.MaxKeys)
	assert.Equal(t, 5, *merged.MaxKeys)

	merged = merged.Merge(Overrides{UnlimitedKeys: true})
	assert.True(t, merged.UnlimitedKeys)
	assert.Nil(t, merged.MaxKeys)
}

func TestCacheEnabledFromEnv(t *testing.T) {
	tests := []struct {
		value string
		set   bool
		want  bool
	}{
		{"", false, true},
		{"1", true, true},
		{"true", true, true},
		{"0", true, false},
		{"false", true, false},
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			env := map[string]string{}
			if tt.set {
				env[EnvEnableCache] = tt.value
			}
			assert.Equal(t, tt.want, CacheEnabledFromEnv(envMap(env)))
		})
	}
}

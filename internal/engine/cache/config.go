package cache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration defaults.
const (
	// DefaultCleanupInterval is the default janitor period.
	DefaultCleanupInterval = 30 * time.Second

	// DefaultWindowSize is the default number of lookups in the rolling window.
	DefaultWindowSize = 100

	// DefaultIntervalDuration is the default length of a statistics interval.
	DefaultIntervalDuration = time.Minute

	// DefaultTTL is the TTL used by SetDefault.
	DefaultTTL = 15 * time.Second

	// UnlimitedKeys is the MaxKeys value that disables LRU eviction.
	UnlimitedKeys = 0

	// unlimitedKeyword is accepted wherever a key limit is read from text.
	unlimitedKeyword = "unlimited"
)

// Environment variables overriding the defaults.
const (
	// EnvCleanupInterval overrides the janitor period in milliseconds.
	EnvCleanupInterval = "CMDCACHE_CLEANUP_INTERVAL_MS"

	// EnvMaxKeys overrides the key limit ("unlimited" or a positive integer).
	EnvMaxKeys = "CMDCACHE_MAX_KEYS"

	// EnvWindowSize overrides the rolling window length.
	EnvWindowSize = "CMDCACHE_WINDOW_SIZE"

	// EnvIntervalDuration overrides the statistics interval length in milliseconds.
	EnvIntervalDuration = "CMDCACHE_INTERVAL_DURATION_MS"

	// EnvEnableCache switches caching on or off for the CLI.
	EnvEnableCache = "CMDCACHE_ENABLE_CACHE"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Config is the resolved, immutable configuration of a Cache.
type Config struct {
	// CleanupInterval is the janitor period.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// MaxKeys bounds the number of entries; UnlimitedKeys disables the bound.
	MaxKeys int `json:"max_keys"`

	// WindowSize is the rolling window length.
	WindowSize int `json:"window_size"`

	// IntervalDuration is the statistics interval length.
	IntervalDuration time.Duration `json:"interval_duration"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:  DefaultCleanupInterval,
		MaxKeys:          UnlimitedKeys,
		WindowSize:       DefaultWindowSize,
		IntervalDuration: DefaultIntervalDuration,
	}
}

// Unlimited reports whether LRU eviction is disabled.
func (c Config) Unlimited() bool {
	return c.MaxKeys == UnlimitedKeys
}

// Validate checks every field and returns the first violation.
func (c Config) Validate() error {
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanupIntervalMs must be positive, got %d",
			ErrInvalidConfig, c.CleanupInterval.Milliseconds())
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("%w: maxKeys must be positive or unlimited, got %d", ErrInvalidConfig, c.MaxKeys)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: windowSize must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.IntervalDuration <= 0 {
		return fmt.Errorf("%w: intervalDuration must be positive, got %d",
			ErrInvalidConfig, c.IntervalDuration.Milliseconds())
	}
	return nil
}

// MaxKeysString renders MaxKeys for display.
func (c Config) MaxKeysString() string {
	if c.Unlimited() {
		return unlimitedKeyword
	}
	return strconv.Itoa(c.MaxKeys)
}

// Overrides holds optional values layered on top of the defaults.
// A nil field leaves the lower layer untouched.
type Overrides struct {
	CleanupInterval  *time.Duration
	MaxKeys          *int
	UnlimitedKeys    bool
	WindowSize       *int
	IntervalDuration *time.Duration
}

// apply layers o onto cfg. An explicit key limit must be positive; zero is only
// reachable through UnlimitedKeys.
func (o Overrides) apply(cfg Config) (Config, error) {
	if o.CleanupInterval != nil {
		cfg.CleanupInterval = *o.CleanupInterval
	}
	switch {
	case o.UnlimitedKeys:
		cfg.MaxKeys = UnlimitedKeys
	case o.MaxKeys != nil:
		if *o.MaxKeys <= 0 {
			return cfg, fmt.Errorf("%w: maxKeys must be positive or unlimited, got %d", ErrInvalidConfig, *o.MaxKeys)
		}
		cfg.MaxKeys = *o.MaxKeys
	}
	if o.WindowSize != nil {
		cfg.WindowSize = *o.WindowSize
	}
	if o.IntervalDuration != nil {
		cfg.IntervalDuration = *o.IntervalDuration
	}
	return cfg, nil
}

// Merge returns o with every field set in next taking precedence.
func (o Overrides) Merge(next Overrides) Overrides {
	if next.CleanupInterval != nil {
		o.CleanupInterval = next.CleanupInterval
	}
	if next.UnlimitedKeys {
		o.UnlimitedKeys = true
		o.MaxKeys = nil
	} else if next.MaxKeys != nil {
		o.UnlimitedKeys = false
		o.MaxKeys = next.MaxKeys
	}
	if next.WindowSize != nil {
		o.WindowSize = next.WindowSize
	}
	if next.IntervalDuration != nil {
		o.IntervalDuration = next.IntervalDuration
	}
	return o
}

// OverridesFromEnv reads the CMDCACHE_* variables through lookupEnv.
// A set but malformed variable is an error rather than silently ignored.
func OverridesFromEnv(lookupEnv func(string) (string, bool)) (Overrides, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	var o Overrides
	var err error

	if o.CleanupInterval, err = envMillis(lookupEnv, EnvCleanupInterval); err != nil {
		return o, err
	}
	if o.WindowSize, err = envInt(lookupEnv, EnvWindowSize); err != nil {
		return o, err
	}
	if o.IntervalDuration, err = envMillis(lookupEnv, EnvIntervalDuration); err != nil {
		return o, err
	}

	if v, ok := lookupEnv(EnvMaxKeys); ok && strings.TrimSpace(v) != "" {
		if strings.EqualFold(strings.TrimSpace(v), unlimitedKeyword) {
			o.UnlimitedKeys = true
		} else if o.MaxKeys, err = envInt(lookupEnv, EnvMaxKeys); err != nil {
			return o, err
		}
	}

	return o, nil
}

// ParseMaxKeys parses "unlimited" or a positive integer.
func ParseMaxKeys(s string) (Overrides, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, unlimitedKeyword) {
		return Overrides{UnlimitedKeys: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Overrides{}, fmt.Errorf("%w: maxKeys %q is not a number", ErrInvalidConfig, s)
	}
	if n <= 0 {
		return Overrides{}, fmt.Errorf("%w: maxKeys must be positive or unlimited, got %d", ErrInvalidConfig, n)
	}
	return Overrides{MaxKeys: &n}, nil
}

// ResolveConfig merges defaults, environment and explicit overrides (explicit wins)
// and validates the result.
func ResolveConfig(lookupEnv func(string) (string, bool), explicit Overrides) (Config, error) {
	env, err := OverridesFromEnv(lookupEnv)
	if err != nil {
		return Config{}, err
	}

	cfg, err := env.Merge(explicit).apply(DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CacheEnabledFromEnv reads EnvEnableCache. Caching is on unless the variable
// parses as false.
func CacheEnabledFromEnv(lookupEnv func(string) (string, bool)) bool {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	v, ok := lookupEnv(EnvEnableCache)
	if !ok || v == "" {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return enabled
}

func envInt(lookupEnv func(string) (string, bool), name string) (*int, error) {
	v, ok := lookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil //nolint:nilnil // Unset variable is not an error.
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, name, v)
	}
	return &n, nil
}

func envMillis(lookupEnv func(string) (string, bool), name string) (*time.Duration, error) {
	n, err := envInt(lookupEnv, name)
	if err != nil || n == nil {
		return nil, err
	}
	d := time.Duration(*n) * time.Millisecond
	return &d, nil
}

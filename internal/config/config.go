package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cmdcache/internal/engine/cache"
)

const (
	// CurrentVersion is written by `config show` and assumed when a file omits version.
	CurrentVersion = "1.0.0"

	// supportedVersions is the range of config file versions this build understands.
	supportedVersions = ">= 1.0.0, < 2.0.0"

	// EnvConfigFile points at an alternative config file.
	EnvConfigFile = "CMDCACHE_CONFIG"

	defaultDirName  = ".cmdcache"
	defaultFileName = "config.yaml"

	defaultWatchEvery = "5s"
)

// ErrUnsupportedConfigVersion is returned when the version field is outside the supported range.
var ErrUnsupportedConfigVersion = errors.New("unsupported config version")

// FileConfig is the on-disk configuration for the cmdcache CLI.
type FileConfig struct {
	Version string        `yaml:"version,omitempty"`
	Cache   CacheSection  `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchSection  `yaml:"watch"`
}

// CacheSection mirrors cache.Config. Unset fields fall through to the
// environment and the built-in defaults.
type CacheSection struct {
	Enabled            *bool     `yaml:"enabled,omitempty"`
	CleanupIntervalMs  *int      `yaml:"cleanup_interval_ms,omitempty"`
	MaxKeys            *KeyLimit `yaml:"max_keys,omitempty"`
	WindowSize         *int      `yaml:"window_size,omitempty"`
	IntervalDurationMs *int      `yaml:"interval_duration_ms,omitempty"`
}

// KeyLimit is a positive key count or the literal "unlimited".
type KeyLimit struct {
	Unlimited bool
	N         int
}

// UnmarshalYAML accepts `max_keys: 500` and `max_keys: unlimited`.
func (k *KeyLimit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("max_keys must be a number or %q (line %d)", "unlimited", node.Line)
	}
	ov, err := cache.ParseMaxKeys(node.Value)
	if err != nil {
		return err
	}
	if ov.UnlimitedKeys {
		*k = KeyLimit{Unlimited: true}
		return nil
	}
	*k = KeyLimit{N: *ov.MaxKeys}
	return nil
}

// MarshalYAML writes the limit back in the form UnmarshalYAML reads.
func (k KeyLimit) MarshalYAML() (any, error) {
	if k.Unlimited {
		return "unlimited", nil
	}
	return k.N, nil
}

// Overrides converts the section into cache overrides.
func (s CacheSection) Overrides() cache.Overrides {
	var ov cache.Overrides
	if s.CleanupIntervalMs != nil {
		d := time.Duration(*s.CleanupIntervalMs) * time.Millisecond
		ov.CleanupInterval = &d
	}
	if s.MaxKeys != nil {
		if s.MaxKeys.Unlimited {
			ov.UnlimitedKeys = true
		} else {
			n := s.MaxKeys.N
			ov.MaxKeys = &n
		}
	}
	if s.WindowSize != nil {
		n := *s.WindowSize
		ov.WindowSize = &n
	}
	if s.IntervalDurationMs != nil {
		d := time.Duration(*s.IntervalDurationMs) * time.Millisecond
		ov.IntervalDuration = &d
	}
	return ov
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// WatchSection holds defaults for `cmdcache watch`. Values use ParseTTL syntax.
type WatchSection struct {
	Every string `yaml:"every,omitempty"`
	TTL   string `yaml:"ttl,omitempty"`
}

// Durations parses Every and TTL.
func (w WatchSection) Durations() (time.Duration, time.Duration, error) {
	every, err := cache.ParseTTL(w.Every)
	if err != nil {
		return 0, 0, fmt.Errorf("watch.every: %w", err)
	}
	ttl, err := cache.ParseTTL(w.TTL)
	if err != nil {
		return 0, 0, fmt.Errorf("watch.ttl: %w", err)
	}
	return every, ttl, nil
}

// Default returns the configuration used when no file is present.
func Default() *FileConfig {
	return &FileConfig{
		Version: CurrentVersion,
		Logging: LoggingConfig{Level: zerolog.InfoLevel.String()},
		Watch: WatchSection{
			Every: defaultWatchEvery,
			TTL:   cache.DefaultTTL.String(),
		},
	}
}

// DefaultPath returns $CMDCACHE_CONFIG, read through lookupEnv, or
// ~/.cmdcache/config.yaml. A nil lookupEnv reads the process environment.
func DefaultPath(lookupEnv func(string) (string, bool)) (string, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if p, ok := lookupEnv(EnvConfigFile); ok && p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (*FileConfig, error) {
	cfg := Default()
	if err := ShallowMergeYAML(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the config file to use. An explicit path must exist; the
// default location is optional. It returns the path actually read, or "" when
// running on defaults.
func Load(explicit string, lookupEnv func(string) (string, bool)) (*FileConfig, string, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		return cfg, explicit, err
	}

	path, err := DefaultPath(lookupEnv)
	if err != nil {
		return nil, "", err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	return cfg, path, err
}

// Validate checks the version range and every section.
func (c *FileConfig) Validate() error {
	if err := checkVersion(c.Version); err != nil {
		return err
	}

	noEnv := func(string) (string, bool) { return "", false }
	if _, err := cache.ResolveConfig(noEnv, c.Cache.Overrides()); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if _, _, err := c.Watch.Durations(); err != nil {
		return err
	}
	return nil
}

// CacheEnabled reports the file's enable switch, defaulting to on.
func (c *FileConfig) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version", ErrUnsupportedConfigVersion, v)
	}
	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("%w: %s (supported %s)", ErrUnsupportedConfigVersion, v, supportedVersions)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyVersion = "version"
	keyCache   = "cache"
	keyLogging = "logging"
	keyWatch   = "watch"
)

// knownTopLevelKeys lists the YAML keys that correspond to FileConfig fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyVersion: true,
	keyCache:   true,
	keyLogging: true,
	keyWatch:   true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// target. Keys present in the file replace entire sections; keys absent are
// left unchanged. Empty watch durations and logging level fall back to the
// defaults so a partial section stays usable.
func ShallowMergeYAML(target *FileConfig, path string) error {
	if target == nil {
		return errors.New("nil target *FileConfig in ShallowMergeYAML")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var overlay map[string]any
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config YAML from %s: %w", path, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling config section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes one section into a fresh value so the section is
// replaced rather than merged field by field.
func unmarshalSection(target *FileConfig, key string, data []byte) error {
	defaults := Default()

	switch key {
	case keyVersion:
		var v string
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Version = v
		return nil
	case keyCache:
		var v CacheSection
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Cache = v
		return nil
	case keyLogging:
		var v LoggingConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		if v.Level == "" {
			v.Level = defaults.Logging.Level
		}
		target.Logging = v
		return nil
	case keyWatch:
		var v WatchSection
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		if v.Every == "" {
			v.Every = defaults.Watch.Every
		}
		if v.TTL == "" {
			v.TTL = defaults.Watch.TTL
		}
		target.Watch = v
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

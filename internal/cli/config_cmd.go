package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cmdcache/internal/config"
	"github.com/rshade/cmdcache/internal/engine/cache"
)

const (
	sourceDefault = "default"
	sourceEnv     = "env"
	sourceFile    = "file"
)

// newConfigCmd creates the config command group.
func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigShowCmd(s), newConfigValidateCmd(s))
	return cmd
}

// newConfigShowCmd prints the effective cache configuration and where each value came from.
func newConfigShowCmd(s *session) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved cache configuration",
		Example: `  cmdcache config show
  CMDCACHE_MAX_KEYS=50 cmdcache config show
  cmdcache config show --yaml > ~/.cmdcache/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asYAML {
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(s.file)
			}
			return runConfigShow(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the loaded config file contents as YAML")
	return cmd
}

func runConfigShow(w io.Writer, s *session) error {
	env, err := cache.OverridesFromEnv(s.deps.LookupEnv)
	if err != nil {
		return err
	}
	file := s.file.Cache.Overrides()
	resolved, err := cache.ResolveConfig(s.deps.LookupEnv, file)
	if err != nil {
		return err
	}

	path := s.configPath
	if path == "" {
		path = "(none, using defaults)"
	}

	enabledSource := sourceDefault
	switch {
	case s.file.Cache.Enabled != nil:
		enabledSource = sourceFile
	case hasEnv(s.deps.LookupEnv, cache.EnvEnableCache):
		enabledSource = sourceEnv
	}
	enabled := cache.CacheEnabledFromEnv(s.deps.LookupEnv)
	if s.file.Cache.Enabled != nil {
		enabled = *s.file.Cache.Enabled
	}

	rows := []struct {
		name, value, source string
	}{
		{"enabled", fmt.Sprint(enabled), enabledSource},
		{"cleanup_interval", cache.FormatDuration(resolved.CleanupInterval),
			source(env.CleanupInterval != nil, file.CleanupInterval != nil)},
		{"max_keys", resolved.MaxKeysString(),
			source(env.MaxKeys != nil || env.UnlimitedKeys, file.MaxKeys != nil || file.UnlimitedKeys)},
		{"window_size", fmt.Sprint(resolved.WindowSize),
			source(env.WindowSize != nil, file.WindowSize != nil)},
		{"interval_duration", cache.FormatDuration(resolved.IntervalDuration),
			source(env.IntervalDuration != nil, file.IntervalDuration != nil)},
	}

	if _, err = fmt.Fprintf(w, "Config file: %s\n\ncache:\n", path); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err = fmt.Fprintf(w, "  %-18s %-12s (%s)\n", r.name+":", r.value, r.source); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "\nwatch:\n  every: %s\n  ttl:   %s\n\nlogging:\n  level: %s\n",
		s.file.Watch.Every, s.file.Watch.TTL, s.file.Logging.Level)
	return err
}

func source(fromEnv, fromFile bool) string {
	switch {
	case fromFile:
		return sourceFile
	case fromEnv:
		return sourceEnv
	default:
		return sourceDefault
	}
}

func hasEnv(lookupEnv func(string) (string, bool), name string) bool {
	v, ok := lookupEnv(name)
	return ok && v != ""
}

// newConfigValidateCmd validates a config file without running anything.
func newConfigValidateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a configuration file",
		Long: `Validates FILE, or the file named by --config / $CMDCACHE_CONFIG /
~/.cmdcache/config.yaml, for syntax, version compatibility and value ranges.`,
		Example: `  cmdcache config validate
  cmdcache config validate ./cmdcache.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}

			_, used, err := config.Load(path, s.deps.LookupEnv)
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			if used == "" {
				cmd.Println("No configuration file found; defaults are valid")
				return nil
			}
			cmd.Printf("Configuration is valid: %s\n", used)
			return nil
		},
	}
}

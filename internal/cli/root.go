package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/cmdcache/internal/config"
	"github.com/rshade/cmdcache/internal/engine/cache"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// Deps are the process-level collaborators of the CLI, replaceable in tests.
type Deps struct {
	LookupEnv func(string) (string, bool)
	Runner    Runner
}

// session is the state shared by subcommands for one invocation.
type session struct {
	deps       Deps
	file       *config.FileConfig
	configPath string
	caches     *cache.Registry
}

// NewRootCmd creates the root Cobra command for the cmdcache CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithDeps(ver, Deps{})
}

// NewRootCmdWithDeps creates the root command with explicit dependencies for testability.
func NewRootCmdWithDeps(ver string, deps Deps) *cobra.Command {
	if deps.LookupEnv == nil {
		deps.LookupEnv = os.LookupEnv
	}
	s := &session{
		deps:   deps,
		caches: cache.NewRegistry(cache.WithLookupEnv(deps.LookupEnv)),
	}

	cmd := &cobra.Command{
		Use:           "cmdcache",
		Short:         "Run commands through a TTL/LRU output cache",
		Long:          "cmdcache: serve repeated command output from an in-memory cache with hit-rate statistics",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configFlag, _ := cmd.Flags().GetString("config")
			file, path, err := config.Load(configFlag, s.deps.LookupEnv)
			if err != nil {
				return err
			}
			s.file = file
			s.configPath = path

			return setupLogging(cmd, file.Logging)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			cleanupLogging()
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $CMDCACHE_CONFIG or ~/.cmdcache/config.yaml)")
	cmd.PersistentFlags().String("log-file", "", "also append JSON logs to this file")
	cmd.AddCommand(newWatchCmd(s), newConfigCmd(s), newVersionCmd(ver))

	return cmd
}

// Execute runs cmd and closes the log file afterwards. PersistentPostRunE is
// skipped when a command fails, so the file is released here as well.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	defer cleanupLogging()
	return cmd.ExecuteContext(ctx)
}

const rootCmdExample = `  # Re-run "kubectl get pods" every 5s, serving cached output for 15s
  cmdcache watch --every 5s --ttl 15s -- kubectl get pods

  # Run three polls and print cache statistics at the end
  cmdcache watch --every 1s --ttl 10s --count 3 --stats -- git status --short

  # Live dashboard with Prometheus metrics on :9090
  cmdcache watch --tui --metrics-addr :9090 -- df -h

  # Show the resolved cache configuration
  cmdcache config show`

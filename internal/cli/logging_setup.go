package cli

import (
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/rshade/cmdcache/internal/config"
)

// setupLogging configures logging based on config file and CLI flags, then
// stores a logger carrying a fresh trace id in the command context.
func setupLogging(cmd *cobra.Command, loggingCfg config.LoggingConfig) error {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
	}
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		loggingCfg.File = logFile
	}

	if err := config.InitLogger(loggingCfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	traceID := ulid.Make().String()
	logger = config.GetLogger().With().
		Str("component", "cli").
		Str("trace_id", traceID).
		Logger()

	cmd.SetContext(logger.WithContext(cmd.Context()))

	logger.Debug().Str("command", cmd.Name()).Msg("command started")
	return nil
}

// cleanupLogging closes the log file handle, if any.
func cleanupLogging() {
	config.CloseLogFile()
}

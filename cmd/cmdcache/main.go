// Command cmdcache runs shell commands through an in-memory TTL/LRU output cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/cmdcache/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // Set by the linker.

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.NewRootCmd(version))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps err to a process exit code. A failed watched command
// propagates its own status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *cli.CommandExitError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 1
}

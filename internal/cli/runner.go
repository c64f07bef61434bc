package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when watch is invoked without a command to run.
var ErrNoCommand = errors.New("no command given; pass it after --")

// CommandExitError carries the exit status of a watched command that failed,
// so main can exit with the same code.
type CommandExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// execRunner runs commands with os/exec. Stderr is forwarded to errOut as
// well as captured for error reporting.
type execRunner struct {
	errOut io.Writer
}

func (r execRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", ErrNoCommand
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // Running the user's command is the point.
	c.Stdout = &stdout
	c.Stderr = &stderr
	if r.errOut != nil {
		c.Stderr = io.MultiWriter(&stderr, r.errOut)
	}

	err := c.Run()
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return stdout.String(), &CommandExitError{
			Command:  commandLine(argv),
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}
	return stdout.String(), fmt.Errorf("running %q: %w", commandLine(argv), err)
}

// commandLine is the cache key form of argv.
func commandLine(argv []string) string {
	return strings.Join(argv, " ")
}

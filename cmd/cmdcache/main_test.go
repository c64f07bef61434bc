package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rshade/cmdcache/internal/cli"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error returns 0", nil, 0},
		{"generic error returns 1", errors.New("boom"), 1},
		{"command exit code propagates", &cli.CommandExitError{Command: "make", ExitCode: 2}, 2},
		{"wrapped command exit code", fmt.Errorf("watch: %w", &cli.CommandExitError{ExitCode: 42}), 42},
		{"joined command exit code", errors.Join(errors.New("outer"), &cli.CommandExitError{ExitCode: 3}), 3},
		{"no command is a usage error", cli.ErrNoCommand, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRootCommand(t *testing.T) {
	root := cli.NewRootCmd(version)
	assert.Equal(t, "cmdcache", root.Use)
	assert.Equal(t, version, root.Version)
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cmdcache/internal/config"
	"github.com/rshade/cmdcache/internal/engine/cache"
)

// fakeRunner records invocations and returns a canned result.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	output string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, argv)
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// executeCmd runs the root command with args and returns stdout and stderr.
// Unless the test sets it, CMDCACHE_CONFIG points at a missing file.
func executeCmd(t *testing.T, deps Deps, args ...string) (string, string, error) {
	t.Helper()
	lookup := deps.LookupEnv
	if lookup == nil {
		lookup = envMap(nil)
	}
	absent := filepath.Join(t.TempDir(), "absent.yaml")
	deps.LookupEnv = func(key string) (string, bool) {
		if v, ok := lookup(key); ok || key != config.EnvConfigFile {
			return v, ok
		}
		return absent, true
	}

	root := NewRootCmdWithDeps("test", deps)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := Execute(context.Background(), root)
	return stdout.String(), stderr.String(), err
}

func TestWatch_ServesFromCacheWithinTTL(t *testing.T) {
	runner := &fakeRunner{output: "hi\n"}

	stdout, _, err := executeCmd(t, Deps{Runner: runner},
		"watch", "--every", "1ms", "--ttl", "1h", "--count", "3", "--", "echo", "hi")
	require.NoError(t, err)

	assert.Equal(t, 1, runner.count())
	assert.Equal(t, []string{"echo", "hi"}, runner.calls[0])
	assert.Equal(t, "hi\nhi\nhi\n", stdout)
}

func TestWatch_RerunsAfterTTL(t *testing.T) {
	runner := &fakeRunner{output: "x\n"}

	_, _, err := executeCmd(t, Deps{Runner: runner},
		"watch", "--every", "20ms", "--ttl", "1ms", "--count", "3", "--", "date")
	require.NoError(t, err)

	assert.Equal(t, 3, runner.count())
}

func TestWatch_CacheDisabled(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"env switch", map[string]string{cache.EnvEnableCache: "false"}, nil},
		{"no-cache flag", nil, []string{"--no-cache"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{output: "x\n"}
			args := append([]string{"watch", "--every", "1ms", "--ttl", "1h", "--count", "3"}, tt.args...)
			args = append(args, "--", "date")

			_, _, err := executeCmd(t, Deps{Runner: runner, LookupEnv: envMap(tt.env)}, args...)
			require.NoError(t, err)
			assert.Equal(t, 3, runner.count())
		})
	}
}

func TestWatch_NoCacheFlagFalseOverridesEnv(t *testing.T) {
	runner := &fakeRunner{output: "x\n"}
	env := envMap(map[string]string{cache.EnvEnableCache: "0"})

	_, _, err := executeCmd(t, Deps{Runner: runner, LookupEnv: env},
		"watch", "--every", "1ms", "--ttl", "1h", "--count", "3", "--no-cache=false", "--", "date")
	require.NoError(t, err)
	assert.Equal(t, 1, runner.count())
}

func TestWatch_Stats(t *testing.T) {
	runner := &fakeRunner{output: "ok\n"}

	stdout, _, err := executeCmd(t, Deps{Runner: runner},
		"watch", "--every", "1ms", "--ttl", "1h", "--count", "3", "--stats", "--max-keys", "5", "--", "uptime")
	require.NoError(t, err)

	assert.Contains(t, stdout, statsTitle)
	assert.Contains(t, stdout, "2 / 1")
	assert.Contains(t, stdout, "66.67%")
	assert.Contains(t, stdout, "(max 5)")
}

func TestWatch_CommandFailure(t *testing.T) {
	runner := &fakeRunner{err: &CommandExitError{Command: "false", ExitCode: 4}}

	_, _, err := executeCmd(t, Deps{Runner: runner}, "watch", "--count", "2", "--", "false")
	require.Error(t, err)

	var exitErr *CommandExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 4, exitErr.ExitCode)
	assert.Equal(t, 1, runner.count())
}

func TestWatch_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{"no command", []string{"watch"}, ErrNoCommand, "no command"},
		{"bad ttl", []string{"watch", "--ttl", "soon", "--", "ls"}, nil, "--ttl"},
		{"zero every", []string{"watch", "--every", "0", "--", "ls"}, cache.ErrInvalidTTL, "--every"},
		{"negative count", []string{"watch", "--count", "-1", "--", "ls"}, nil, "--count"},
		{"zero max keys", []string{"watch", "--max-keys", "0", "--", "ls"}, cache.ErrInvalidConfig, "--max-keys"},
		{"zero window", []string{"watch", "--window-size", "0", "--", "ls"}, cache.ErrInvalidConfig, "windowSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			_, _, err := executeCmd(t, Deps{Runner: runner}, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, runner.count())
		})
	}
}

func TestWatch_InvalidEnvFailsConstruction(t *testing.T) {
	env := envMap(map[string]string{cache.EnvWindowSize: "lots"})

	_, _, err := executeCmd(t, Deps{Runner: &fakeRunner{}, LookupEnv: env}, "watch", "--count", "1", "--", "ls")
	require.ErrorIs(t, err, cache.ErrInvalidConfig)
}

func TestWatch_ConfigFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  enabled: false\n"), 0o600))
	env := envMap(map[string]string{config.EnvConfigFile: path})

	runner := &fakeRunner{output: "x\n"}
	_, _, err := executeCmd(t, Deps{Runner: runner, LookupEnv: env},
		"watch", "--every", "1ms", "--count", "2", "--", "ls")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.count(), "cache disabled by file named in env")
}

func TestWatch_TearsDownSharedCache(t *testing.T) {
	env := envMap(nil)
	s := &session{
		deps:   Deps{Runner: &fakeRunner{output: "x\n"}, LookupEnv: env},
		file:   config.Default(),
		caches: cache.NewRegistry(cache.WithLookupEnv(env)),
	}

	cmd := newWatchCmd(s)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--every", "1ms", "--ttl", "1h", "--count", "2", "--", "ls"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "x\nx\n", stdout.String())
	assert.Equal(t, 1, s.deps.Runner.(*fakeRunner).count())
	assert.False(t, s.caches.Active())
}

func TestWatch_FailureClosesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cmdcache.log")
	runner := &fakeRunner{err: &CommandExitError{Command: "false", ExitCode: 1}}

	_, _, err := executeCmd(t, Deps{Runner: runner}, "--log-file", logPath, "watch", "--count", "1", "--", "false")
	require.Error(t, err)
	assert.Empty(t, config.LogFilePath())

	_, statErr := os.Stat(logPath)
	require.NoError(t, statErr)
}

func TestWatch_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  enabled: false
watch:
  every: 1ms
  ttl: 1h
`), 0o600))

	runner := &fakeRunner{output: "x\n"}
	_, _, err := executeCmd(t, Deps{Runner: runner}, "--config", path, "watch", "--count", "2", "--", "ls")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.count(), "cache disabled by file")
}

func TestWatch_TUIRequiresTerminal(t *testing.T) {
	runner := &fakeRunner{output: "x\n"}

	stdout, stderr, err := executeCmd(t, Deps{Runner: runner},
		"watch", "--every", "1ms", "--count", "1", "--tui", "--", "ls")
	require.NoError(t, err)
	assert.Equal(t, "x\n", stdout)
	assert.Contains(t, stderr, "--tui ignored")
}

func TestWatch_MetricsServer(t *testing.T) {
	runner := &fakeRunner{output: "x\n"}

	_, stderr, err := executeCmd(t, Deps{Runner: runner},
		"watch", "--every", "1ms", "--count", "2", "--metrics-addr", "127.0.0.1:0", "--", "ls")
	require.NoError(t, err)
	assert.Contains(t, stderr, "serving metrics")
}

func TestWatch_MetricsBadAddress(t *testing.T) {
	_, _, err := executeCmd(t, Deps{Runner: &fakeRunner{}},
		"watch", "--count", "1", "--metrics-addr", "not-an-address", "--", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}

func TestWatch_DebugLogsEvents(t *testing.T) {
	runner := &fakeRunner{output: "x\n"}

	_, stderr, err := executeCmd(t, Deps{Runner: runner},
		"--debug", "watch", "--every", "1ms", "--count", "2", "--", "ls")
	require.NoError(t, err)
	assert.Contains(t, stderr, "cache set")
	assert.Contains(t, stderr, "poll complete")
	assert.Contains(t, stderr, "expires_in")
	assert.Contains(t, stderr, "trace_id")
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	var stderr bytes.Buffer
	r := execRunner{errOut: &stderr}

	out, err := r.Run(context.Background(), []string{"sh", "-c", "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = r.Run(context.Background(), []string{"sh", "-c", "echo boom >&2; exit 3"})
	var exitErr *CommandExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Contains(t, exitErr.Error(), "boom")
	assert.Contains(t, stderr.String(), "boom")

	_, err = r.Run(context.Background(), []string{"definitely-not-a-command-cmdcache"})
	require.Error(t, err)
	assert.False(t, errors.As(err, &exitErr))

	_, err = r.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoCommand)
}

func TestCommandExitError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &CommandExitError{Command: "make test", ExitCode: 2})
	assert.Equal(t, `wrapped: command "make test" exited with status 2`, err.Error())
	assert.True(t, strings.HasPrefix(commandLine([]string{"make", "test"}), "make"))
}

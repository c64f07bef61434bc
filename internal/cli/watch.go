package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/cmdcache/internal/engine/cache"
	"github.com/rshade/cmdcache/internal/metrics"
	"github.com/rshade/cmdcache/internal/tui"
)

const (
	metricsShutdownTimeout = 5 * time.Second
	metricsReadTimeout     = 5 * time.Second
)

// watchFlags holds the flag values of the watch command.
type watchFlags struct {
	every       string
	ttl         string
	count       int
	stats       bool
	tui         bool
	metricsAddr string
	maxKeys     string
	windowSize  int
	noCache     bool
}

// newWatchCmd creates the watch command that polls a command through the cache.
func newWatchCmd(s *session) *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch [flags] -- COMMAND [ARGS...]",
		Short: "Poll a command, serving its output from the cache until the TTL expires",
		Long: `Runs COMMAND every --every interval. While its last output is younger than
--ttl the cached copy is printed instead of running the command again.

The cache honours CMDCACHE_CLEANUP_INTERVAL_MS, CMDCACHE_MAX_KEYS,
CMDCACHE_WINDOW_SIZE and CMDCACHE_INTERVAL_DURATION_MS; the config file
overrides them and flags override both. CMDCACHE_ENABLE_CACHE=false runs the
command on every poll.`,
		Example: `  cmdcache watch --every 2s --ttl 10s -- kubectl get pods
  cmdcache watch --count 5 --stats -- date +%s`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return ErrNoCommand
			}
			w, err := newWatcher(cmd, s, flags, args)
			if err != nil {
				return err
			}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&flags.every, "every", "", "poll interval, e.g. 5s or 5000 (ms)")
	cmd.Flags().StringVar(&flags.ttl, "ttl", "", "how long command output stays cached, e.g. 15s")
	cmd.Flags().IntVar(&flags.count, "count", 0, "stop after this many polls (0 = until interrupted)")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print cache statistics when done")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "show a live statistics dashboard (terminal only)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&flags.maxKeys, "max-keys", "", `maximum cached entries or "unlimited"`)
	cmd.Flags().IntVar(&flags.windowSize, "window-size", 0, "rolling hit-rate window length")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "run the command on every poll")

	return cmd
}

// watcher is one run of the watch command.
type watcher struct {
	argv   []string
	every  time.Duration
	ttl    time.Duration
	count  int
	stats  bool
	out    io.Writer
	runner Runner

	caches      *cache.Registry
	cache       *cache.Cache
	tuiEnabled  bool
	metricsAddr string
	program     *tea.Program
}

func newWatcher(cmd *cobra.Command, s *session, flags watchFlags, argv []string) (*watcher, error) {
	every, ttl, err := s.file.Watch.Durations()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("every") {
		if every, err = cache.ParseTTL(flags.every); err != nil {
			return nil, fmt.Errorf("--every: %w", err)
		}
	}
	if cmd.Flags().Changed("ttl") {
		if ttl, err = cache.ParseTTL(flags.ttl); err != nil {
			return nil, fmt.Errorf("--ttl: %w", err)
		}
	}
	if flags.count < 0 {
		return nil, fmt.Errorf("--count must be >= 0, got %d", flags.count)
	}

	runner := s.deps.Runner
	if runner == nil {
		runner = execRunner{errOut: cmd.ErrOrStderr()}
	}

	w := &watcher{
		argv:        argv,
		every:       every,
		ttl:         ttl,
		count:       flags.count,
		stats:       flags.stats,
		out:         cmd.OutOrStdout(),
		runner:      runner,
		metricsAddr: flags.metricsAddr,
	}

	if !cacheEnabled(cmd, s, flags) {
		logger.Info().Msg("caching disabled, command runs on every poll")
		return w, nil
	}

	overrides := s.file.Cache.Overrides()
	if cmd.Flags().Changed("max-keys") {
		ov, parseErr := cache.ParseMaxKeys(flags.maxKeys)
		if parseErr != nil {
			return nil, fmt.Errorf("--max-keys: %w", parseErr)
		}
		overrides = overrides.Merge(ov)
	}
	if cmd.Flags().Changed("window-size") {
		n := flags.windowSize
		overrides = overrides.Merge(cache.Overrides{WindowSize: &n})
	}

	w.cache, err = s.caches.Get(
		cache.WithOverrides(overrides),
		cache.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	w.caches = s.caches

	if flags.tui {
		if f, ok := w.out.(*os.File); ok && isTerminal(f) {
			w.tuiEnabled = true
		} else {
			logger.Warn().Msg("--tui ignored: output is not a terminal")
		}
	}
	return w, nil
}

// cacheEnabled resolves the enable switch: env, then config file, then --no-cache.
func cacheEnabled(cmd *cobra.Command, s *session, flags watchFlags) bool {
	if cmd.Flags().Changed("no-cache") {
		return !flags.noCache
	}
	if s.file.Cache.Enabled != nil {
		return *s.file.Cache.Enabled
	}
	return cache.CacheEnabledFromEnv(s.deps.LookupEnv)
}

// run drives the poll loop plus the optional metrics server and dashboard
// under one errgroup. The first failure cancels the rest.
func (w *watcher) run(parent context.Context) error {
	if w.cache != nil {
		defer w.caches.Teardown()
		detach := cache.AttachEventLogging(w.cache, logger, cache.DefaultEventLogOptions())
		defer detach()
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if w.metricsAddr != "" && w.cache != nil {
		if err := w.serveMetrics(gCtx, g); err != nil {
			return err
		}
	}

	if w.tuiEnabled {
		model := tui.NewStatsModel(w.cache, commandLine(w.argv), w.every)
		w.program = tea.NewProgram(model, tea.WithContext(gCtx), tea.WithOutput(w.out), tea.WithAltScreen())
		g.Go(func() error {
			defer cancel()
			if _, err := w.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("running dashboard: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return w.loop(gCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if w.stats && w.cache != nil {
		return renderStats(w.out, w.cache.Stats())
	}
	return nil
}

// loop polls until count is reached or ctx is cancelled.
func (w *watcher) loop(ctx context.Context) error {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for i := 0; w.count == 0 || i < w.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// poll serves one round of output, from the cache when the entry is live.
func (w *watcher) poll(ctx context.Context) error {
	key := commandLine(w.argv)

	if w.cache != nil {
		if out, ok := w.cache.CachedCommandResult(key); ok {
			msg := tui.OutputMsg{Output: out, Cached: true, At: time.Now()}
			if entry, found := w.cache.CommandResultEntry(key); found {
				msg.Age = entry.Age(msg.At)
				msg.ExpiresIn = entry.TimeUntilExpiration(msg.At)
			}
			return w.emit(msg)
		}
	}

	out, err := w.runner.Run(ctx, w.argv)
	if err != nil {
		return err
	}
	if w.cache != nil {
		w.cache.CacheCommandResult(key, out, w.ttl)
	}
	return w.emit(tui.OutputMsg{Output: out, At: time.Now(), ExpiresIn: w.ttl})
}

func (w *watcher) emit(msg tui.OutputMsg) error {
	ev := logger.Debug().Bool("cached", msg.Cached).Int("bytes", len(msg.Output))
	if w.cache != nil {
		ev = ev.Dur("age", msg.Age).Dur("expires_in", msg.ExpiresIn)
	}
	ev.Msg("poll complete")

	if w.program != nil {
		w.program.Send(msg)
		return nil
	}
	_, err := io.WriteString(w.out, msg.Output)
	return err
}

// serveMetrics starts a Prometheus endpoint for the cache. The listener is
// opened before returning so a bad address fails the command immediately.
func (w *watcher) serveMetrics(ctx context.Context, g *errgroup.Group) error {
	reg := prometheus.NewRegistry()
	exporter, err := metrics.NewExporter(w.cache, reg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", w.metricsAddr)
	if err != nil {
		exporter.Close()
		return fmt.Errorf("listening on %s: %w", w.metricsAddr, err)
	}
	logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	srv := &http.Server{
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: metricsReadTimeout,
	}

	g.Go(func() error {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", serveErr)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		defer exporter.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return nil
}

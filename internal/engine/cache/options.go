package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Cache at construction time.
type Option func(*options)

type options struct {
	overrides Overrides
	lookupEnv func(string) (string, bool)
	clock     func() time.Time
	logger    zerolog.Logger
	janitor   bool
}

func defaultOptions() options {
	return options{
		clock:   time.Now,
		logger:  zerolog.Nop(),
		janitor: true,
	}
}

// WithCleanupInterval sets the janitor period.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.overrides.CleanupInterval = &d }
}

// WithMaxKeys bounds the number of entries. n must be positive.
func WithMaxKeys(n int) Option {
	return func(o *options) {
		o.overrides = o.overrides.Merge(Overrides{MaxKeys: &n})
	}
}

// WithUnlimitedKeys disables LRU eviction, overriding any environment limit.
func WithUnlimitedKeys() Option {
	return func(o *options) {
		o.overrides = o.overrides.Merge(Overrides{UnlimitedKeys: true})
	}
}

// WithWindowSize sets the rolling window length.
func WithWindowSize(n int) Option {
	return func(o *options) { o.overrides.WindowSize = &n }
}

// WithIntervalDuration sets the statistics interval length.
func WithIntervalDuration(d time.Duration) Option {
	return func(o *options) { o.overrides.IntervalDuration = &d }
}

// WithOverrides layers a whole set of overrides, e.g. from a config file.
// Later options still win over it.
func WithOverrides(ov Overrides) Option {
	return func(o *options) { o.overrides = o.overrides.Merge(ov) }
}

// WithLookupEnv replaces os.LookupEnv for environment overrides.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = fn }
}

// WithClock replaces time.Now for every timestamp the cache takes.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger used for janitor and handler diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithoutJanitor skips the background sweep; Cleanup and RotateIntervals
// must then be called by the owner.
func WithoutJanitor() Option {
	return func(o *options) { o.janitor = false }
}

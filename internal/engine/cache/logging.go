package cache

import (
	"github.com/rs/zerolog"
)

// EventLogOptions selects which event kinds AttachEventLogging logs.
type EventLogOptions struct {
	Set       bool
	Get       bool
	Evictions bool
	Cleanup   bool
	Clear     bool
}

// DefaultEventLogOptions logs everything except gets, which are noisy.
func DefaultEventLogOptions() EventLogOptions {
	return EventLogOptions{
		Set:       true,
		Get:       false,
		Evictions: true,
		Cleanup:   true,
		Clear:     true,
	}
}

// AttachEventLogging logs cache events to logger at debug level and returns a
// func that detaches every handler it registered.
func AttachEventLogging(c *Cache, logger zerolog.Logger, opts EventLogOptions) func() {
	log := logger.With().Str("component", "cache").Logger()
	var unsubs []func()

	if opts.Set {
		unsubs = append(unsubs, c.OnSet(func(ev SetEvent) {
			log.Debug().Str("key", ev.Key).Int("size_bytes", ev.ValueSize).Dur("ttl", ev.TTL).Msg("cache set")
		}))
	}
	if opts.Get {
		unsubs = append(unsubs, c.OnGet(func(ev GetEvent) {
			log.Debug().Str("key", ev.Key).Bool("hit", ev.Hit).Msg("cache get")
		}))
	}
	if opts.Evictions {
		unsubs = append(unsubs, c.OnEviction(func(ev EvictionEvent) {
			log.Debug().Str("key", ev.Key).Str("reason", string(ev.Reason)).Msg("cache eviction")
		}))
	}
	if opts.Cleanup {
		unsubs = append(unsubs, c.OnCleanup(func(ev CleanupEvent) {
			log.Debug().Int("evicted", ev.EvictedCount).Msg("cache cleanup removed expired entries")
		}))
	}
	if opts.Clear {
		unsubs = append(unsubs, c.OnClear(func(ev ClearEvent) {
			log.Debug().Int("keys_cleared", ev.KeysCleared).Msg("cache cleared")
		}))
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

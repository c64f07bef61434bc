package cache

import (
	"context"
	"time"
)

// startJanitor launches the periodic sweep. Cache owns the goroutine.
func (c *Cache) startJanitor() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.janitorLoop(ctx, c.cfg.CleanupInterval)
}

// janitorLoop runs tick every period until ctx is canceled.
func (c *Cache) janitorLoop(ctx context.Context, period time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick sweeps expired entries and rotates the statistics interval as one
// serialized unit, then publishes the sweep's events.
func (c *Cache) tick() {
	c.mu.Lock()
	now := c.clock()
	events, removed := c.cleanupLocked(now)
	rotated := c.stats.intervals.rotate(now)
	size := len(c.entries)
	c.mu.Unlock()

	c.events.publish(events...)

	c.logger.Debug().
		Int("evicted", removed).
		Bool("interval_rotated", rotated).
		Int("size", size).
		Msg("cache janitor tick")
}

// stopJanitor cancels the janitor once and waits for a tick in flight.
func (c *Cache) stopJanitor() {
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.wg.Wait()
	})
}

// Package cache provides the in-memory cache used to avoid re-running an
// expensive command on every poll cycle.
//
// Key features:
//   - Per-entry TTL with lazy expiry on Get/Has and a periodic janitor sweep
//   - Optional LRU capacity bound (map index plus doubly linked access order)
//   - Lifetime counters, a rolling window hit rate and fixed-duration intervals
//   - Synchronous typed events (set, get, eviction, clear, cleanup)
//
// Configuration resolves defaults, then CMDCACHE_* environment variables, then
// explicit options. A Registry holds the process-wide instance with an explicit
// Get/Teardown lifecycle.
//
// The cache is single-process; nothing is persisted.
package cache

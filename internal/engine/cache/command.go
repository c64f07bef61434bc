package cache

import (
	"time"
)

// commandKeyPrefix namespaces command output keys.
const commandKeyPrefix = "command:"

// CommandKey returns the cache key for the output of command.
func CommandKey(command string) string {
	return commandKeyPrefix + command
}

// CacheCommandResult stores the output of command for ttl.
func (c *Cache) CacheCommandResult(command, output string, ttl time.Duration) {
	c.Set(CommandKey(command), output, ttl)
}

// CommandResultEntry returns the stored entry for command without counting a
// lookup or refreshing its recency.
func (c *Cache) CommandResultEntry(command string) (Entry, bool) {
	return c.Peek(CommandKey(command))
}

// CachedCommandResult returns the cached output of command, if still live.
func (c *Cache) CachedCommandResult(command string) (string, bool) {
	v, ok := c.Get(CommandKey(command))
	if !ok {
		return "", false
	}
	out, ok := v.(string)
	return out, ok
}

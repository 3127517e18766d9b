package proc

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type cooldownKey struct {
	user  snowflake.ID
	guild snowflake.ID
}

// Cooldowns remembers when each (user, guild) pair last earned XP. It is
// advisory: losing it only lets a user earn once more than usual.
type Cooldowns struct {
	mu     sync.Mutex
	window time.Duration
	last   map[cooldownKey]time.Time
}

func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{window: window, last: make(map[cooldownKey]time.Time)}
}

// Allow reports whether the pair may earn XP at now and, if so, starts a new
// window for it.
func (c *Cooldowns) Allow(user, guild snowflake.ID, now time.Time) bool {
	if c.window <= 0 {
		return true
	}
	k := cooldownKey{user, guild}

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[k]; ok && now.Sub(last) < c.window {
		return false
	}
	c.last[k] = now
	return true
}

// Sweep drops entries whose window has passed and returns how many went.
func (c *Cooldowns) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, last := range c.last {
		if now.Sub(last) >= c.window {
			delete(c.last, k)
			removed++
		}
	}
	return removed
}

func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}

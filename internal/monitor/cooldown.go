package monitor

import (
	"sync"
	"time"
)

// Cooldowns tracks when an alert last fired per (container, metric) pair and
// suppresses repeats inside the window. State lives only in memory; an entry
// is simply overwritten once the window has elapsed.
type Cooldowns struct {
	window time.Duration

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{window: window, lastFired: map[string]time.Time{}}
}

// ShouldFire reports whether an alert for the pair may fire at now, and
// stamps the pair when it may. Check and stamp happen under one lock so
// concurrent callers cannot both fire inside the same window.
func (c *Cooldowns) ShouldFire(containerID, metric string, now time.Time) bool {
	key := containerID + "|" + metric
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastFired[key]; ok && now.Sub(last) <= c.window {
		return false
	}
	c.lastFired[key] = now
	return true
}

package router

import (
	"sync"
	"time"
)

const (
	// floodWindow is how far back send timestamps count toward the limit.
	floodWindow = 60 * time.Second
	// floodLimit is the highest number of sends allowed inside the window.
	// The send that would make it floodLimit+1 is rejected.
	floodLimit = 5
	// floodMuteDuration is how long a flooding principal stays muted.
	floodMuteDuration = 5 * time.Minute
)

// FloodGate tracks recent send timestamps per principal and decides when a
// send crosses the flood threshold. One gate covers room and private traffic
// together. Safe for concurrent use.
type FloodGate struct {
	mu      sync.Mutex
	windows map[int64][]time.Time
	now     func() time.Time
}

func NewFloodGate() *FloodGate {
	return &FloodGate{
		windows: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Check records an attempted send. When the principal already has floodLimit
// sends inside the window, the attempt is rejected: Check returns the mute
// deadline and true, and does not count the rejected attempt itself. Otherwise
// the timestamp is recorded and Check returns false.
func (g *FloodGate) Check(userID int64) (muteUntil time.Time, flooded bool) {
	now := g.now()
	cutoff := now.Add(-floodWindow)

	g.mu.Lock()
	defer g.mu.Unlock()

	window := g.windows[userID]
	live := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= floodLimit {
		g.windows[userID] = live
		return now.Add(floodMuteDuration), true
	}

	g.windows[userID] = append(live, now)
	return time.Time{}, false
}

// Forget discards a principal's window, typically after a mute is applied so
// the stale timestamps cannot trigger a second mute right after expiry.
func (g *FloodGate) Forget(userID int64) {
	g.mu.Lock()
	delete(g.windows, userID)
	g.mu.Unlock()
}

// Cleanup drops windows whose every timestamp has aged out. Called
// periodically so idle principals do not pin memory.
func (g *FloodGate) Cleanup() int {
	cutoff := g.now().Add(-floodWindow)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for userID, window := range g.windows {
		stale := true
		for _, ts := range window {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(g.windows, userID)
			removed++
		}
	}
	return removed
}

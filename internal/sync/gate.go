package sync

import (
	stdsync "sync"
	"time"
)

// Gate delay defaults. Single-record writes settle fast; a create can fan out
// several downstream change-feed events, so its window is longer.
const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultCreateDelay = 5 * time.Second
	DefaultMaxHold     = 30 * time.Second
)

// Gate suppresses externally triggered refresh while a local write is in
// flight or has just settled, so the writer's own echo coming back through a
// channel does not trigger a redundant fetch or clobber optimistic state.
//
// It is reference-counted so overlapping mutations compose, and a watchdog
// force-releases a hold after maxHold so a hung request cannot mask external
// invalidations forever.
type Gate struct {
	mu      stdsync.Mutex
	holds   int
	maxHold time.Duration
}

// NewGate creates a gate whose watchdog fires after maxHold. Zero means
// DefaultMaxHold.
func NewGate(maxHold time.Duration) *Gate {
	if maxHold <= 0 {
		maxHold = DefaultMaxHold
	}
	return &Gate{maxHold: maxHold}
}

// Hold marks a local write in flight. The returned release function schedules
// the actual release after the given settle delay and is safe to call once;
// the watchdog releases on its own if the caller never does.
func (g *Gate) Hold(settle time.Duration) (release func()) {
	g.mu.Lock()
	g.holds++
	g.mu.Unlock()

	var once stdsync.Once
	drop := func() {
		once.Do(func() {
			g.mu.Lock()
			if g.holds > 0 {
				g.holds--
			}
			g.mu.Unlock()
		})
	}
	watchdog := time.AfterFunc(g.maxHold, drop)
	return func() {
		watchdog.Stop()
		time.AfterFunc(settle, drop)
	}
}

// Held reports whether any local write is still inside its gate window.
// Channel listeners skip their fetch-and-merge while this is true.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds > 0
}

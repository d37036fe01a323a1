package realtime

import (
	"context"
	"time"
)

// DefaultPollInterval is the fallback refresh cadence covering events the
// push channels missed.
const DefaultPollInterval = 5 * time.Minute

// Poller periodically emits a whole-window refresh invalidation. It is the
// only channel that survives when every subscription fails to connect.
type Poller struct {
	interval time.Duration
	out      chan Invalidation
}

// NewPoller creates a poller; interval <= 0 means DefaultPollInterval.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, out: make(chan Invalidation, 1)}
}

// Events is the refresh stream. Closed when Run returns.
func (p *Poller) Events() <-chan Invalidation { return p.out }

// Run ticks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.out)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case p.out <- Refresh():
			default:
			}
		}
	}
}

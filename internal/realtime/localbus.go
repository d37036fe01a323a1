package realtime

import (
	"context"
	stdsync "sync"
)

// LocalBus delivers invalidations between engine instances in the same
// process. It is the redundant same-device path for environments whose
// managed change-feed does not notify the originator of a change
// (ChangeFeed.NotifiesSelf() == false); with a self-notifying feed it is
// unnecessary and should not be wired.
type LocalBus struct {
	mu   stdsync.Mutex
	subs map[int]chan Invalidation
	next int
}

// NewLocalBus creates an empty bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan Invalidation)}
}

// Subscribe registers a listener. The returned cancel function removes it.
func (b *LocalBus) Subscribe() (<-chan Invalidation, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Invalidation, 64)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish fans the invalidation out to every subscriber. A subscriber whose
// buffer is full misses the message; the poller covers the gap.
func (b *LocalBus) Publish(inv Invalidation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- inv:
		default:
		}
	}
}

// PublishUpdated mirrors the broadcast publisher surface so the mutation path
// can treat both notification sinks uniformly.
func (b *LocalBus) PublishUpdated(_ context.Context, id string) error {
	b.Publish(Upsert(id))
	return nil
}

// PublishBatchUpdated announces a batch update on the bus.
func (b *LocalBus) PublishBatchUpdated(_ context.Context, ids []string) error {
	b.Publish(Upsert(ids...))
	return nil
}

// PublishDeleted announces a delete on the bus.
func (b *LocalBus) PublishDeleted(_ context.Context, id string) error {
	b.Publish(Delete(id))
	return nil
}

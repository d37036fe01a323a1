package realtime

import (
	"context"
	"testing"
	"time"
)

func TestPollerEmitsRefresh(t *testing.T) {
	p := NewPoller(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	got := recvInvalidation(t, p.Events())
	if got.Kind != KindRefresh {
		t.Errorf("kind = %q, want refresh", got.Kind)
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	p := NewPoller(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	cancel()

	// The events channel closes when Run returns.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-p.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

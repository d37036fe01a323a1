package realtime

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func setupBroadcastPair(t *testing.T) (*Broadcast, *Broadcast) {
	t.Helper()
	s := miniredis.RunT(t)
	pub := redis.NewClient(&redis.Options{Addr: s.Addr()})
	sub := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		pub.Close()
		sub.Close()
	})
	return NewBroadcastWithClient(pub, "", quietLogger()),
		NewBroadcastWithClient(sub, "", quietLogger())
}

func recvInvalidation(t *testing.T, ch <-chan Invalidation) Invalidation {
	t.Helper()
	select {
	case inv := <-ch:
		return inv
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
		return Invalidation{}
	}
}

func TestBroadcastRoundTrip(t *testing.T) {
	pub, sub := setupBroadcastPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)
	// Give the subscription a moment to register with miniredis.
	time.Sleep(50 * time.Millisecond)

	if err := pub.PublishUpdated(ctx, "a1"); err != nil {
		t.Fatalf("PublishUpdated: %v", err)
	}
	inv := recvInvalidation(t, sub.Events())
	if inv.Kind != KindUpsert || !reflect.DeepEqual(inv.IDs, []string{"a1"}) {
		t.Errorf("got %+v, want upsert [a1]", inv)
	}

	if err := pub.PublishBatchUpdated(ctx, []string{"a1", "a2"}); err != nil {
		t.Fatalf("PublishBatchUpdated: %v", err)
	}
	inv = recvInvalidation(t, sub.Events())
	if inv.Kind != KindUpsert || !reflect.DeepEqual(inv.IDs, []string{"a1", "a2"}) {
		t.Errorf("got %+v, want upsert [a1 a2]", inv)
	}

	if err := pub.PublishDeleted(ctx, "a3"); err != nil {
		t.Fatalf("PublishDeleted: %v", err)
	}
	inv = recvInvalidation(t, sub.Events())
	if inv.Kind != KindDelete || !reflect.DeepEqual(inv.IDs, []string{"a3"}) {
		t.Errorf("got %+v, want delete [a3]", inv)
	}
}

func TestBroadcastIgnoresMalformedAndUnknownMessages(t *testing.T) {
	pub, sub := setupBroadcastPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	pub.client.Publish(ctx, pub.channel, "not json")
	pub.client.Publish(ctx, pub.channel, `{"event":"unknown_event","id":"x"}`)
	if err := pub.PublishUpdated(ctx, "a1"); err != nil {
		t.Fatalf("PublishUpdated: %v", err)
	}

	// Only the valid message comes through.
	inv := recvInvalidation(t, sub.Events())
	if inv.Kind != KindUpsert || !reflect.DeepEqual(inv.IDs, []string{"a1"}) {
		t.Errorf("got %+v, want upsert [a1]", inv)
	}
}

func TestNewBroadcastConnects(t *testing.T) {
	s := miniredis.RunT(t)
	b, err := NewBroadcast("redis://"+s.Addr(), "custom:channel", quietLogger())
	if err != nil {
		t.Fatalf("NewBroadcast: %v", err)
	}
	defer b.Close()
	if b.channel != "custom:channel" {
		t.Errorf("channel = %q", b.channel)
	}
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Application-level broadcast events. Sent by the mutator immediately after a
// confirmed write; lower latency than the change-feed because they bypass
// database replication lag.
const (
	EventAssignmentUpdated      = "assignment_updated"
	EventAssignmentsBatchUpdate = "assignments_batch_updated"
	EventAssignmentDeleted      = "assignment_deleted"
)

// DefaultBroadcastChannel is the pub/sub channel shared by all devices.
const DefaultBroadcastChannel = "dandori:assignments"

type broadcastMessage struct {
	Event string   `json:"event"`
	ID    string   `json:"id,omitempty"`
	IDs   []string `json:"ids,omitempty"`
}

// Broadcast is the cross-device notification path over redis pub/sub. The
// same struct both publishes (mutator side) and subscribes (listener side).
type Broadcast struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
	out     chan Invalidation
}

// NewBroadcast connects to redis at redisURL and verifies the connection.
func NewBroadcast(redisURL, channel string, log *logrus.Logger) (*Broadcast, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewBroadcastWithClient(client, channel, log), nil
}

// NewBroadcastWithClient wraps an existing redis client.
func NewBroadcastWithClient(client *redis.Client, channel string, log *logrus.Logger) *Broadcast {
	if channel == "" {
		channel = DefaultBroadcastChannel
	}
	return &Broadcast{
		client:  client,
		channel: channel,
		log:     log,
		out:     make(chan Invalidation, 64),
	}
}

// Close releases the underlying redis client.
func (b *Broadcast) Close() error { return b.client.Close() }

// PublishUpdated announces a confirmed create or update of one assignment.
func (b *Broadcast) PublishUpdated(ctx context.Context, id string) error {
	return b.publish(ctx, broadcastMessage{Event: EventAssignmentUpdated, ID: id})
}

// PublishBatchUpdated announces a confirmed batch update.
func (b *Broadcast) PublishBatchUpdated(ctx context.Context, ids []string) error {
	return b.publish(ctx, broadcastMessage{Event: EventAssignmentsBatchUpdate, IDs: ids})
}

// PublishDeleted announces a confirmed delete.
func (b *Broadcast) PublishDeleted(ctx context.Context, id string) error {
	return b.publish(ctx, broadcastMessage{Event: EventAssignmentDeleted, ID: id})
}

func (b *Broadcast) publish(ctx context.Context, msg broadcastMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Events is the normalized invalidation stream. Closed when Run returns.
func (b *Broadcast) Events() <-chan Invalidation { return b.out }

// Run subscribes and pumps messages until ctx is done.
func (b *Broadcast) Run(ctx context.Context) {
	defer close(b.out)
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var bm broadcastMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				b.log.WithError(err).Warn("broadcast: malformed message")
				continue
			}
			inv, ok := normalizeBroadcast(bm)
			if !ok {
				b.log.WithField("event", bm.Event).Warn("broadcast: unknown event")
				continue
			}
			select {
			case b.out <- inv:
			case <-ctx.Done():
				return
			}
		}
	}
}

func normalizeBroadcast(m broadcastMessage) (Invalidation, bool) {
	switch m.Event {
	case EventAssignmentUpdated:
		return Upsert(m.ID), true
	case EventAssignmentsBatchUpdate:
		return Upsert(m.IDs...), true
	case EventAssignmentDeleted:
		return Delete(m.ID), true
	}
	return Invalidation{}, false
}

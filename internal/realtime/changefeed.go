package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Row tables and event types carried by the change-feed.
const (
	TableAssignments    = "assignments"
	TableProjectMasters = "project_masters"

	RowInsert = "INSERT"
	RowUpdate = "UPDATE"
	RowDelete = "DELETE"
)

// rowEvent is one row-level change as delivered by the managed change-feed.
// The payload carries only the row identity, never the joined record.
type rowEvent struct {
	Table string `json:"table"`
	Type  string `json:"type"`
	ID    string `json:"id"`
}

// ChangeFeed subscribes to the authoritative database change-feed over a
// websocket and normalizes row events into Invalidations. Higher latency
// than the broadcast paths, and ordering across rows is not guaranteed.
type ChangeFeed struct {
	url          string
	dialer       *websocket.Dialer
	log          *logrus.Logger
	notifiesSelf bool
	out          chan Invalidation
}

// NewChangeFeed creates a subscriber for the given websocket URL.
// notifiesSelf declares whether the managed feed delivers a change back to
// the connection that caused it; when false the caller must wire the local
// bus as the redundant same-device path.
func NewChangeFeed(url string, notifiesSelf bool, log *logrus.Logger) *ChangeFeed {
	return &ChangeFeed{
		url:          url,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:          log,
		notifiesSelf: notifiesSelf,
		out:          make(chan Invalidation, 64),
	}
}

// NotifiesSelf reports the transport's self-notify capability.
func (f *ChangeFeed) NotifiesSelf() bool { return f.notifiesSelf }

// Events is the normalized invalidation stream. Closed when Run returns.
func (f *ChangeFeed) Events() <-chan Invalidation { return f.out }

// Run connects and pumps events until ctx is done, reconnecting with capped
// backoff. A connection failure never fails the cache as a whole; the caller
// keeps polling and logs the degradation.
func (f *ChangeFeed) Run(ctx context.Context) {
	defer close(f.out)
	backoff := time.Second
	for {
		if err := f.pump(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.WithError(err).Warn("changefeed: connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *ChangeFeed) pump(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.log.WithField("url", f.url).Info("changefeed: connected")

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev rowEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			f.log.WithError(err).Warn("changefeed: malformed row event")
			continue
		}
		inv, ok := normalizeRowEvent(ev)
		if !ok {
			continue
		}
		select {
		case f.out <- inv:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// normalizeRowEvent maps a row event onto the internal invalidation message.
// Assignment INSERT/UPDATE needs a secondary fetch (the payload has no joined
// snapshot); DELETE removes by id directly. Project-master updates refresh
// embedded snapshots, decoupled from assignment-level merges.
func normalizeRowEvent(ev rowEvent) (Invalidation, bool) {
	switch ev.Table {
	case TableAssignments:
		switch ev.Type {
		case RowInsert, RowUpdate:
			return Upsert(ev.ID), true
		case RowDelete:
			return Delete(ev.ID), true
		}
	case TableProjectMasters:
		if ev.Type == RowUpdate {
			return MasterUpdate(ev.ID), true
		}
	}
	return Invalidation{}, false
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// feedServer is a websocket endpoint that pushes the given raw messages to
// every connection.
func feedServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChangeFeedNormalizesRowEvents(t *testing.T) {
	srv := feedServer(t, []string{
		`{"table":"assignments","type":"INSERT","id":"a1"}`,
		`{"table":"assignments","type":"UPDATE","id":"a2"}`,
		`{"table":"assignments","type":"DELETE","id":"a3"}`,
		`{"table":"project_masters","type":"UPDATE","id":"pm1"}`,
		`{"table":"project_masters","type":"INSERT","id":"pm2"}`, // ignored
		`not json`, // ignored
	})
	feed := NewChangeFeed(wsURL(srv), false, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	want := []Invalidation{
		Upsert("a1"),
		Upsert("a2"),
		Delete("a3"),
		MasterUpdate("pm1"),
	}
	for i, w := range want {
		got := recvInvalidation(t, feed.Events())
		if !reflect.DeepEqual(got, w) {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestChangeFeedReconnects(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// First connection drops immediately.
			conn.Close()
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"table":"assignments","type":"UPDATE","id":"a1"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	feed := NewChangeFeed(wsURL(srv), false, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	got := recvInvalidation(t, feed.Events())
	if !reflect.DeepEqual(got, Upsert("a1")) {
		t.Errorf("got %+v after reconnect", got)
	}
	if conns.Load() < 2 {
		t.Errorf("connections = %d, want at least 2", conns.Load())
	}
}

func TestChangeFeedStopsOnContextCancel(t *testing.T) {
	srv := feedServer(t, nil)
	feed := NewChangeFeed(wsURL(srv), true, quietLogger())
	if !feed.NotifiesSelf() {
		t.Error("NotifiesSelf not carried")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNormalizeRowEvent(t *testing.T) {
	cases := []struct {
		ev   rowEvent
		want Invalidation
		ok   bool
	}{
		{rowEvent{Table: TableAssignments, Type: RowInsert, ID: "a"}, Upsert("a"), true},
		{rowEvent{Table: TableAssignments, Type: RowUpdate, ID: "a"}, Upsert("a"), true},
		{rowEvent{Table: TableAssignments, Type: RowDelete, ID: "a"}, Delete("a"), true},
		{rowEvent{Table: TableProjectMasters, Type: RowUpdate, ID: "p"}, MasterUpdate("p"), true},
		{rowEvent{Table: TableProjectMasters, Type: RowDelete, ID: "p"}, Invalidation{}, false},
		{rowEvent{Table: "estimates", Type: RowUpdate, ID: "e"}, Invalidation{}, false},
	}
	for _, c := range cases {
		got, ok := normalizeRowEvent(c.ev)
		if ok != c.ok || (ok && !reflect.DeepEqual(got, c.want)) {
			t.Errorf("normalizeRowEvent(%+v) = %+v,%v want %+v,%v", c.ev, got, ok, c.want, c.ok)
		}
	}
}

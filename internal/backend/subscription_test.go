package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
)

func newSubscriptionServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func handshake(t *testing.T, conn *websocket.Conn) string {
	var init wsMessage
	if err := conn.ReadJSON(&init); err != nil || init.Type != gqlConnectionInit {
		t.Errorf("expected connection_init, got %+v (%v)", init, err)
		return ""
	}
	_ = conn.WriteJSON(wsMessage{Type: gqlConnectionKeepAlive})
	_ = conn.WriteJSON(wsMessage{Type: gqlConnectionAck})

	var start wsMessage
	if err := conn.ReadJSON(&start); err != nil || start.Type != gqlStart {
		t.Errorf("expected start, got %+v (%v)", start, err)
		return ""
	}
	var p startPayload
	_ = json.Unmarshal(start.Payload, &p)
	if !strings.Contains(p.Query, "onSyncInfo") {
		t.Errorf("unexpected subscription query %q", p.Query)
	}
	return start.ID
}

func TestSubscriberStreamsSyncInfo(t *testing.T) {
	t.Parallel()

	url := newSubscriptionServer(t, func(conn *websocket.Conn) {
		id := handshake(t, conn)
		for _, block := range []int{100, 101} {
			data := json.RawMessage(`{"data":{"onSyncInfo":{"syncBlockNum":` + itoa(block) + `,"syncPercent":100,"addressBalances":[]}}}`)
			_ = conn.WriteJSON(wsMessage{ID: "other", Type: gqlData, Payload: data})
			_ = conn.WriteJSON(wsMessage{ID: id, Type: gqlData, Payload: data})
		}
		_ = conn.WriteJSON(wsMessage{ID: id, Type: gqlComplete})
	})

	sub := NewSubscriber(logging.NewTestLogger(), url)
	var blocks []int64
	err := sub.SyncInfo(context.Background(), func(info market.SyncInfo) {
		blocks = append(blocks, info.SyncBlockNum)
	})
	require.ErrorIs(t, err, ErrSubscriptionClosed)
	require.Equal(t, []int64{100, 101}, blocks)
}

func TestSubscriberStopsOnCancel(t *testing.T) {
	t.Parallel()

	url := newSubscriptionServer(t, func(conn *websocket.Conn) {
		handshake(t, conn)
		var msg wsMessage
		_ = conn.ReadJSON(&msg)
	})

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscriber(logging.NewTestLogger(), url)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sub.SyncInfo(ctx, func(market.SyncInfo) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestSubscriberSurfacesServerErrors(t *testing.T) {
	t.Parallel()

	url := newSubscriptionServer(t, func(conn *websocket.Conn) {
		id := handshake(t, conn)
		_ = conn.WriteJSON(wsMessage{ID: id, Type: gqlData, Payload: json.RawMessage(`{"errors":[{"message":"boom"}]}`)})
	})

	sub := NewSubscriber(logging.NewTestLogger(), url)
	err := sub.SyncInfo(context.Background(), func(market.SyncInfo) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/realtime"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*realtime.Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *realtime.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Clients() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub has %d clients, want %d", hub.Clients(), n)
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev realtime.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return ev
}

func TestHub_PublishReachesClient(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.Publish(interaction.Record{ID: "r1", RiskLevel: threat.LevelLow})

	ev := readEvent(t, conn)
	if ev.Type != "interaction" || ev.Data.ID != "r1" {
		t.Errorf("got event %+v", ev)
	}
}

func TestHub_MinLevelFilter(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"min_level":"HIGH"}`)); err != nil {
		t.Fatalf("write subscription: %v", err)
	}
	// Give the read pump time to apply the subscription.
	time.Sleep(50 * time.Millisecond)

	hub.Publish(interaction.Record{ID: "low", RiskLevel: threat.LevelLow})
	hub.Publish(interaction.Record{ID: "high", RiskLevel: threat.LevelHigh})

	ev := readEvent(t, conn)
	if ev.Data.ID != "high" {
		t.Errorf("first event = %q, want high", ev.Data.ID)
	}
}

func TestHub_OnClientCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counts := make(chan int, 8)
	hub := realtime.NewHub(zap.NewNop())
	hub.OnClientCount(func(n int) { counts <- n })
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	dial(t, srv)
	select {
	case n := <-counts:
		if n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClientCount not called")
	}
}

func TestHub_RejectsOverLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(zap.NewNop())
	hub.SetMaxClients(0)
	go hub.Run(ctx)

	w := httptest.NewRecorder()
	hub.ServeWS(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

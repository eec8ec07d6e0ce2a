package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/mindwell/domain/entities"
)

func setupFeed(t *testing.T) (*Hub, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, c.QueryParam("uid"), logger)
	})
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?uid="+userID, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readFeed(t *testing.T, conn *websocket.Conn) FeedMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var msg FeedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("Invalid feed payload %s: %v", payload, err)
	}
	return msg
}

func record(id, userID string) *entities.MoodScoreRecord {
	return &entities.MoodScoreRecord{
		ID:         id,
		UserID:     userID,
		Source:     entities.SourceText,
		MoodScores: map[string]float64{"happy": 0.4, "calm": 0.3, "stressed": 0.2, "anxious": 0.1},
		Summary:    "ok",
	}
}

func TestHub_PublishReachesOwnerOnly(t *testing.T) {
	hub, url := setupFeed(t)

	owner := dial(t, url, "user-1")
	other := dial(t, url, "user-2")
	waitFor(t, func() bool { return hub.ClientCount("user-1") == 1 && hub.ClientCount("user-2") == 1 })

	hub.Publish(record("rec-1", "user-1"))
	hub.Publish(record("rec-2", "user-2"))

	msg := readFeed(t, owner)
	if msg.Type != MessageTypeMoodRecord {
		t.Errorf("Expected type %s, got %s", MessageTypeMoodRecord, msg.Type)
	}
	if msg.Record == nil || msg.Record.ID != "rec-1" {
		t.Fatalf("Expected rec-1, got %+v", msg.Record)
	}

	msg = readFeed(t, other)
	if msg.Record == nil || msg.Record.ID != "rec-2" {
		t.Fatalf("Expected rec-2 for the second user, got %+v", msg.Record)
	}
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	hub, url := setupFeed(t)

	first := dial(t, url, "user-1")
	second := dial(t, url, "user-1")
	waitFor(t, func() bool { return hub.ClientCount("user-1") == 2 })

	hub.Publish(record("rec-1", "user-1"))

	for _, conn := range []*websocket.Conn{first, second} {
		if msg := readFeed(t, conn); msg.Record.ID != "rec-1" {
			t.Errorf("Expected rec-1, got %s", msg.Record.ID)
		}
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, url := setupFeed(t)

	conn := dial(t, url, "user-1")
	waitFor(t, func() bool { return hub.ClientCount("user-1") == 1 })

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("user-1") == 0 })

	// Publishing with no subscribers is a no-op.
	hub.Publish(record("rec-1", "user-1"))
	hub.Publish(nil)
}

func TestHub_PublishDoesNotBlockOnSlowClient(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	client := &Client{hub: hub, send: make(chan []byte, 1), userID: "user-1"}
	hub.clients["user-1"] = map[*Client]struct{}{client: {}}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(record("rec", "user-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full client buffer")
	}
	if len(client.send) != 1 {
		t.Errorf("Expected one buffered message, got %d", len(client.send))
	}
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	client := &Client{hub: hub, send: make(chan []byte, 1), userID: "user-1"}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	hub.register <- client
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, ok := <-client.send; ok {
		t.Error("Client send channel should be closed")
	}
	if hub.ClientCount("user-1") != 0 {
		t.Error("Clients should be dropped on shutdown")
	}
}

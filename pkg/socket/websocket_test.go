package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/engineio/pkg/protocol"
)

func serveSocket(t *testing.T, s *Socket) (string, <-chan GetResult) {
	t.Helper()
	results := make(chan GetResult, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results <- s.HandleGet(r.Context(), w, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/engine.io/?transport=websocket", results
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	return string(msg)
}

func waitState(t *testing.T, s *Socket, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}

func TestDirectWebSocket(t *testing.T) {
	s, h := newTestSocket(t)
	_ = s.Send(protocol.NewMessage([]byte("welcome"), false))

	url, results := serveSocket(t, s)
	conn := dial(t, url)

	if got := readText(t, conn); got != "4welcome" {
		t.Fatalf("first frame = %q, want 4welcome", got)
	}
	waitState(t, s, StateConnected)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("2hb")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if got := readText(t, conn); got != "3hb" {
		t.Fatalf("pong frame = %q, want 3hb", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("4from client")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{byte(protocol.Message), 1, 2}); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	// The pong ensures both messages were handled.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("2sync")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if got := readText(t, conn); got != "3sync" {
		t.Fatalf("pong frame = %q, want 3sync", got)
	}

	_ = s.Send(protocol.NewMessage([]byte{9, 8}, true))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if messageType != websocket.BinaryMessage || len(msg) != 3 || msg[0] != byte(protocol.Message) {
		t.Fatalf("binary frame = %d %v", messageType, msg)
	}

	_ = s.Close()
	if got := readText(t, conn); got != "1" {
		t.Fatalf("close frame = %q, want 1", got)
	}

	select {
	case res := <-results:
		if res.Outcome != GetTakeover {
			t.Fatalf("HandleGet() outcome = %v, want GetTakeover", res.Outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("HandleGet() did not return after close")
	}

	messages, closed := h.snapshot()
	if len(messages) != 2 || messages[0] != "from client" {
		t.Fatalf("messages = %q", messages)
	}
	if len(closed) != 1 || closed[0] != StateConnected {
		t.Fatalf("HandleClosed calls = %v, want [Connected]", closed)
	}
}

func TestWebSocketUpgradeProbe(t *testing.T) {
	s, _ := newTestSocket(t)
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	pending := make(chan []protocol.Packet, 1)
	go func() {
		packets, _ := s.Poll(context.Background())
		pending <- packets
	}()

	url, _ := serveSocket(t, s)
	conn := dial(t, url)
	waitState(t, s, StateUpgradeInProgress)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("2probe")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if got := readText(t, conn); got != "3probe" {
		t.Fatalf("probe reply = %q, want 3probe", got)
	}

	select {
	case packets := <-pending:
		if len(packets) != 1 || packets[0].Type != protocol.Noop {
			t.Fatalf("pending poll = %+v, want Noop", packets)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending poll not flushed by probe")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("5")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	waitState(t, s, StateConnected)

	_ = s.Send(protocol.NewMessage([]byte("over ws"), false))
	if got := readText(t, conn); got != "4over ws" {
		t.Fatalf("frame = %q, want 4over ws", got)
	}

	r := httptest.NewRequest(http.MethodGet, "/engine.io/?sid=sid1", nil)
	res := s.HandleGet(context.Background(), httptest.NewRecorder(), r)
	if res.Outcome != GetDelivered || len(res.Packets) != 1 || res.Packets[0].Type != protocol.Noop {
		t.Fatalf("poll after upgrade = %+v, want Noop", res)
	}
}

func TestWebSocketProbeFailureRevertsToPolling(t *testing.T) {
	s, _ := newTestSocket(t)
	_ = s.Connect()

	url, results := serveSocket(t, s)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("4not a probe")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	select {
	case res := <-results:
		if res.Outcome != GetTakeover || res.Err == nil {
			t.Fatalf("HandleGet() = %+v, want takeover with error", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("HandleGet() did not return")
	}
	if s.State() != StatePollingActive {
		t.Fatalf("state = %s, want PollingActive", s.State())
	}
}

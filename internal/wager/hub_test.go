package wager

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	// Registration travels through the hub loop.
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(Event{Type: "flip_resolved", User: "omflip1user0000", Won: true})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"flip_resolved"`) {
		t.Errorf("unexpected payload: %s", data)
	}
}

func TestHub_SurvivesDroppedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	gone := dialHub(t, srv)
	stays := dialHub(t, srv)
	defer stays.Close()
	time.Sleep(100 * time.Millisecond)

	gone.Close()
	time.Sleep(100 * time.Millisecond)

	// Broadcasts keep flowing while the dead connection is pruned; the
	// concurrent ping goroutines must not trip over the removal.
	for i := 0; i < 5; i++ {
		hub.Broadcast(Event{Type: "claim_paid", User: "omflip1user0000"})
	}

	stays.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := stays.ReadMessage(); err != nil {
		t.Fatalf("surviving client lost the feed: %v", err)
	}
}

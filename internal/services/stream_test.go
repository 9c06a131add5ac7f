package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-simulator/internal/models"
)

// streamServer is a fake provider stream. It records control messages and
// lets tests push trade events down the socket.
type streamServer struct {
	*httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	messages []streamMessage
	dials    int
	ready    chan struct{}
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{ready: make(chan struct{}, 8)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.dials++
		s.mu.Unlock()

		for {
			var msg streamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, msg)
			s.mu.Unlock()
			s.ready <- struct{}{}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *streamServer) waitForMessage(t *testing.T) streamMessage {
	t.Helper()
	select {
	case <-s.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a control message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *streamServer) sendTrades(t *testing.T, trades ...streamTrade) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		t.Fatal("no stream connection")
	}
	if err := conn.WriteJSON(streamEvent{Type: "trade", Data: trades}); err != nil {
		t.Fatalf("send trades: %v", err)
	}
}

func TestSubscribeSendsControlMessage(t *testing.T) {
	srv := newStreamServer(t)
	mgr := NewStreamManager(srv.url())
	defer mgr.Close()

	unsub, err := mgr.Subscribe("AAPL", func(models.Quote) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg := srv.waitForMessage(t)
	if msg.Type != "subscribe" || msg.Symbol != "AAPL" {
		t.Errorf("control message = %+v, want subscribe AAPL", msg)
	}

	unsub()
	msg = srv.waitForMessage(t)
	if msg.Type != "unsubscribe" || msg.Symbol != "AAPL" {
		t.Errorf("control message = %+v, want unsubscribe AAPL", msg)
	}
}

func TestTradeEventsRouteToSubscriber(t *testing.T) {
	srv := newStreamServer(t)
	mgr := NewStreamManager(srv.url())
	defer mgr.Close()

	quotes := make(chan models.Quote, 4)
	if _, err := mgr.Subscribe("AAPL", func(q models.Quote) { quotes <- q }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	srv.waitForMessage(t)

	srv.sendTrades(t,
		streamTrade{Price: 152.3, Volume: 1200, Symbol: "AAPL"},
		streamTrade{Price: 330.1, Volume: 900, Symbol: "MSFT"},
	)

	select {
	case q := <-quotes:
		if q.Symbol != "AAPL" || q.Price != 152.3 || q.Volume != 1200 {
			t.Errorf("quote = %+v, want AAPL 152.3/1200", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a trade")
	}

	// The MSFT trade had no subscriber and must not reach this callback.
	select {
	case q := <-quotes:
		t.Errorf("unexpected extra quote %+v", q)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribersShareOneConnection(t *testing.T) {
	srv := newStreamServer(t)
	mgr := NewStreamManager(srv.url())
	defer mgr.Close()

	if _, err := mgr.Subscribe("AAPL", func(models.Quote) {}); err != nil {
		t.Fatalf("Subscribe AAPL: %v", err)
	}
	srv.waitForMessage(t)
	if _, err := mgr.Subscribe("MSFT", func(models.Quote) {}); err != nil {
		t.Fatalf("Subscribe MSFT: %v", err)
	}
	srv.waitForMessage(t)

	srv.mu.Lock()
	dials := srv.dials
	srv.mu.Unlock()
	if dials != 1 {
		t.Errorf("dials = %d, want 1", dials)
	}
}

func TestCloseClearsSubscriptions(t *testing.T) {
	srv := newStreamServer(t)
	mgr := NewStreamManager(srv.url())

	quotes := make(chan models.Quote, 1)
	if _, err := mgr.Subscribe("AAPL", func(q models.Quote) { quotes <- q }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	srv.waitForMessage(t)

	mgr.Close()

	// A fresh Subscribe dials again rather than reusing stale state.
	if _, err := mgr.Subscribe("MSFT", func(models.Quote) {}); err != nil {
		t.Fatalf("Subscribe after Close: %v", err)
	}
	srv.waitForMessage(t)

	srv.mu.Lock()
	dials := srv.dials
	srv.mu.Unlock()
	if dials != 2 {
		t.Errorf("dials = %d, want 2", dials)
	}

	srv.sendTrades(t, streamTrade{Price: 160, Volume: 100, Symbol: "AAPL"})
	select {
	case q := <-quotes:
		t.Errorf("cleared subscription still received %+v", q)
	case <-time.After(100 * time.Millisecond):
	}
}

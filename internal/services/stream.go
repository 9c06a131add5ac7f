package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-simulator/internal/models"
)

// StreamManager owns the single process-wide price stream connection.
// Subscriptions for different symbols share one connection; closing is an
// explicit operation, and an errored stream stays closed until the next
// Subscribe dials again.
type StreamManager struct {
	mu     sync.Mutex
	url    string
	dialer *websocket.Dialer
	conn   *websocket.Conn
	subs   map[string]func(models.Quote)
}

type streamMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type streamEvent struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

type streamTrade struct {
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
	Symbol string  `json:"s"`
}

func NewStreamManager(url string) *StreamManager {
	return &StreamManager{
		url:    url,
		dialer: websocket.DefaultDialer,
		subs:   make(map[string]func(models.Quote)),
	}
}

// Subscribe registers onTick for trade events on symbol, dialing the
// stream on first use and reusing the open connection afterwards. The
// returned function unsubscribes this symbol only; it does not close the
// underlying connection.
func (s *StreamManager) Subscribe(symbol string, onTick func(models.Quote)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, _, err := s.dialer.Dial(s.url, nil)
		if err != nil {
			return nil, err
		}
		s.conn = conn
		slog.Info("price stream connected")
		go s.readLoop(conn)
	}

	if _, ok := s.subs[symbol]; !ok {
		if err := s.conn.WriteJSON(streamMessage{Type: "subscribe", Symbol: symbol}); err != nil {
			s.closeLocked()
			return nil, err
		}
	}
	s.subs[symbol] = onTick

	return func() { s.unsubscribe(symbol) }, nil
}

func (s *StreamManager) unsubscribe(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[symbol]; !ok {
		return
	}
	delete(s.subs, symbol)
	if s.conn != nil {
		if err := s.conn.WriteJSON(streamMessage{Type: "unsubscribe", Symbol: symbol}); err != nil {
			slog.Warn("price stream unsubscribe failed", slog.String("symbol", symbol), slog.String("err", err.Error()))
		}
	}
}

// Close shuts the shared connection and clears all subscriptions.
func (s *StreamManager) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *StreamManager) closeLocked() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		slog.Info("price stream disconnected")
	}
	s.subs = make(map[string]func(models.Quote))
}

func (s *StreamManager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("price stream closed", slog.String("err", err.Error()))
			s.dropConn(conn)
			return
		}

		var ev streamEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			slog.Warn("unreadable stream event", slog.String("err", err.Error()))
			continue
		}
		if ev.Type != "trade" {
			continue
		}

		for _, trade := range ev.Data {
			s.mu.Lock()
			onTick := s.subs[trade.Symbol]
			s.mu.Unlock()

			if onTick != nil {
				onTick(models.Quote{
					Symbol:    trade.Symbol,
					Price:     trade.Price,
					Volume:    trade.Volume,
					Timestamp: time.Now(),
				})
			}
		}
	}
}

// dropConn marks the stream closed after a read failure, unless a newer
// connection has already replaced it.
func (s *StreamManager) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == conn {
		_ = s.conn.Close()
		s.conn = nil
		s.subs = make(map[string]func(models.Quote))
	}
}

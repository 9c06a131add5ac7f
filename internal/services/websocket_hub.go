package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-simulator/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// envelope tags every broadcast so dashboard clients can route price
// updates and chart samples separately.
type envelope struct {
	Type   string `json:"type"` // "quote" | "sample"
	Symbol string `json:"symbol"`
	Data   any    `json:"data"`
}

// Hub fans dashboard updates out to all connected WebSocket clients.
type Hub struct {
	clients    map[*HubClient]bool
	broadcast  chan []byte
	register   chan *HubClient
	unregister chan *HubClient
}

type HubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*HubClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *HubClient),
		unregister: make(chan *HubClient),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			slog.Debug("dashboard client connected", slog.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				slog.Debug("dashboard client disconnected", slog.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastQuote pushes a price update to every connected client.
func (h *Hub) BroadcastQuote(q models.Quote) {
	h.publish(envelope{Type: "quote", Symbol: q.Symbol, Data: q})
}

// BroadcastSample pushes a new chart point to every connected client.
func (h *Hub) BroadcastSample(symbol string, s models.Sample) {
	h.publish(envelope{Type: "sample", Symbol: symbol, Data: s})
}

// publish never blocks the caller: if the broadcast queue is full the
// message is dropped, since a newer one is always on the way.
func (h *Hub) publish(e envelope) {
	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal hub message", slog.String("err", err.Error()))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		slog.Debug("hub broadcast queue full, dropping message")
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn) *HubClient {
	client := &HubClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client
	return client
}

func (c *HubClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("dashboard websocket error", slog.String("err", err.Error()))
			}
			break
		}
	}
}

func (c *HubClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

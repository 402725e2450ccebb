package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Per-subscriber outbound buffer; a subscriber that falls this far
	// behind is dropped
	sendBuffer = 16
)

// Hub fans panel events out to the connected subscribers and replays
// the latest event of each kind to newcomers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	latest      map[string][]byte
	closed      bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		latest:      make(map[string][]byte),
	}
}

// Publish marshals the event and delivers it to every subscriber. The
// event replaces the stored snapshot for its kind.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Failed to marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest[ev.Type] = data
	for sub := range h.subscribers {
		sub.enqueue(data)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close drops every subscriber. The hub accepts no events afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[*subscriber]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// attach registers a freshly upgraded connection and replays the stored
// snapshot to it.
func (h *Hub) attach(conn *websocket.Conn) *subscriber {
	sub := &subscriber{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.subscribers[sub] = struct{}{}
	for _, data := range h.latest {
		sub.enqueue(data)
	}
	h.mu.Unlock()

	go sub.writePump()
	go sub.readPump()
	return sub
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()
	if present {
		sub.close()
	}
}

// subscriber is one WebSocket peer. All writes go through the send
// channel so only writePump touches the connection's write side.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (s *subscriber) enqueue(data []byte) {
	select {
	case s.send <- data:
	default:
		// Subscriber is not draining its buffer; cut it loose rather
		// than block the hub.
		logging.Warn("Dropping slow subscriber",
			zap.String("remote_addr", s.conn.RemoteAddr().String()))
		go s.hub.detach(s)
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards everything the peer sends; the stream is one-way.
// It exists to notice closes and answer pings.
func (s *subscriber) readPump() {
	defer s.hub.detach(s)

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

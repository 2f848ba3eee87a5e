package tracking

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"freight-service/internal/domain"
	"freight-service/internal/httpx"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
	"freight-service/pkg/response"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AccessFunc decides whether a principal may watch a booking.
type AccessFunc func(ctx context.Context, p domain.Principal, bookingID string) error

// StatusMessage is pushed to subscribers on every booking transition.
type StatusMessage struct {
	BookingID string               `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
	Label     string               `json:"label"`
	TS        int64                `json:"ts"`
}

// subscriber owns one websocket. Broadcasts only enqueue; writePump is the
// connection's single writer.
type subscriber struct {
	ws   *websocket.Conn
	send chan StatusMessage
	done chan struct{}
	once sync.Once
}

func newSubscriber(ws *websocket.Conn) *subscriber {
	return &subscriber{ws: ws, send: make(chan StatusMessage, sendBuffer), done: make(chan struct{})}
}

// enqueue never blocks; false means the subscriber's queue is full.
func (s *subscriber) enqueue(msg StatusMessage) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) writePump(log logger.ILogger, bookingID string) {
	for {
		select {
		case msg := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteJSON(msg); err != nil {
				log.Warning("websocket write failed", logger.String("booking_id", bookingID), logger.Error(err))
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		if s.ws != nil {
			s.ws.Close()
		}
	})
}

// Hub manages WebSocket connections per booking.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*subscriber
	log   logger.ILogger
}

// NewHub creates a tracking hub.
func NewHub(log logger.ILogger) *Hub {
	return &Hub{conns: make(map[string][]*subscriber), log: log}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes(access AccessFunc) chi.Router {
	r := chi.NewRouter()
	r.Get("/bookings/{id}", h.handleWS(access))
	return r
}

// principal reads the caller from the Authorization header, or from the
// token query parameter since browsers cannot set headers on upgrades.
func principal(r *http.Request) (domain.Principal, bool) {
	if c := jwt.GetClaims(r.Context()); c != nil {
		return httpx.Principal(r.Context()), true
	}
	raw := r.URL.Query().Get("token")
	if raw == "" {
		return domain.Principal{}, false
	}
	c, err := jwt.Authenticate(r.Context(), raw)
	if err != nil {
		return domain.Principal{}, false
	}
	return domain.Principal{UserID: c.UserID, IsStaff: c.Staff}, true
}

func (h *Hub) handleWS(access AccessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := chi.URLParam(r, "id")
		p, ok := principal(r)
		if !ok {
			_ = response.Unauthorized(w, "unauthorized")
			return
		}
		if err := access(r.Context(), p, bookingID); err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warning("websocket upgrade failed", logger.Error(err))
			return
		}

		conn := newSubscriber(ws)
		h.add(bookingID, conn)
		go conn.writePump(h.log, bookingID)
		h.log.Debug("subscriber connected", logger.String("booking_id", bookingID), logger.String("user_id", p.UserID))

		// Block until the client disconnects
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.removeConn(bookingID, conn)
		conn.close()
		h.log.Debug("subscriber disconnected", logger.String("booking_id", bookingID))
	}
}

func (h *Hub) add(bookingID string, conn *subscriber) {
	h.mu.Lock()
	h.conns[bookingID] = append(h.conns[bookingID], conn)
	h.mu.Unlock()
}

// Subscribers reports how many clients watch a booking.
func (h *Hub) Subscribers(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[bookingID])
}

// BroadcastStatus queues a status change for every subscriber of a booking
// and returns without waiting for the writes. A subscriber too slow to keep
// up is disconnected.
func (h *Hub) BroadcastStatus(bookingID string, status domain.BookingStatus) {
	h.mu.RLock()
	conns := append([]*subscriber(nil), h.conns[bookingID]...)
	h.mu.RUnlock()

	msg := StatusMessage{
		BookingID: bookingID,
		Status:    status,
		Label:     status.Label(),
		TS:        time.Now().Unix(),
	}
	for _, c := range conns {
		if !c.enqueue(msg) {
			h.log.Warning("websocket subscriber too slow, disconnecting", logger.String("booking_id", bookingID))
			c.close()
		}
	}
}

func (h *Hub) removeConn(bookingID string, conn *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[bookingID]
	for i, c := range conns {
		if c == conn {
			h.conns[bookingID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[bookingID]) == 0 {
		delete(h.conns, bookingID)
	}
}

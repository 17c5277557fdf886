package worksapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BearBump/FreshTrack/internal/services/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// мобильный клиент ходит без Origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// liveConn сериализует запись в сокет: кадры событий и ping идут из разных горутин.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *liveConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (c *liveConn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteTimeout))
}

// live стримит кадры sample/elapsed/warning/completed по работе в пути.
// Отключение клиента снимает наблюдателя; сессия доставки при этом продолжается.
func (a *WorksAPI) live(w http.ResponseWriter, r *http.Request) {
	workID := chi.URLParam(r, "workId")
	if a.tracker == nil {
		writeJSON(w, http.StatusServiceUnavailable, messageResponse{Message: "live tracking is not wired"})
		return
	}
	events, unwatch, err := a.tracker.Watch(workID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer unwatch()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "work_id", workID, "err", err)
		return
	}
	defer conn.Close()
	lc := &liveConn{conn: conn}

	slog.Info("live observer connected", "work_id", workID)

	// читаем только ради pong и close от клиента
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("live observer closed unexpectedly", "work_id", workID, "err", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			slog.Info("live observer disconnected", "work_id", workID)
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := lc.ping(); err != nil {
				slog.Warn("live ping failed", "work_id", workID, "err", err)
				return
			}
		case ev, ok := <-events:
			if !ok {
				lc.close(websocket.CloseNormalClosure, "delivery finished")
				return
			}
			if err := lc.writeJSON(ev); err != nil {
				slog.Warn("live write failed", "work_id", workID, "err", err)
				return
			}
			if ev.Type == telemetry.EventCompleted {
				lc.close(websocket.CloseNormalClosure, "delivery completed")
				return
			}
		}
	}
}

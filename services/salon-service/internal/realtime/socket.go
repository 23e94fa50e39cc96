package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/queries"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
)

const (
	writeWait    = 7 * time.Second
	readDeadline = 70 * time.Second
	pingEvery    = 25 * time.Second
)

type Fetcher interface {
	Fetch(ctx context.Context, r queries.Resource, s session.Session) (any, error)
}

// Frame is what the socket sends. Data is never null.
type Frame struct {
	Type     string `json:"type"`
	Resource string `json:"resource,omitempty"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data"`
}

type SocketConfig struct {
	Queries Fetcher
	Hub     *Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// AllowedOrigins restricts browser origins. Empty allows any.
	AllowedOrigins []string
}

// Socket serves GET /v1/live?resource=... as a WebSocket live query.
type Socket struct {
	cfg      SocketConfig
	upgrader websocket.Upgrader
}

func NewSocket(cfg SocketConfig) *Socket {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Socket{cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Socket) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if len(s.cfg.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	return httpx.OriginAllowed(origin, s.cfg.AllowedOrigins)
}

type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) writeJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *liveConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}

func (s *Socket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	resource, err := queries.ParseResource(r.URL.Query().Get("resource"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !resource.Allowed(sess.Role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &liveConn{conn: ws}
	sub := s.cfg.Hub.Subscribe(resource.Tables()...)
	s.cfg.Metrics.LiveSubscribed(1)
	defer func() {
		sub.Close()
		s.cfg.Metrics.LiveSubscribed(-1)
		_ = ws.Close()
	}()

	ws.SetReadLimit(1 << 16)
	_ = ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Client frames are ignored; reading keeps pongs and close frames flowing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.writeJSON(s.snapshot(ctx, resource, sess)); err != nil {
		return
	}

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case <-sub.C:
			if err := conn.writeJSON(s.snapshot(ctx, resource, sess)); err != nil {
				return
			}
		}
	}
}

func (s *Socket) snapshot(ctx context.Context, resource queries.Resource, sess session.Session) Frame {
	data, err := s.cfg.Queries.Fetch(ctx, resource, sess)
	if err != nil {
		s.cfg.Logger.Error("live query failed", "resource", resource, "err", err)
		return Frame{Type: "error", Resource: string(resource), Message: "failed to load " + string(resource), Data: []any{}}
	}
	return Frame{Type: "snapshot", Resource: string(resource), Data: data}
}

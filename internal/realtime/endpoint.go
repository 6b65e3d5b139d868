package realtime

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const (
	DefaultPongWait = 60 * time.Second
	maxInboundBytes = 4096
)

type EndpointOptions struct {
	AllowedOrigins []string
	PongWait       time.Duration
	SendTimeout    time.Duration
	Metrics        *observability.Metrics
}

// Endpoint upgrades requests to notification channels. Each channel is
// registered for exactly as long as its socket is open.
type Endpoint struct {
	log      *logger.Logger
	registry *Registry
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	pongWait     time.Duration
	pingPeriod   time.Duration
	sendTimeout  time.Duration
	allowAll     bool
	allowedHosts map[string]bool
	allowed      map[string]bool
}

func NewEndpoint(log *logger.Logger, registry *Registry, opts EndpointOptions) *Endpoint {
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	e := &Endpoint{
		log:          log.With("service", "NotificationEndpoint"),
		registry:     registry,
		metrics:      opts.Metrics,
		pongWait:     opts.PongWait,
		pingPeriod:   (opts.PongWait * 9) / 10,
		sendTimeout:  opts.SendTimeout,
		allowed:      map[string]bool{},
		allowedHosts: map[string]bool{},
	}
	for _, o := range opts.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			e.allowAll = true
			continue
		}
		e.allowed[o] = true
		if parsed, err := url.Parse(o); err == nil && parsed.Host != "" {
			e.allowedHosts[parsed.Host] = true
		}
	}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     e.checkOrigin,
	}
	return e
}

// ServeHTTP blocks for the lifetime of the channel.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := NewConn(e.registry.NextID(), ws, r.RemoteAddr, e.sendTimeout)
	if err := e.registry.Register(c); err != nil {
		e.log.Warn("rejecting connection", "conn_id", c.ID(), "remote_addr", c.RemoteAddr(), "error", err)
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"),
			time.Now().Add(time.Second),
		)
		_ = c.Close()
		return
	}
	e.metrics.IncConnectionsOpened()
	e.metrics.SetConnections(e.registry.Len())
	e.log.Info("notification channel opened", "conn_id", c.ID(), "remote_addr", c.RemoteAddr())

	defer func() {
		e.registry.Deregister(c)
		_ = c.Close()
		e.metrics.SetConnections(e.registry.Len())
		e.log.Info("notification channel closed",
			"conn_id", c.ID(),
			"remote_addr", c.RemoteAddr(),
			"open_for", time.Since(c.OpenedAt()).String(),
		)
	}()

	go e.pingLoop(c, ws)
	e.readLoop(c, ws)
}

// readLoop discards inbound frames; it exits on the first read error, a close
// frame or a missed pong.
func (e *Endpoint) readLoop(c *Conn, ws *websocket.Conn) {
	ws.SetReadLimit(maxInboundBytes)
	_ = ws.SetReadDeadline(time.Now().Add(e.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(e.pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				e.log.Debug("notification channel read error", "conn_id", c.ID(), "error", err)
			}
			return
		}
	}
}

func (e *Endpoint) pingLoop(c *Conn, ws *websocket.Conn) {
	ticker := time.NewTicker(e.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(e.sendTimeout)); err != nil {
				e.log.Debug("ping failed", "conn_id", c.ID(), "error", err)
				_ = c.Close()
				return
			}
		}
	}
}

func (e *Endpoint) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || e.allowAll {
		return true
	}

	if len(e.allowed) > 0 {
		if e.allowed[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return e.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	hostname := parsed.Hostname()
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

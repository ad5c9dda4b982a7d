package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	wsReadIdle       = 60 * time.Second
	wsReadLimit      = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// browser clients are served from the frontend origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one authenticated connection subscribed to one channel.
type client struct {
	conn    *websocket.Conn
	channel contracts.Channel
	subject string
	writeMu sync.Mutex
}

// write sends one message under the connection's write lock.
func (c *client) write(mt int, payload []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(mt, payload)
}

func (c *client) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, payload, time.Now().Add(wsWriteTimeout))
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (c *client) close(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow))
}

// Hub keeps the live subscriptions of every channel and delivers events to them.
type Hub struct {
	logger       *logger.Logger
	jwtMgr       *jwt.Manager
	authTimeout  time.Duration
	pingInterval time.Duration

	mu   sync.RWMutex
	subs map[contracts.Channel]map[*client]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

func WithAuthTimeout(d time.Duration) HubOption {
	return func(h *Hub) { h.authTimeout = d }
}

func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) { h.pingInterval = d }
}

// NewHub creates a hub authenticating subscribers with jwtMgr.
func NewHub(logger *logger.Logger, jwtMgr *jwt.Manager, opts ...HubOption) *Hub {
	h := &Hub{
		logger:       logger,
		jwtMgr:       jwtMgr,
		authTimeout:  10 * time.Second,
		pingInterval: 30 * time.Second,
		subs:         make(map[contracts.Channel]map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the three channel endpoints.
func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/driver/{driver_id}", h.ConnectDriver)
	mux.HandleFunc("GET /ws/customer", h.ConnectCustomer)
	mux.HandleFunc("GET /ws/supervisor", h.ConnectSupervisor)
}

// ConnectDriver subscribes an authenticated driver to driver:{id}. The path id
// must match the token subject.
func (h *Hub) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, []user.Role{user.RoleDriver}, func(cl *jwt.Claims) (contracts.Channel, error) {
		if id := r.PathValue("driver_id"); id != "" && id != cl.Subject {
			return "", errors.New("driver ID mismatch")
		}
		return contracts.DriverChannel(cl.Subject), nil
	})
}

// ConnectCustomer subscribes a customer session to customer:{phone}.
func (h *Hub) ConnectCustomer(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, []user.Role{user.RoleCustomer}, func(cl *jwt.Claims) (contracts.Channel, error) {
		return contracts.CustomerChannel(cl.Phone), nil
	})
}

// ConnectSupervisor subscribes supervisors and admins to the supervisors channel.
func (h *Hub) ConnectSupervisor(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, []user.Role{user.RoleSupervisor, user.RoleAdmin}, func(*jwt.Claims) (contracts.Channel, error) {
		return contracts.Supervisors, nil
	})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, roles []user.Role, channelOf func(*jwt.Claims) (contracts.Channel, error)) {
	ctx := r.Context()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(ctx, "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	conn.SetReadLimit(wsReadLimit)

	// first frame must authenticate within the auth window
	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	msgType, frame, err := conn.ReadMessage()
	if err != nil {
		h.logger.Warn(ctx, "ws_auth_read_failed", "Client did not authenticate in time", err, nil)
		h.rejectAuth(c, fmt.Sprintf("authentication timeout: send auth message within %s", h.authTimeout))
		return
	}
	if msgType != websocket.TextMessage {
		h.rejectAuth(c, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(frame, h.jwtMgr, roles...)
	if err != nil {
		h.logger.Warn(ctx, "ws_auth_failed", "Invalid auth message or token", err, nil)
		h.rejectAuth(c, "authentication failed: invalid token")
		return
	}
	ch, err := channelOf(res.Claims)
	if err != nil {
		h.logger.Warn(ctx, "ws_auth_failed", "Channel not permitted for token", err,
			map[string]any{"subject": res.Claims.Subject})
		h.rejectAuth(c, err.Error())
		return
	}
	c.channel, c.subject = ch, res.Claims.Subject

	// subscribe before acknowledging, so nothing published after auth_success is missed
	h.subscribe(c)
	defer h.unsubscribe(c)

	if err := c.writeJSON(contracts.WSAuthResult{Type: "auth_success", Channel: ch.String()}); err != nil {
		h.logger.Error(ctx, "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}
	h.logger.Info(ctx, "ws_connected", "WebSocket subscriber connected",
		map[string]any{"channel": ch.String(), "subject": c.subject})

	_ = conn.SetReadDeadline(time.Now().Add(wsReadIdle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadIdle))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.pingLoop(c, stopPing)

	h.readLoop(ctx, c)
}

func (h *Hub) pingLoop(c *client, stop <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				// closing unblocks the reader, which unsubscribes
				_ = c.conn.Close()
				return
			}
		}
	}
}

// readLoop answers pings until the client leaves. Subscribers have nothing else to say.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	details := map[string]any{"channel": c.channel.String(), "subject": c.subject}
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "ws_unexpected_close", "Subscriber connection closed unexpectedly", err, details)
			} else {
				h.logger.Info(ctx, "ws_connection_closed", "Subscriber connection closed", details)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadIdle))

		var msg contracts.WSClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = c.writeJSON(map[string]string{"type": "error", "error": "bad json"})
			continue
		}
		switch msg.Type {
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		default:
			_ = c.writeJSON(map[string]string{"type": "error", "error": "unknown message type"})
		}
	}
}

func (h *Hub) rejectAuth(c *client, msg string) {
	_ = c.writeJSON(contracts.WSAuthResult{Type: "auth_error", Message: msg})
	c.close(websocket.ClosePolicyViolation, "authentication failed")
}

func (h *Hub) subscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.channel]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.channel] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[c.channel]
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, c.channel)
	}
}

// Subscribers returns the number of live connections on ch.
func (h *Hub) Subscribers(ch contracts.Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ch])
}

// Deliver writes the event to every subscriber of ch. A channel without
// subscribers is not an error. A subscriber whose write fails is disconnected.
func (h *Hub) Deliver(ctx context.Context, ch contracts.Channel, event string, payload []byte) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[ch]))
	for c := range h.subs[ch] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return nil
	}

	frame, err := json.Marshal(contracts.WSFrame{Type: event, Channel: ch.String(), Data: payload})
	if err != nil {
		return fmt.Errorf("encode ws frame: %w", err)
	}

	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var errs []error
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, frame, deadline); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %s: %w", c.subject, err))
			_ = c.conn.Close()
		}
	}
	return errors.Join(errs...)
}

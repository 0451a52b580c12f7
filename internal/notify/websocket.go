package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/tamuctf/CTFd/internal/identity"
)

const writeTimeout = 5 * time.Second

// wsMessage is a client control message.
type wsMessage struct {
	Type string `json:"type"`
}

// WebSocketHandler streams an admin's notifications over a WebSocket.
// The since query parameter is the last sequence number the page has shown;
// only later notifications are replayed.
type WebSocketHandler struct {
	hub            *Hub
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, allowedOrigins []string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	adminID := identity.AdminIDFromContext(r.Context())
	if adminID == "" {
		http.Error(w, "unknown admin", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "admin_id", adminID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "admin_id", adminID)
		}
	}()

	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	replay, updates, unsubscribe := h.hub.Subscribe(adminID, since)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for _, n := range replay {
		if err := h.deliver(ctx, ws, adminID, n); err != nil {
			slog.Debug("Failed to replay notification", "error", err, "admin_id", adminID)
			return
		}
	}

	pongs := make(chan struct{}, 1)
	go func() {
		defer cancel()
		readLoop(ctx, ws, adminID, pongs)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-updates:
			if err := h.deliver(ctx, ws, adminID, n); err != nil {
				slog.Debug("Failed to push notification", "error", err, "admin_id", adminID)
				return
			}
		case <-pongs:
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
				return
			}
		}
	}
}

// deliver writes n and marks it seen so the next page load skips it.
func (h *WebSocketHandler) deliver(ctx context.Context, ws *websocket.Conn, adminID string, n Notification) error {
	if err := writeJSON(ctx, ws, n); err != nil {
		return err
	}
	h.hub.MarkSeen(adminID, n.Seq)
	return nil
}

func readLoop(ctx context.Context, ws *websocket.Conn, adminID string, pongs chan<- struct{}) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "admin_id", adminID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "admin_id", adminID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

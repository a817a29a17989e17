package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/validate"
)

// Handler upgrades authorized requests to an audit event stream.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	origins  map[string]bool
}

// NewHandler returns a handler for hub. Cross-origin upgrades are accepted only from allowedOrigins.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, origins: make(map[string]bool, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		h.origins[strings.TrimRight(o, "/")] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return h.origins[origin] || h.origins["*"]
}

// ServeHTTP handles GET /api/v1/audit/stream?event_type=&username=
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Query{
		EventType: audit.EventType(q.Get("event_type")),
		Username:  q.Get("username"),
	}
	if (filter.EventType != "" && !validate.EventType(string(filter.EventType))) ||
		(filter.Username != "" && !validate.Username(filter.Username)) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid filter"}`))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.hub.log.Debug("audit stream: upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, uuid.New().String(), filter)
	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}
	h.hub.log.Info("audit stream client connected",
		zap.String("client_id", client.id),
		zap.String("event_type", string(filter.EventType)),
	)

	go client.writePump()
	go client.readPump()
}

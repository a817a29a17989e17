package rest

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/validate"
)

// ListAudit handles GET /api/v1/audit?event_type=&username=&since=RFC3339&limit=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.auditLog == nil {
		respondError(w, http.StatusServiceUnavailable, "Audit listing is not enabled")
		return
	}
	q := r.URL.Query()
	query := audit.Query{
		EventType: audit.EventType(q.Get("event_type")),
		Username:  q.Get("username"),
	}
	if query.EventType != "" && !validate.EventType(string(query.EventType)) {
		respondError(w, http.StatusBadRequest, "Invalid event_type")
		return
	}
	if query.Username != "" && !validate.Username(query.Username) {
		respondError(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		query.Since = since
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = limit
	}
	events, err := h.auditLog.List(r.Context(), query)
	if err != nil {
		h.log.Error("list audit events", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list audit events")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/models"
)

// Name identifies the repository as an audit sink.
func (r *SQLiteRepository) Name() string { return "sqlite" }

// Write inserts one audit event.
func (r *SQLiteRepository) Write(ctx context.Context, e *audit.Event) error {
	row := toRow(e)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO audit_events (id, ts, event_type, result, username, role, auth_method,
			resource, resource_type, reason, source_ip, request_id)
		VALUES (:id, :ts, :event_type, :result, :username, :role, :auth_method,
			:resource, :resource_type, :reason, :source_ip, :request_id)
	`, row)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns events matching q, newest first.
func (r *SQLiteRepository) List(ctx context.Context, q audit.Query) ([]audit.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(q.EventType))
	}
	if q.Username != "" {
		where = append(where, "username = ?")
		args = append(args, q.Username)
	}
	if !q.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.Since.UnixNano())
	}
	query := "SELECT * FROM audit_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC LIMIT ?"
	args = append(args, q.EffectiveLimit())

	var rows []models.AuditEventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	out := make([]audit.Event, 0, len(rows))
	for i := range rows {
		out = append(out, fromRow(&rows[i]))
	}
	return out, nil
}

// Prune deletes events older than before and returns how many were removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM audit_events WHERE ts < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return res.RowsAffected()
}

func toRow(e *audit.Event) *models.AuditEventRow {
	return &models.AuditEventRow{
		ID:           e.ID,
		TimestampNS:  e.Timestamp.UnixNano(),
		EventType:    string(e.EventType),
		Result:       string(e.Result),
		Username:     e.Username,
		Role:         e.Role,
		AuthMethod:   e.AuthMethod,
		Resource:     e.Resource,
		ResourceType: e.ResourceType,
		Reason:       e.Reason,
		SourceIP:     e.SourceIP,
		RequestID:    e.RequestID,
	}
}

func fromRow(row *models.AuditEventRow) audit.Event {
	return audit.Event{
		ID:           row.ID,
		Timestamp:    time.Unix(0, row.TimestampNS).UTC(),
		EventType:    audit.EventType(row.EventType),
		Result:       audit.Result(row.Result),
		Username:     row.Username,
		Role:         row.Role,
		AuthMethod:   row.AuthMethod,
		Resource:     row.Resource,
		ResourceType: row.ResourceType,
		Reason:       row.Reason,
		SourceIP:     row.SourceIP,
		RequestID:    row.RequestID,
	}
}

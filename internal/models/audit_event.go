package models

// AuditEventRow is an audit event as stored in the audit_events table.
type AuditEventRow struct {
	ID           string `db:"id"`
	TimestampNS  int64  `db:"ts"`
	EventType    string `db:"event_type"`
	Result       string `db:"result"`
	Username     string `db:"username"`
	Role         string `db:"role"`
	AuthMethod   string `db:"auth_method"`
	Resource     string `db:"resource"`
	ResourceType string `db:"resource_type"`
	Reason       string `db:"reason"`
	SourceIP     string `db:"source_ip"`
	RequestID    string `db:"request_id"`
}

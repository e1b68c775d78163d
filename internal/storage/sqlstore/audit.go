package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRow is one event stored in the audit table.
type AuditRow struct {
	EventID     int64          `json:"event_id"`
	Timestamp   time.Time      `json:"ts"`
	Level       string         `json:"level"`
	Event       string         `json:"event"`
	Message     *string        `json:"msg,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	OperationID *string        `json:"operation_id,omitempty"`
}

// Append inserts an event into the audit table.
func (s *Store) Append(ctx context.Context, ts time.Time, level, event, msg string, fields map[string]any, operationID string) error {
	var fieldsJSON *string
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		v := string(b)
		fieldsJSON = &v
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	var opPtr *string
	if operationID != "" {
		opPtr = &operationID
	}

	query := s.dialect.Rebind(`
		INSERT INTO audit_events (ts, level, event, msg, fields, operation_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query, ts.UTC().Format(time.RFC3339Nano), level, event, msgPtr, fieldsJSON, opPtr)
	return err
}

// Query returns the last limit audit events, newest first.
func (s *Store) Query(ctx context.Context, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := s.dialect.Rebind(`
		SELECT event_id, ts, level, event, msg, fields, operation_id
		FROM audit_events
		ORDER BY event_id DESC
		LIMIT ?
	`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditRow
	for rows.Next() {
		var e AuditRow
		var ts string
		var msg, fields, opID sql.NullString

		if err := rows.Scan(&e.EventID, &ts, &e.Level, &e.Event, &msg, &fields, &opID); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		if opID.Valid {
			e.OperationID = &opID.String
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Publisher is the part of Client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// ErrNotConnected is returned when an event arrives while the broker is
// unreachable.
var ErrNotConnected = errors.New("mqtt not connected")

// Message is the JSON payload published for each event.
type Message struct {
	Timestamp   string         `json:"ts"`
	Level       string         `json:"level"`
	Event       string         `json:"event"`
	Message     string         `json:"msg,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	OperationID string         `json:"operation_id,omitempty"`
}

// Sink publishes export and import events under a topic prefix. An event
// named export.completed goes to <prefix>/export/completed.
type Sink struct {
	pub    Publisher
	prefix string
}

// NewSink returns a sink publishing through pub under prefix.
func NewSink(pub Publisher, prefix string) *Sink {
	return &Sink{pub: pub, prefix: strings.TrimSuffix(prefix, "/")}
}

// Published reports whether events named event are forwarded. API request
// and lifecycle events stay local.
func Published(event string) bool {
	for _, p := range []string{"export.", "import.", "store."} {
		if strings.HasPrefix(event, p) {
			return true
		}
	}
	return false
}

// Topic returns the topic event is published on.
func (s *Sink) Topic(event string) string {
	return s.prefix + "/" + strings.ReplaceAll(event, ".", "/")
}

// Append implements events.Sink.
func (s *Sink) Append(ctx context.Context, ts time.Time, level, event, msg string, fields map[string]any, operationID string) error {
	if !Published(event) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.pub.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(Message{
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
		Level:       level,
		Event:       event,
		Message:     msg,
		Fields:      fields,
		OperationID: operationID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.pub.Publish(s.Topic(event), payload)
}

// Package events records what zbxport does: every export and import emits
// named events that are logged as JSON lines, kept in a ring buffer for the
// API and fanned out to the registered sinks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var recent = newHistory(256)

var total atomic.Int64

// Sink persists or forwards events. The audit table and the MQTT publisher
// implement it.
type Sink interface {
	Append(ctx context.Context, ts time.Time, level, event, msg string, fields map[string]any, operationID string) error
}

type namedSink struct {
	name   string
	sink   Sink
	failed bool
}

var (
	sinkMu      sync.Mutex
	sinks       []*namedSink
	sinkTimeout = 5 * time.Second
)

// AddSink registers s under name. A sink registered again under the same name
// replaces the previous one.
func AddSink(name string, s Sink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	for _, ns := range sinks {
		if ns.name == name {
			ns.sink = s
			ns.failed = false
			return
		}
	}
	sinks = append(sinks, &namedSink{name: name, sink: s})
}

// RemoveSinks drops every registered sink.
func RemoveSinks() {
	sinkMu.Lock()
	sinks = nil
	sinkMu.Unlock()
}

// Event is one emitted event.
type Event struct {
	Timestamp   string         `json:"ts"`
	Level       string         `json:"level"`
	Name        string         `json:"event"`
	Message     string         `json:"msg,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	OperationID string         `json:"operation_id,omitempty"`
}

// NewOperationID returns an identifier tying together the events of one
// export or import.
func NewOperationID() string {
	return uuid.NewString()
}

// Emit records an event. The "operation_id" field, when it holds a string,
// becomes the event's operation ID.
func Emit(level, name, msg string, fields map[string]any) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}
	if id, ok := fields["operation_id"].(string); ok {
		e.OperationID = id
	}

	logEvent(e)
	record(e)
	dispatch(ts, e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return b, nil
}

func record(e Event) {
	recent.add(e)
	total.Add(1)
	broadcast(e)
}

func dispatch(ts time.Time, e Event) {
	sinkMu.Lock()
	targets := append([]*namedSink(nil), sinks...)
	sinkMu.Unlock()

	for _, ns := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := ns.sink.Append(ctx, ts, e.Level, e.Name, e.Message, e.Fields, e.OperationID)
		cancel()
		if err == nil {
			continue
		}
		sinkMu.Lock()
		first := !ns.failed
		ns.failed = true
		sinkMu.Unlock()
		if !first {
			continue
		}
		// Reported straight into the history so a failing sink never sees its
		// own failure event.
		errEvent := Event{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     "error",
			Name:      "store.error",
			Message:   ns.name + " append failed",
			Fields: map[string]any{
				"sink":  ns.name,
				"error": err.Error(),
			},
		}
		logEvent(errEvent)
		record(errEvent)
	}
}

// Snapshot returns the buffered events, oldest first.
func Snapshot() []Event {
	return recent.last(0, Filter{})
}

// TotalCount returns the number of events recorded since startup.
func TotalCount() int64 {
	return total.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	recent.reset()
}

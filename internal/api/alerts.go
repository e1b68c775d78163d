package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/zbxport/internal/events"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected = "mqtt_disconnected"
	AlertStoreUnavailable = "store_unavailable"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Instance  string         `json:"instance"`
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// AlertConfig holds alert configuration.
type AlertConfig struct {
	WebhookURL           string
	MQTTDisconnectDelay  time.Duration
	StoreDisconnectDelay time.Duration
}

// dependencyWatch tracks how long one dependency has been down.
type dependencyWatch struct {
	event     string
	label     string
	severity  string
	downSince time.Time
	alertSent bool
	lastUp    bool
}

var (
	alertConfig = &AlertConfig{
		MQTTDisconnectDelay:  30 * time.Second,
		StoreDisconnectDelay: 5 * time.Second,
	}
	alertMu       sync.Mutex
	alertInstance = "zbxport"
	alertClient   = &http.Client{Timeout: 10 * time.Second}

	mqttWatch  = &dependencyWatch{event: AlertMQTTDisconnected, label: "MQTT broker", severity: SeverityWarning, lastUp: true}
	storeWatch = &dependencyWatch{event: AlertStoreUnavailable, label: "Store", severity: SeverityCritical, lastUp: true}

	alertMonitorInitialized bool
)

// InitAlerts initializes the alert system from environment variables.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertConfig.WebhookURL = os.Getenv("ZBXPORT_ALERT_WEBHOOK_URL")
	alertConfig.MQTTDisconnectDelay = envDuration("ZBXPORT_MQTT_ALERT_DELAY", 30*time.Second)
	alertConfig.StoreDisconnectDelay = envDuration("ZBXPORT_STORE_ALERT_DELAY", 5*time.Second)

	if host, err := os.Hostname(); err == nil && host != "" {
		alertInstance = host
	}
	if alertConfig.WebhookURL != "" {
		events.Logger().Info("alerts enabled",
			"mqtt_delay", alertConfig.MQTTDisconnectDelay.String(),
			"store_delay", alertConfig.StoreDisconnectDelay.String())
	}

	for _, w := range []*dependencyWatch{mqttWatch, storeWatch} {
		w.downSince = time.Time{}
		w.alertSent = false
		w.lastUp = true
	}
	alertMonitorInitialized = true
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		events.Logger().Warn("ignoring invalid duration", "env", key, "value", v)
	}
	return def
}

// GetAlertWebhookURL returns the configured webhook URL.
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return alertConfig.WebhookURL
}

// SendAlert posts an alert to the configured webhook in the background.
// Without a webhook the alert is only logged.
func SendAlert(event, severity, message string, details map[string]any) {
	alertMu.Lock()
	webhookURL := alertConfig.WebhookURL
	instance := alertInstance
	alertMu.Unlock()

	if webhookURL == "" {
		events.Logger().Warn("alert", "alert", event, "severity", severity, "message", message, "details", details)
		return
	}

	payload := AlertPayload{
		Instance:  instance,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	go sendWebhook(webhookURL, payload)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		events.Logger().Error("alert: marshal payload", "error", err.Error())
		return
	}

	resp, err := alertClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		events.Logger().Error("alert: webhook POST failed", "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		events.Logger().Error("alert: webhook rejected alert", "status", resp.StatusCode)
	}
}

// observe folds one health sample into w and returns the alert to send, if
// any. Callers hold alertMu.
func (w *dependencyWatch) observe(up bool, now time.Time, delay time.Duration) *AlertPayload {
	if up {
		var a *AlertPayload
		if !w.lastUp && w.alertSent {
			a = &AlertPayload{
				Event:    w.event,
				Severity: SeverityInfo,
				Message:  w.label + " connection restored",
				Details:  map[string]any{"recovered_at": now.UTC().Format(time.RFC3339)},
			}
		}
		w.downSince = time.Time{}
		w.alertSent = false
		w.lastUp = true
		return a
	}

	if w.lastUp {
		w.downSince = now
	}
	w.lastUp = false

	down := now.Sub(w.downSince)
	if w.alertSent || down < delay {
		return nil
	}
	w.alertSent = true
	return &AlertPayload{
		Event:    w.event,
		Severity: w.severity,
		Message:  fmt.Sprintf("%s unavailable", w.label),
		Details: map[string]any{
			"disconnected_since":   w.downSince.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(down.Seconds()),
		},
	}
}

func checkDependency(w *dependencyWatch, up bool, delay func() time.Duration) {
	alertMu.Lock()
	if !alertMonitorInitialized {
		alertMu.Unlock()
		return
	}
	a := w.observe(up, time.Now(), delay())
	alertMu.Unlock()

	if a != nil {
		SendAlert(a.Event, a.Severity, a.Message, a.Details)
	}
}

// CheckAndAlertMQTT records the broker state and alerts once it has been
// down longer than the MQTT delay.
func CheckAndAlertMQTT(connected bool) {
	checkDependency(mqttWatch, connected, func() time.Duration { return alertConfig.MQTTDisconnectDelay })
}

// CheckAndAlertStore records the store state and alerts once it has been
// unreachable longer than the store delay.
func CheckAndAlertStore(connected bool) {
	checkDependency(storeWatch, connected, func() time.Duration { return alertConfig.StoreDisconnectDelay })
}

// Probe reports dependency health.
type Probe func(ctx context.Context) (storeOK, mqttOK bool)

// StartAlertMonitor runs probe every interval until ctx ends, feeding the
// results into readiness and the alert checks.
func StartAlertMonitor(ctx context.Context, interval time.Duration, probe Probe) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			storeOK, mqttOK := probe(ctx)
			readiness.mu.Lock()
			readiness.storeConnected = storeOK
			readiness.mqttConnected = mqttOK
			readiness.mu.Unlock()

			CheckAndAlertStore(storeOK)
			CheckAndAlertMQTT(mqttOK)
		}
	}()
}

package api

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/version"
)

// MetricsState holds the process start time for the uptime gauge.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
}

var metricsState = &MetricsState{startTime: time.Now()}

// InitMetrics resets the uptime clock. Call at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

func uptime() float64 {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return time.Since(metricsState.startTime).Seconds()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

var (
	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "zbxport",
		Name:        "uptime_seconds",
		Help:        "Number of seconds since the server started",
		ConstLabels: prometheus.Labels{"version": version.Version},
	}, uptime)

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "zbxport",
		Name:      "events_total",
		Help:      "Total number of events emitted since startup",
	}, func() float64 { return float64(events.TotalCount()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "zbxport",
		Name:      "ws_clients",
		Help:      "Number of active WebSocket client connections",
	}, func() float64 { return float64(events.SubscriberCount()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "zbxport",
		Name:      "store_connected",
		Help:      "Whether the configuration store is reachable (1) or not (0)",
	}, func() float64 {
		readiness.mu.RLock()
		defer readiness.mu.RUnlock()
		return boolGauge(readiness.storeConnected)
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "zbxport",
		Name:      "mqtt_connected",
		Help:      "Whether the MQTT broker is connected (1) or not (0)",
	}, func() float64 {
		readiness.mu.RLock()
		defer readiness.mu.RUnlock()
		return boolGauge(readiness.mqttConnected)
	})
)

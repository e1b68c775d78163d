package api

import (
	"net/http"
	"strings"
	"sync"
)

type readinessState struct {
	mu             sync.RWMutex
	storeConnected bool
	mqttConnected  bool
	mqttOptional   bool
}

var readiness = &readinessState{mqttOptional: true}

// SetReadinessState records dependency health for /ready and /metrics.
// MQTT only gates readiness when it is not optional.
func SetReadinessState(storeConnected, mqttConnected, mqttOptional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.storeConnected = storeConnected
	readiness.mqttConnected = mqttConnected
	readiness.mqttOptional = mqttOptional
}

// CheckStatus is the state of one dependency.
type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

func check(ok bool) string {
	if ok {
		return "ok"
	}
	return "not_ready"
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	storeOK := readiness.storeConnected
	mqttOK := readiness.mqttConnected
	mqttOptional := readiness.mqttOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{
		Ready: true,
		Checks: map[string]CheckStatus{
			"store": {Status: check(storeOK)},
			"mqtt":  {Status: check(mqttOK), Optional: mqttOptional},
		},
	}
	var missing []string
	if !storeOK {
		missing = append(missing, "store")
	}
	if !mqttOK && !mqttOptional {
		missing = append(missing, "mqtt")
	}
	status := http.StatusOK
	if len(missing) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = "waiting for " + strings.Join(missing, ", ")
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

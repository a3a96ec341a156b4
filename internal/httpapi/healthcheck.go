package httpapi

import (
	"net/http"

	"dcim-server/internal/utils"
)

// ConnectionChecker reports broker connectivity. A nil checker means the
// publisher is disabled.
type ConnectionChecker interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	mqtt ConnectionChecker
}

func newHealthchecker(mqtt ConnectionChecker) healthchecker {
	return &healthcheckerImpl{mqtt: mqtt}
}

// handleHealthz is a liveness probe; a broker outage is reported, not failed.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mqtt":   h.mqttState(),
	})
}

func (h *healthcheckerImpl) mqttState() string {
	switch {
	case h.mqtt == nil:
		return "disabled"
	case h.mqtt.IsConnected():
		return "connected"
	default:
		return "disconnected"
	}
}

func registerHealthcheck(mux *http.ServeMux, mqtt ConnectionChecker) {
	hc := newHealthchecker(mqtt)
	mux.HandleFunc("GET /healthz", hc.handleHealthz)
}

package controller

import (
	"log/slog"
	"net/http"

	"dcim-server/internal/utils"
)

func (c *sensorControllerImpl) handleSensors(w http.ResponseWriter, r *http.Request) {
	reading, err := c.source.Read(r.Context())
	if err != nil {
		slog.Error("sensors: read failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read sensors")
		return
	}
	utils.WriteJSON(w, http.StatusOK, reading)
}

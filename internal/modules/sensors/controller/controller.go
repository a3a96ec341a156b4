package controller

import (
	"net/http"

	"dcim-server/internal/modules/sensors/source"
)

type SensorController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorControllerImpl struct {
	source source.Source
}

func NewSensorController(src source.Source) SensorController {
	return &sensorControllerImpl{source: src}
}

func (c *sensorControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sensors", c.handleSensors)
}

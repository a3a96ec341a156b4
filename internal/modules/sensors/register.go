package sensors

import (
	"net/http"

	"dcim-server/internal/modules/sensors/controller"
	"dcim-server/internal/modules/sensors/source"
)

// RegisterFeature mounts the sensor routes on mux, served from src.
func RegisterFeature(mux *http.ServeMux, src source.Source) {
	sensorController := controller.NewSensorController(src)
	sensorController.RegisterRoutes(mux)
}

package httpapi

import (
	"net/http"
)

func NewMux(mqtt ConnectionChecker) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, mqtt)
	return mux
}

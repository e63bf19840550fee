package handlers

import "net/http"

// Health is a static liveness probe; it touches no dependencies.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is up!"})
}

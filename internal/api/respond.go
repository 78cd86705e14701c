// Package api exposes the JSON API the web UI consumes.
package api

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// reconnectBody tells the UI to show the reconnect affordance instead
// of a generic error.
func reconnectBody() map[string]string {
	return map[string]string{"error": "reconnect", "message": "session expired, please sign in again"}
}

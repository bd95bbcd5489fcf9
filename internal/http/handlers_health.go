package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler reports liveness of the console process itself. Backend
// reachability is served separately by /api/health.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

package health

import (
	"encoding/json"
	"net/http"

	applog "github.com/janisto/multistage-demo/internal/platform/logging"
)

// StatusHealthy is reported while the process is serving.
const StatusHealthy = "healthy"

// Response is the payload for the health endpoint.
type Response struct {
	Status string `json:"status"`
}

// Handler is a plain HTTP handler for container liveness probes. It is kept
// outside Huma so probes skip content negotiation and OpenAPI.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(Response{Status: StatusHealthy}); err != nil {
		applog.LogError(r.Context(), "health response write failed", err)
	}
}

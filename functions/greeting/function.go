// Package greeting serves the greeting endpoint as an HTTP Cloud Function.
package greeting

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"go.uber.org/zap"
)

// LocalDateTime matches the server's greeting timestamp layout.
const LocalDateTime = "2006-01-02T15:04:05.999"

const (
	defaultAppName  = "docker-multistage-demo"
	unknownHostname = "unknown"
)

var (
	now      = time.Now
	hostname = os.Hostname
	logger   = newLogger()
)

func init() {
	functions.HTTP("Greeting", greetingHandler)
}

func newLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Response is the greeting payload. Field order is the wire order.
type Response struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Hostname  string `json:"hostname"`
}

func appName() string {
	for _, k := range []string{"APP_NAME", "SPRING_APPLICATION_NAME"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return defaultAppName
}

func resolveHostname() string {
	name, err := hostname()
	if err != nil || name == "" {
		logger.Warn("hostname lookup failed", zap.Error(err), zap.String("fallback", unknownHostname))
		return unknownHostname
	}
	return name
}

func greetingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	resp := Response{
		Message:   "Hello from " + appName(),
		Timestamp: now().Local().Format(LocalDateTime),
		Hostname:  resolveHostname(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("greeting response write failed", zap.Error(err))
	}
}

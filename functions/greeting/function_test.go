package greeting

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func stub(t *testing.T, at time.Time, host string, err error) {
	t.Helper()
	origNow, origHost := now, hostname
	now = func() time.Time { return at }
	hostname = func() (string, error) { return host, err }
	t.Cleanup(func() { now, hostname = origNow, origHost })
}

func TestGreetingScenario(t *testing.T) {
	stub(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), "fn-host", nil)
	t.Setenv("APP_NAME", "demo-service")

	resp := httptest.NewRecorder()
	greetingHandler(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	want := `{"message":"Hello from demo-service","timestamp":"2024-01-01T00:00:00","hostname":"fn-host"}`
	if got := strings.TrimSpace(resp.Body.String()); got != want {
		t.Fatalf("unexpected body\nwant %s\ngot  %s", want, got)
	}
}

func TestGreetingDefaultsAppName(t *testing.T) {
	stub(t, time.Now(), "fn-host", nil)
	t.Setenv("APP_NAME", "")
	t.Setenv("SPRING_APPLICATION_NAME", "")

	resp := httptest.NewRecorder()
	greetingHandler(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	var body Response
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if body.Message != "Hello from "+defaultAppName {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestGreetingHostnameFallback(t *testing.T) {
	for _, tt := range []struct {
		name string
		host string
		err  error
	}{
		{"error", "", errors.New("no uts")},
		{"empty", "", nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, time.Now(), tt.host, tt.err)

			resp := httptest.NewRecorder()
			greetingHandler(resp, httptest.NewRequest(http.MethodGet, "/", nil))

			var body Response
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("json unmarshal: %v", err)
			}
			if body.Hostname != unknownHostname {
				t.Fatalf("expected %q, got %q", unknownHostname, body.Hostname)
			}
		})
	}
}

func TestGreetingRejectsPost(t *testing.T) {
	resp := httptest.NewRecorder()
	greetingHandler(resp, httptest.NewRequest(http.MethodPost, "/", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Fatalf("unexpected Allow %q", allow)
	}
}

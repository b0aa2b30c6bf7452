package greeting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	applog "github.com/janisto/multistage-demo/internal/platform/logging"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func fixedHost(name string) func() (string, error) {
	return func() (string, error) { return name, nil }
}

func observedContext() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return applog.WithLogger(context.Background(), zap.New(core)), logs
}

func TestGreetScenario(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	g := NewGreeter("demo-service", WithClock(fixedClock(at)), WithHostnameResolver(fixedHost("web-7f9c")))

	got := g.Greet(context.Background())

	if got.Message != "Hello from demo-service" {
		t.Errorf("expected message %q, got %q", "Hello from demo-service", got.Message)
	}
	if !got.Timestamp.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, got.Timestamp)
	}
	if got.Hostname != "web-7f9c" {
		t.Errorf("expected hostname web-7f9c, got %q", got.Hostname)
	}
}

func TestGreetMessageUsesAppName(t *testing.T) {
	for _, name := range []string{"docker-multistage-demo", "", "svc with spaces"} {
		g := NewGreeter(name, WithHostnameResolver(fixedHost("h")))
		if got := g.Greet(context.Background()).Message; got != MessagePrefix+name {
			t.Errorf("app %q: expected %q, got %q", name, MessagePrefix+name, got)
		}
		if g.AppName() != name {
			t.Errorf("expected AppName %q, got %q", name, g.AppName())
		}
	}
}

func TestGreetHostnameFallback(t *testing.T) {
	tests := []struct {
		name     string
		resolver func() (string, error)
	}{
		{name: "resolver error", resolver: func() (string, error) { return "", errors.New("uts namespace unavailable") }},
		{name: "empty name", resolver: fixedHost("")},
		{name: "error with partial name", resolver: func() (string, error) { return "partial", errors.New("truncated") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, logs := observedContext()
			g := NewGreeter("demo-service", WithHostnameResolver(tt.resolver))

			got := g.Greet(ctx)

			if got.Hostname != UnknownHostname {
				t.Fatalf("expected %q, got %q", UnknownHostname, got.Hostname)
			}
			if got.Message != "Hello from demo-service" {
				t.Fatalf("fallback must not affect message, got %q", got.Message)
			}
			entries := logs.FilterMessage("hostname lookup failed").All()
			if len(entries) != 1 {
				t.Fatalf("expected one warning, got %d", len(entries))
			}
			if entries[0].Level != zapcore.WarnLevel {
				t.Fatalf("expected warn level, got %v", entries[0].Level)
			}
			if entries[0].ContextMap()["fallback"] != UnknownHostname {
				t.Fatalf("expected fallback field, got %v", entries[0].ContextMap())
			}
		})
	}
}

func TestGreetEmptyHostnameWrapsSentinel(t *testing.T) {
	ctx, logs := observedContext()
	NewGreeter("demo", WithHostnameResolver(fixedHost(""))).Greet(ctx)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	for _, f := range entries[0].Context {
		if f.Key != "error" {
			continue
		}
		err, ok := f.Interface.(error)
		if !ok || !errors.Is(err, ErrEmptyHostname) {
			t.Fatalf("expected ErrEmptyHostname, got %v", f.Interface)
		}
		return
	}
	t.Fatal("expected error field")
}

func TestGreetSuccessDoesNotLog(t *testing.T) {
	ctx, logs := observedContext()
	NewGreeter("demo", WithHostnameResolver(fixedHost("host-a"))).Greet(ctx)
	if logs.Len() != 0 {
		t.Fatalf("expected no log entries, got %d", logs.Len())
	}
}

func TestGreetDefaultsUseWallClockAndOS(t *testing.T) {
	g := NewGreeter("demo")

	before := time.Now()
	got := g.Greet(context.Background())
	after := time.Now()

	if got.Timestamp.Before(before) || got.Timestamp.After(after) {
		t.Fatalf("timestamp %v outside [%v, %v]", got.Timestamp, before, after)
	}
	if got.Hostname == "" {
		t.Fatal("expected a host name or the fallback")
	}
}

func TestGreetTimestampNonDecreasing(t *testing.T) {
	g := NewGreeter("demo", WithHostnameResolver(fixedHost("h")))

	prev := g.Greet(context.Background()).Timestamp
	for range 100 {
		next := g.Greet(context.Background()).Timestamp
		if next.Before(prev) {
			t.Fatalf("timestamp went backwards: %v then %v", prev, next)
		}
		prev = next
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	g := NewGreeter("demo", WithClock(nil), WithHostnameResolver(nil))
	if g.now == nil || g.hostname == nil {
		t.Fatal("nil options must not clear defaults")
	}
}

func TestGreetConcurrent(t *testing.T) {
	g := NewGreeter("demo", WithHostnameResolver(fixedHost("shared")))

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			if got := g.Greet(context.Background()); got.Hostname != "shared" || got.Message != "Hello from demo" {
				t.Errorf("unexpected greeting %+v", got)
			}
		})
	}
	wg.Wait()
}

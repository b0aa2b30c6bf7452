package greeting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	applog "github.com/janisto/multistage-demo/internal/platform/logging"
)

const (
	// MessagePrefix precedes the application name in every greeting.
	MessagePrefix = "Hello from "
	// UnknownHostname replaces the host name when it cannot be resolved.
	UnknownHostname = "unknown"
)

// ErrEmptyHostname is reported when the resolver succeeds without a name.
var ErrEmptyHostname = errors.New("hostname resolver returned an empty name")

// Greeting is the transient result of a single greet call.
type Greeting struct {
	Message   string
	Timestamp time.Time
	Hostname  string
}

// Service builds greetings.
//
// Implementations never fail: a host name that cannot be resolved is
// reported as UnknownHostname.
type Service interface {
	Greet(ctx context.Context) Greeting
}

// Option customizes a Greeter.
type Option func(*Greeter)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Greeter) {
		if now != nil {
			g.now = now
		}
	}
}

// WithHostnameResolver replaces os.Hostname as the host name source.
func WithHostnameResolver(resolve func() (string, error)) Option {
	return func(g *Greeter) {
		if resolve != nil {
			g.hostname = resolve
		}
	}
}

// Greeter is the Service used by the server. Its fields are set once by
// NewGreeter, so a single value may serve concurrent requests.
type Greeter struct {
	appName  string
	now      func() time.Time
	hostname func() (string, error)
}

var _ Service = (*Greeter)(nil)

// NewGreeter returns a Greeter announcing appName.
func NewGreeter(appName string, opts ...Option) *Greeter {
	g := &Greeter{
		appName:  appName,
		now:      time.Now,
		hostname: os.Hostname,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AppName returns the configured application name.
func (g *Greeter) AppName() string {
	return g.appName
}

// Greet assembles the greeting for the current instant and host.
func (g *Greeter) Greet(ctx context.Context) Greeting {
	return Greeting{
		Message:   MessagePrefix + g.appName,
		Timestamp: g.now(),
		Hostname:  g.resolveHostname(ctx),
	}
}

func (g *Greeter) resolveHostname(ctx context.Context) string {
	name, err := g.hostname()
	if err == nil && name == "" {
		err = ErrEmptyHostname
	}
	if err != nil {
		applog.LogWarn(ctx, "hostname lookup failed",
			zap.Error(fmt.Errorf("resolve hostname: %w", err)),
			zap.String("fallback", UnknownHostname),
		)
		return UnknownHostname
	}
	return name
}

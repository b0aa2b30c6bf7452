package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/multistage-demo/internal/platform/timeutil"
	greetingsvc "github.com/janisto/multistage-demo/internal/service/greeting"
)

// Register wires the greeting route into the provided API router.
func Register(api huma.API, svc greetingsvc.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greet the caller",
		Description: "Returns the application name, the local time and the serving host. Never fails; an unresolvable host is reported as \"unknown\".",
		Tags:        []string{"Greeting"},
	}, func(ctx context.Context, _ *struct{}) (*GetOutput, error) {
		g := svc.Greet(ctx)
		return &GetOutput{Body: Data{
			Message:   g.Message,
			Timestamp: timeutil.FormatLocal(g.Timestamp),
			Hostname:  g.Hostname,
		}}, nil
	})
}

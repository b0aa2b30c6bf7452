package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/multistage-demo/internal/http/greeting"
	greetingsvc "github.com/janisto/multistage-demo/internal/service/greeting"
)

// Register wires all API operations into the provided API router.
func Register(api huma.API, greeter greetingsvc.Service) {
	greeting.Register(api, greeter)
}

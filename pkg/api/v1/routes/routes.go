// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/slatehq/slate/pkg/api/v1/handlers"
)

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"

	// RPCPath is the endpoint all api3 calls are POSTed to
	RPCPath = "/api3/json"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// RegisterRoutes configures the v1 routes
func RegisterRoutes(app *fiber.App, rpcHandler *handlers.RPCHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Post(RPCPath, rpcHandler.HandleRPC)
}

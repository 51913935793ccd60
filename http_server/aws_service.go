package http_server

import (
	"github.com/labstack/echo/v4"
)

type AWSServiceProvider interface {
	// ServiceName returns the service name this provider handles (e.g., "s3", "secretsmanager")
	ServiceName() string

	// Register mounts the provider's routes
	Register(e *echo.Echo)
}

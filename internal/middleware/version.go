package middleware

import (
	"github.com/labstack/echo/v4"
)

// CurrentAPIVersion prefixes every versioned route.
const CurrentAPIVersion = "v1"

const currentVersionMessage = "Current stable API version"

// VersionHeader stamps the API version onto every response of the group.
func VersionHeader(version, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if message != "" {
				h.Set("X-API-Message", message)
			}
			return next(c)
		}
	}
}

// VersionRoute creates the /<CurrentAPIVersion> route group.
func VersionRoute(e *echo.Echo) *echo.Group {
	group := e.Group("/" + CurrentAPIVersion)
	group.Use(VersionHeader(CurrentAPIVersion, currentVersionMessage))
	return group
}

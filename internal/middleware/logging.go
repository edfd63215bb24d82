package middleware

import (
	"net/http"
	"strings"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return shouldSkipLogging(c.Request().Method, c.Path())
		},
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"ip":         v.RemoteIP,
			}
			if v.RequestID != "" {
				fields["request_id"] = v.RequestID
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
				log.Error("Request failed", fields)
				return nil
			}
			if v.Status >= http.StatusInternalServerError {
				log.Error("Request failed", fields)
				return nil
			}
			log.Info("Request handled", fields)
			return nil
		},
	})
}

// ActivityTrail records every write made by an authenticated user: who changed
// what and with which outcome. Reads are not recorded.
func ActivityTrail(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if !isWrite(method) {
				return err
			}

			ctx := c.Request().Context()
			fields := map[string]interface{}{
				"action": method + " " + c.Path(),
				"params": routeParams(c),
				"status": c.Response().Status,
				"ip":     c.RealIP(),
			}
			if userID, ok := common.GetUserIDFromContext(ctx); ok {
				fields["user_id"] = userID.String()
			}
			if role, ok := common.GetRoleFromContext(ctx); ok {
				fields["role"] = string(role)
			}
			if err != nil {
				fields["error"] = err.Error()
			}
			log.Info("Activity", fields)
			return err
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func routeParams(c echo.Context) map[string]string {
	names := c.ParamNames()
	params := make(map[string]string, len(names))
	for i, name := range names {
		params[name] = c.ParamValues()[i]
	}
	return params
}

func shouldSkipLogging(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range []string{"/health", "/metrics", "/favicon"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

package handlers

import (
	"errors"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// writeError turns a service error into the JSON error envelope. Anything that is
// not a known sentinel is logged and reported as a 500.
func writeError(c echo.Context, log logger.Logger, resource string, err error) error {
	var fieldErr *services.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return common.SendValidationError(c, fieldErr.Field, fieldErr.Message)
	case errors.Is(err, services.ErrInvalidInput):
		return common.SendClientError(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return common.SendNotFoundError(c, resource)
	case errors.Is(err, services.ErrUnauthorized):
		return common.SendUnauthorizedError(c)
	case errors.Is(err, services.ErrForbidden):
		return common.SendForbiddenError(c)
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidState):
		return common.SendConflictError(c, err.Error())
	case errors.Is(err, services.ErrRateLimited):
		return common.SendRateLimitedError(c)
	}

	log.WithError(err).Error("Request failed", map[string]interface{}{
		"method":   c.Request().Method,
		"path":     c.Path(),
		"resource": resource,
	})
	return common.SendServerError(c, "Internal server error")
}

// pathUUID reads a UUID path parameter. On failure the validation response has
// already been written and ok is false.
func pathUUID(c echo.Context, name string) (uuid.UUID, bool, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, false, common.SendValidationError(c, name, err.Error())
	}
	return id, true, nil
}

// bindJSON decodes the request body. On failure the 400 has already been written
// and ok is false.
func bindJSON(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, common.SendClientError(c, "Invalid request format")
	}
	return true, nil
}

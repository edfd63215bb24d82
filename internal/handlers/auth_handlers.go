package handlers

import (
	"net/http"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles login, logout and the current-user lookup
type AuthHandlers struct {
	authService services.AuthService
	log         logger.Logger
}

func NewAuthHandlers(authService services.AuthService, log logger.Logger) *AuthHandlers {
	return &AuthHandlers{authService: authService, log: log}
}

// Login starts a session for a known, active user. Attempts are limited per client IP.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req models.LoginRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if err := common.ValidateRequiredString(req.Username, "username"); err != nil {
		return common.SendValidationError(c, "username", err.Error())
	}

	session, err := h.authService.Login(c.Request().Context(), req.Username, c.RealIP())
	if err != nil {
		return writeError(c, h.log, "User", err)
	}
	return c.JSON(http.StatusOK, session)
}

// Logout revokes the caller's session.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, ok := common.GetSessionIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if err := h.authService.Logout(ctx, sessionID); err != nil {
		return writeError(c, h.log, "Session", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	user, err := h.authService.CurrentUser(ctx, userID)
	if err != nil {
		return writeError(c, h.log, "User", err)
	}
	return c.JSON(http.StatusOK, user)
}

// actor loads the authenticated user for handlers that record who made a change.
func actor(c echo.Context, authService services.AuthService) (*models.User, error) {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return nil, services.ErrUnauthorized
	}
	return authService.CurrentUser(ctx, userID)
}

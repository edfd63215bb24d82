package middleware

import (
	"errors"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/services"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const sessionContextKey = "session"

// SessionAuth validates the bearer token and checks the session it names is still
// live in redis. On success the user id, role and session id are put on the
// request context.
func SessionAuth(authService services.AuthService, log logger.Logger) echo.MiddlewareFunc {
	parse := echojwt.WithConfig(echojwt.Config{
		ContextKey: sessionContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return authService.ParseToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(func(c echo.Context) error {
			claims, ok := c.Get(sessionContextKey).(*services.SessionClaims)
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			ctx := c.Request().Context()
			userID, err := authService.ValidateSession(ctx, claims)
			if err != nil {
				if errors.Is(err, services.ErrUnauthorized) {
					return common.SendUnauthorizedError(c)
				}
				log.Error("Session lookup failed", map[string]interface{}{"error": err.Error()})
				return common.SendServerError(c, "Unable to verify session")
			}

			c.SetRequest(c.Request().WithContext(common.WithSession(ctx, userID, claims.Role, claims.ID)))
			return next(c)
		})
	}
}

// RequireRole rejects requests whose session role is not one of roles.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !allowed[role] {
				return common.SendForbiddenError(c)
			}
			return next(c)
		}
	}
}

// RequireEditor allows ADMIN and OFFICER.
func RequireEditor() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin, models.RoleOfficer)
}

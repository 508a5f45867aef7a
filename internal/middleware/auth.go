package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clink-api/internal/apperr"
	"clink-api/internal/auth"
	"clink-api/internal/rbac"
	"clink-api/internal/tenant"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

// CompanyHeader is the optional company-override header.
const CompanyHeader = "X-Company-ID"

const authContextKey = "auth_context"

// Authenticate runs the gate for every protected route and stores the
// AuthContext for downstream handlers.
func Authenticate(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			actx, err := gate.Authenticate(
				c.Request().Context(),
				c.Request().Header.Get(echo.HeaderAuthorization),
				c.Request().Header.Get(CompanyHeader),
			)
			if err != nil {
				log.Warn("authentication failed", zap.String("kind", apperr.KindOf(err).String()))
				prometheus.RecordAuthError(apperr.KindOf(err).String())
				return respondError(c, err)
			}

			c.Set(authContextKey, actx)
			return next(c)
		}
	}
}

// AuthFromContext returns the AuthContext stored by Authenticate.
func AuthFromContext(c echo.Context) (*auth.AuthContext, bool) {
	actx, ok := c.Get(authContextKey).(*auth.AuthContext)
	return actx, ok
}

// WithAuthContext stores an AuthContext in the slot Authenticate uses.
// Handler tests call it to exercise routes without running the gate.
func WithAuthContext(c echo.Context, actx *auth.AuthContext) {
	c.Set(authContextKey, actx)
}

// RequireCompanyContext rejects requests that resolved no company with
// CompanyRequired. Global-scope principals hit this only on routes that
// genuinely need a single company.
func RequireCompanyContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actx, ok := AuthFromContext(c)
		if !ok {
			return respondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
		}
		if _, err := tenant.Require(actx.CompanyID); err != nil {
			logger.FromContext(c).Warn("company context required",
				zap.String("user_id", actx.UserID))
			return respondError(c, err)
		}
		return next(c)
	}
}

// RequirePermission gates a route on one permission code from the
// static catalog.
func RequirePermission(code string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actx, ok := AuthFromContext(c)
			if !ok {
				return respondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
			}
			if !rbac.Authorize(actx.Permissions, code) {
				logger.FromContext(c).Warn("permission denied",
					zap.String("user_id", actx.UserID),
					zap.String("permission", code))
				prometheus.RecordPermissionDenied(code)
				return respondError(c, apperr.New(apperr.Forbidden, "insufficient permissions"))
			}
			return next(c)
		}
	}
}

// respondError maps the tagged error to its status and the public body.
func respondError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	return c.JSON(kind.HTTPStatus(), echo.Map{
		"error":   kind.String(),
		"message": apperr.PublicMessage(err),
	})
}

// RespondError is the handler-facing alias for the error mapping.
func RespondError(c echo.Context, err error) error {
	return respondError(c, err)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clink-api/internal/dashboard"
	"clink-api/internal/middleware"
	"clink-api/pkg/logger"
)

// DashboardHandler hands authenticated users a short-lived guest token
// for the embedded analytics dashboard.
type DashboardHandler struct {
	tokens *dashboard.TokenCache
}

func NewDashboardHandler(tokens *dashboard.TokenCache) *DashboardHandler {
	return &DashboardHandler{tokens: tokens}
}

// GuestToken returns the cached dashboard access token, refreshing it
// upstream when it is missing or near expiry.
func (h *DashboardHandler) GuestToken(c echo.Context) error {
	log := logger.FromContext(c)

	tok, err := h.tokens.Get(c.Request().Context())
	if err != nil {
		log.Error("Failed to obtain dashboard token", zap.Error(err))
		return middleware.RespondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt,
	})
}

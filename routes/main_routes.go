package routes

import (
	"net/http"

	"github.com/HSouheill/vendor_settlement/controllers"
	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/HSouheill/vendor_settlement/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Controllers bundles every HTTP handler the API exposes.
type Controllers struct {
	Recharges   *controllers.RechargeController
	Referrals   *controllers.ReferralController
	Withdrawals *controllers.WithdrawalController
	CronLogs    *controllers.CronLogController
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, ctrl Controllers, hub *websocket.Hub, jwtSecret string, logger *zap.Logger) {
	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	auth := middleware.JWTMiddleware(jwtSecret, logger)
	RegisterVendorRoutes(e, ctrl, auth)
	RegisterAdminRoutes(e, ctrl, hub, auth)
}

package routes

import (
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/HSouheill/vendor_settlement/websocket"
	"github.com/labstack/echo/v4"
)

// RegisterAdminRoutes sets up all admin-related routes
func RegisterAdminRoutes(e *echo.Echo, ctrl Controllers, hub *websocket.Hub, auth echo.MiddlewareFunc) {
	admin := e.Group("/api/admin")
	admin.Use(auth)
	admin.Use(middleware.RequireUserType(middleware.UserTypeAdmin))

	admin.POST("/recharges/:id/approve", ctrl.Recharges.ApproveRecharge)
	admin.POST("/recharges/:id/cancel", ctrl.Recharges.CancelRecharge)
	admin.POST("/referrals/link", ctrl.Referrals.LinkReferral)
	admin.POST("/withdrawals/:id/approve", ctrl.Withdrawals.ApproveWithdrawal)
	admin.POST("/withdrawals/:id/reject", ctrl.Withdrawals.RejectWithdrawal)
	admin.GET("/cron-logs", ctrl.CronLogs.ListCronLogs)

	admin.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub, middleware.GetUserIDFromToken(c))
	})
}

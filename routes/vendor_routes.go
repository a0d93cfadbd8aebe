package routes

import (
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterVendorRoutes sets up the routes vendors and admins share. Handlers
// check that a vendor only acts on its own records.
func RegisterVendorRoutes(e *echo.Echo, ctrl Controllers, auth echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.Use(auth)

	shared := api.Group("")
	shared.Use(middleware.RequireUserType(middleware.UserTypeVendor, middleware.UserTypeAdmin))
	shared.POST("/recharges", ctrl.Recharges.CreateRecharge)
	shared.POST("/referrals/invites", ctrl.Referrals.CreateInvite)
	shared.POST("/withdrawals", ctrl.Withdrawals.RequestWithdrawal)

	vendor := api.Group("")
	vendor.Use(middleware.RequireUserType(middleware.UserTypeVendor))
	vendor.POST("/withdrawals/:id/cancel", ctrl.Withdrawals.CancelWithdrawal)

	adminOnly := api.Group("")
	adminOnly.Use(middleware.RequireUserType(middleware.UserTypeAdmin))
	adminOnly.GET("/recharges/:id", ctrl.Recharges.GetRecharge)
	adminOnly.POST("/vendors", ctrl.Referrals.RegisterVendor)
	adminOnly.GET("/vendors/:id/recharges", ctrl.Recharges.ListVendorRecharges)
	adminOnly.GET("/vendors/:id/referrals", ctrl.Referrals.GetReferralTree)
}

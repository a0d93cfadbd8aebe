package controllers

import (
	"net/http"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/labstack/echo/v4"
)

type RechargeController struct {
	recharges  *services.RechargeService
	settlement *services.SettlementService
}

func NewRechargeController(recharges *services.RechargeService, settlement *services.SettlementService) *RechargeController {
	return &RechargeController{recharges: recharges, settlement: settlement}
}

// CreateRecharge records a plan purchase and activates the plan on the vendor
func (rc *RechargeController) CreateRecharge(c echo.Context) error {
	var req models.CreateRechargeRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	vendorID, ok := objectID(c, req.VendorID, "vendor ID")
	if !ok {
		return nil
	}
	planID, ok := objectID(c, req.PlanID, "plan ID")
	if !ok {
		return nil
	}
	if !ownsVendor(c, vendorID) {
		return forbidden(c)
	}

	recharge, err := rc.recharges.CreateRecharge(c.Request().Context(), vendorID, planID, req.TrnNo)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Recharge created successfully", recharge)
}

func (rc *RechargeController) GetRecharge(c echo.Context) error {
	id, ok := objectID(c, c.Param("id"), "recharge ID")
	if !ok {
		return nil
	}
	recharge, err := rc.recharges.GetRecharge(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Recharge retrieved successfully", recharge)
}

func (rc *RechargeController) ListVendorRecharges(c echo.Context) error {
	vendorID, ok := objectID(c, c.Param("id"), "vendor ID")
	if !ok {
		return nil
	}
	recharges, err := rc.recharges.ListVendorRecharges(c.Request().Context(), vendorID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Recharges retrieved successfully", recharges)
}

// ApproveRecharge settles a pending recharge and pays out referral commission
func (rc *RechargeController) ApproveRecharge(c echo.Context) error {
	id, ok := objectID(c, c.Param("id"), "recharge ID")
	if !ok {
		return nil
	}
	result, err := rc.settlement.ApproveRecharge(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Recharge approved successfully", result)
}

func (rc *RechargeController) CancelRecharge(c echo.Context) error {
	id, ok := objectID(c, c.Param("id"), "recharge ID")
	if !ok {
		return nil
	}
	var req models.CancelRechargeRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	recharge, err := rc.recharges.CancelRecharge(c.Request().Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Recharge cancelled successfully", recharge)
}

package controllers

import (
	"context"
	"net/http"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WithdrawalController struct {
	withdrawals *services.WithdrawalService
}

func NewWithdrawalController(withdrawals *services.WithdrawalService) *WithdrawalController {
	return &WithdrawalController{withdrawals: withdrawals}
}

// RequestWithdrawal holds funds from the caller's wallet pending admin review
func (wc *WithdrawalController) RequestWithdrawal(c echo.Context) error {
	var req models.WithdrawalRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	vendorID, ok := objectID(c, req.VendorID, "vendor ID")
	if !ok {
		return nil
	}
	if !ownsVendor(c, vendorID) {
		return forbidden(c)
	}
	withdrawal, err := wc.withdrawals.RequestWithdrawal(c.Request().Context(), vendorID, req.Amount, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Withdrawal requested successfully", withdrawal)
}

func (wc *WithdrawalController) CancelWithdrawal(c echo.Context) error {
	id, ok := objectID(c, c.Param("id"), "withdrawal ID")
	if !ok {
		return nil
	}
	vendorID, ok := callerID(c)
	if !ok {
		return nil
	}
	withdrawal, err := wc.withdrawals.CancelWithdrawal(c.Request().Context(), id, vendorID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Withdrawal cancelled successfully", withdrawal)
}

func (wc *WithdrawalController) ApproveWithdrawal(c echo.Context) error {
	return wc.decide(c, wc.withdrawals.ApproveWithdrawal, "Withdrawal approved successfully")
}

func (wc *WithdrawalController) RejectWithdrawal(c echo.Context) error {
	return wc.decide(c, wc.withdrawals.RejectWithdrawal, "Withdrawal rejected successfully")
}

type decisionFunc func(ctx context.Context, id, adminID primitive.ObjectID, note string) (*models.Withdrawal, error)

func (wc *WithdrawalController) decide(c echo.Context, apply decisionFunc, message string) error {
	id, ok := objectID(c, c.Param("id"), "withdrawal ID")
	if !ok {
		return nil
	}
	adminID, ok := callerID(c)
	if !ok {
		return nil
	}
	var req models.WithdrawalDecisionRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	withdrawal, err := apply(c.Request().Context(), id, adminID, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, message, withdrawal)
}

package controllers

import (
	"net/http"

	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/labstack/echo/v4"
)

type ReferralController struct {
	referrals *services.ReferralService
}

func NewReferralController(referrals *services.ReferralService) *ReferralController {
	return &ReferralController{referrals: referrals}
}

// RegisterVendor creates a vendor, optionally under the owner of a referral code
func (rc *ReferralController) RegisterVendor(c echo.Context) error {
	var req models.RegisterVendorRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	vendor, err := rc.referrals.RegisterVendor(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Vendor registered successfully", vendor)
}

func (rc *ReferralController) LinkReferral(c echo.Context) error {
	var req models.LinkReferralRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	childID, ok := objectID(c, req.ChildID, "child ID")
	if !ok {
		return nil
	}
	parentID, ok := objectID(c, req.ParentID, "parent ID")
	if !ok {
		return nil
	}
	child, err := rc.referrals.LinkReferral(c.Request().Context(), childID, parentID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Referral linked successfully", child)
}

// CreateInvite records that a vendor invited a phone number
func (rc *ReferralController) CreateInvite(c echo.Context) error {
	var req models.CreateInviteRequest
	if !bindAndValidate(c, &req) {
		return nil
	}
	referrerID, ok := objectID(c, req.ReferrerID, "referrer ID")
	if !ok {
		return nil
	}
	if !ownsVendor(c, referrerID) {
		return forbidden(c)
	}
	invite, err := rc.referrals.CreateInvite(c.Request().Context(), referrerID, req.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Invite recorded successfully", invite)
}

func (rc *ReferralController) GetReferralTree(c echo.Context) error {
	id, ok := objectID(c, c.Param("id"), "vendor ID")
	if !ok {
		return nil
	}
	tree, err := rc.referrals.GetReferralTree(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Referral tree retrieved successfully", tree)
}

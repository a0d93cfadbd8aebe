package controllers

import (
	"net/http"

	"github.com/HSouheill/vendor_settlement/logger"
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/HSouheill/vendor_settlement/utils"
	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Code:    code,
	})
}

// respondError maps a service error onto an HTTP status. Only domain errors carry
// their message to the client; anything else is logged and answered generically.
func respondError(c echo.Context, err error) error {
	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, errors.NotFound):
		status, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, errors.NotValid):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, services.ErrConflictingState), errors.Is(err, errors.AlreadyExists):
		status, message = http.StatusConflict, "Request conflicts with the current state"
	}

	var domainErr *services.Error
	if status != http.StatusInternalServerError && errors.As(err, &domainErr) {
		return fail(c, status, domainErr.Code, domainErr.Message)
	}

	logger.FromEcho(c).Error("Request failed",
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Error(err),
	)
	code := ""
	if status == http.StatusInternalServerError {
		code = "INTERNAL"
	}
	return fail(c, status, code, message)
}

// bindAndValidate decodes the JSON body into req and runs the struct validator,
// writing a 400 response when either fails.
func bindAndValidate(c echo.Context, req interface{}) bool {
	if err := c.Bind(req); err != nil {
		_ = fail(c, http.StatusBadRequest, services.ErrInvalidInput.Code, "Invalid request body")
		return false
	}
	if err := c.Validate(req); err != nil {
		_ = fail(c, http.StatusBadRequest, services.ErrInvalidInput.Code, utils.ValidationMessage(err))
		return false
	}
	return true
}

// objectID parses a hex id, writing a 400 response when it is malformed.
func objectID(c echo.Context, hex, field string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		_ = fail(c, http.StatusBadRequest, services.ErrInvalidInput.Code, "Invalid "+field+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// callerID returns the token subject as an ObjectID.
func callerID(c echo.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		_ = fail(c, http.StatusUnauthorized, "", "Invalid user ID in token")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ownsVendor reports whether the caller may act for vendorID. Admins act for anyone.
func ownsVendor(c echo.Context, vendorID primitive.ObjectID) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	return middleware.GetUserIDFromToken(c) == vendorID.Hex()
}

func forbidden(c echo.Context) error {
	return fail(c, http.StatusForbidden, "", "Access denied")
}

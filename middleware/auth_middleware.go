package middleware

import (
	"net/http"

	"github.com/HSouheill/vendor_settlement/logger"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireUserType checks if the authenticated user has one of the allowed user types
func RequireUserType(allowedTypes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userType := ExtractUserType(c)
			if userType == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication failed: user type not found",
				})
			}

			for _, allowedType := range allowedTypes {
				if userType == allowedType {
					return next(c)
				}
			}

			logger.FromEcho(c).Warn("Access denied",
				zap.String("path", c.Path()),
				zap.String("user_type", userType),
				zap.Strings("allowed", allowedTypes),
			)
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied for your user type",
			})
		}
	}
}

// IsAdmin reports whether the request was made with an admin token
func IsAdmin(c echo.Context) bool {
	return ExtractUserType(c) == UserTypeAdmin
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/HSouheill/vendor_settlement/services"
	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
)

const defaultCronLogLimit = 50

type CronLogController struct {
	audit services.AuditLog
}

func NewCronLogController(audit services.AuditLog) *CronLogController {
	return &CronLogController{audit: audit}
}

// ListCronLogs returns the most recent runs of a scheduled job, newest first.
// The job defaults to the expiry sweep.
func (cc *CronLogController) ListCronLogs(c echo.Context) error {
	job := c.QueryParam("job")
	if job == "" {
		job = services.ExpirySweepJobName
	}
	limit := int64(defaultCronLogLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 || parsed > 500 {
			return fail(c, http.StatusBadRequest, services.ErrInvalidInput.Code, "limit must be between 1 and 500")
		}
		limit = parsed
	}

	logs, err := cc.audit.ListRecent(c.Request().Context(), job, limit)
	if err != nil {
		return respondError(c, errors.Annotate(err, "listing cron logs"))
	}
	return respond(c, http.StatusOK, "Cron logs retrieved successfully", logs)
}

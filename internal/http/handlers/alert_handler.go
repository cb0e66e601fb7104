// Alert sweep HTTP handler.
//
// Exposes POST /alerts/run: triggers one expiry-alert pass on demand. The
// same sweep also runs on the background ticker; the service guarantees only
// one pass executes at a time, so an overlapping trigger gets 409.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avramid/go-medcab-backend/internal/services"
)

// RunAlerts godoc
// @ID          runAlerts
// @Summary     Run the expiry alert sweep
// @Description Sends consolidated expiry warnings for all users with drugs expiring inside the alert horizon, then reports the outcome. Returns 409 when a sweep is already in progress.
// @Tags        Alerts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  services.SweepSummary
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409  {object}  handlers.ErrorResponse  "Sweep already running"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /alerts/run [post]
func (h *Handlers) RunAlerts(c *gin.Context) {
	summary, err := h.alertSvc.Sweep(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrSweepRunning) {
			fail(c, http.StatusConflict, ErrCodeSweepRunning, "an alert sweep is already in progress")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "alert sweep failed")
		return
	}
	ok(c, http.StatusOK, summary)
}

// Statistics HTTP handler.
//
// Exposes GET /statistics: aggregate counters over the authenticated user's
// cabinet, computed against a single snapshot instant.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatistics godoc
// @ID          getStatistics
// @Summary     Cabinet statistics
// @Description Returns aggregate counters (total, expired, active, alerts sent, per-form breakdown) for the authenticated user.
// @Tags        Statistics
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  services.Statistics
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /statistics [get]
func (h *Handlers) GetStatistics(c *gin.Context) {
	stats, err := h.statsSvc.Snapshot(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not compute statistics")
		return
	}
	ok(c, http.StatusOK, stats)
}

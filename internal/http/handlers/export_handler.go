// Export HTTP handlers.
//
// This file exposes file downloads of the user's cabinet:
//   - GET /drugs/export/csv
//   - GET /drugs/export/pdf
//
// Both endpoints accept the same filter and sort parameters as GET /drugs
// but default to the export page-size ceiling so an unfiltered request
// captures the whole cabinet in one file.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avramid/go-medcab-backend/internal/export"
	"github.com/avramid/go-medcab-backend/internal/search"
)

const (
	csvContentType = "text/csv; charset=utf-8"
	pdfContentType = "application/pdf"
)

// ExportCSV godoc
// @ID          exportCSV
// @Summary     Export drugs as CSV
// @Description Streams the filtered drug list as a CSV attachment.
// @Tags        Export
// @Produce     text/csv
// @Security    BearerAuth
//
// @Success     200  {string}  string  "CSV payload"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /drugs/export/csv [get]
func (h *Handlers) ExportCSV(c *gin.Context) {
	raw := rawFilter(c)
	if raw.PageSize == "" {
		raw.PageSize = strconv.Itoa(search.MaxPageSizeExport)
	}

	drugs, _, err := h.drugSvc.SearchForExport(c.Request.Context(), currentUserID(c), raw)
	if err != nil {
		failDrugError(c, err)
		return
	}

	payload, err := export.CSV(drugs, h.loc)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "could not render CSV")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="medicines.csv"`)
	c.Data(http.StatusOK, csvContentType, payload)
}

// ExportPDF godoc
// @ID          exportPDF
// @Summary     Export drugs as PDF
// @Description Streams the filtered drug list as a PDF attachment.
// @Tags        Export
// @Produce     application/pdf
// @Security    BearerAuth
//
// @Success     200  {string}  string  "PDF payload"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /drugs/export/pdf [get]
func (h *Handlers) ExportPDF(c *gin.Context) {
	raw := rawFilter(c)
	if raw.PageSize == "" {
		raw.PageSize = strconv.Itoa(search.MaxPageSizeExport)
	}

	drugs, _, err := h.drugSvc.SearchForExport(c.Request.Context(), currentUserID(c), raw)
	if err != nil {
		failDrugError(c, err)
		return
	}

	payload, err := export.PDF("My medicine cabinet", drugs, h.loc)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "could not render PDF")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="medicines.pdf"`)
	c.Data(http.StatusOK, pdfContentType, payload)
}

// Drug HTTP handlers.
//
// This file exposes REST endpoints for drug resources:
//   - POST   /drugs        (create)
//   - GET    /drugs        (search: filtered, sorted, paginated)
//   - GET    /drugs/{id}   (fetch one)
//   - PUT    /drugs/{id}   (update)
//   - DELETE /drugs/{id}   (delete)
//   - GET    /forms        (supported pharmaceutical forms)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. All drug routes operate strictly
// on the authenticated user's own records.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avramid/go-medcab-backend/internal/domain"
	"github.com/avramid/go-medcab-backend/internal/search"
	"github.com/avramid/go-medcab-backend/internal/services"
	"github.com/avramid/go-medcab-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DrugService defines drug lifecycle and search operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DrugService interface {
	// Create stores a new drug for userID.
	Create(ctx context.Context, userID string, in services.DrugInput) (*domain.Drug, error)
	// Get fetches one drug owned by userID.
	Get(ctx context.Context, userID, id string) (*domain.Drug, error)
	// Update replaces the editable fields of a drug owned by userID.
	Update(ctx context.Context, userID, id string, in services.DrugInput) (*domain.Drug, error)
	// Delete removes a drug owned by userID.
	Delete(ctx context.Context, userID, id string) error
	// Search returns one page of matching drugs and the total match count.
	Search(ctx context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error)
	// SearchForExport is Search with the larger export page-size ceiling.
	SearchForExport(ctx context.Context, userID string, raw search.RawFilter) ([]domain.Drug, int64, error)
}

// StatsService defines the statistics snapshot operation.
type StatsService interface {
	// Snapshot aggregates cabinet counters for userID at a single instant.
	Snapshot(ctx context.Context, userID string) (*services.Statistics, error)
}

// AlertService triggers the expiry alert sweep.
type AlertService interface {
	// Sweep runs one alert pass and reports the outcome.
	Sweep(ctx context.Context) (*services.SweepSummary, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for accounts, drugs, statistics, alerts,
// and exports. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	acctSvc  AccountService
	drugSvc  DrugService
	statsSvc StatsService
	alertSvc AlertService

	// loc is the application time zone used when rendering expiration
	// months in exports.
	loc *time.Location
}

// New constructs and returns a Handlers instance bound to the given services.
// A nil loc defaults to UTC.
func New(acctSvc AccountService, drugSvc DrugService, statsSvc StatsService, alertSvc AlertService, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{acctSvc: acctSvc, drugSvc: drugSvc, statsSvc: statsSvc, alertSvc: alertSvc, loc: loc}
}

//
// DTOs
//

// DrugRequest is the JSON payload for creating or updating a drug. The
// expiration arrives as the (year, month) pair printed on the package.
type DrugRequest struct {
	Name            string `json:"name"             binding:"required" example:"Ibuprofen 200mg"`
	Form            string `json:"form"             binding:"required" example:"pills"`
	ExpirationYear  int    `json:"expiration_year"  binding:"required" example:"2027"`
	ExpirationMonth int    `json:"expiration_month" binding:"required" example:"6"`
	Description     string `json:"description"      example:"keep away from children"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDrugsResponse wraps a page of drugs and pagination information.
type ListDrugsResponse struct {
	Drugs      []domain.Drug `json:"drugs"`
	Pagination Pagination    `json:"pagination"`
}

// FormInfo describes one supported pharmaceutical form.
type FormInfo struct {
	Name  string `json:"name"  example:"pills"`
	Label string `json:"label" example:"Pills"`
}

//
// Helpers
//

// toInput converts the request payload into the service-layer input.
func (r DrugRequest) toInput() services.DrugInput {
	return services.DrugInput{
		Name:            r.Name,
		Form:            r.Form,
		ExpirationYear:  r.ExpirationYear,
		ExpirationMonth: r.ExpirationMonth,
		Description:     r.Description,
	}
}

// rawFilter collects the search query parameters verbatim; validation happens
// in the search package so every bad field is reported at once.
func rawFilter(c *gin.Context) search.RawFilter {
	return search.RawFilter{
		Name:                 c.Query("name"),
		Form:                 c.Query("form"),
		Expired:              c.Query("expired"),
		ExpirationUntilYear:  c.Query("expiration_until_year"),
		ExpirationUntilMonth: c.Query("expiration_until_month"),
		Sort:                 c.QueryArray("sort"),
		Page:                 c.Query("page"),
		PageSize:             c.Query("page_size"),
	}
}

// failDrugError translates service-layer drug errors into HTTP responses.
func failDrugError(c *gin.Context, err error) {
	var ve *search.ValidationError
	switch {
	case errors.As(err, &ve):
		failValidation(c, ve)
	case errors.Is(err, services.ErrDrugNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "drug not found")
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrNameTooLong),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, services.ErrInvalidForm),
		errors.Is(err, services.ErrInvalidExpiration):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "operation failed")
	}
}

// pagination derives list metadata from the effective page settings.
func pagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Handlers
//

// CreateDrug godoc
// @ID          createDrug
// @Summary     Add a drug
// @Description Stores a new medicine in the authenticated user's cabinet.
// @Tags        Drugs
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.DrugRequest  true  "Drug payload"
//
// @Success     201  {object}  domain.Drug
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /drugs [post]
func (h *Handlers) CreateDrug(c *gin.Context) {
	var req DrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	d, err := h.drugSvc.Create(c.Request.Context(), currentUserID(c), req.toInput())
	if err != nil {
		failDrugError(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// GetDrug godoc
// @ID          getDrug
// @Summary     Fetch a drug
// @Description Returns one drug owned by the authenticated user.
// @Tags        Drugs
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Drug ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Drug
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Drug not found"
// @Router      /drugs/{id} [get]
func (h *Handlers) GetDrug(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "drug id must be a UUID")
		return
	}

	d, err := h.drugSvc.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		failDrugError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// UpdateDrug godoc
// @ID          updateDrug
// @Summary     Update a drug
// @Description Replaces the editable fields of a drug owned by the authenticated user.
// @Tags        Drugs
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                true  "Drug ID (UUID)"  format(uuid)
// @Param       body  body  handlers.DrugRequest  true  "Drug payload"
//
// @Success     200  {object}  domain.Drug
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Drug not found"
// @Router      /drugs/{id} [put]
func (h *Handlers) UpdateDrug(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "drug id must be a UUID")
		return
	}

	var req DrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	d, err := h.drugSvc.Update(c.Request.Context(), currentUserID(c), id, req.toInput())
	if err != nil {
		failDrugError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteDrug godoc
// @ID          deleteDrug
// @Summary     Delete a drug
// @Description Removes a drug owned by the authenticated user.
// @Tags        Drugs
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Drug ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Drug not found"
// @Router      /drugs/{id} [delete]
func (h *Handlers) DeleteDrug(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "drug id must be a UUID")
		return
	}

	if err := h.drugSvc.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		failDrugError(c, err)
		return
	}
	noContent(c)
}

// ListDrugs godoc
// @ID          listDrugs
// @Summary     Search drugs (paginated)
// @Description Returns a page of the user's drugs matching the given filters.
// @Tags        Drugs
// @Produce     json
// @Security    BearerAuth
//
// @Param       name                    query  string    false  "Name contains (case-insensitive)"
// @Param       form                    query  string    false  "Pharmaceutical form"
// @Param       expired                 query  bool      false  "Only expired (true) or unexpired (false)"
// @Param       expiration_until_year   query  int       false  "Upper expiry bound: year (with month)"
// @Param       expiration_until_month  query  int       false  "Upper expiry bound: month (with year)"
// @Param       sort                    query  []string  false  "Sort tokens, e.g. name,desc"  collectionFormat(multi)
// @Param       page                    query  int       false  "Page number"      minimum(1) default(1)
// @Param       page_size               query  int       false  "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListDrugsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /drugs [get]
func (h *Handlers) ListDrugs(c *gin.Context) {
	raw := rawFilter(c)
	drugs, total, err := h.drugSvc.Search(c.Request.Context(), currentUserID(c), raw)
	if err != nil {
		failDrugError(c, err)
		return
	}

	// Effective page settings mirror the validated filter defaults.
	page := utils.AtoiDefault(raw.Page, 1)
	pageSize := utils.AtoiDefault(raw.PageSize, search.DefaultPageSize)
	ok(c, http.StatusOK, ListDrugsResponse{
		Drugs:      drugs,
		Pagination: pagination(page, pageSize, total),
	})
}

// ListForms godoc
// @ID          listForms
// @Summary     Supported pharmaceutical forms
// @Description Returns the closed set of form names accepted by drug payloads.
// @Tags        Drugs
// @Produce     json
//
// @Success     200  {array}  handlers.FormInfo
// @Router      /forms [get]
func (h *Handlers) ListForms(c *gin.Context) {
	out := make([]FormInfo, 0, len(domain.Forms))
	for _, f := range domain.Forms {
		out = append(out, FormInfo{Name: string(f), Label: f.Label()})
	}
	ok(c, http.StatusOK, out)
}

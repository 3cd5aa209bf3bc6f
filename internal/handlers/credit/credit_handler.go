// internal/handlers/credit/credit_handler.go
package credit

import (
	"errors"
	"net/http"
	"strconv"

	creditdomain "talenthub-service/internal/domain/credit"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	creditservice "talenthub-service/internal/service/credit"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	creditService *creditservice.CreditService
}

func NewCreditHandler(creditService *creditservice.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

// GetBalance returns the caller's per-type credit balance summary.
func (h *CreditHandler) GetBalance(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	summary, err := h.creditService.GetBalance(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get credit balance", err)
		return
	}

	response.Success(c, http.StatusOK, "credit balance retrieved", summary)
}

// ApplyCredit spends one credit of the requested type on a job belonging to
// the caller. POST /jobs/:id/credits
func (h *CreditHandler) ApplyCredit(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid job ID", err)
		return
	}

	var req creditdomain.ApplyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	usage, err := h.creditService.Consume(c.Request.Context(), companyID, jobID, req.CreditType)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "job not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid credit type", err)
		case errors.Is(err, xerrors.ErrCreditAlreadyApplied):
			response.Conflict(c, "a credit of this type is already active on the job", err)
		case errors.Is(err, xerrors.ErrInsufficientCredits):
			// 402 so the client can show a purchase prompt
			response.Error(c, http.StatusPaymentRequired, "insufficient credits", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to apply credit", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "credit applied", usage)
}

// ListUsages returns the caller's credit usage history with pagination.
func (h *CreditHandler) ListUsages(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var filters creditdomain.UsageListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	usages, err := h.creditService.ListUsages(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list credit usages", err)
		return
	}

	response.Success(c, http.StatusOK, "credit usages retrieved", usages)
}

// AddEngagement records view/click/application counts against a usage.
// POST /credits/usages/:id/engagement
func (h *CreditHandler) AddEngagement(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	usageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid usage ID", err)
		return
	}

	var req struct {
		Views        int `json:"views" binding:"gte=0"`
		Clicks       int `json:"clicks" binding:"gte=0"`
		Applications int `json:"applications" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.creditService.AddEngagement(c.Request.Context(), companyID, usageID, req.Views, req.Clicks, req.Applications); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "usage not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to record engagement", err)
		return
	}

	response.Success(c, http.StatusOK, "engagement recorded", nil)
}

// ========== Admin Only Endpoints ==========

// GrantCredits deposits credits into a company's balance without payment
// (admin only). POST /admin/companies/:companyId/credits
func (h *CreditHandler) GrantCredits(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("companyId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid company ID", err)
		return
	}

	var req creditdomain.AdminGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	balance, err := h.creditService.AdminGrant(c.Request.Context(), companyID, &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid grant", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to grant credits", err)
		return
	}

	response.Success(c, http.StatusCreated, "credits granted", balance)
}

// GetCompanyBalance returns any company's balance summary (admin only).
func (h *CreditHandler) GetCompanyBalance(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("companyId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid company ID", err)
		return
	}

	summary, err := h.creditService.GetBalance(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get credit balance", err)
		return
	}

	response.Success(c, http.StatusOK, "credit balance retrieved", summary)
}

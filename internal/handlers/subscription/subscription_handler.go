// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"errors"
	"net/http"
	"strconv"

	subdomain "talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	subservice "talenthub-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *subservice.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *subservice.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// GetCurrentEntitlement returns the caller's active subscription, its plan
// and the consumable credit balance in one payload.
func (h *SubscriptionHandler) GetCurrentEntitlement(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	entitlement, err := h.subscriptionService.GetCurrentEntitlement(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get entitlement", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlement retrieved", entitlement)
}

// CancelSubscription cancels the caller's active subscription.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var req subdomain.CancelRequest
	// body is optional, a bare POST cancels with the default reason
	_ = c.ShouldBindJSON(&req)

	if err := h.subscriptionService.Cancel(c.Request.Context(), companyID, req.Reason); err != nil {
		if errors.Is(err, xerrors.ErrNoActiveSubscription) {
			response.NotFound(c, "no active subscription to cancel")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cancelled", nil)
}

// ========== Admin Only Endpoints ==========

// AssignPlan assigns a plan to a company directly, bypassing the request
// workflow (admin only).
func (h *SubscriptionHandler) AssignPlan(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("companyId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid company ID", err)
		return
	}

	var req subdomain.AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sub, err := h.subscriptionService.Assign(c.Request.Context(), companyID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "plan or company not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "plan cannot be assigned", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to assign plan", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "plan assigned", sub)
}

// GetCompanyEntitlement returns any company's entitlement view (admin only).
func (h *SubscriptionHandler) GetCompanyEntitlement(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("companyId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid company ID", err)
		return
	}

	entitlement, err := h.subscriptionService.GetCurrentEntitlement(c.Request.Context(), companyID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get entitlement", err)
		return
	}

	response.Success(c, http.StatusOK, "entitlement retrieved", entitlement)
}

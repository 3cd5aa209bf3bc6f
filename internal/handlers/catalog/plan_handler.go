// internal/handlers/catalog/plan_handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"talenthub-service/internal/domain/subscription"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	"talenthub-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService *catalog.PlanService
}

func NewPlanHandler(planService *catalog.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// ListPlans retrieves the plan catalog. Admins see inactive plans too.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Request.Context(), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list plans", err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", plans)
}

// GetPlan retrieves a single plan by ID
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "plan not found", err)
		return
	}

	response.Success(c, http.StatusOK, "plan retrieved", plan)
}

// CreatePlan creates a new plan (admin only)
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req subscription.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create plan", err)
		return
	}

	response.Success(c, http.StatusCreated, "plan created", plan)
}

// UpdatePlan applies a partial update to a plan (admin only)
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	var req subscription.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), planID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "plan not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid plan update", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to update plan", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "plan updated", plan)
}

// DeletePlan removes an unreferenced plan (admin only)
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid plan ID", err)
		return
	}

	if err := h.planService.DeletePlan(c.Request.Context(), planID); err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "plan not found")
		case errors.Is(err, xerrors.ErrPlanInUse):
			response.Conflict(c, "plan is referenced and cannot be deleted", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to delete plan", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "plan deleted", nil)
}

// internal/handlers/planrequest/request_handler.go
package planrequest

import (
	"errors"
	"net/http"
	"strconv"

	"talenthub-service/internal/domain/request"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	"talenthub-service/internal/service/planrequest"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService *planrequest.RequestService
}

func NewRequestHandler(requestService *planrequest.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RequestPlan files a pending plan-change request for the caller.
func (h *RequestHandler) RequestPlan(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var in request.RequestPlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req, err := h.requestService.RequestPlan(c.Request.Context(), companyID, &in)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "plan not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "plan is not available", err)
		case errors.Is(err, xerrors.ErrRequestAlreadyExists):
			response.Conflict(c, "a pending request already exists", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to file plan request", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "plan request filed", req)
}

// RequestPackage files a pending package-purchase request for the caller.
func (h *RequestHandler) RequestPackage(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var in request.RequestPackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req, err := h.requestService.RequestPackage(c.Request.Context(), companyID, &in)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "package not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "package is not available", err)
		case errors.Is(err, xerrors.ErrRequestAlreadyExists):
			response.Conflict(c, "a pending request already exists", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to file package request", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "package request filed", req)
}

// ListMyRequests returns the caller's requests with pagination.
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var filters request.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	requests, err := h.requestService.List(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list requests", err)
		return
	}

	response.Success(c, http.StatusOK, "requests retrieved", requests)
}

// CancelRequest withdraws one of the caller's own pending requests.
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request ID", err)
		return
	}

	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	identityID, _ := middleware.GetIdentityID(c)

	req, err := h.requestService.Cancel(c.Request.Context(), requestID, companyID, identityID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "request not found")
		case errors.Is(err, xerrors.ErrInvalidStatus):
			response.Conflict(c, "request has already been resolved", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to cancel request", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "request cancelled", req)
}

// ========== Admin Only Endpoints ==========

// ListRequests returns requests across all companies (admin only).
func (h *RequestHandler) ListRequests(c *gin.Context) {
	var filters request.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	requests, err := h.requestService.List(c.Request.Context(), 0, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list requests", err)
		return
	}

	response.Success(c, http.StatusOK, "requests retrieved", requests)
}

// GetRequest returns a single request by ID (admin only).
func (h *RequestHandler) GetRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request ID", err)
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), requestID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "request not found", err)
		return
	}

	response.Success(c, http.StatusOK, "request retrieved", req)
}

// ApproveRequest approves a pending request and applies its effects
// (admin only).
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request ID", err)
		return
	}

	adminID, ok := middleware.GetIdentityID(c)
	if !ok {
		response.Unauthorized(c, "admin context missing")
		return
	}

	req, err := h.requestService.Approve(c.Request.Context(), requestID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "request not found")
		case errors.Is(err, xerrors.ErrInvalidStatus):
			response.Conflict(c, "request has already been resolved", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to approve request", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "request approved", req)
}

// RejectRequest rejects a pending request (admin only).
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request ID", err)
		return
	}

	adminID, ok := middleware.GetIdentityID(c)
	if !ok {
		response.Unauthorized(c, "admin context missing")
		return
	}

	req, err := h.requestService.Reject(c.Request.Context(), requestID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "request not found")
		case errors.Is(err, xerrors.ErrInvalidStatus):
			response.Conflict(c, "request has already been resolved", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to reject request", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "request rejected", req)
}

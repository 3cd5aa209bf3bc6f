// internal/handlers/transaction/transaction_handler.go
package transaction

import (
	"net/http"

	txdomain "talenthub-service/internal/domain/transaction"
	"talenthub-service/internal/middleware"
	"talenthub-service/internal/pkg/response"
	txservice "talenthub-service/internal/service/transaction"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	transactionService *txservice.TransactionService
}

func NewTransactionHandler(transactionService *txservice.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// ListMyTransactions returns the caller's journal entries with pagination.
func (h *TransactionHandler) ListMyTransactions(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		response.Unauthorized(c, "company context missing")
		return
	}

	var filters txdomain.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	transactions, err := h.transactionService.List(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	response.Success(c, http.StatusOK, "transactions retrieved", transactions)
}

// ========== Admin Only Endpoints ==========

// ListTransactions returns journal entries across all companies (admin only).
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var filters txdomain.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	transactions, err := h.transactionService.List(c.Request.Context(), 0, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	response.Success(c, http.StatusOK, "transactions retrieved", transactions)
}

// GetTransactionByReference looks up one journal entry by its unique
// reference (admin only).
func (h *TransactionHandler) GetTransactionByReference(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.ValidationError(c, "reference is required", nil)
		return
	}

	tx, err := h.transactionService.GetByReference(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, http.StatusNotFound, "transaction not found", err)
		return
	}

	response.Success(c, http.StatusOK, "transaction retrieved", tx)
}

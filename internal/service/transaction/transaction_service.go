// internal/service/transaction/transaction_service.go
package transaction

import (
	"context"

	"talenthub-service/internal/domain/transaction"
	"talenthub-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// TransactionService reads the append-only journal. Entries are written by
// the flows that cause them (assignment, renewal, package approval, admin
// grant); nothing edits them afterwards.
type TransactionService struct {
	transactions *postgres.TransactionRepository
	logger       *zap.Logger
}

func NewTransactionService(transactions *postgres.TransactionRepository, logger *zap.Logger) *TransactionService {
	return &TransactionService{transactions: transactions, logger: logger}
}

// GetByReference retrieves one journal entry
func (s *TransactionService) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return s.transactions.FindByReference(ctx, reference)
}

// List returns journal entries newest first. companyID 0 lists all
// companies (admin reporting).
func (s *TransactionService) List(ctx context.Context, companyID int64, filters *transaction.ListFilters) (*transaction.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	transactions, total, err := s.transactions.List(ctx, companyID, filters)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &transaction.ListResponse{
		Transactions: transactions,
		Total:        total,
		Page:         filters.Page,
		PageSize:     filters.PageSize,
		TotalPages:   totalPages,
	}, nil
}

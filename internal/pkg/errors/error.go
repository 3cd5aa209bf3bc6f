package xerrors

import "errors"

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Entitlement engine errors. These are expected business-rule rejections
// and are surfaced verbatim so the caller can present an upgrade or
// purchase prompt.
var (
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrCreditAlreadyApplied = errors.New("credit already applied to this job")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrRequestAlreadyExists = errors.New("a pending request already exists")
	ErrInvalidStatus        = errors.New("invalid status for this operation")
	ErrPlanInUse            = errors.New("plan is referenced by a live subscription")
	ErrPackageInUse         = errors.New("package is referenced by a transaction")
)

package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUnsupportedRegion  = errors.New("region is not supported for refill")
	ErrLocked             = errors.New("customer is busy with another update")

	// Scenario execution. Every fatal-session error wraps ErrFatalSession.
	ErrFatalSession       = errors.New("fatal session error")
	ErrScenarioNotFound   = fatal("scenario not found or not loaded")
	ErrEmptyScenario      = fatal("scenario has no act 0")
	ErrActNotFound        = fatal("act not found")
	ErrMissingNextPointer = fatal("next act not provided in data act")
	ErrNoSession          = errors.New("no active sell session")
	ErrInvalidInput       = errors.New("input does not match the requested data type")

	// Order ledger
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderNotOpen        = errors.New("order is not open")

	// Settlement. Every rejection wraps ErrSettlementRejected.
	ErrSettlementRejected = errors.New("settlement rejected")
	ErrUntrustedSource    = reject("access declined")
	ErrMethodNotAllowed   = reject("unsupported method")
	ErrBadSignature       = reject("signature mismatch")
	ErrPaymentNotPaid     = reject("payment status is not paid")
	ErrPaymentNotFound    = reject("payment not found")
	ErrAlreadySettled     = reject("payment already settled")
	ErrAmountMismatch     = reject("amount does not match payment")
)

type wrapped struct {
	msg    string
	parent error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.parent }

func fatal(msg string) error  { return &wrapped{msg: msg, parent: ErrFatalSession} }
func reject(msg string) error { return &wrapped{msg: msg, parent: ErrSettlementRejected} }

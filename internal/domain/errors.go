package domain

import "errors"

// Expected, recoverable outcomes. Callers match them with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrLimitExceeded       = errors.New("amount exceeds per-transaction limit")
	ErrUnsupportedCorridor = errors.New("unsupported corridor")
	ErrRateUnavailable     = errors.New("exchange rate unavailable for currency")
	ErrInvalidRequest      = errors.New("invalid request")

	ErrTransferNotFound = &notFoundError{what: "transfer"}
	ErrSessionNotFound  = &notFoundError{what: "recipient details for session"}
)

// ErrLedgerCorrupted signals an internal invariant violation. It is never
// coerced into one of the expected outcomes above.
var ErrLedgerCorrupted = errors.New("internal error: ledger record corrupted")

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string { return e.what + " not found" }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// PublicMessage maps an error to a fixed message that is safe to show to an
// end user or forward to an external consumer. It never echoes the wrapped
// error text, which may carry request data.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "The amount must be greater than zero."
	case errors.Is(err, ErrLimitExceeded):
		return "The amount exceeds the maximum allowed for a single transfer."
	case errors.Is(err, ErrUnsupportedCorridor):
		return "Transfers to this country are not supported."
	case errors.Is(err, ErrRateUnavailable):
		return "An exchange rate for this destination is currently unavailable."
	case errors.Is(err, ErrTransferNotFound):
		return "No transfer was found with that id."
	case errors.Is(err, ErrSessionNotFound):
		return "No recipient bank details were saved for this session."
	case errors.Is(err, ErrInvalidRequest):
		return "The request is missing required information."
	default:
		return "Something went wrong on our side. Please try again later."
	}
}

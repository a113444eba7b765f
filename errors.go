package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("ledger: not found")
	ErrAlreadyExists = errors.New("ledger: already exists")
	ErrInvalidInput  = errors.New("ledger: invalid input")

	// Book errors
	ErrBookNotFound  = errors.New("ledger: book not found")
	ErrBookNameEmpty = errors.New("ledger: book name is empty")

	// Journal/entry errors
	ErrJournalNotFound    = errors.New("ledger: journal not found")
	ErrJournalAlreadyVoid = errors.New("ledger: journal already voided")
	ErrUnbalancedEntry    = errors.New("ledger: entry does not balance")
	ErrEmptyEntry         = errors.New("ledger: entry has no postings")
	ErrAlreadyCommitted   = errors.New("ledger: entry already committed")
	ErrAccountPathTooDeep = errors.New("ledger: account path exceeds maximum depth")
	ErrAccountPathEmpty   = errors.New("ledger: account path is empty")
	// ErrNonPositiveAmount is returned for a negative posting amount; zero is accepted.
	ErrNonPositiveAmount = errors.New("ledger: posting amount must be non-negative")

	// Store errors
	ErrStoreNotReady     = errors.New("ledger: store not ready")
	ErrStoreClosed       = errors.New("ledger: store is closed")
	ErrTransactionFailed = errors.New("ledger: transaction failed")

	// Lock errors
	ErrAccountLocked = errors.New("ledger: account is write-locked")
)

// InvalidAccountPathError is returned when an account path fails validation
// (empty path, empty segment, or more segments than the configured maximum
// depth). It carries the offending path so callers can report it without
// re-parsing the error string.
type InvalidAccountPathError struct {
	Path   string
	Reason string
}

func (e *InvalidAccountPathError) Error() string {
	return fmt.Sprintf("ledger: invalid account path %q: %s", e.Path, e.Reason)
}

func (e *InvalidAccountPathError) Is(target error) bool {
	return target == ErrInvalidInput //nolint:errorlint // sentinel comparison by design
}

// BookUnbalancedTransactionError is returned when an entry's debit and
// credit totals do not agree within the book's configured precision. It
// carries the observed delta so callers can log or surface it without
// re-deriving it from the postings.
type BookUnbalancedTransactionError struct {
	Book        string
	DebitTotal  float64
	CreditTotal float64
	Delta       float64
}

func (e *BookUnbalancedTransactionError) Error() string {
	return fmt.Sprintf(
		"ledger: unbalanced entry in book %q: debit=%v credit=%v delta=%v",
		e.Book, e.DebitTotal, e.CreditTotal, e.Delta,
	)
}

func (e *BookUnbalancedTransactionError) Is(target error) bool {
	return target == ErrUnbalancedEntry //nolint:errorlint // sentinel comparison by design
}

// TransientTransactionError wraps a store-level error that the caller
// should retry — typically a MongoDB write conflict surfaced during a
// multi-document transaction (the driver labels these with the
// "TransientTransactionError" error label).
type TransientTransactionError struct {
	Op  string
	Err error
}

func (e *TransientTransactionError) Error() string {
	return fmt.Sprintf("ledger: transient error during %s: %v", e.Op, e.Err)
}

func (e *TransientTransactionError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrJournalNotFound)
}

// IsRetryable returns true if the error is transient and the operation can
// be retried — a write-write conflict from the account lock, or a MongoDB
// transaction abort, not a validation failure.
func IsRetryable(err error) bool {
	var transient *TransientTransactionError

	return errors.As(err, &transient) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}

package library

import (
	"errors"
	"fmt"
)

// Validation errors. These are expected outcomes of caller input and leave the
// catalog unchanged.
var (
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrNotFound         = errors.New("not found")
	ErrItemNotFound     = fmt.Errorf("item %w", ErrNotFound)
	ErrPatronNotFound   = fmt.Errorf("patron %w", ErrNotFound)
	ErrItemNotAvailable = errors.New("item is not available")
	ErrWrongBorrower    = errors.New("item was not borrowed by this patron")
	ErrLimitReached     = errors.New("borrowing limit reached")
	ErrDuplicateLoan    = errors.New("item already on loan to this patron")
	ErrNotOnLoan        = errors.New("item is not on loan to this patron")
	ErrPatronHasLoans   = errors.New("patron has items on loan")
	ErrItemBorrowed     = errors.New("item is borrowed")
	ErrAlreadyBorrowed  = errors.New("item already borrowed")
	ErrNotBorrowed      = errors.New("item is not borrowed")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrWrongVariant     = errors.New("operation not supported by this variant")
	ErrInvalidKey       = errors.New("key must not be empty")
	ErrUnknownKind      = errors.New("unknown variant")
)

// ErrTransactionFailed signals that a borrow or return left the model in a state
// its own pre-checks should have ruled out. It never occurs in normal operation.
var ErrTransactionFailed = errors.New("transaction failed")

// ErrCorruptStore is returned when persisted catalog data cannot be decoded.
var ErrCorruptStore = errors.New("corrupt store")

// IsConsistencyFault reports whether err is an internal-consistency fault rather
// than a caller-recoverable validation error.
func IsConsistencyFault(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}

package relay

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap exactly one of them.
var (
	ErrMalformedEvent      = errors.New("malformed event")
	ErrUnresolvedRecipient = errors.New("unresolved recipient")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrPreferenceDisabled  = errors.New("preference disabled")
	ErrDeliveryFailed      = errors.New("delivery failed")
)

// SkipError records a candidate recipient that was dropped.
type SkipError struct {
	Category Category
	// Ref is the id or handle that was looked up.
	Ref string
	// UserID is set when the user was found but filtered out.
	UserID string
	Kind   error
}

func (e *SkipError) Error() string {
	if e.UserID != "" && e.UserID != e.Ref {
		return fmt.Sprintf("%s: skip %q (user %s): %v", e.Category, e.Ref, e.UserID, e.Kind)
	}
	return fmt.Sprintf("%s: skip %q: %v", e.Category, e.Ref, e.Kind)
}

func (e *SkipError) Unwrap() error { return e.Kind }

// CategoryError reports a category that could not be processed at all.
type CategoryError struct {
	Category Category
	Err      error
}

func (e *CategoryError) Error() string { return fmt.Sprintf("%s: %v", e.Category, e.Err) }

func (e *CategoryError) Unwrap() error { return e.Err }

// DeliveryError wraps a failure reported by the Deliverer.
type DeliveryError struct {
	Category Category
	UserID   string
	Address  string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: deliver to user %s: %v", e.Category, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() []error { return []error{ErrDeliveryFailed, e.Err} }

package bibliocommons

import (
	"errors"
	"fmt"
)

// ErrNotFound means a search yielded no matching catalog entry. It is an
// expected outcome, not a system fault.
var ErrNotFound = errors.New("no matching catalog entry")

// AuthError marks a vendor response that rejected our session: HTTP 401/403,
// or a login form where authenticated content was expected. Callers clear
// the cached session and retry exactly once.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return "vendor session expired"
	}
	return fmt.Sprintf("vendor rejected session (status %d)", e.Status)
}

// VendorError is a well-formed request the vendor declined for business
// reasons (hold limit, duplicate hold, ...). Message is extracted from the
// vendor's error payload and is safe to show to the user. Never retried.
type VendorError struct {
	Status  int
	Message string
}

func (e *VendorError) Error() string {
	return e.Message
}

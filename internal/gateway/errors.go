package gateway

import (
	"errors"
	"fmt"
)

// Error is a non-2xx gateway response. StatusCode 470 is the gateway's
// rate/validation code; together with 400 it marks a request that will never
// succeed as submitted.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.StatusCode, e.Body)
}

// IsTerminal reports whether err is a gateway error code that should map the
// operation to failure instead of being retried.
func IsTerminal(err error) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.StatusCode == 470 || gerr.StatusCode == 400
}

// StatusCode extracts the gateway status code from err, or 0 when err is not
// a gateway error.
func StatusCode(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.StatusCode
	}
	return 0
}

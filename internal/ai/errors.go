package ai

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrAuthentication      = errors.New("ai provider rejected credentials")
	ErrRateLimited         = errors.New("ai provider rate limit exceeded")
)

// RetryExhaustedError is returned when every attempt failed with a retriable error.
// It unwraps to the last attempt's error.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("ai analysis failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// IsRetriable reports whether err is worth another attempt.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrInferenceTimeout)
}

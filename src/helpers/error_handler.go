package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SyncError struct {
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Run-level errors abort the whole run and propagate to the caller.
type ConfigurationError struct{ SyncError }
type ProviderError struct{ SyncError }
type TimeoutError struct{ SyncError }

// Record-level errors are caught at the ingestion loop boundary and recorded
// as per-record outcomes; they never escape the loop.
type MalformedSeriesError struct{ SyncError }
type StoreWriteError struct{ SyncError }

// -----------------------------------------------------------------------------

func NewConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{SyncError{Message: msg, Cause: cause}}
}

func NewProviderError(msg string, cause error) *ProviderError {
	return &ProviderError{SyncError{Message: msg, Cause: cause}}
}

func NewTimeoutError(msg string, cause error) *TimeoutError {
	return &TimeoutError{SyncError{Message: msg, Cause: cause}}
}

func NewMalformedSeriesError(msg string, cause error) *MalformedSeriesError {
	return &MalformedSeriesError{SyncError{Message: msg, Cause: cause}}
}

func NewStoreWriteError(msg string, cause error) *StoreWriteError {
	return &StoreWriteError{SyncError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------

// IsRunLevel reports whether err must abort the run rather than a single record.
func IsRunLevel(err error) bool {
	var cfg *ConfigurationError
	var prov *ProviderError
	var to *TimeoutError
	return errors.As(err, &cfg) || errors.As(err, &prov) || errors.As(err, &to)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}

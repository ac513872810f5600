package window

import (
	"time"

	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------

const (
	timeoutPerDay  = 20 * time.Second
	minimumTimeout = 300 * time.Second
)

// -----------------------------------------------------------------------------

// DeriveTimeout scales the worker deadline with the span of the fetch
// window: twenty seconds per whole day requested, never below five minutes.
func DeriveTimeout(w models.MFetchWindow) time.Duration {
	span := w.Span()
	if span < 0 {
		span = 0
	}

	days := int64(span / (24 * time.Hour))
	timeout := time.Duration(days) * timeoutPerDay
	if timeout < minimumTimeout {
		timeout = minimumTimeout
	}
	return timeout
}

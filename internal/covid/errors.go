package covid

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a country lookup has no exact match.
var ErrNotFound = errors.New("country not found")

// TransportError reports a failure to reach the provider (DNS, dial, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError reports a non-2xx response from the provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// Retryable is true for server-side failures and rate limiting.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// MalformedRecordError reports a payload that does not match the provider contract.
// Index is the position of the offending record in a collection, or -1.
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed record %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
}

func malformed(field, reason string) *MalformedRecordError {
	return &MalformedRecordError{Index: -1, Field: field, Reason: reason}
}

// IsRetryable reports whether err is worth retrying: transport failures and
// 5xx/429 provider responses. Malformed payloads, 4xx and lookups are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

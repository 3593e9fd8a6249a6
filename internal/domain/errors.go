package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors. Handlers map them onto HTTP status codes.
var (
	ErrUnknownOrderStatus = errors.New("unknown order status")
	ErrUnknownOperation   = errors.New("unknown order operation")

	ErrTransitionNotAllowed = errors.New("transition not allowed from current status")
	ErrNotOrderOwner        = errors.New("order does not belong to the current user")
	ErrTransitionInFlight   = errors.New("transition already in flight for order")
	ErrTransitionRejected   = errors.New("transition rejected by backend")
	ErrTransitionTimeout    = errors.New("transition timed out")

	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")

	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotReady = errors.New("session not ready")

	ErrCartEmpty    = errors.New("cart is empty")
	ErrChatDisabled = errors.New("chat assistant is not configured")
	ErrStaleView    = errors.New("view was unmounted before the response arrived")
)

// NeedsReauth reports whether err must force the user to authenticate again.
func NeedsReauth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSessionExpired)
}

// TransitionError carries the context of a failed transition. Current is the order
// status re-fetched after a backend rejection, empty when it could not be read.
type TransitionError struct {
	OrderID string
	Op      Operation
	From    OrderStatus
	Current OrderStatus
	Err     error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("order %s: %s from %s: %v", e.OrderID, e.Op, e.From, e.Err)
	if e.Current != "" && e.Current != e.From {
		msg += fmt.Sprintf(" (order is now %s)", e.Current)
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError collects form field failures. It is raised before any network call.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when nothing was collected, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

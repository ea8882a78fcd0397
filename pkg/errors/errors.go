package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation carries per-field validation messages
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// ErrTransport is returned when an outbound call never got a response
type ErrTransport struct {
	Op  string
	Err error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ErrTransport) Unwrap() error {
	return e.Err
}

// ErrRejected is returned when the remote API answered with a non-2xx status.
// Message holds the response body verbatim when there was one.
type ErrRejected struct {
	Op      string
	Status  int
	Message string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

// ErrInvalidStateTransition is returned when a checkout cannot move between two states
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrReconciliation means the gateway took the payment but the order could not be recorded
type ErrReconciliation struct {
	TransactionID string
	InvoiceID     string
	Err           error
}

func (e *ErrReconciliation) Error() string {
	return fmt.Sprintf("payment %s succeeded but order %s was not recorded: %v", e.TransactionID, e.InvoiceID, e.Err)
}

func (e *ErrReconciliation) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return stderrors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ErrValidation
	return stderrors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *ErrTransport
	return stderrors.As(err, &target)
}

func IsRejected(err error) bool {
	var target *ErrRejected
	return stderrors.As(err, &target)
}

func IsReconciliation(err error) bool {
	var target *ErrReconciliation
	return stderrors.As(err, &target)
}

// IsRetryable reports whether the caller may simply try the same request again
func IsRetryable(err error) bool {
	return IsTransport(err) || IsRejected(err)
}

// As is errors.As, re-exported so callers importing this package do not need an alias
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is, re-exported for the same reason as As
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// New is errors.New
func New(text string) error {
	return stderrors.New(text)
}

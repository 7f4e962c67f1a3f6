package relationship

import (
	"errors"
	"fmt"

	"relbox/store"
)

// Error kinds. Every error returned by this package wraps exactly one of
// them; match with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrInvalidPartner = errors.New("invalid partner")
	ErrConflict       = errors.New("conflict")
	ErrTransient      = errors.New("store temporarily unavailable")
)

// Error carries a kind plus a caller-facing message.
type Error struct {
	Kind    error
	Message string
	// PartnerID names the unverifiable account for ErrInvalidPartner.
	PartnerID string
	cause     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Retryable reports whether repeating the call may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidPartner(id string) *Error {
	return &Error{Kind: ErrInvalidPartner, Message: fmt.Sprintf("account %s does not exist", id), PartnerID: id}
}

// fromStore maps a store failure onto the error taxonomy.
func fromStore(op string, err error) error {
	kind := ErrTransient
	switch {
	case errors.Is(err, store.ErrConflict):
		kind = ErrConflict
	case errors.Is(err, store.ErrDuplicate):
		kind = ErrAlreadyExists
	}
	return &Error{Kind: kind, Message: op, cause: err}
}

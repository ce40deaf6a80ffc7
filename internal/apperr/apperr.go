// Package apperr carries the error taxonomy shared by all services. Callers
// branch on the extracted Kind, not on message text.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Unknown covers errors that did not originate in this codebase.
	Unknown Kind = iota
	// Unauthorized means no caller identity could be resolved.
	Unauthorized
	// NotFound covers both absent records and records owned by someone
	// else, so existence is never leaked across owners.
	NotFound
	// Validation marks malformed caller input, detected before any write.
	Validation
	// External marks a failed collaborator call (storage, inference).
	External
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not found"
	case Validation:
		return "validation"
	case External:
		return "external service"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with a kind while preserving it for errors.Is/As chains.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// Unknown when err carries no tag.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

package model

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so callers can show a specific message.
type Kind string

// Error kinds.
const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindInvalidToken      Kind = "INVALID_TOKEN"
	KindValidation        Kind = "VALIDATION_ERROR"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidToken      = &Error{Kind: KindInvalidToken}
	ErrValidation        = &Error{Kind: KindValidation}
)

// Error is a typed domain failure carrying the offending entity and id.
type Error struct {
	Kind    Kind
	Entity  string
	ID      string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Is matches on kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NotFound reports an unknown entity id.
func NotFound(entity string, id any) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: fmt.Sprint(id), Message: "not found"}
}

// InvalidTransition reports an operation not allowed in the current status.
func InvalidTransition(entity string, id any, format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Entity: entity, ID: fmt.Sprint(id), Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports a reservation that cannot be satisfied.
func InsufficientStock(itemID int64, have, need int) error {
	return &Error{
		Kind:    KindInsufficientStock,
		Entity:  EntityItem,
		ID:      fmt.Sprint(itemID),
		Message: fmt.Sprintf("insufficient quantity: have %d, need %d", have, need),
	}
}

// InvalidToken reports an unknown, forged or already consumed handoff token.
func InvalidToken(message string) error {
	return &Error{Kind: KindInvalidToken, Message: message}
}

// Validation reports a malformed request.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

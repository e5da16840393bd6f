package resolver

import (
	"fmt"

	"github.com/moonrailgun/reqcraft/pkg/token"
)

// ErrorKind identifies the taxonomy of resolve-time errors.
type ErrorKind int

// Resolve error kinds.
const (
	DuplicateEndpoint ErrorKind = iota
)

// Error is a single resolve-time diagnostic. For DuplicateEndpoint, Span
// is the second (conflicting) declaration's span and OtherSpan is the
// first.
type Error struct {
	Kind      ErrorKind
	Msg       string
	Span      token.Span
	OtherSpan token.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s (first declared at %s:%d:%d)",
		e.Span.File, e.Span.Line, e.Span.Column, e.Msg,
		e.OtherSpan.File, e.OtherSpan.Line, e.OtherSpan.Column)
}

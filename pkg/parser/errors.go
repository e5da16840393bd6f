package parser

import (
	"fmt"

	"github.com/moonrailgun/reqcraft/pkg/token"
)

// ErrorKind identifies the taxonomy of parse-time errors.
type ErrorKind int

// Parse error kinds.
const (
	UnexpectedToken ErrorKind = iota
	DuplicateMethod
	UnknownAnnotation
	LiteralTypeMismatch
)

// Error is a single parse diagnostic, carrying the span of the offending
// token so the CLI can render a caret line under it.
type Error struct {
	Kind     ErrorKind
	Msg      string
	Span     token.Span
	Expected string
	Found    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Span.File, e.Span.Line, e.Span.Column, e.Msg)
}

func newUnexpected(tok token.Token, expected string) *Error {
	found := tok.Kind.String()
	if tok.Text != "" {
		found = fmt.Sprintf("%s %q", found, tok.Text)
	}
	return &Error{
		Kind:     UnexpectedToken,
		Msg:      fmt.Sprintf("expected %s, found %s", expected, found),
		Span:     tok.Span,
		Expected: expected,
		Found:    found,
	}
}

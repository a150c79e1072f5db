// Package diagnostics implements the spanned error values used throughout
// the engine (C12 / spec.md §7).
package diagnostics

import "fmt"

// Span locates a position or range in source text, used by static errors and
// (optionally) by runtime type errors pointing at the enclosing IR node.
type Span struct {
	File        string
	Line, Col   int
	EndLine     int
	EndCol      int
}

func (s Span) String() string {
	if s.File == "" && s.Line == 0 {
		return ""
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Contains reports whether inner falls within the line/column range s
// covers; used to check the "span contained in E" universal property
// from spec.md §8.
func (s Span) Contains(inner Span) bool {
	if s.File != inner.File {
		return false
	}
	afterStart := inner.Line > s.Line || (inner.Line == s.Line && inner.Col >= s.Col)
	beforeEnd := inner.Line < s.EndLine || (inner.Line == s.EndLine && inner.Col <= s.EndCol)
	return afterStart && beforeEnd
}

// Error is the engine's only failure value: a code from the XPath error-code
// namespace plus an optional span and human message. Raising an Error is the
// normal mechanism for every failure path (spec.md §4.7).
type Error struct {
	Code    Code
	Message string
	Span    Span
	// Cause chains an underlying Go error (e.g. a tree-library parse
	// failure) for %w-style unwrapping without losing the XPath error code.
	Cause error
}

func (e *Error) Error() string {
	loc := e.Span.String()
	if loc != "" {
		return fmt.Sprintf("%s at %s: %s", e.Code, loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no span.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At builds an Error located at span.
func At(code Code, span Span, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Span: span}
}

// Wrap builds an Error carrying an underlying cause.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

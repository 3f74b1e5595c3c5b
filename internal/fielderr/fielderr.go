// Package fielderr provides small, annotated errors: a sentinel base error
// that can be wrapped with context and further decorated with structured
// key/value fields, while staying compatible with errors.Is and errors.As.
//
// It exists because the teacher's own annotated-error package has no
// available source or verifiable registry presence in this retrieval pack
// (see DESIGN.md); this package reproduces the same New/Wrap/With shape on
// top of the standard errors and fmt packages.
package fielderr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is an error decorated with a message, an optional wrapped cause,
// and structured metadata fields.
type Error struct {
	msg    string
	cause  error
	fields map[string]any
}

// New creates a new base (sentinel) error with no cause and no fields.
// Use it for package-level `var ErrXxx = fielderr.New("...")` declarations
// that callers compare against with errors.Is.
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Wrap annotates err with an additional message, preserving err as the
// cause so errors.Is/errors.As still see through to it.
func Wrap(err error, msg string) *Error {
	return &Error{msg: msg, cause: err}
}

// With attaches a key/value field to err. If err is already a *Error, the
// field is added to a copy of it; otherwise err becomes the new error's
// cause so errors.Is(result, err) still holds.
func With(err error, key string, value any) *Error {
	var e *Error
	if errors.As(err, &e) {
		clone := *e
		clone.fields = cloneFields(e.fields)
		clone.fields[key] = value
		return &clone
	}
	out := &Error{msg: err.Error(), cause: err, fields: make(map[string]any, 1)}
	out.fields[key] = value
	return out
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.msg {
		return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
	}
	return e.msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is the same sentinel, comparing by message
// when target carries no cause of its own (i.e. it was built with New).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.cause == nil && t.msg == e.msg
}

// Fields returns the structured metadata attached to this error.
func (e *Error) Fields() map[string]any {
	if e.fields == nil {
		return nil
	}
	out := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Format implements fmt.Formatter so that "%+v" prints the message plus
// sorted fields, mirroring the pretty error report the teacher relies on
// for its top-level "%+v" failure output.
func (e *Error) Format(f fmt.State, verb rune) {
	if verb != 'v' || !f.Flag('+') {
		_, _ = f.Write([]byte(e.Error()))
		return
	}

	var b strings.Builder
	b.WriteString(e.Error())
	if len(e.fields) > 0 {
		keys := make([]string, 0, len(e.fields))
		for k := range e.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s=%v", k, e.fields[k])
		}
	}
	_, _ = f.Write([]byte(b.String()))
}

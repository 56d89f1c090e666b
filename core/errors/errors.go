// Package errors provides coded errors for logdecor.
//
// Overview:
//   - Responsibility: Classify failures raised by provisioning, instrumentation and config
//   - Key Types: Code for classification, E for structured errors, Builder for assembly
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Compatible with errors.Is / errors.As and %w wrapping
//   - Performance Notes: One allocation per error
//
// Usage:
//
//	err := errors.Build(errors.CodeNotFound).
//		WithOp("instrumentx.emit").
//		WithMsgf("no logger at property %q", "logger").
//		Err()
//	if errors.IsCode(err, errors.CodeNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Code represents an error classification code.
type Code string

const (
	// CodeInvalidArgument marks a malformed configuration value.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeNotFound marks a missing logger property on an instrumented owner.
	CodeNotFound Code = "NOT_FOUND"
	// CodeFailedPrecondition marks a declaration used in a state it does not support.
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	// CodeInternal marks an unexpected failure, such as a recovered panic.
	CodeInternal Code = "INTERNAL"
)

// E is a structured error with code, operation, message, and details.
type E struct {
	Code    Code   // Error classification code
	Op      string // Operation that failed
	Err     error  // Underlying error (may be nil)
	Msg     string // Human-readable message
	Details []any  // Additional key-value details
}

// Error implements the error interface.
func (e *E) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *E) Unwrap() error {
	return e.Err
}

// New creates a new structured error with the given code and message.
func New(code Code, msg string) error {
	return &E{Code: code, Msg: msg}
}

// Wrap wraps err with a code and the operation that produced it.
func Wrap(code Code, op string, err error) error {
	return &E{Code: code, Op: op, Err: err}
}

// Wrapf wraps err with a code, operation and formatted message.
func Wrapf(code Code, op string, err error, format string, args ...any) error {
	return &E{
		Code: code,
		Op:   op,
		Err:  err,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the error code from an error.
// Returns empty string if the error doesn't have a code.
func CodeOf(err error) Code {
	var e *E
	if err != nil && errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is forwards to the standard library errors.Is.
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Builder provides a fluent interface for constructing errors.
type Builder struct {
	code    Code
	op      string
	err     error
	msg     string
	details []any
}

// Build starts a new error with the given code.
func Build(code Code) *Builder {
	return &Builder{code: code}
}

// WithOp sets the operation that failed.
func (b *Builder) WithOp(op string) *Builder {
	b.op = op
	return b
}

// WithErr wraps an underlying error.
func (b *Builder) WithErr(err error) *Builder {
	b.err = err
	return b
}

// WithMsg sets a human-readable message.
func (b *Builder) WithMsg(msg string) *Builder {
	b.msg = msg
	return b
}

// WithMsgf sets a formatted human-readable message.
func (b *Builder) WithMsgf(format string, args ...any) *Builder {
	b.msg = fmt.Sprintf(format, args...)
	return b
}

// WithDetails appends key-value details.
func (b *Builder) WithDetails(details ...any) *Builder {
	b.details = append(b.details, details...)
	return b
}

// Err returns the assembled error.
func (b *Builder) Err() error {
	return &E{
		Code:    b.code,
		Op:      b.op,
		Err:     b.err,
		Msg:     b.msg,
		Details: b.details,
	}
}

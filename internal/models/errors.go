package models

import (
	"errors"
	"fmt"
)

// ErrKind classifies draw failures.
type ErrKind string

const (
	KindConfig      ErrKind = "config"       // invalid input, aborts before any network call
	KindAuth        ErrKind = "auth"         // consent denied or exchange rejected, aborts the draw
	KindSignalFetch ErrKind = "signal_fetch" // one engagement query failed
)

// Error is a structured draw error.
// Signal is only set for KindSignalFetch.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Signal  SignalKind
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Signal != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Signal)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewConfigError(code, msg string, cause error) *Error {
	return &Error{Kind: KindConfig, Code: code, Message: msg, Cause: cause}
}

func NewAuthError(code, msg string, cause error) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: msg, Cause: cause}
}

func NewSignalFetchError(signal SignalKind, cause error) *Error {
	return &Error{
		Kind:    KindSignalFetch,
		Code:    "signal_fetch_failed",
		Message: "failed to fetch " + string(signal),
		Signal:  signal,
		Cause:   cause,
	}
}

// IsKind reports whether err (or anything it wraps or joins) is an *Error of kind.
func IsKind(err error, kind ErrKind) bool {
	found := false
	walk(err, func(e *Error) {
		if e.Kind == kind {
			found = true
		}
	})
	return found
}

// FailedSignals lists every signal named by signal fetch errors inside err.
func FailedSignals(err error) []SignalKind {
	var out []SignalKind
	walk(err, func(e *Error) {
		if e.Kind == KindSignalFetch {
			out = append(out, e.Signal)
		}
	})
	return out
}

// walk visits *Error values through both Unwrap() error and Unwrap() []error chains.
func walk(err error, fn func(*Error)) {
	if err == nil {
		return
	}
	if e, ok := err.(*Error); ok {
		fn(e)
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, fn)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), fn)
	}
}

// ErrNoCode is the cause used when the redirect carried no authorization code.
var ErrNoCode = errors.New("redirect carried no authorization code")

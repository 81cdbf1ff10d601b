// Package apperr defines the error taxonomy shared by every component of
// the fingerprinting pipeline: Decoder, Index, and JobRunner all return
// errors wrapped with a Kind so the job-status layer can report a stable
// reason string without inspecting error text.
package apperr

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kind identifies the class of failure, independent of the underlying cause.
type Kind string

const (
	// ConfigError marks a missing or invalid environment/configuration value.
	ConfigError Kind = "ConfigError"
	// DecodeError marks audio that could not be decoded to PCM samples.
	DecodeError Kind = "DecodeError"
	// SilentInput marks a decoded buffer whose peak amplitude is below the
	// non-silence floor.
	SilentInput Kind = "SilentInput"
	// StorageError marks a transient or permanent database fault, raised
	// after the retry budget is exhausted.
	StorageError Kind = "StorageError"
	// NotFound marks a lookup (job id, song id) with no matching record.
	NotFound Kind = "NotFound"
	// ExternalError marks a downloader or metadata-fetch failure.
	ExternalError Kind = "ExternalError"
)

// Error pairs a Kind with a causal error carrying a captured stack trace.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause with kind, capturing a stack trace via go-xerrors so the
// original call site survives to the log line even after the error has
// propagated through several layers.
func New(kind Kind, cause error) *Error {
	if cause == nil {
		cause = errors.New(string(kind))
	}
	return &Error{Kind: kind, cause: xerrors.New(cause)}
}

// Newf is New with a formatted cause message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Errorf(format, args...))
}

// KindOf extracts the Kind from err, or "" if err is not (or does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Package pyprerrors defines the typed error kinds used across the daemon.
//
// Every fatal or user-visible failure path in the daemon wraps its cause in
// an *Error so callers can branch on Kind with errors.As instead of string
// matching, while still composing with fmt.Errorf's %w the way the rest of
// this codebase does.
package pyprerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories from spec §7.
type Kind int

const (
	// KindUnknown is the zero value; never produced deliberately.
	KindUnknown Kind = iota
	KindConfigNotFound
	KindConfigParseError
	KindConfigInvalid
	KindBackendUnavailable
	KindPluginLoadError
	KindPluginConfigError
	KindHandlerError
	KindHandlerTimeout
	KindBackendTransient
	KindAssertionFailed
)

func (k Kind) String() string {
	switch k {
	case KindConfigNotFound:
		return "CONFIG_NOT_FOUND"
	case KindConfigParseError:
		return "CONFIG_PARSE_ERROR"
	case KindConfigInvalid:
		return "CONFIG_INVALID_STRUCTURE"
	case KindBackendUnavailable:
		return "NO_BACKEND"
	case KindPluginLoadError:
		return "PLUGIN_LOAD_ERROR"
	case KindPluginConfigError:
		return "PLUGIN_CONFIG_ERROR"
	case KindHandlerError:
		return "HANDLER_ERROR"
	case KindHandlerTimeout:
		return "HANDLER_TIMEOUT"
	case KindBackendTransient:
		return "BACKEND_TRANSIENT"
	case KindAssertionFailed:
		return "ASSERTION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed wrapper around a Kind and its underlying cause.
type Error struct {
	Kind   Kind
	Plugin string // empty unless the error originated in a plugin handler
	Err    error
}

func (e *Error) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Plugin, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind, or returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// NewPlugin wraps err with kind and the plugin it originated from.
func NewPlugin(kind Kind, plugin string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Plugin: plugin, Err: err}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal reports whether an error of this kind should abort daemon startup,
// per spec §7's propagation policy: only config and backend-detection
// failures at startup, and plugin-load failures for a plugin the user
// explicitly listed, are fatal. Everything else is reported and swallowed.
func Fatal(err error) bool {
	switch KindOf(err) {
	case KindConfigNotFound, KindConfigParseError, KindConfigInvalid,
		KindBackendUnavailable, KindPluginLoadError:
		return true
	default:
		return false
	}
}

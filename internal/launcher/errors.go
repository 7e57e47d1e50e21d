package launcher

import (
	"errors"
	"fmt"
)

// Kind classifies launch failures.
type Kind string

const (
	// KindResourceNotFound means the project root is missing or inaccessible.
	KindResourceNotFound Kind = "resource_not_found"
	// KindEnvironmentUnavailable means the environment could not be activated.
	KindEnvironmentUnavailable Kind = "environment_unavailable"
	// KindDelegateFailure means the entry point exited non-zero or never started.
	KindDelegateFailure Kind = "delegate_failure"
	// KindCleanupFailure means deactivation could not restore the environment.
	// It is logged, never returned from Launch.
	KindCleanupFailure Kind = "cleanup_failure"
)

// Exit statuses used when the entry point is never reached.
const (
	ExitUsage                  = 2
	ExitResourceNotFound       = 125
	ExitEnvironmentUnavailable = 126
	ExitDelegateStart          = 127
)

// Error wraps a launch failure with its classification.
type Error struct {
	Kind   Kind
	Op     string
	Path   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "launch error"
	}
	switch e.Kind {
	case KindResourceNotFound:
		return fmt.Sprintf("project root %s: %v", e.Path, e.Err)
	case KindEnvironmentUnavailable:
		return fmt.Sprintf("activate environment in %s: %v", e.Path, e.Err)
	case KindDelegateFailure:
		if e.Err != nil {
			return fmt.Sprintf("start entry point %s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("entry point %s exited with status %d", e.Path, e.Status)
	case KindCleanupFailure:
		return fmt.Sprintf("deactivate environment: %v", e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("launch %s failed", e.Op)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is a launch error of the given kind.
func IsKind(err error, kind Kind) bool {
	var lerr *Error
	return errors.As(err, &lerr) && lerr.Kind == kind
}

// ExitCode maps an error returned from Launch (or from the CLI around it) to
// the launcher's own exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var lerr *Error
	if !errors.As(err, &lerr) {
		return ExitUsage
	}
	switch lerr.Kind {
	case KindResourceNotFound:
		return ExitResourceNotFound
	case KindEnvironmentUnavailable:
		return ExitEnvironmentUnavailable
	case KindDelegateFailure:
		return lerr.Status
	default:
		return ExitUsage
	}
}

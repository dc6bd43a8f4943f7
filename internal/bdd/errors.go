package bdd

import (
	"context"
	"errors"
	"fmt"
)

// Error classes. Every error produced by the workflow matches exactly one
// of these through errors.Is.
var (
	// ErrValidation is a local precondition violation. It never reaches the
	// conversion service.
	ErrValidation = errors.New("validation error")
	// ErrUpstream means the conversion service failed or was unreachable.
	ErrUpstream = errors.New("upstream error")
	// ErrParse means a response was malformed or feature text had no steps.
	ErrParse = errors.New("parse error")
	// ErrPrecondition is a state-machine transition attempted out of order.
	ErrPrecondition = errors.New("precondition error")
	// ErrSuperseded is returned to the caller of a request that a newer
	// request on the same pipeline replaced. Its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Named failure modes.
var (
	ErrUnsupportedFormat     = fmt.Errorf("%w: unsupported document format", ErrValidation)
	ErrEmptyDocument         = fmt.Errorf("%w: document is empty", ErrValidation)
	ErrUnknownCategory       = fmt.Errorf("%w: unknown document category", ErrValidation)
	ErrUnsupportedLanguage   = fmt.Errorf("%w: unsupported programming language", ErrValidation)
	ErrIncompatibleFramework = fmt.Errorf("%w: framework is not compatible with language", ErrValidation)
	ErrEmptyFeature          = fmt.Errorf("%w: feature content is empty", ErrValidation)
	ErrNoSteps               = fmt.Errorf("%w: feature content has no Given/When/Then steps", ErrParse)
)

// UpstreamError carries the failed service call's status and body.
// StatusCode is zero when the service could not be reached.
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 && errors.Is(e.Err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s: service timed out: %v", e.Op, e.Err)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: service unreachable: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, truncate(e.Message, 200))
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// AnalysisError wraps any failure of document analysis. Analysis failures
// are advisory: the workflow downgrades them to "no suggestion".
type AnalysisError struct {
	Reason error
}

func (e *AnalysisError) Error() string {
	return "analysis failed: " + e.Reason.Error()
}

func (e *AnalysisError) Unwrap() error { return e.Reason }

// PreconditionErrorf builds an ErrPrecondition with context.
func PreconditionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// ParseErrorf builds an ErrParse with context.
func ParseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

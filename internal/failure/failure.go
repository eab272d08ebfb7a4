// Package failure defines the error kinds surfaced by the ingestion and
// retrieval pipelines. Every stage wraps its faults in an *Error carrying one
// Kind so callers can branch with errors.Is without parsing messages.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"
	KindNoCandidates      Kind = "NO_CANDIDATES"
	KindDownloadFailed    Kind = "DOWNLOAD_FAILED"
	KindArchiveCorrupt    Kind = "ARCHIVE_CORRUPT"
	KindRecordMalformed   Kind = "RECORD_MALFORMED"
	KindPersistence       Kind = "PERSISTENCE_ERROR"
)

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrNoCandidates      = &Error{Kind: KindNoCandidates}
	ErrDownloadFailed    = &Error{Kind: KindDownloadFailed}
	ErrArchiveCorrupt    = &Error{Kind: KindArchiveCorrupt}
	ErrRecordMalformed   = &Error{Kind: KindRecordMalformed}
	ErrPersistence       = &Error{Kind: KindPersistence}
)

// Error is a failure of one pipeline operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New wraps err as a failure of the given kind raised by op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a failure of the given kind from a formatted message.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ExitCode maps a failure to a process exit code for the command line tools.
// Unknown errors map to 1, success to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindSourceUnavailable:
		return 10
	case KindNoCandidates:
		return 11
	case KindDownloadFailed:
		return 12
	case KindArchiveCorrupt:
		return 13
	case KindRecordMalformed:
		return 14
	case KindPersistence:
		return 15
	}
	return 1
}

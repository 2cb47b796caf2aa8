// Package snaperr classifies errors raised by the engine and launch loop
// into the categories the system distinguishes: configuration failures that
// abort the whole run, job failures that abort a single (host, directory)
// job, schedule skips that are not errors at all, spurious launcher
// triggers, and mail-submission failures that are logged but never fatal.
package snaperr

import (
	cerr "github.com/cockroachdb/errors"
)

// Category identifies which error taxonomy bucket an error belongs to.
type Category int

const (
	// CategoryUnknown is the default for errors that were never classified.
	CategoryUnknown Category = iota
	// CategoryConfigFatal aborts the entire engine run: no config file
	// found, Hourlies < 1, a malformed block, a bad -p/-P regex.
	CategoryConfigFatal
	// CategoryJobFatal aborts only the current (host, directory) job.
	CategoryJobFatal
	// CategorySkip is not an error: the schedule gate decided the job is
	// not due yet.
	CategorySkip
	// CategorySpuriousTrigger marks a launcher trigger filename rejected
	// by the allowed-character filter.
	CategorySpuriousTrigger
	// CategoryMailFailure marks a failure to submit the run-log email;
	// logged, never fatal.
	CategoryMailFailure
)

func (c Category) String() string {
	switch c {
	case CategoryConfigFatal:
		return "config_fatal"
	case CategoryJobFatal:
		return "job_fatal"
	case CategorySkip:
		return "skip"
	case CategorySpuriousTrigger:
		return "spurious_trigger"
	case CategoryMailFailure:
		return "mail_failure"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code associated with a category. Per
// the external interface, only a config-fatal error produces a nonzero
// engine exit code; everything else (including job failures, which are
// reported via the run log and email rather than the exit status) exits 0.
func (c Category) ExitCode() int {
	switch c {
	case CategoryConfigFatal:
		return 1
	default:
		return 0
	}
}

// ClassifiedError wraps an underlying error with a category and a short
// remediation hint suitable for the run log.
type ClassifiedError struct {
	Category    Category
	Message     string
	Cause       error
	Remediation string
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// ExitCode reports the exit code for this classified error.
func (e *ClassifiedError) ExitCode() int { return e.Category.ExitCode() }

func classified(cat Category, msg string, remediation string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Category:    cat,
		Message:     msg,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewConfigFatal wraps a configuration error that should abort the run.
func NewConfigFatal(msg string, cause error) *ClassifiedError {
	return classified(CategoryConfigFatal, msg,
		"check the configuration file syntax and the Hourlies/Dailies/Weeklies/Monthlies values", cause)
}

// NewJobFatal wraps an error that aborts the current (host, directory) job
// without affecting other jobs in the same run.
func NewJobFatal(msg string, cause error) *ClassifiedError {
	return classified(CategoryJobFatal, msg,
		"the next scheduled run will repair a partially rotated ring", cause)
}

// NewSpuriousTrigger wraps a rejected launcher trigger filename.
func NewSpuriousTrigger(name string, cause error) *ClassifiedError {
	return classified(CategorySpuriousTrigger,
		"trigger filename contains characters outside [A-Za-z0-9_-]: "+name,
		"rename or remove the offending trigger file", cause)
}

// NewMailFailure wraps a failure to submit the run-log email. It is never
// fatal; callers log it and continue.
func NewMailFailure(msg string, cause error) *ClassifiedError {
	return classified(CategoryMailFailure, msg,
		"check the mail submission program and AdminEmail configuration", cause)
}

// AsClassified extracts a *ClassifiedError from err, if any is present in
// its chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if cerr.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsSkip reports whether err represents a schedule-gate skip rather than a
// failure.
func IsSkip(err error) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Category == CategorySkip
}

// ErrSkip is returned by snapshot.Engine.Run when the schedule gate says a
// job is not due.
var ErrSkip = classified(CategorySkip, "not due", "", nil)

// ExitCode returns the process exit code that should be used for err. A nil
// error exits 0; an unclassified error defaults to exit code 1 (config
// fatal is the only category the engine CLI is documented to report
// nonzero for, but any unexpected error is treated the same way).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := AsClassified(err); ok {
		return ce.ExitCode()
	}
	return 1
}

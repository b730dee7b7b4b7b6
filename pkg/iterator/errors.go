package iterator

import (
	"errors"
	"fmt"

	"github.com/samcharles93/gridscan/internal/backend/driver"
)

var (
	// ErrUnknownFormat is returned by Open for files whose encoding cannot
	// be detected.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrNotCompiledIn is returned for encodings the build or the registry
	// leaves out. Their tags are still recognized.
	ErrNotCompiledIn = errors.New("support not compiled in")

	// ErrInvalidDescription is returned by Deserialize for strings that do
	// not follow "<tag> <advanced|unadvanced> <payload>".
	ErrInvalidDescription = errors.New("invalid description string")

	// ErrNotApplicable reports queries the current field has no notion of.
	ErrNotApplicable = driver.ErrNotApplicable

	// ErrInvalidCombination reports queries that contradict the field's
	// metadata.
	ErrInvalidCombination = driver.ErrInvalidCombination
)

// UsageError is the panic value for contract violations by the caller, such
// as querying an iterator before its first Next.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("iterator: %s: %s", e.Op, e.Msg)
}

// InternalError is the panic value for states the dispatcher cannot reach
// unless its own bookkeeping is broken.
type InternalError struct {
	Op  string
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("iterator: internal error in %s: %s", e.Op, e.Msg)
}

// DescriptionError wraps ErrInvalidDescription with the offending input.
type DescriptionError struct {
	Text   string
	Reason string
	Err    error
}

func (e *DescriptionError) Error() string {
	msg := fmt.Sprintf("invalid description string %q: %s", e.Text, e.Reason)
	if e.Err != nil && !errors.Is(e.Err, ErrInvalidDescription) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DescriptionError) Is(target error) bool {
	return target == ErrInvalidDescription
}

func (e *DescriptionError) Unwrap() error { return e.Err }

func usage(op, msg string) {
	panic(&UsageError{Op: op, Msg: msg})
}

func invariant(op, format string, args ...any) {
	panic(&InternalError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

package pipeline

import "fmt"

// Kind enumerates the error categories from spec.md §7, replacing the
// source's conflated TRUE/FALSE/FAILED return codes with a sum-typed
// result (spec.md §9 Design Notes).
type Kind int

const (
	// KindInvalidConfig is a rejected option or malformed duration string.
	// Reported to the caller; aborts startup.
	KindInvalidConfig Kind = iota
	// KindIOError means a log file, CIDR map file, or PPM destination
	// could not be opened. Aborts the current input, run continues.
	KindIOError
	// KindParseWarning is an unparseable event or CIDR line. Counted, not
	// fatal.
	KindParseWarning
	// KindResource is an allocation failure for a bin, mask, or decay
	// cache. Fatal to the run; prior frames on disk remain valid.
	KindResource
	// KindOrdering is an out-of-order event; triggers early bin closure,
	// not fatal.
	KindOrdering
	// KindEncoderFailure means the external video tool exited non-zero.
	// Warning only; PPM frames are retained.
	KindEncoderFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindIOError:
		return "IOError"
	case KindParseWarning:
		return "ParseWarning"
	case KindResource:
		return "Resource"
	case KindOrdering:
		return "Ordering"
	case KindEncoderFailure:
		return "EncoderFailure"
	default:
		return "Unknown"
	}
}

// Error is the pipeline's single typed error type. Fatal reports whether
// the error should unwind to the driver and stop the run; only
// KindResource is fatal per spec.md §7.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether this error is fatal to the run.
func (e *Error) Fatal() bool { return e.Kind == KindResource }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Package skgerr defines the Status type every skg operation returns instead
// of raising. Client-visible failures are tagged errors; impossible internal
// states remain debug assertions (see Assertf) rather than Status values,
// following the teacher's "unify Status/assert duality" note.
package skgerr

import (
	"errors"
	"fmt"
)

// Code enumerates the status codes an operation can return.
type Code int

const (
	Ok Code = iota
	NotFound
	AlreadyExists
	InvalidArgument
	NotSupported
	NotImplemented
	IOError
	NoSpace
	FileNotFound
	ResultSizeOverLimit
	UnSupportSelfLoop
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidArgument:
		return "InvalidArgument"
	case NotSupported:
		return "NotSupported"
	case NotImplemented:
		return "NotImplemented"
	case IOError:
		return "IOError"
	case NoSpace:
		return "NoSpace"
	case FileNotFound:
		return "FileNotFound"
	case ResultSizeOverLimit:
		return "ResultSizeOverLimit"
	case UnSupportSelfLoop:
		return "UnSupportSelfLoop"
	default:
		return "Unknown"
	}
}

// Status is the error type returned by every skg operation. A nil *Status
// (or one with Code == Ok) means success.
type Status struct {
	Code Code
	Msg  string
	err  error // wrapped cause, if any
}

// New creates a Status with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Status {
	return &Status{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a Status with the given code wrapping a lower-level error, unless
// the error already carries a Status, in which case that Status is reused.
func Wrap(code Code, err error) *Status {
	if err == nil {
		return nil
	}
	var s *Status
	if errors.As(err, &s) {
		return s
	}
	return &Status{Code: code, Msg: err.Error(), err: err}
}

func (s *Status) Error() string {
	if s == nil {
		return "Ok"
	}
	if s.err != nil {
		return fmt.Sprintf("%s: %s: %v", s.Code, s.Msg, s.err)
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Msg)
}

func (s *Status) Unwrap() error { return s.err }

// Ok reports whether the status represents success (nil or Code == Ok).
func (s *Status) Ok() bool { return s == nil || s.Code == Ok }

// Is lets callers write `errors.Is(err, skgerr.NotFound)`-style checks by
// comparing codes instead of sentinel values.
func (s *Status) Is(code Code) bool { return s != nil && s.Code == code }

// Assertf panics with a formatted message. Used to guard invariants that can
// only be violated by an internal bug, never by caller input — these are
// never surfaced as a Status.
func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("skg: invariant violated: "+format, args...))
	}
}

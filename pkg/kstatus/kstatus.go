// Package kstatus defines the status/error-kind vocabulary returned by the
// socket dispatcher and its collaborators.
package kstatus

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the result kinds a dispatcher operation can return.
type Kind int

const (
	// OK is the zero value so a bare Status{} compares equal to success.
	OK Kind = iota
	InvalidArgs
	NoMemory
	PeerClosed
	BadState
	ShouldWait
	OutOfRange
	NotSupported
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case InvalidArgs:
		return "INVALID_ARGS"
	case NoMemory:
		return "NO_MEMORY"
	case PeerClosed:
		return "PEER_CLOSED"
	case BadState:
		return "BAD_STATE"
	case ShouldWait:
		return "SHOULD_WAIT"
	case OutOfRange:
		return "OUT_OF_RANGE"
	case NotSupported:
		return "NOT_SUPPORTED"
	default:
		return fmt.Sprintf("kstatus.Kind(%d)", int(k))
	}
}

// Status is the typed error returned by dispatcher operations. It satisfies
// error and unwraps to its Kind sentinel so callers can use errors.Is.
type Status struct {
	Kind  Kind
	msg   string
	cause error // set by Wrap, carries a github.com/pkg/errors stack trace
}

// New builds a Status of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Status {
	return &Status{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a Status around an underlying error from a collaborator (a
// UserSource/UserSink copy fault, a handle-table lookup miss), attaching a
// stack trace via github.com/pkg/errors the way the teacher reached for
// fmt.Errorf("...: %v", err) throughout socketapi.go, but keeping err
// reachable through errors.Is/errors.As instead of flattening it to a
// string.
func Wrap(err error, kind Kind, format string, args ...any) *Status {
	return &Status{Kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.Wrap(err, "")}
}

func (s *Status) Error() string {
	switch {
	case s.cause != nil:
		return fmt.Sprintf("%s: %s: %v", s.Kind, s.msg, s.cause)
	case s.msg == "":
		return s.Kind.String()
	default:
		return fmt.Sprintf("%s: %s", s.Kind, s.msg)
	}
}

// Unwrap exposes the wrapped cause when present (so errors.As can reach it),
// otherwise the Kind sentinel, so errors.Is(err, kstatus.ErrBadState) works
// whether or not err was produced via Wrap.
func (s *Status) Unwrap() error {
	if s.cause != nil {
		return s.cause
	}
	return sentinel(s.Kind)
}

// Is lets errors.Is match a *Status directly against a Kind sentinel.
func (s *Status) Is(target error) bool {
	t, ok := target.(*sentinelError)
	return ok && t.kind == s.Kind
}

type sentinelError struct{ kind Kind }

func (e *sentinelError) Error() string { return e.kind.String() }

func sentinel(k Kind) error { return sentinels[k] }

var sentinels = map[Kind]*sentinelError{
	OK:           {OK},
	InvalidArgs:  {InvalidArgs},
	NoMemory:     {NoMemory},
	PeerClosed:   {PeerClosed},
	BadState:     {BadState},
	ShouldWait:   {ShouldWait},
	OutOfRange:   {OutOfRange},
	NotSupported: {NotSupported},
}

// Sentinel errors for errors.Is comparisons against wrapped Statuses.
var (
	ErrInvalidArgs  = sentinels[InvalidArgs]
	ErrNoMemory     = sentinels[NoMemory]
	ErrPeerClosed   = sentinels[PeerClosed]
	ErrBadState     = sentinels[BadState]
	ErrShouldWait   = sentinels[ShouldWait]
	ErrOutOfRange   = sentinels[OutOfRange]
	ErrNotSupported = sentinels[NotSupported]
)

// Of reports the Kind of err if it is (or wraps) a *Status, and OK otherwise.
func Of(err error) Kind {
	if err == nil {
		return OK
	}
	if s, ok := err.(*Status); ok {
		return s.Kind
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if s, ok := err.(*Status); ok {
			return s.Kind
		}
	}
	return OK
}

// Is reports whether err is a *Status of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

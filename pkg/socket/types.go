// Package socket implements the bidirectional paired-endpoint socket
// dispatcher: two endpoints sharing an in-kernel byte pipeline, a
// readiness-signal state machine, an out-of-band control slot, and a
// single-slot accept queue for handle hand-off.
//
// Every public method is non-blocking: it makes progress, returns
// kstatus.ErrShouldWait, or returns a terminal kstatus.Status. There is no
// internal waiting on I/O — callers observe Signals() externally.
package socket

import "github.com/kangdazhi/zircon/pkg/kstatus"

// Flags are the immutable, creation-time bits that select an endpoint
// pair's data discipline and optional slots.
type Flags uint32

const (
	FlagDatagram   Flags = 1 << 0
	FlagHasControl Flags = 1 << 1
	FlagHasAccept  Flags = 1 << 2

	flagsMask = FlagDatagram | FlagHasControl | FlagHasAccept
)

// ShutdownFlags select which half(s) of an endpoint to disable.
type ShutdownFlags uint32

const (
	ShutdownRead  ShutdownFlags = 1 << 0
	ShutdownWrite ShutdownFlags = 1 << 1

	shutdownMask = ShutdownRead | ShutdownWrite
)

// Signal is a bit in an endpoint's observable readiness bitset. Every
// transition has a single writer, performed under the owning endpoint's
// lock (spec.md §5).
type Signal uint32

const (
	Writable Signal = 1 << iota
	Readable
	PeerClosed
	ReadDisabled
	WriteDisabled
	ControlReadable
	ControlWritable
	Share
	Accept

	userSignalBase
)

// UserSignalCount is the width of the reserved user-definable signal block.
const UserSignalCount = 8

// UserSignalMask covers the bits UserSignal may clear/set.
const UserSignalMask = Signal((1<<UserSignalCount)-1) * userSignalBase

// UserSignal returns the i'th user-definable signal bit (0-indexed).
func UserSignal(i int) Signal {
	if i < 0 || i >= UserSignalCount {
		panic("socket: user signal index out of range")
	}
	return userSignalBase << uint(i)
}

func (s Signal) String() string {
	names := []struct {
		bit  Signal
		name string
	}{
		{Writable, "WRITABLE"},
		{Readable, "READABLE"},
		{PeerClosed, "PEER_CLOSED"},
		{ReadDisabled, "READ_DISABLED"},
		{WriteDisabled, "WRITE_DISABLED"},
		{ControlReadable, "CONTROL_READABLE"},
		{ControlWritable, "CONTROL_WRITABLE"},
		{Share, "SHARE"},
		{Accept, "ACCEPT"},
	}
	out := ""
	for _, n := range names {
		if s&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	for i := 0; i < UserSignalCount; i++ {
		if s&UserSignal(i) != 0 {
			if out != "" {
				out += "|"
			}
			out += "USER_SIGNAL_" + itoa(i)
		}
	}
	if out == "" {
		return "0"
	}
	return out
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [8]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Options tunes a Create call. The zero value selects the recommended
// defaults from spec.md §6.
type Options struct {
	// BufMax overrides the per-endpoint inbound byte budget. Zero selects
	// DefaultBufMax; values below MinBufMax are raised to MinBufMax.
	BufMax int
}

// Defaults recommended by spec.md §6.
const (
	ControlMsgMax    = 1024
	DefaultBufMax    = 256 * 1024
	MinBufMax        = 64 * 1024
)

func checkFlags(flags Flags) *kstatus.Status {
	if flags&^flagsMask != 0 {
		return kstatus.New(kstatus.InvalidArgs, "unknown flag bits %#x", uint32(flags&^flagsMask))
	}
	return nil
}

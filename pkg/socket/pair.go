package socket

import "github.com/kangdazhi/zircon/pkg/kstatus"

// Create builds a fresh, mutually-linked endpoint pair (spec.md §4.1).
// Linking happens before either endpoint escapes this call, so no locking
// is required here; once Create returns, both endpoints may be mutated
// concurrently from any goroutine.
func Create(flags Flags, opts Options) (e0, e1 *Endpoint, err *kstatus.Status) {
	if err := checkFlags(flags); err != nil {
		return nil, nil, err
	}

	bufMax := opts.BufMax
	if bufMax <= 0 {
		bufMax = DefaultBufMax
	}
	if bufMax < MinBufMax {
		bufMax = MinBufMax
	}

	e0 = newEndpoint(flags, bufMax)
	e1 = newEndpoint(flags, bufMax)

	e0.peer, e1.peer = e1, e0
	e0.peerID, e1.peerID = e1.id, e0.id

	start := Writable
	if flags&FlagHasControl != 0 {
		start |= ControlWritable
	}
	if flags&FlagHasAccept != 0 {
		start |= Share
	}
	e0.signals = start
	e1.signals = start

	return e0, e1, nil
}

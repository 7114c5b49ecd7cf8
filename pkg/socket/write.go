package socket

import (
	"math"

	"github.com/kangdazhi/zircon/pkg/kstatus"
)

// Write appends p to the peer's inbound pipeline (spec.md §4.2). A stream
// write may consume a strict prefix of p; a datagram write is all-or-nothing.
// A zero-length p is a successful no-op that never touches signals.
func (e *Endpoint) Write(p []byte) (int, *kstatus.Status) {
	e.mu.Lock()
	peer := e.peer
	if peer == nil {
		e.mu.Unlock()
		return 0, peerClosedStatus()
	}
	if e.signals&WriteDisabled != 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.BadState, "write disabled")
	}
	e.mu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}
	if uint64(len(p)) > math.MaxUint32 {
		return 0, kstatus.New(kstatus.InvalidArgs, "length %d exceeds 32-bit range", len(p))
	}

	return peer.writeSelf(e, p)
}

// WriteFrom is the user-copy-boundary variant of Write: instead of a
// plain []byte, it pulls bytes from a UserSource, failing INVALID_ARGS on a
// copy fault instead of touching the pipeline (spec.md §4.2's "On copy
// error from user memory, return INVALID_ARGS").
func (e *Endpoint) WriteFrom(src UserSource, length int) (int, *kstatus.Status) {
	e.mu.Lock()
	peer := e.peer
	if peer == nil {
		e.mu.Unlock()
		return 0, peerClosedStatus()
	}
	if e.signals&WriteDisabled != 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.BadState, "write disabled")
	}
	e.mu.Unlock()

	if length == 0 {
		return 0, nil
	}
	if uint64(length) > math.MaxUint32 {
		return 0, kstatus.New(kstatus.InvalidArgs, "length %d exceeds 32-bit range", length)
	}

	buf := make([]byte, length)
	n, ferr := src.CopyFromUser(buf)
	if ferr != nil {
		return 0, kstatus.Wrap(ferr, kstatus.InvalidArgs, "copy from user")
	}
	return peer.writeSelf(e, buf[:n])
}

// writeSelf runs under peer's lock, mutating peer's inbound pipeline and
// signals on behalf of writer (spec.md §4.2's "peer.WriteSelf(src, len)").
// writer is passed explicitly rather than re-derived from peer.peer so the
// two-stage locking contract (capture peer, release, act) never needs a
// third lookup under lock.
func (peer *Endpoint) writeSelf(writer *Endpoint, p []byte) (int, *kstatus.Status) {
	peer.mu.Lock()
	if peer.inbound.IsFull() {
		peer.mu.Unlock()
		return 0, kstatus.New(kstatus.ShouldWait, "inbound pipeline full")
	}

	wasEmpty := peer.inbound.IsEmpty()
	n, rejected := peer.inbound.Write(p)
	if rejected {
		peer.mu.Unlock()
		return 0, kstatus.New(kstatus.ShouldWait, "no room for frame of %d bytes", len(p))
	}
	if n > 0 && wasEmpty {
		peer.updateState(0, Readable)
	}
	nowFull := peer.inbound.IsFull()
	peer.mu.Unlock()

	if nowFull {
		writer.mu.Lock()
		if writer.peer == peer {
			writer.updateState(Writable, 0)
		}
		writer.mu.Unlock()
	}

	return n, nil
}

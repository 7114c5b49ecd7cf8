package socket

import (
	"math"

	"github.com/kangdazhi/zircon/pkg/kstatus"
)

// Read drains the local inbound pipeline into p (spec.md §4.3). A
// zero-length p is the non-destructive "query" form: it reports the queued
// size without consuming anything or touching signals, even against a
// peer-closed, empty endpoint (spec.md §9, Open Question 3).
func (e *Endpoint) Read(p []byte) (int, *kstatus.Status) {
	if len(p) == 0 {
		e.mu.Lock()
		n := e.inbound.Size()
		e.mu.Unlock()
		return n, nil
	}
	if uint64(len(p)) > math.MaxUint32 {
		return 0, kstatus.New(kstatus.InvalidArgs, "length %d exceeds 32-bit range", len(p))
	}

	e.mu.Lock()
	if e.inbound.IsEmpty() {
		defer e.mu.Unlock()
		switch {
		case e.peer == nil:
			return 0, peerClosedStatus()
		case e.readDisabled:
			return 0, kstatus.New(kstatus.BadState, "read disabled and no data pending")
		default:
			return 0, kstatus.New(kstatus.ShouldWait, "inbound pipeline empty")
		}
	}

	wasFull := e.inbound.IsFull()
	n := e.inbound.Read(p)

	if e.inbound.IsEmpty() {
		e.updateState(Readable, 0)
		if e.readDisabled {
			e.updateState(0, ReadDisabled)
		}
	}
	peer := e.peer
	e.mu.Unlock()

	if wasFull && n > 0 && peer != nil {
		peer.mu.Lock()
		if peer.peer == e {
			peer.updateState(0, Writable)
		}
		peer.mu.Unlock()
	}

	return n, nil
}

// ReadInto is the user-copy-boundary variant of Read, delivering bytes to a
// UserSink instead of a plain []byte.
func (e *Endpoint) ReadInto(dst UserSink, length int) (int, *kstatus.Status) {
	if length == 0 {
		e.mu.Lock()
		n := e.inbound.Size()
		e.mu.Unlock()
		return n, nil
	}
	buf := make([]byte, length)
	n, err := e.Read(buf)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, nil
	}
	copied, cerr := dst.CopyToUser(buf[:n])
	if cerr != nil {
		return 0, kstatus.Wrap(cerr, kstatus.InvalidArgs, "copy to user")
	}
	return copied, nil
}

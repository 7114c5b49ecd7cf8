package socket

import "github.com/kangdazhi/zircon/pkg/kstatus"

// WriteControl installs a message in the peer's control slot (spec.md
// §4.5). The control channel is entirely parallel to the data pipeline: it
// never touches READABLE/WRITABLE, and vice versa (spec.md §8, L5).
func (e *Endpoint) WriteControl(p []byte) (int, *kstatus.Status) {
	e.mu.Lock()
	if e.flags&FlagHasControl == 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.BadState, "endpoint has no control slot")
	}
	if len(p) == 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.InvalidArgs, "control write of zero length")
	}
	if len(p) > ControlMsgMax {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.OutOfRange, "control message of %d bytes exceeds %d", len(p), ControlMsgMax)
	}
	peer := e.peer
	e.mu.Unlock()

	if peer == nil {
		return 0, peerClosedStatus()
	}
	return peer.writeControlSelf(p)
}

func (peer *Endpoint) writeControlSelf(p []byte) (int, *kstatus.Status) {
	peer.mu.Lock()
	if peer.control.n != 0 {
		peer.mu.Unlock()
		return 0, kstatus.New(kstatus.ShouldWait, "control slot occupied")
	}
	copy(peer.control.buf[:], p)
	peer.control.n = len(p)
	peer.updateState(0, ControlReadable)
	opposite := peer.peer
	peer.mu.Unlock()

	if opposite != nil {
		opposite.mu.Lock()
		if opposite.peer == peer {
			opposite.updateState(ControlWritable, 0)
		}
		opposite.mu.Unlock()
	}
	return len(p), nil
}

// ReadControl drains the local control slot into dst. The slot is fully
// drained regardless of len(dst): any excess bytes beyond what the caller
// requested are discarded, not left for a follow-up read (spec.md §4.5).
func (e *Endpoint) ReadControl(dst []byte) (int, *kstatus.Status) {
	e.mu.Lock()
	if e.flags&FlagHasControl == 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.BadState, "endpoint has no control slot")
	}
	if e.control.n == 0 {
		e.mu.Unlock()
		return 0, kstatus.New(kstatus.ShouldWait, "control slot empty")
	}

	n := copy(dst, e.control.buf[:e.control.n])
	e.control.n = 0
	e.updateState(ControlReadable, 0)
	peer := e.peer
	e.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		if peer.peer == e {
			peer.updateState(0, ControlWritable)
		}
		peer.mu.Unlock()
	}
	return n, nil
}

package socket

import "github.com/kangdazhi/zircon/pkg/kstatus"

// UserSignal mutates only the reserved user-signal bits (spec.md §4.7).
// When peer is true, the mutation targets the peer endpoint instead of
// this one. User signals are not serialized against data operations beyond
// the target endpoint's own lock.
func (e *Endpoint) UserSignal(clear, set Signal, peer bool) *kstatus.Status {
	if clear&^UserSignalMask != 0 || set&^UserSignalMask != 0 {
		return kstatus.New(kstatus.InvalidArgs, "user signal bits outside reserved range")
	}

	target := e
	if peer {
		target = e.lockedPeer()
		if target == nil {
			return peerClosedStatus()
		}
	}

	target.mu.Lock()
	target.updateState(clear, set)
	target.mu.Unlock()
	return nil
}

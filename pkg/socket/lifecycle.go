package socket

// OnZeroHandles is invoked by the owning handle table (see
// pkg/handletable) when the last external reference to this endpoint is
// released. It drops this endpoint's own reference to its peer and
// notifies the peer, which latches PEER_CLOSED — the event named in
// spec.md §3's Lifecycle paragraph and exposed as an "implicit" operation
// in spec.md §6.
//
// This is distinct from, and stronger than, Shutdown: it is unconditional
// and independent of any prior half-close (spec.md §4.4).
func (e *Endpoint) OnZeroHandles() {
	e.mu.Lock()
	if e.zeroHandlesDone {
		e.mu.Unlock()
		return
	}
	e.zeroHandlesDone = true
	peer := e.peer
	e.peer = nil
	e.mu.Unlock()

	if peer != nil {
		peer.onPeerZeroHandles()
	}
}

// onPeerZeroHandles is the notification a dying endpoint sends its peer.
func (peer *Endpoint) onPeerZeroHandles() {
	peer.mu.Lock()
	defer peer.mu.Unlock()
	if peer.peer == nil {
		return
	}
	peer.peer = nil
	peer.updateState(Writable, PeerClosed)
}

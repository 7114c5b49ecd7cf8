package socket

// Shutdown half-closes the local endpoint and notifies the peer
// (spec.md §4.4). Unknown bits are ignored rather than rejected (the
// Open Question in spec.md §9, resolved in DESIGN.md: the source this was
// distilled from tolerates them).
func (e *Endpoint) Shutdown(how ShutdownFlags) {
	how &= shutdownMask

	e.mu.Lock()
	var already ShutdownFlags
	if e.readDisabled {
		already |= ShutdownRead
	}
	if e.signals&WriteDisabled != 0 {
		already |= ShutdownWrite
	}
	if already == how {
		// Idempotent: this exact subset is already in effect.
		e.mu.Unlock()
		return
	}

	if how&ShutdownRead != 0 {
		e.readDisabled = true
		if e.inbound.IsEmpty() {
			e.updateState(0, ReadDisabled)
		}
	}
	if how&ShutdownWrite != 0 {
		e.updateState(Writable, WriteDisabled)
	}
	peer := e.peer
	e.mu.Unlock()

	if peer != nil {
		peer.shutdownOther(how)
	}
}

// shutdownOther applies the complementary effect of a peer's Shutdown call
// (spec.md §4.4 step 3): the requester's READ shutdown removes our ability
// to write to them; the requester's WRITE shutdown latches our own read
// side.
func (peer *Endpoint) shutdownOther(how ShutdownFlags) {
	peer.mu.Lock()
	defer peer.mu.Unlock()

	if how&ShutdownRead != 0 {
		peer.updateState(Writable, WriteDisabled)
	}
	if how&ShutdownWrite != 0 {
		peer.readDisabled = true
		if peer.inbound.IsEmpty() {
			peer.updateState(0, ReadDisabled)
		}
	}
}

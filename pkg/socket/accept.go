package socket

import "github.com/kangdazhi/zircon/pkg/kstatus"

// Share donates h to the peer's accept slot (spec.md §4.6). Before
// installation it verifies the cycle-prevention rule of spec.md §3
// invariant 8: h's target, if it is itself a socket endpoint, must not
// have FlagHasAccept (a sharable endpoint may never itself be shared)
// and must be neither this endpoint nor its peer.
func (e *Endpoint) Share(h Handle) *kstatus.Status {
	if e.flags&FlagHasAccept == 0 {
		return kstatus.New(kstatus.NotSupported, "endpoint has no accept slot")
	}

	peer := e.lockedPeer()
	if peer == nil {
		return peerClosedStatus()
	}

	if err := e.checkShareable(h, peer); err != nil {
		return err
	}

	if err := peer.shareSelf(h); err != nil {
		return err
	}

	// The peer's accept slot is now occupied, so SHARE — "peer's accept
	// slot is empty" viewed from e — no longer holds on e (spec.md §3
	// invariant 7).
	e.mu.Lock()
	if e.peer == peer {
		e.updateState(Share, 0)
	}
	e.mu.Unlock()
	return nil
}

func (e *Endpoint) checkShareable(h Handle, peer *Endpoint) *kstatus.Status {
	target := h.TargetEndpoint()
	if target == nil {
		return nil
	}
	if target.flags&FlagHasAccept != 0 {
		return kstatus.New(kstatus.BadState, "sharable endpoints cannot themselves be shared")
	}
	if target == e || target == peer {
		return kstatus.New(kstatus.BadState, "cannot share a handle to this pair's own endpoints")
	}
	return nil
}

func (peer *Endpoint) shareSelf(h Handle) *kstatus.Status {
	peer.mu.Lock()
	defer peer.mu.Unlock()
	if peer.accept.handle != nil {
		return kstatus.New(kstatus.ShouldWait, "accept slot occupied")
	}
	peer.accept.handle = h
	peer.updateState(0, Accept)
	return nil
}

// Accept drains the local accept slot (spec.md §4.6).
func (e *Endpoint) Accept() (Handle, *kstatus.Status) {
	if e.flags&FlagHasAccept == 0 {
		return nil, kstatus.New(kstatus.NotSupported, "endpoint has no accept slot")
	}

	e.mu.Lock()
	if e.accept.handle == nil {
		e.mu.Unlock()
		return nil, kstatus.New(kstatus.ShouldWait, "accept slot empty")
	}
	h := e.accept.handle
	e.accept.handle = nil
	e.updateState(Accept, 0)
	peer := e.peer
	e.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		if peer.peer == e {
			peer.updateState(0, Share)
		}
		peer.mu.Unlock()
	}
	return h, nil
}

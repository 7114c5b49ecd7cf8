package socket

import (
	"sync"
	"sync/atomic"

	"github.com/kangdazhi/zircon/pkg/kstatus"
	"github.com/kangdazhi/zircon/pkg/pipeline"
)

var nextEndpointID uint64

func allocEndpointID() uint64 {
	return atomic.AddUint64(&nextEndpointID, 1)
}

// controlSlot is the single-occupancy out-of-band byte buffer described in
// spec.md §4.5. It has no interaction with the data pipeline's signals.
type controlSlot struct {
	buf [ControlMsgMax]byte
	n   int // 0 means empty
}

// acceptSlot is the single-occupancy handle hand-off queue of spec.md §4.6.
type acceptSlot struct {
	handle Handle // nil means empty
}

// Handle is the opaque value a Share/Accept pair hands off. The dispatcher
// only needs enough of a handle to find its target endpoint, if any, for
// the cycle-prevention check in spec.md §3 invariant 8 — this is the
// "handle target resolver" external collaborator of spec.md §6.
type Handle interface {
	// TargetEndpoint returns the endpoint this handle refers to, or nil if
	// the handle's target isn't a socket endpoint (in which case it is
	// always shareable).
	TargetEndpoint() *Endpoint
}

// Endpoint is one side of a socket pair. The zero value is not usable;
// construct pairs with Create.
type Endpoint struct {
	mu sync.Mutex

	id     uint64
	flags  Flags
	peer   *Endpoint // strong ref, cleared exactly once under mu
	peerID uint64    // retained after peer is cleared, for diagnostics

	signals Signal

	inbound      pipeline.Pipeline
	bufMax       int
	readDisabled bool

	control *controlSlot // nil unless FlagHasControl
	accept  *acceptSlot  // nil unless FlagHasAccept

	// changeCh is closed and replaced on every signal transition, letting an
	// external waiter block on a channel without the dispatcher itself ever
	// waiting internally. Grounded on the teacher's
	// iptcpstack.Window.DataAvailable notification channel.
	changeCh chan struct{}

	zeroHandlesDone bool
}

// ID is this endpoint's stable identifier, retained even after the peer
// reference is cleared (spec.md §3's peer_id field, applied to self here
// since that is what diagnostics key off of).
func (e *Endpoint) ID() uint64 { return e.id }

// Flags returns the immutable creation-time flag set.
func (e *Endpoint) Flags() Flags {
	return e.flags
}

// Signals returns a snapshot of the current readiness bitset.
func (e *Endpoint) Signals() Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signals
}

// Changed returns a channel that is closed the next time the signal bitset
// transitions. Callers wanting to wait for a specific mask should re-check
// Signals() after the channel fires, since multiple transitions may be
// coalesced into one wake.
func (e *Endpoint) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changeCh
}

// updateState mutates the signal bitset under the caller's already-held
// lock on e (spec.md §5: "signal updates are performed while the owning
// endpoint's lock is held"). clear is applied before set.
func (e *Endpoint) updateState(clear, set Signal) {
	before := e.signals
	e.signals = (e.signals &^ clear) | set
	if e.signals != before {
		close(e.changeCh)
		e.changeCh = make(chan struct{})
	}
}

func newEndpoint(flags Flags, bufMax int) *Endpoint {
	e := &Endpoint{
		id:       allocEndpointID(),
		flags:    flags,
		bufMax:   bufMax,
		changeCh: make(chan struct{}),
	}
	if flags&FlagDatagram != 0 {
		e.inbound = pipeline.NewDatagram(bufMax)
	} else {
		e.inbound = pipeline.NewStream(bufMax)
	}
	if flags&FlagHasControl != 0 {
		e.control = &controlSlot{}
	}
	if flags&FlagHasAccept != 0 {
		e.accept = &acceptSlot{}
	}
	return e
}

// lockedPeer returns a strong reference to the peer, captured under e's own
// lock, and releases that lock before returning — the two-stage
// cross-endpoint contract of spec.md §5: "capture peer → release lock →
// act on peer", so no operation ever holds two endpoint locks at once.
func (e *Endpoint) lockedPeer() *Endpoint {
	e.mu.Lock()
	peer := e.peer
	e.mu.Unlock()
	return peer
}

// peerClosedStatus is the PEER_CLOSED error, factored out since several
// operations return it verbatim.
func peerClosedStatus() *kstatus.Status {
	return kstatus.New(kstatus.PeerClosed, "peer endpoint is gone")
}

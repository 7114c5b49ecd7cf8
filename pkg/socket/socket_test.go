package socket_test

import (
	"bytes"
	"testing"

	"github.com/kangdazhi/zircon/pkg/kstatus"
	"github.com/kangdazhi/zircon/pkg/socket"
)

// testHandle is the minimal socket.Handle a test needs to drive Share/Accept
// without pulling in pkg/handletable.
type testHandle struct{ target *socket.Endpoint }

func (h testHandle) TargetEndpoint() *socket.Endpoint { return h.target }

func mustCreate(t *testing.T, flags socket.Flags) (*socket.Endpoint, *socket.Endpoint) {
	t.Helper()
	e0, e1, err := socket.Create(flags, socket.Options{})
	if err != nil {
		t.Fatalf("Create(%v): %v", flags, err)
	}
	return e0, e1
}

func TestCreateRejectsUnknownFlags(t *testing.T) {
	_, _, err := socket.Create(socket.Flags(1<<31), socket.Options{})
	if err == nil || err.Kind != kstatus.InvalidArgs {
		t.Fatalf("Create with unknown flag bit = %v, want INVALID_ARGS", err)
	}
}

func TestCreateStartingSignals(t *testing.T) {
	e0, e1 := mustCreate(t, socket.FlagHasControl|socket.FlagHasAccept)
	for _, e := range []*socket.Endpoint{e0, e1} {
		sig := e.Signals()
		if sig&socket.Writable == 0 {
			t.Errorf("endpoint %d missing WRITABLE at creation", e.ID())
		}
		if sig&socket.ControlWritable == 0 {
			t.Errorf("endpoint %d missing CONTROL_WRITABLE at creation with HAS_CONTROL", e.ID())
		}
		if sig&socket.Share == 0 {
			t.Errorf("endpoint %d missing SHARE at creation with HAS_ACCEPT", e.ID())
		}
		if sig&socket.Readable != 0 {
			t.Errorf("endpoint %d has READABLE at creation", e.ID())
		}
	}
}

// Scenario 1: stream echo.
func TestStreamEcho(t *testing.T) {
	e0, e1 := mustCreate(t, 0)

	n, err := e0.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = %d, %v, want 5, nil", n, err)
	}
	if sig := e1.Signals(); sig&socket.Readable == 0 {
		t.Fatalf("E1 missing READABLE after E0.Write")
	}

	buf := make([]byte, 5)
	got, err := e1.Read(buf)
	if err != nil || got != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d %q %v, want 5 \"hello\" nil", got, buf, err)
	}
	if sig := e1.Signals(); sig&socket.Readable != 0 {
		t.Fatalf("E1 still READABLE after draining the stream")
	}

	// Write more than fits: a stream write is a partial prefix, not
	// all-or-nothing.
	e0, e1, _ = socket.Create(0, socket.Options{BufMax: socket.MinBufMax})
	big := bytes.Repeat([]byte{'x'}, socket.MinBufMax+1000)
	n, err = e0.Write(big)
	if err != nil {
		t.Fatalf("Write large payload: %v", err)
	}
	if n != socket.MinBufMax {
		t.Fatalf("Write consumed %d bytes, want exactly the %d-byte capacity", n, socket.MinBufMax)
	}
	if sig := e0.Signals(); sig&socket.Writable != 0 {
		t.Fatalf("E0 still WRITABLE after filling E1's inbound pipeline to capacity")
	}
}

// Scenario 2: datagram atomicity.
func TestDatagramAtomicity(t *testing.T) {
	e0, e1 := mustCreate(t, socket.FlagDatagram)

	n, err := e0.Write(bytes.Repeat([]byte{'A'}, 10))
	if err != nil || n != 10 {
		t.Fatalf("first datagram Write = %d, %v, want 10, nil", n, err)
	}
	n, err = e0.Write([]byte("second"))
	if err != nil || n != len("second") {
		t.Fatalf("second datagram Write = %d, %v", n, err)
	}

	// A short read consumes the entire first frame; the excess is
	// discarded, never re-queued alongside the next frame.
	buf := make([]byte, 3)
	got, err := e1.Read(buf)
	if err != nil || got != 3 || string(buf) != "AAA" {
		t.Fatalf("Read = %d %q %v, want 3 \"AAA\" nil", got, buf, err)
	}

	buf2 := make([]byte, 16)
	got, err = e1.Read(buf2)
	if err != nil || string(buf2[:got]) != "second" {
		t.Fatalf("Read = %d %q %v, want \"second\"", got, buf2[:got], err)
	}

	if sig := e1.Signals(); sig&socket.Readable != 0 {
		t.Fatalf("E1 still READABLE after draining both frames")
	}
}

// Scenario 3: half-close ordering.
func TestHalfCloseOrdering(t *testing.T) {
	e0, e1 := mustCreate(t, 0)

	if _, err := e0.Write([]byte("12345678")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	e0.Shutdown(socket.ShutdownWrite)

	sig := e0.Signals()
	if sig&socket.WriteDisabled == 0 || sig&socket.Writable != 0 {
		t.Fatalf("E0 signals = %v, want WRITE_DISABLED set and WRITABLE clear", sig)
	}
	if sig&socket.ReadDisabled != 0 {
		t.Fatalf("E0 got READ_DISABLED from a write-only shutdown")
	}

	// E1's read side is latched but not yet raised: 8 bytes are still
	// queued.
	sig = e1.Signals()
	if sig&socket.ReadDisabled != 0 {
		t.Fatalf("E1 READ_DISABLED raised while data is still queued")
	}

	buf := make([]byte, 8)
	got, err := e1.Read(buf)
	if err != nil || got != 8 {
		t.Fatalf("E1.Read = %d, %v, want 8, nil", got, err)
	}
	if sig := e1.Signals(); sig&socket.ReadDisabled == 0 {
		t.Fatalf("E1 missing READ_DISABLED once the latched shutdown drains empty")
	}

	if _, err := e1.Read(buf); err == nil || err.Kind != kstatus.BadState {
		t.Fatalf("E1.Read after latched shutdown drained = %v, want BAD_STATE", err)
	}

	// Writing into a write-disabled endpoint fails BAD_STATE.
	if _, err := e0.Write([]byte("x")); err == nil || err.Kind != kstatus.BadState {
		t.Fatalf("E0.Write after Shutdown(WRITE) = %v, want BAD_STATE", err)
	}

	// Idempotent re-shutdown is a silent no-op.
	e0.Shutdown(socket.ShutdownWrite)
}

// Scenario 4: peer close.
func TestPeerClose(t *testing.T) {
	e0, e1 := mustCreate(t, 0)
	if _, err := e0.Write([]byte("buffered")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	e0.OnZeroHandles()

	sig := e1.Signals()
	if sig&socket.PeerClosed == 0 {
		t.Fatalf("E1 missing PEER_CLOSED after E0.OnZeroHandles")
	}
	if sig&socket.Writable != 0 {
		t.Fatalf("E1 still WRITABLE after its peer closed")
	}

	if _, err := e1.Write([]byte("anything")); err == nil || err.Kind != kstatus.PeerClosed {
		t.Fatalf("E1.Write after peer close = %v, want PEER_CLOSED", err)
	}

	buf := make([]byte, 8)
	got, err := e1.Read(buf)
	if err != nil || got != 8 {
		t.Fatalf("E1.Read of already-buffered bytes = %d, %v, want 8, nil", got, err)
	}

	if _, err := e1.Read(buf); err == nil || err.Kind != kstatus.PeerClosed {
		t.Fatalf("E1.Read once empty and peer closed = %v, want PEER_CLOSED", err)
	}

	// A second OnZeroHandles call is a no-op, not a double notification.
	e0.OnZeroHandles()
}

// Scenario 5: control slot exclusion.
func TestControlSlotExclusion(t *testing.T) {
	e0, e1 := mustCreate(t, socket.FlagHasControl)

	n, err := e0.WriteControl(bytes.Repeat([]byte{0xAA}, 10))
	if err != nil || n != 10 {
		t.Fatalf("WriteControl = %d, %v, want 10, nil", n, err)
	}

	if _, err := e0.WriteControl([]byte{1}); err == nil || err.Kind != kstatus.ShouldWait {
		t.Fatalf("second WriteControl before drain = %v, want SHOULD_WAIT", err)
	}

	// The control channel never touches the data signals.
	if sig := e1.Signals(); sig&socket.Readable != 0 {
		t.Fatalf("E1 got READABLE from a control write")
	}

	buf := make([]byte, 4)
	got, cerr := e1.ReadControl(buf)
	if cerr != nil || got != 4 {
		t.Fatalf("ReadControl = %d, %v, want 4, nil", got, cerr)
	}

	if _, cerr := e1.ReadControl(buf); cerr == nil || cerr.Kind != kstatus.ShouldWait {
		t.Fatalf("ReadControl after full drain = %v, want SHOULD_WAIT", cerr)
	}

	if sig := e0.Signals(); sig&socket.ControlWritable == 0 {
		t.Fatalf("E0 missing CONTROL_WRITABLE once the peer's slot drains")
	}
}

// Scenario 6: share cycle rejection.
func TestShareCycleRejection(t *testing.T) {
	p0, p1 := mustCreate(t, socket.FlagHasAccept)
	q0, _ := mustCreate(t, 0)
	r0, _ := mustCreate(t, socket.FlagHasAccept)

	if err := p0.Share(testHandle{target: q0}); err != nil {
		t.Fatalf("Share(Q.E0) = %v, want OK", err)
	}
	if sig := p0.Signals(); sig&socket.Share != 0 {
		t.Fatalf("P.E0 still SHARE after a successful Share")
	}
	if sig := p1.Signals(); sig&socket.Accept == 0 {
		t.Fatalf("P.E1 missing ACCEPT after P.E0.Share")
	}

	p2, p3 := mustCreate(t, socket.FlagHasAccept)
	if err := p2.Share(testHandle{target: p3}); err == nil || err.Kind != kstatus.BadState {
		t.Fatalf("Share(own peer) = %v, want BAD_STATE", err)
	}

	if err := p2.Share(testHandle{target: r0}); err == nil || err.Kind != kstatus.BadState {
		t.Fatalf("Share(sharable R.E0) = %v, want BAD_STATE", err)
	}
}

func TestAcceptDrainsAndReassertsShare(t *testing.T) {
	p0, p1 := mustCreate(t, socket.FlagHasAccept)
	q0, _ := mustCreate(t, 0)

	if err := p0.Share(testHandle{target: q0}); err != nil {
		t.Fatalf("Share: %v", err)
	}

	h, err := p1.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if h.TargetEndpoint() != q0 {
		t.Fatalf("Accept returned the wrong handle target")
	}

	if sig := p1.Signals(); sig&socket.Accept != 0 {
		t.Fatalf("P.E1 still ACCEPT after draining its slot")
	}
	if sig := p0.Signals(); sig&socket.Share == 0 {
		t.Fatalf("P.E0 missing SHARE once the peer's accept slot drains")
	}

	if _, err := p1.Accept(); err == nil || err.Kind != kstatus.ShouldWait {
		t.Fatalf("Accept on an empty slot = %v, want SHOULD_WAIT", err)
	}
}

func TestAcceptAndShareUnsupportedWithoutFlag(t *testing.T) {
	e0, _ := mustCreate(t, 0)
	if _, err := e0.Accept(); err == nil || err.Kind != kstatus.NotSupported {
		t.Fatalf("Accept without HAS_ACCEPT = %v, want NOT_SUPPORTED", err)
	}
	if err := e0.Share(testHandle{}); err == nil || err.Kind != kstatus.NotSupported {
		t.Fatalf("Share without HAS_ACCEPT = %v, want NOT_SUPPORTED", err)
	}
}

func TestUserSignal(t *testing.T) {
	e0, e1 := mustCreate(t, 0)

	bit := socket.UserSignal(3)
	if err := e0.UserSignal(0, bit, false); err != nil {
		t.Fatalf("UserSignal(local): %v", err)
	}
	if sig := e0.Signals(); sig&bit == 0 {
		t.Fatalf("E0 missing user signal bit 3 after setting it locally")
	}
	if sig := e1.Signals(); sig&bit != 0 {
		t.Fatalf("E1 got a user signal meant for E0")
	}

	if err := e0.UserSignal(0, bit, true); err != nil {
		t.Fatalf("UserSignal(peer): %v", err)
	}
	if sig := e1.Signals(); sig&bit == 0 {
		t.Fatalf("E1 missing user signal bit 3 after a peer-targeted set")
	}

	if err := e0.UserSignal(0, socket.Writable, false); err == nil || err.Kind != kstatus.InvalidArgs {
		t.Fatalf("UserSignal with a non-user bit = %v, want INVALID_ARGS", err)
	}
}

func TestUserSignalPeerClosed(t *testing.T) {
	e0, e1 := mustCreate(t, 0)
	e1.OnZeroHandles()
	if err := e0.UserSignal(0, socket.UserSignal(0), true); err == nil || err.Kind != kstatus.PeerClosed {
		t.Fatalf("UserSignal(peer) after peer close = %v, want PEER_CLOSED", err)
	}
}

func TestZeroLengthWriteIsNoOp(t *testing.T) {
	e0, e1 := mustCreate(t, 0)
	before := e1.Signals()
	n, err := e0.Write(nil)
	if err != nil || n != 0 {
		t.Fatalf("Write(nil) = %d, %v, want 0, nil", n, err)
	}
	if e1.Signals() != before {
		t.Fatalf("zero-length write touched peer signals")
	}
}

func TestReadQueryDoesNotConsumeOrTouchSignals(t *testing.T) {
	e0, e1 := mustCreate(t, 0)
	e0.Write([]byte("hi"))

	n, err := e1.Read(nil)
	if err != nil || n != 2 {
		t.Fatalf("Read(nil) query = %d, %v, want 2, nil", n, err)
	}
	if sig := e1.Signals(); sig&socket.Readable == 0 {
		t.Fatalf("query Read cleared READABLE")
	}

	buf := make([]byte, 2)
	got, err := e1.Read(buf)
	if err != nil || got != 2 {
		t.Fatalf("follow-up Read = %d, %v, want 2, nil", got, err)
	}

	// The query form is well-defined even against a peer-closed, empty
	// endpoint: it still reports the queued size (zero) rather than an
	// error.
	e0.OnZeroHandles()
	n, err = e1.Read(nil)
	if err != nil || n != 0 {
		t.Fatalf("Read(nil) query on empty, peer-closed endpoint = %d, %v, want 0, nil", n, err)
	}
}

func TestChangedChannelFiresOnTransition(t *testing.T) {
	e0, e1 := mustCreate(t, 0)
	ch := e1.Changed()
	select {
	case <-ch:
		t.Fatalf("Changed() channel already closed before any transition")
	default:
	}
	e0.Write([]byte("x"))
	select {
	case <-ch:
	default:
		t.Fatalf("Changed() channel not closed after a signal transition")
	}
}

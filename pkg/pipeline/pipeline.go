// Package pipeline implements the two inbound data disciplines a socket
// endpoint can have: an ordered stream of bytes, or an ordered queue of
// discrete, atomically-accepted datagram frames. Both are bounded to a fixed
// capacity and report fullness/emptiness so the signal state machine in
// pkg/socket can derive READABLE/WRITABLE from them.
package pipeline

import (
	"github.com/smallnest/ringbuffer"
)

// Pipeline is the inbound data discipline an endpoint's Create flags select.
type Pipeline interface {
	// Write appends as much of p as the discipline allows and reports how
	// many bytes were consumed. Stream pipelines may accept a strict
	// prefix; datagram pipelines are all-or-nothing per call.
	Write(p []byte) (n int, full bool)
	// Read drains into p, returning the bytes produced. Stream pipelines
	// return a prefix of the queued bytes; datagram pipelines return
	// exactly one frame, truncated to len(p), discarding any excess.
	Read(p []byte) (n int)
	// Size reports the queued byte count (stream) or the size of the next
	// frame (datagram), the "query" form used by a zero-length Read.
	Size() int
	IsEmpty() bool
	IsFull() bool
	// Capacity reports the pipeline's total byte budget.
	Capacity() int
}

// Stream is a bounded byte queue backed by a smallnest/ringbuffer.RingBuffer,
// the direct descendant of the teacher's iptcpstack.Window send/recv buffers.
type Stream struct {
	buf *ringbuffer.RingBuffer
	cap int
}

// NewStream allocates a stream pipeline with the given total capacity.
func NewStream(capacity int) *Stream {
	return &Stream{buf: ringbuffer.New(capacity), cap: capacity}
}

// Write appends as many bytes as fit, never more. It never returns an error;
// "full" reports whether the queue was already at capacity before this call
// (the BUFFER_FULL condition of spec.md §3, raised by the caller as
// SHOULD_WAIT rather than here, since a zero-length write is not an error).
func (s *Stream) Write(p []byte) (int, bool) {
	free := s.buf.Free()
	if free == 0 {
		return 0, true
	}
	if len(p) > free {
		p = p[:free]
	}
	n, _ := s.buf.Write(p)
	return n, false
}

// Read returns a prefix of the queued bytes, up to len(p).
func (s *Stream) Read(p []byte) int {
	if s.buf.Length() == 0 {
		return 0
	}
	avail := s.buf.Length()
	want := len(p)
	if want > avail {
		want = avail
	}
	n, _ := s.buf.Read(p[:want])
	return n
}

func (s *Stream) Size() int    { return s.buf.Length() }
func (s *Stream) IsEmpty() bool { return s.buf.IsEmpty() }
func (s *Stream) IsFull() bool  { return s.buf.IsFull() }

// Datagram is an ordered queue of discrete frames bounded by a total byte
// budget across all queued frames (mirroring the wire discipline in
// original_source's socket MBufChain: each frame is charged a 4-byte length
// prefix against the budget; the prefix is accounted for, not stored, and
// never exposed to callers).
type Datagram struct {
	frames   [][]byte
	queued   int // sum of len(frame) across frames, not counting the prefix
	capacity int // total capacity budget, prefix-inclusive
}

// NewDatagram allocates a datagram pipeline with the given total byte budget
// (frame payloads plus a 4-byte length prefix per frame, matching
// spec.md §6's "Datagram frame maximum = BUF_MAX − 4").
func NewDatagram(capacity int) *Datagram {
	return &Datagram{capacity: capacity}
}

func (d *Datagram) used() int {
	return d.queued + 4*len(d.frames)
}

// Write accepts the entire frame or rejects it outright; datagram writes are
// never partial (spec.md §4.2).
func (d *Datagram) Write(p []byte) (int, bool) {
	need := 4 + len(p)
	if d.used()+need > d.capacity {
		return 0, true
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	d.frames = append(d.frames, frame)
	d.queued += len(frame)
	return len(p), false
}

// Read dequeues exactly one frame, truncated to len(p); any excess bytes of
// that frame are discarded, never re-queued (spec.md §9: "datagram
// truncation ... a short read consumes the entire frame").
func (d *Datagram) Read(p []byte) int {
	if len(d.frames) == 0 {
		return 0
	}
	frame := d.frames[0]
	d.frames = d.frames[1:]
	d.queued -= len(frame)
	n := copy(p, frame)
	return n
}

// Size reports the length of the next frame, the datagram form of the
// zero-length Read query (spec.md §4.3).
func (d *Datagram) Size() int {
	if len(d.frames) == 0 {
		return 0
	}
	return len(d.frames[0])
}

func (d *Datagram) IsEmpty() bool { return len(d.frames) == 0 }

// IsFull reports whether a zero-length frame write would be rejected, i.e.
// whether even the 4-byte prefix no longer fits.
func (d *Datagram) IsFull() bool { return d.used()+4 > d.capacity }

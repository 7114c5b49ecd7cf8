// Package handletable supplies the two external collaborators spec.md §6
// leaves abstract: a reference-counting primitive that fires an
// endpoint's OnZeroHandles when its last reference is released, and a
// handle-target resolver that Share's cycle check uses to test whether a
// handle's target is itself a sharable socket endpoint.
//
// It plays the role the teacher's iptcpstack.TCPStack.Sockets map plus
// NextSocketID counter played, but with an ordered index (so diagnostics
// walk handles in a stable order instead of Go's randomized map
// iteration) and actual reference counting (the teacher's VClose just
// deleted the map entry outright).
package handletable

import (
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/kangdazhi/zircon/pkg/kstatus"
	"github.com/kangdazhi/zircon/pkg/socket"
)

type entry struct {
	id     uint64
	ep     *socket.Endpoint
	flags  socket.Flags
	refs   int
}

func less(a, b entry) bool { return a.id < b.id }

// Table is a process-local table of handles to socket endpoints.
type Table struct {
	mu     sync.Mutex
	tree   *btree.BTreeG[entry]
	nextID uint64
}

// New returns an empty handle table.
func New() *Table {
	return &Table{tree: btree.NewG(32, less)}
}

// Add registers ep under a freshly allocated handle id with one reference
// and returns that id.
func (t *Table) Add(ep *socket.Endpoint) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.tree.ReplaceOrInsert(entry{id: id, ep: ep, flags: ep.Flags(), refs: 1})
	return id
}

// Duplicate increments the reference count on an existing handle, modeling
// a second client handle table entry that shares ownership of the same
// endpoint.
func (t *Table) Duplicate(id uint64) *kstatus.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.tree.Get(entry{id: id})
	if !ok {
		return kstatus.Wrap(errors.Errorf("handle %d not registered", id), kstatus.InvalidArgs, "resolve")
	}
	e.refs++
	t.tree.ReplaceOrInsert(e)
	return nil
}

// Close releases one reference to id. When the reference count reaches
// zero the entry is removed and the endpoint's OnZeroHandles fires,
// outside the table lock — mirroring the two-stage capture-then-act
// discipline pkg/socket uses for cross-endpoint mutation, so the table
// lock is never held while an endpoint lock is taken.
func (t *Table) Close(id uint64) *kstatus.Status {
	t.mu.Lock()
	e, ok := t.tree.Get(entry{id: id})
	if !ok {
		t.mu.Unlock()
		return kstatus.Wrap(errors.Errorf("handle %d not registered", id), kstatus.InvalidArgs, "resolve")
	}
	e.refs--
	var fire *socket.Endpoint
	if e.refs <= 0 {
		t.tree.Delete(entry{id: id})
		fire = e.ep
	} else {
		t.tree.ReplaceOrInsert(e)
	}
	t.mu.Unlock()

	if fire != nil {
		fire.OnZeroHandles()
	}
	return nil
}

// Resolve is the handle-target resolver of spec.md §6: given a handle id,
// it returns the endpoint and the flags it was created with.
func (t *Table) Resolve(id uint64) (*socket.Endpoint, socket.Flags, *kstatus.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.tree.Get(entry{id: id})
	if !ok {
		return nil, 0, kstatus.Wrap(errors.Errorf("handle %d not registered", id), kstatus.InvalidArgs, "resolve")
	}
	return e.ep, e.flags, nil
}

// handleRef adapts a table entry to socket.Handle for Share's cycle check.
type handleRef struct{ ep *socket.Endpoint }

func (h handleRef) TargetEndpoint() *socket.Endpoint { return h.ep }

// HandleFor resolves id to the socket.Handle value Share expects.
func (t *Table) HandleFor(id uint64) (socket.Handle, *kstatus.Status) {
	ep, _, err := t.Resolve(id)
	if err != nil {
		return nil, err
	}
	return handleRef{ep: ep}, nil
}

// Install registers an already-resolved endpoint (the target of a
// successful Accept) under a new handle id, the receiving side's
// counterpart to Add.
func (t *Table) Install(ep *socket.Endpoint) uint64 {
	return t.Add(ep)
}

// Info is a diagnostic snapshot of one live handle, the shape the REPL's
// `ls` command and List walk.
type Info struct {
	ID      uint64
	Flags   socket.Flags
	Refs    int
	Signals socket.Signal
}

// List returns every live handle in ascending id order.
func (t *Table) List() []Info {
	t.mu.Lock()
	entries := make([]entry, 0, t.tree.Len())
	t.tree.Ascend(func(e entry) bool {
		entries = append(entries, e)
		return true
	})
	t.mu.Unlock()

	// Signals takes the endpoint lock, so it is read after the table lock
	// is released.
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, Info{ID: e.id, Flags: e.flags, Refs: e.refs, Signals: e.ep.Signals()})
	}
	return out
}

// Package replio is the operator console over pkg/socket: a REPL that
// creates pairs, drives their operations, and lists live handles, adapted
// from the teacher's pkg/repl (which drove an IP forwarding table and
// neighbor list the same way, over text/tabwriter).
package replio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kangdazhi/zircon/pkg/handletable"
	"github.com/kangdazhi/zircon/pkg/kstatus"
	"github.com/kangdazhi/zircon/pkg/socket"
)

// Start runs the console, reading commands from in and writing output to
// out, until in is exhausted (EOF) or a "quit" command is read.
func Start(in io.Reader, out io.Writer) {
	table := handletable.New()
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		dispatch(table, line, out)
	}
}

func dispatch(table *handletable.Table, line string, out io.Writer) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "create":
		runCreate(table, args, out)
	case "write":
		runWrite(table, args, out)
	case "retrywrite":
		runRetryWrite(table, args, out)
	case "read":
		runRead(table, args, out)
	case "shutdown":
		runShutdown(table, args, out)
	case "wctrl":
		runWriteControl(table, args, out)
	case "rctrl":
		runReadControl(table, args, out)
	case "share":
		runShare(table, args, out)
	case "accept":
		runAccept(table, args, out)
	case "signal":
		runUserSignal(table, args, out)
	case "signals":
		runSignals(table, args, out)
	case "close":
		runClose(table, args, out)
	case "ls":
		runList(table, out)
	default:
		fmt.Fprintf(out, "unknown command %q\n", cmd)
	}
}

func runCreate(table *handletable.Table, args []string, out io.Writer) {
	var flags socket.Flags
	for _, a := range args {
		switch a {
		case "datagram":
			flags |= socket.FlagDatagram
		case "control":
			flags |= socket.FlagHasControl
		case "accept":
			flags |= socket.FlagHasAccept
		default:
			fmt.Fprintf(out, "create: unknown flag %q\n", a)
			return
		}
	}

	e0, e1, err := socket.Create(flags, socket.Options{})
	if err != nil {
		fmt.Fprintf(out, "create: %v\n", err)
		return
	}
	h0 := table.Add(e0)
	h1 := table.Add(e1)
	fmt.Fprintf(out, "created pair: E0=%d E1=%d\n", h0, h1)
}

func lookup(table *handletable.Table, out io.Writer, idStr string) (*socket.Endpoint, bool) {
	id, perr := strconv.ParseUint(idStr, 10, 64)
	if perr != nil {
		fmt.Fprintf(out, "invalid handle %q\n", idStr)
		return nil, false
	}
	ep, _, err := table.Resolve(id)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return nil, false
	}
	return ep, true
}

func runWrite(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: write <handle> <text>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	payload := []byte(strings.Join(args[1:], " "))
	n, err := ep.Write(payload)
	if err != nil {
		fmt.Fprintf(out, "write: %v\n", err)
		return
	}
	fmt.Fprintf(out, "wrote %d bytes\n", n)
}

// runRetryWrite retries a write against SHOULD_WAIT with exponential
// backoff for up to five seconds, a console convenience over the
// non-blocking core (see backoff.go).
func runRetryWrite(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: retrywrite <handle> <text>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	payload := []byte(strings.Join(args[1:], " "))
	var n int
	err := backoff(5*time.Second, func() *kstatus.Status {
		got, werr := ep.Write(payload)
		n = got
		return werr
	})
	if err != nil {
		fmt.Fprintf(out, "retrywrite: %v\n", err)
		return
	}
	fmt.Fprintf(out, "wrote %d bytes\n", n)
}

func runRead(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: read <handle> [n]")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	n := 64
	if len(args) >= 2 {
		v, perr := strconv.Atoi(args[1])
		if perr != nil {
			fmt.Fprintf(out, "invalid length %q\n", args[1])
			return
		}
		n = v
	}
	buf := make([]byte, n)
	got, err := ep.Read(buf)
	if err != nil {
		fmt.Fprintf(out, "read: %v\n", err)
		return
	}
	if n == 0 {
		// Query form: got is the queued size, nothing was copied into buf.
		fmt.Fprintf(out, "%d bytes queued\n", got)
		return
	}
	fmt.Fprintf(out, "read %d bytes: %q\n", got, buf[:got])
}

func runShutdown(table *handletable.Table, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: shutdown <handle> <r|w|rw>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	var how socket.ShutdownFlags
	switch args[1] {
	case "r":
		how = socket.ShutdownRead
	case "w":
		how = socket.ShutdownWrite
	case "rw", "wr":
		how = socket.ShutdownRead | socket.ShutdownWrite
	default:
		fmt.Fprintf(out, "shutdown: unknown direction %q\n", args[1])
		return
	}
	ep.Shutdown(how)
	fmt.Fprintln(out, "ok")
}

func runWriteControl(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: wctrl <handle> <text>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	payload := []byte(strings.Join(args[1:], " "))
	n, err := ep.WriteControl(payload)
	if err != nil {
		fmt.Fprintf(out, "wctrl: %v\n", err)
		return
	}
	fmt.Fprintf(out, "wrote %d control bytes\n", n)
}

func runReadControl(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: rctrl <handle> [n]")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	n := socket.ControlMsgMax
	if len(args) >= 2 {
		v, perr := strconv.Atoi(args[1])
		if perr != nil {
			fmt.Fprintf(out, "invalid length %q\n", args[1])
			return
		}
		n = v
	}
	buf := make([]byte, n)
	got, err := ep.ReadControl(buf)
	if err != nil {
		fmt.Fprintf(out, "rctrl: %v\n", err)
		return
	}
	fmt.Fprintf(out, "read %d control bytes: %q\n", got, buf[:got])
}

func runShare(table *handletable.Table, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: share <handle> <target-handle>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	targetID, perr := strconv.ParseUint(args[1], 10, 64)
	if perr != nil {
		fmt.Fprintf(out, "invalid target handle %q\n", args[1])
		return
	}
	h, herr := table.HandleFor(targetID)
	if herr != nil {
		fmt.Fprintf(out, "share: %v\n", herr)
		return
	}
	if err := ep.Share(h); err != nil {
		fmt.Fprintf(out, "share: %v\n", err)
		return
	}
	fmt.Fprintln(out, "ok")
}

func runAccept(table *handletable.Table, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: accept <handle>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	h, err := ep.Accept()
	if err != nil {
		fmt.Fprintf(out, "accept: %v\n", err)
		return
	}
	target := h.TargetEndpoint()
	if target == nil {
		fmt.Fprintln(out, "accepted a non-endpoint handle")
		return
	}
	id := table.Install(target)
	fmt.Fprintf(out, "accepted as handle %d\n", id)
}

func runUserSignal(table *handletable.Table, args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: signal <handle> [clear] [set] [peer]")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	var clear, set socket.Signal
	peer := false
	if len(args) >= 2 {
		v, perr := strconv.ParseUint(args[1], 0, 32)
		if perr != nil {
			fmt.Fprintf(out, "invalid clear mask %q\n", args[1])
			return
		}
		clear = socket.Signal(v)
	}
	if len(args) >= 3 {
		v, perr := strconv.ParseUint(args[2], 0, 32)
		if perr != nil {
			fmt.Fprintf(out, "invalid set mask %q\n", args[2])
			return
		}
		set = socket.Signal(v)
	}
	if len(args) >= 4 && args[3] == "peer" {
		peer = true
	}
	if err := ep.UserSignal(clear, set, peer); err != nil {
		fmt.Fprintf(out, "signal: %v\n", err)
		return
	}
	fmt.Fprintln(out, "ok")
}

func runSignals(table *handletable.Table, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: signals <handle>")
		return
	}
	ep, ok := lookup(table, out, args[0])
	if !ok {
		return
	}
	fmt.Fprintln(out, ep.Signals().String())
}

func runClose(table *handletable.Table, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: close <handle>")
		return
	}
	id, perr := strconv.ParseUint(args[0], 10, 64)
	if perr != nil {
		fmt.Fprintf(out, "invalid handle %q\n", args[0])
		return
	}
	if err := table.Close(id); err != nil {
		fmt.Fprintf(out, "close: %v\n", err)
		return
	}
	fmt.Fprintln(out, "ok")
}

func runList(table *handletable.Table, out io.Writer) {
	w := tabwriter.NewWriter(out, 1, 1, 3, ' ', 0)
	fmt.Fprintln(w, "Handle\tFlags\tRefs\tSignals")
	for _, info := range table.List() {
		fmt.Fprintf(w, "%d\t%#x\t%d\t%s\n", info.ID, uint32(info.Flags), info.Refs, info.Signals.String())
	}
	w.Flush()
}

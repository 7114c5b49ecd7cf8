package replio

import (
	"time"

	"github.com/kangdazhi/zircon/pkg/kstatus"
)

// backoff retries fn with exponential backoff while it returns
// kstatus.ErrShouldWait, the REPL-level counterpart to the teacher's
// handleZeroWindow probe loop in iptcpstack/retransmission.go. The
// dispatcher core never waits internally (spec.md §5); this is the
// external waiting discipline a console convenience command is allowed to
// supply on top of it.
func backoff(maxWait time.Duration, fn func() *kstatus.Status) *kstatus.Status {
	interval := time.Millisecond
	const maxInterval = 200 * time.Millisecond
	deadline := time.Now().Add(maxWait)

	for {
		err := fn()
		if err == nil || err.Kind != kstatus.ShouldWait {
			return err
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(interval)
		interval *= 2
		if interval > maxInterval {
			interval = maxInterval
		}
	}
}

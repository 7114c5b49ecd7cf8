package kstatus_test

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/kangdazhi/zircon/pkg/kstatus"
)

func TestNewIs(t *testing.T) {
	s := kstatus.New(kstatus.BadState, "slot occupied")
	if !errors.Is(s, kstatus.ErrBadState) {
		t.Fatalf("errors.Is(s, ErrBadState) = false, want true")
	}
	if errors.Is(s, kstatus.ErrShouldWait) {
		t.Fatalf("errors.Is(s, ErrShouldWait) = true, want false")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := pkgerrors.New("copy fault")
	s := kstatus.Wrap(cause, kstatus.InvalidArgs, "copy from user")
	if !errors.Is(s, kstatus.ErrInvalidArgs) {
		t.Fatalf("errors.Is(s, ErrInvalidArgs) = false, want true")
	}
	if !errors.Is(s, cause) {
		t.Fatalf("errors.Is(s, cause) = false, want true")
	}
	if s.Error() == "" {
		t.Fatalf("Error() returned empty string")
	}
}

func TestOf(t *testing.T) {
	if got := kstatus.Of(nil); got != kstatus.OK {
		t.Fatalf("Of(nil) = %v, want OK", got)
	}
	s := kstatus.New(kstatus.PeerClosed, "gone")
	if got := kstatus.Of(s); got != kstatus.PeerClosed {
		t.Fatalf("Of(s) = %v, want PeerClosed", got)
	}
}

func TestIsHelper(t *testing.T) {
	s := kstatus.New(kstatus.OutOfRange, "too big")
	if !kstatus.Is(s, kstatus.OutOfRange) {
		t.Fatalf("Is(s, OutOfRange) = false, want true")
	}
	if kstatus.Is(s, kstatus.BadState) {
		t.Fatalf("Is(s, BadState) = true, want false")
	}
}

func TestKindString(t *testing.T) {
	cases := map[kstatus.Kind]string{
		kstatus.OK:           "OK",
		kstatus.ShouldWait:   "SHOULD_WAIT",
		kstatus.NotSupported: "NOT_SUPPORTED",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}

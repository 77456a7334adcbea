package permission

import (
	"errors"
	"math/bits"
	"testing"
)

func TestCanonicalFlags(t *testing.T) {
	table := Canonical()
	want := map[Action]Mask{
		ActionView:    0x0001,
		ActionCreate:  0x0002,
		ActionEdit:    0x0004,
		ActionDelete:  0x0008,
		ActionManage:  0x0010,
		ActionApprove: 0x0020,
		ActionExecute: 0x0040,
	}
	var seen Mask
	for action, flag := range want {
		got, err := table.FlagFor(action)
		if err != nil {
			t.Fatalf("FlagFor(%s): %v", action, err)
		}
		if got != flag {
			t.Fatalf("FlagFor(%s): expected %s, got %s", action, flag, got)
		}
		if seen&got != 0 {
			t.Fatalf("flag %s overlaps earlier flags %s", got, seen)
		}
		seen |= got
	}
	if table.Count() != 7 || !table.Frozen() {
		t.Fatalf("expected frozen table with 7 actions, got %d frozen=%v", table.Count(), table.Frozen())
	}
}

func TestFlagForUnknownAction(t *testing.T) {
	for _, name := range []Action{"", "view", "PUBLISH", "VIEW "} {
		if _, err := Canonical().FlagFor(name); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("FlagFor(%q): expected ErrInvalidAction, got %v", name, err)
		}
	}
	if _, err := Canonical().Encode([]Action{ActionView, "PUBLISH"}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction from Encode, got %v", err)
	}
}

func TestEncodeNamesNormalizes(t *testing.T) {
	m, err := Canonical().EncodeNames([]string{" view", "Edit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != 0x0005 {
		t.Fatalf("expected 0x0005, got %s", m)
	}
}

func TestActionTableRegisterRules(t *testing.T) {
	table := NewActionTable()
	if err := table.Register("SHARE", 0x0080); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := table.Register("SHARE", 0x0100); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for name, got %v", err)
	}
	if err := table.Register("EXPORT", 0x0080); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for bit, got %v", err)
	}
	if err := table.Register("MULTI", 0x0003); !errors.Is(err, ErrMalformedMask) {
		t.Fatalf("expected ErrMalformedMask for multi-bit flag, got %v", err)
	}
	if err := table.Register("ZERO", 0); !errors.Is(err, ErrMalformedMask) {
		t.Fatalf("expected ErrMalformedMask for zero flag, got %v", err)
	}
	if err := table.Register("lower", 0x0200); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for lower case name, got %v", err)
	}

	table.Freeze()
	if err := table.Register("EXPORT", 0x0400); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestActionsListsMaskContents(t *testing.T) {
	got := Canonical().Actions(0x0025)
	want := []Action{ActionView, ActionEdit, ActionApprove}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// Unregistered high bits are skipped.
	if got := Canonical().Actions(0x8000); len(got) != 0 {
		t.Fatalf("expected no actions, got %v", got)
	}
}

func TestNamesOrderedByFlag(t *testing.T) {
	names := Canonical().Names()
	var prev Mask
	for _, name := range names {
		flag, _ := Canonical().FlagFor(name)
		if bits.OnesCount16(uint16(flag)) != 1 || flag <= prev {
			t.Fatalf("names not ordered by flag: %v", names)
		}
		prev = flag
	}
}

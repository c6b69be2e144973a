package xkb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA     = 38  // <AC01>
	keyEsc   = 9   // <ESC>
	keyShift = 50  // <LFSH>
	keyCtrl  = 37  // <LCTL>
	keyCaps  = 66  // <CAPS>
	keyMenu  = 135 // <MENU>, ISO_Next_Group
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(parseTestKeymap(t))
}

func pressSym(t *testing.T, s *State, keycode uint32) Keysym {
	t.Helper()
	syms, _ := s.UpdateKey(keycode, true)
	require.Len(t, syms, 1)
	s.UpdateKey(keycode, false)
	return syms[0]
}

func TestEffectiveMask(t *testing.T) {
	m := ModifierState{Depressed: ModShift, Latched: ModMod1, Locked: ModLock}
	assert.Equal(t, ModShift|ModMod1|ModLock, m.Effective())
}

func TestShiftPressAndRelease(t *testing.T) {
	s := newTestState(t)

	syms, mods := s.UpdateKey(keyShift, true)
	require.Len(t, syms, 1)
	assert.Equal(t, KeysymFromName("Shift_L"), syms[0])
	// The mask in effect when the shift press happened was empty.
	assert.Zero(t, mods)
	assert.Equal(t, ModShift, s.Modifiers().Depressed)

	assert.Equal(t, KeysymFromName("A"), pressSym(t, s, keyA))

	s.UpdateKey(keyShift, false)
	assert.Zero(t, s.Modifiers().Depressed)
	assert.Equal(t, KeysymFromName("a"), pressSym(t, s, keyA))
}

func TestCapsLockToggles(t *testing.T) {
	s := newTestState(t)

	// Press and release: the lock persists.
	s.UpdateKey(keyCaps, true)
	s.UpdateKey(keyCaps, false)
	assert.Equal(t, ModLock, s.Modifiers().Locked)

	assert.Equal(t, KeysymFromName("A"), pressSym(t, s, keyA))

	// Unrelated keys leave the lock alone.
	pressSym(t, s, keyEsc)
	assert.Equal(t, ModLock, s.Modifiers().Locked)

	// A second press unlocks.
	s.UpdateKey(keyCaps, true)
	s.UpdateKey(keyCaps, false)
	assert.Zero(t, s.Modifiers().Locked)
	assert.Equal(t, KeysymFromName("a"), pressSym(t, s, keyA))
}

func TestGroupSwitchWraps(t *testing.T) {
	s := newTestState(t)

	s.UpdateKey(keyMenu, true)
	s.UpdateKey(keyMenu, false)
	assert.Equal(t, 1, s.Modifiers().Group)
	assert.Equal(t, KeysymFromName("f"), pressSym(t, s, keyA))

	// Keys with a single group keep resolving.
	assert.Equal(t, KeysymFromName("Escape"), pressSym(t, s, keyEsc))

	// Next switch wraps back to the first group.
	s.UpdateKey(keyMenu, true)
	s.UpdateKey(keyMenu, false)
	assert.Equal(t, 0, s.Modifiers().Group)
	assert.Equal(t, KeysymFromName("a"), pressSym(t, s, keyA))
}

func TestSetModifiersIsAuthoritative(t *testing.T) {
	s := newTestState(t)

	s.UpdateKey(keyShift, true)
	require.Equal(t, ModShift, s.Modifiers().Depressed)

	// The server view replaces whatever we tracked locally.
	s.SetModifiers(uint32(ModControl), 0, uint32(ModLock), 1)
	got := s.Modifiers()
	assert.Equal(t, ModControl, got.Depressed)
	assert.Equal(t, ModLock, got.Locked)
	assert.Equal(t, 1, got.Group)

	// The forgotten shift hold must not resurface on release.
	s.UpdateKey(keyShift, false)
	assert.Equal(t, ModControl, s.Modifiers().Depressed)
}

func TestServerDepressedSurvivesLocalHolds(t *testing.T) {
	s := newTestState(t)

	s.SetModifiers(uint32(ModControl), 0, 0, 0)

	// A local hold overlays the server-reported base.
	s.UpdateKey(keyShift, true)
	assert.Equal(t, ModControl|ModShift, s.Modifiers().Depressed)

	// Releasing it drops only the local contribution.
	s.UpdateKey(keyShift, false)
	assert.Equal(t, ModControl, s.Modifiers().Depressed)

	// The next server view replaces the base outright.
	s.SetModifiers(0, 0, 0, 0)
	assert.Zero(t, s.Modifiers().Depressed)
}

func TestLatchConsumedByModifierRelease(t *testing.T) {
	s := newTestState(t)

	s.SetModifiers(0, uint32(ModShift), 0, 0)
	require.Equal(t, ModShift, s.Modifiers().Effective())

	s.UpdateKey(keyShift, true)
	s.UpdateKey(keyShift, false)
	assert.Zero(t, s.Modifiers().Latched)
	assert.Equal(t, KeysymFromName("a"), pressSym(t, s, keyA))
}

func TestTextConversion(t *testing.T) {
	tests := []struct {
		name string
		syms []Keysym
		mods uint8
		want string
	}{
		{"plain letter", []Keysym{KeysymFromName("a")}, 0, "a"},
		{"shifted letter", []Keysym{KeysymFromName("A")}, ModShift, "A"},
		{"control letter", []Keysym{KeysymFromName("c")}, ModControl, "\x03"},
		{"control upper", []Keysym{KeysymFromName("C")}, ModControl | ModShift, "\x03"},
		{"keypad digit", []Keysym{KeysymFromName("KP_7")}, 0, "7"},
		{"function key", []Keysym{KeysymFromName("Escape")}, 0, "\x1b"},
		{"modifier key", []Keysym{KeysymFromName("Shift_L")}, 0, ""},
		{"no syms", nil, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.syms, tt.mods))
		})
	}
}

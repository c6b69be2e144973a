package xkb

// ModifierState is the split modifier view the protocol reports:
// depressed (held), latched (applies to the next key) and locked
// (toggled), plus the active group.
type ModifierState struct {
	Depressed uint8
	Latched   uint8
	Locked    uint8
	Group     int
}

// Effective returns the modifier mask actually applied to lookups.
func (m ModifierState) Effective() uint8 {
	return m.Depressed | m.Latched | m.Locked
}

// State tracks keyboard state derived from one keymap. It is owned by
// a single goroutine; replacing the keymap invalidates the state and
// a fresh one must be created.
type State struct {
	keymap *Keymap
	mods   ModifierState
	held   map[uint32]uint8

	// serverDepressed carries depressed bits the server reported that
	// no locally tracked hold accounts for. They persist until the
	// next modifiers event rather than vanishing on an unrelated
	// local release.
	serverDepressed uint8
}

// NewState creates pristine state for a keymap.
func NewState(km *Keymap) *State {
	return &State{
		keymap: km,
		held:   make(map[uint32]uint8),
	}
}

// Keymap returns the keymap the state was derived from.
func (s *State) Keymap() *Keymap {
	return s.keymap
}

// Modifiers returns the current modifier state. Pure read.
func (s *State) Modifiers() ModifierState {
	return s.mods
}

// SetModifiers overwrites the state with the server's authoritative
// view from a wl_keyboard.modifiers event.
func (s *State) SetModifiers(depressed, latched, locked uint32, group uint32) {
	s.mods = ModifierState{
		Depressed: uint8(depressed),
		Latched:   uint8(latched),
		Locked:    uint8(locked),
		Group:     int(group),
	}
	// The server view supersedes locally tracked holds.
	s.serverDepressed = uint8(depressed)
	clear(s.held)
}

// UpdateKey applies a key press or release in keymap keycode space.
// It returns the keysyms the key produces under the state in effect
// when the event happened, plus that effective modifier mask.
// Ordinary modifiers set on press and clear on release; locking
// modifiers toggle on press and ignore release.
func (s *State) UpdateKey(keycode uint32, pressed bool) ([]Keysym, uint8) {
	effective := s.mods.Effective()
	syms := s.keymap.Syms(keycode, effective, s.mods.Group)

	if pressed && len(syms) == 1 {
		n := s.keymap.NumGroups()
		switch syms[0] {
		case KeysymISONextGroup:
			s.mods.Group = (s.mods.Group + 1) % n
		case KeysymISOPrevGroup:
			s.mods.Group = (s.mods.Group - 1 + n) % n
		}
	}

	if mask, ok := s.keymap.ModifierMask(keycode); ok && mask != 0 {
		locking := len(syms) == 1 && isLockingSym(syms[0])
		switch {
		case locking:
			if pressed {
				s.mods.Locked ^= mask
			}
		case pressed:
			s.held[keycode] = mask
			s.recomputeDepressed()
		default:
			delete(s.held, keycode)
			s.recomputeDepressed()
			// A non-locking modifier consumes the latch it applied to.
			s.mods.Latched &^= mask
		}
	}
	return syms, effective
}

// recomputeDepressed rebuilds the depressed mask from the held keys
// on top of the server-reported base, so two keys feeding the same
// modifier keep it down until both are released.
func (s *State) recomputeDepressed() {
	mask := s.serverDepressed
	for _, m := range s.held {
		mask |= m
	}
	s.mods.Depressed = mask
}

// Text converts a resolved keysym set to the UTF-8 it types. Control
// combinations map letters onto the C0 range; function and modifier
// keys produce nothing.
func Text(syms []Keysym, mods uint8) string {
	if len(syms) != 1 {
		return ""
	}
	r := syms[0].Rune()
	if r < 0 {
		return ""
	}
	if mods&ModControl != 0 {
		switch {
		case r >= 'a' && r <= 'z':
			return string(rune(r - 'a' + 1))
		case r >= 'A' && r <= 'Z':
			return string(rune(r - 'A' + 1))
		}
	}
	return string(r)
}

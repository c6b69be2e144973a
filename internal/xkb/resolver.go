package xkb

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Keymap formats as wl_keyboard.keymap tags them.
const (
	FormatNone  uint32 = 0
	FormatXKBv1 uint32 = 1
)

// KeyResult is the outcome of resolving one key event: the keysyms
// the key produced and the UTF-8 text, if the key types anything.
type KeyResult struct {
	Keysyms []Keysym
	Text    string
}

// Resolver owns the active keymap and the keyboard state derived from
// it. The keymap handle swaps atomically on load so a reader never
// observes a half-built keymap; everything else follows the
// single-threaded model of the connection feeding it.
type Resolver struct {
	keymap atomic.Pointer[Keymap]
	state  *State
}

// NewResolver returns an empty resolver. Until a keymap is loaded
// every key resolves to nothing.
func NewResolver() *Resolver {
	return &Resolver{}
}

// LoadKeymap parses a keymap buffer and installs it, replacing any
// previous keymap together with the state derived from it.
func (r *Resolver) LoadKeymap(format uint32, data []byte) error {
	switch format {
	case FormatNone:
		r.keymap.Store(nil)
		r.state = nil
		return nil
	case FormatXKBv1:
		km, err := Parse(data)
		if err != nil {
			return err
		}
		r.keymap.Store(km)
		r.state = NewState(km)
		return nil
	default:
		return &ParseError{Msg: fmt.Sprintf("unsupported keymap format %d", format)}
	}
}

// LoadKeymapFD consumes the fd/size pair from a wl_keyboard.keymap
// event: the buffer is mapped read-only, copied and parsed. The fd is
// closed in all cases.
func (r *Resolver) LoadKeymapFD(format uint32, fd int, size uint32) error {
	if fd < 0 {
		return &ParseError{Msg: "keymap event carried no fd"}
	}
	defer unix.Close(fd)
	if format == FormatNone || size == 0 {
		return r.LoadKeymap(FormatNone, nil)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("xkb: mapping keymap fd: %w", err)
	}
	defer unix.Munmap(data)
	buf := make([]byte, len(data))
	copy(buf, data)
	return r.LoadKeymap(format, buf)
}

// Keymap returns the active keymap, or nil before the first load.
func (r *Resolver) Keymap() *Keymap {
	return r.keymap.Load()
}

// KeyEvent applies a raw evdev key press or release and returns the
// keysyms and text produced. Unknown keycodes and an unloaded keymap
// both resolve to an empty result rather than an error.
func (r *Resolver) KeyEvent(evdevCode uint32, pressed bool) KeyResult {
	if r.keymap.Load() == nil || r.state == nil {
		return KeyResult{}
	}
	syms, mods := r.state.UpdateKey(evdevCode+EvdevOffset, pressed)
	res := KeyResult{Keysyms: syms}
	if pressed {
		res.Text = Text(syms, mods)
	}
	return res
}

// ModifierState returns the resolver's current modifier view. Pure
// read; returns the zero state before a keymap is loaded.
func (r *Resolver) ModifierState() ModifierState {
	if r.state == nil {
		return ModifierState{}
	}
	return r.state.Modifiers()
}

// SetModifiers forwards the server's modifier state to the tracked
// keyboard state.
func (r *Resolver) SetModifiers(depressed, latched, locked, group uint32) {
	if r.state == nil {
		return
	}
	r.state.SetModifiers(depressed, latched, locked, group)
}

package wlclient

import (
	"golang.org/x/sys/unix"

	"github.com/bnema/wlcore/internal/wire"
)

// Keymap formats from the wl_keyboard.keymap event.
const (
	KeymapFormatNone  = 0
	KeymapFormatXKBv1 = 1
)

// Key states from the wl_keyboard.key event.
const (
	KeyStateReleased = 0
	KeyStatePressed  = 1
)

const (
	opcodeKeyboardRelease = 0

	opcodeKeyboardKeymap     = 0
	opcodeKeyboardEnter      = 1
	opcodeKeyboardLeave      = 2
	opcodeKeyboardKey        = 3
	opcodeKeyboardModifiers  = 4
	opcodeKeyboardRepeatInfo = 5
)

// Keyboard is a wl_keyboard proxy. Key codes in Key are raw evdev
// codes; the keymap resolver applies the +8 keymap bias.
type Keyboard struct {
	BaseProxy

	// Keymap receives the compiled keymap the compositor hands over:
	// a format tag plus an fd/size pair to map or read. The callback
	// owns the fd. Without a callback the fd is closed here.
	Keymap     func(format uint32, fd int, size uint32)
	Enter      func(serial uint32, surface uint32, keys []byte)
	Leave      func(serial uint32, surface uint32)
	Key        func(serial, time, key, state uint32)
	Modifiers  func(serial, depressed, latched, locked, group uint32)
	RepeatInfo func(rate, delay int32)
}

func newKeyboard(c *Connection) *Keyboard {
	kb := &Keyboard{}
	kb.SetConnection(c)
	kb.SetID(c.allocID())
	c.register(kb)
	return kb
}

func (kb *Keyboard) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeKeyboardKeymap:
		format := e.Uint()
		size := e.Uint()
		fd := e.FD()
		if kb.Keymap != nil {
			kb.Keymap(format, fd, size)
		} else if fd >= 0 {
			unix.Close(fd)
		}
	case opcodeKeyboardEnter:
		serial := e.Uint()
		surface := e.Uint()
		keys := e.Array()
		if kb.Enter != nil {
			kb.Enter(serial, surface, keys)
		}
	case opcodeKeyboardLeave:
		serial := e.Uint()
		surface := e.Uint()
		if kb.Leave != nil {
			kb.Leave(serial, surface)
		}
	case opcodeKeyboardKey:
		serial := e.Uint()
		time := e.Uint()
		key := e.Uint()
		state := e.Uint()
		if kb.Key != nil {
			kb.Key(serial, time, key, state)
		}
	case opcodeKeyboardModifiers:
		serial := e.Uint()
		depressed := e.Uint()
		latched := e.Uint()
		locked := e.Uint()
		group := e.Uint()
		if kb.Modifiers != nil {
			kb.Modifiers(serial, depressed, latched, locked, group)
		}
	case opcodeKeyboardRepeatInfo:
		rate := e.Int()
		delay := e.Int()
		if kb.RepeatInfo != nil {
			kb.RepeatInfo(rate, delay)
		}
	}
}

// Release destroys the keyboard proxy.
func (kb *Keyboard) Release() error {
	c := kb.Connection()
	err := c.queueRequest(wire.NewRequest(kb.ID(), opcodeKeyboardRelease))
	c.unregister(kb.ID())
	return err
}

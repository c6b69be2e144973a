package wlclient

import "github.com/bnema/wlcore/internal/wire"

// Seat capability bits from the capabilities event.
const (
	SeatCapabilityPointer  = 1 << 0
	SeatCapabilityKeyboard = 1 << 1
	SeatCapabilityTouch    = 1 << 2
)

const (
	opcodeSeatGetPointer  = 0
	opcodeSeatGetKeyboard = 1
	opcodeSeatRelease     = 3

	opcodeSeatCapabilities = 0
	opcodeSeatName         = 1
)

// Seat is a wl_seat proxy: a group of input devices. Capability and
// name events are surfaced through the listener funcs.
type Seat struct {
	BaseProxy

	Capabilities func(caps uint32)
	Name         func(name string)
}

func newSeat(c *Connection) *Seat {
	s := &Seat{}
	s.SetConnection(c)
	s.SetID(c.allocID())
	c.register(s)
	return s
}

func (s *Seat) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeSeatCapabilities:
		caps := e.Uint()
		if s.Capabilities != nil {
			s.Capabilities(caps)
		}
	case opcodeSeatName:
		name := e.String()
		if s.Name != nil {
			s.Name(name)
		}
	}
}

// GetKeyboard creates the keyboard proxy for this seat. The caller
// should only do this after the capabilities event advertised one.
func (s *Seat) GetKeyboard() (*Keyboard, error) {
	c := s.Connection()
	kb := newKeyboard(c)
	req := wire.NewRequest(s.ID(), opcodeSeatGetKeyboard).PutNewID(kb.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(kb.ID())
		return nil, err
	}
	return kb, nil
}

// GetPointer creates the pointer proxy for this seat.
func (s *Seat) GetPointer() (*Pointer, error) {
	c := s.Connection()
	p := newPointer(c)
	req := wire.NewRequest(s.ID(), opcodeSeatGetPointer).PutNewID(p.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(p.ID())
		return nil, err
	}
	return p, nil
}

// Release destroys the seat proxy.
func (s *Seat) Release() error {
	c := s.Connection()
	err := c.queueRequest(wire.NewRequest(s.ID(), opcodeSeatRelease))
	c.unregister(s.ID())
	return err
}

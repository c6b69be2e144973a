package wlclient

import "github.com/bnema/wlcore/internal/wire"

const (
	opcodePointerRelease = 1

	opcodePointerEnter  = 0
	opcodePointerLeave  = 1
	opcodePointerMotion = 2
	opcodePointerButton = 3
	opcodePointerAxis   = 4
	opcodePointerFrame  = 5
)

// Button states from the wl_pointer.button event.
const (
	ButtonStateReleased = 0
	ButtonStatePressed  = 1
)

// Pointer is a wl_pointer proxy covering the pre-frame event set plus
// the frame marker.
type Pointer struct {
	BaseProxy

	Enter  func(serial uint32, surface uint32, x, y wire.Fixed)
	Leave  func(serial uint32, surface uint32)
	Motion func(time uint32, x, y wire.Fixed)
	Button func(serial, time, button, state uint32)
	Axis   func(time uint32, axis uint32, value wire.Fixed)
	Frame  func()
}

func newPointer(c *Connection) *Pointer {
	p := &Pointer{}
	p.SetConnection(c)
	p.SetID(c.allocID())
	c.register(p)
	return p
}

func (p *Pointer) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodePointerEnter:
		serial := e.Uint()
		surface := e.Uint()
		x := e.Fixed()
		y := e.Fixed()
		if p.Enter != nil {
			p.Enter(serial, surface, x, y)
		}
	case opcodePointerLeave:
		serial := e.Uint()
		surface := e.Uint()
		if p.Leave != nil {
			p.Leave(serial, surface)
		}
	case opcodePointerMotion:
		time := e.Uint()
		x := e.Fixed()
		y := e.Fixed()
		if p.Motion != nil {
			p.Motion(time, x, y)
		}
	case opcodePointerButton:
		serial := e.Uint()
		time := e.Uint()
		button := e.Uint()
		state := e.Uint()
		if p.Button != nil {
			p.Button(serial, time, button, state)
		}
	case opcodePointerAxis:
		time := e.Uint()
		axis := e.Uint()
		value := e.Fixed()
		if p.Axis != nil {
			p.Axis(time, axis, value)
		}
	case opcodePointerFrame:
		if p.Frame != nil {
			p.Frame()
		}
	}
}

// Release destroys the pointer proxy.
func (p *Pointer) Release() error {
	c := p.Connection()
	err := c.queueRequest(wire.NewRequest(p.ID(), opcodePointerRelease))
	c.unregister(p.ID())
	return err
}

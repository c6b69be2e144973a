package wlclient

import "github.com/bnema/wlcore/internal/wire"

const (
	opcodeOutputRelease = 0

	opcodeOutputGeometry    = 0
	opcodeOutputMode        = 1
	opcodeOutputDone        = 2
	opcodeOutputScale       = 3
	opcodeOutputName        = 4
	opcodeOutputDescription = 5
)

// Mode flags from the wl_output.mode event.
const (
	OutputModeCurrent   = 1 << 0
	OutputModePreferred = 1 << 1
)

// Output is a wl_output proxy describing one monitor.
type Output struct {
	BaseProxy

	Geometry    func(x, y, physWidth, physHeight, subpixel int32, maker, model string, transform int32)
	Mode        func(flags uint32, width, height, refresh int32)
	Done        func()
	Scale       func(factor int32)
	Name        func(name string)
	Description func(description string)
}

func newOutput(c *Connection) *Output {
	o := &Output{}
	o.SetConnection(c)
	o.SetID(c.allocID())
	c.register(o)
	return o
}

func (o *Output) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeOutputGeometry:
		x := e.Int()
		y := e.Int()
		physW := e.Int()
		physH := e.Int()
		subpixel := e.Int()
		maker := e.String()
		model := e.String()
		transform := e.Int()
		if o.Geometry != nil {
			o.Geometry(x, y, physW, physH, subpixel, maker, model, transform)
		}
	case opcodeOutputMode:
		flags := e.Uint()
		width := e.Int()
		height := e.Int()
		refresh := e.Int()
		if o.Mode != nil {
			o.Mode(flags, width, height, refresh)
		}
	case opcodeOutputDone:
		if o.Done != nil {
			o.Done()
		}
	case opcodeOutputScale:
		factor := e.Int()
		if o.Scale != nil {
			o.Scale(factor)
		}
	case opcodeOutputName:
		name := e.String()
		if o.Name != nil {
			o.Name(name)
		}
	case opcodeOutputDescription:
		description := e.String()
		if o.Description != nil {
			o.Description(description)
		}
	}
}

// Release destroys the output proxy.
func (o *Output) Release() error {
	c := o.Connection()
	err := c.queueRequest(wire.NewRequest(o.ID(), opcodeOutputRelease))
	c.unregister(o.ID())
	return err
}

package wlclient

import "github.com/bnema/wlcore/internal/wire"

const opcodeCompositorCreateSurface = 0

const (
	opcodeSurfaceDestroy = 0
	opcodeSurfaceFrame   = 3
	opcodeSurfaceCommit  = 6

	opcodeSurfaceEnter = 0
	opcodeSurfaceLeave = 1
)

// Compositor is a wl_compositor proxy, the surface factory.
type Compositor struct {
	BaseProxy
}

func newCompositor(c *Connection) *Compositor {
	comp := &Compositor{}
	comp.SetConnection(c)
	comp.SetID(c.allocID())
	c.register(comp)
	return comp
}

// Compositor has no events.
func (comp *Compositor) Dispatch(e *Event) {}

// CreateSurface creates a new surface proxy.
func (comp *Compositor) CreateSurface() (*Surface, error) {
	c := comp.Connection()
	s := newSurface(c)
	req := wire.NewRequest(comp.ID(), opcodeCompositorCreateSurface).PutNewID(s.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(s.ID())
		return nil, err
	}
	return s, nil
}

// Surface is a wl_surface proxy. Only the lifecycle requests the
// client core needs are implemented; rendering is the embedder's job.
type Surface struct {
	BaseProxy

	Enter func(output uint32)
	Leave func(output uint32)
}

func newSurface(c *Connection) *Surface {
	s := &Surface{}
	s.SetConnection(c)
	s.SetID(c.allocID())
	c.register(s)
	return s
}

func (s *Surface) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeSurfaceEnter:
		output := e.Uint()
		if s.Enter != nil {
			s.Enter(output)
		}
	case opcodeSurfaceLeave:
		output := e.Uint()
		if s.Leave != nil {
			s.Leave(output)
		}
	}
}

// Frame requests a frame callback for the surface.
func (s *Surface) Frame() (*Callback, error) {
	c := s.Connection()
	cb := newCallback(c)
	req := wire.NewRequest(s.ID(), opcodeSurfaceFrame).PutNewID(cb.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(cb.ID())
		return nil, err
	}
	return cb, nil
}

// Commit atomically applies pending surface state.
func (s *Surface) Commit() error {
	return s.Connection().queueRequest(wire.NewRequest(s.ID(), opcodeSurfaceCommit))
}

// Destroy deletes the surface.
func (s *Surface) Destroy() error {
	c := s.Connection()
	err := c.queueRequest(wire.NewRequest(s.ID(), opcodeSurfaceDestroy))
	c.unregister(s.ID())
	return err
}

package wlclient

import "github.com/bnema/wlcore/internal/logger"

const (
	opcodeDisplaySync        = 0
	opcodeDisplayGetRegistry = 1

	opcodeDisplayError    = 0
	opcodeDisplayDeleteID = 1
)

// Display is the wl_display singleton (object id 1). A protocol error
// event is fatal and moves the connection to Closed.
type Display struct {
	BaseProxy
}

func newDisplay(c *Connection) *Display {
	d := &Display{}
	d.SetConnection(c)
	d.SetID(1)
	c.register(d)
	return d
}

func (d *Display) Dispatch(e *Event) {
	switch e.Opcode {
	case opcodeDisplayError:
		objectID := e.Uint()
		code := e.Uint()
		message := e.String()
		perr := &ProtocolError{ObjectID: objectID, Code: code, Message: message}
		logger.Errorf("fatal display error: %v", perr)
		d.Connection().closeWith(perr)
	case opcodeDisplayDeleteID:
		id := e.Uint()
		// The id is retired, not recycled; the allocator only counts up.
		d.Connection().unregister(id)
	}
}

package wlclient

const opcodeCallbackDone = 0

// Callback is a wl_callback proxy. The server destroys the object
// after firing done, so the proxy unregisters itself on delivery.
type Callback struct {
	BaseProxy

	Done func(callbackData uint32)
}

func newCallback(c *Connection) *Callback {
	cb := &Callback{}
	cb.SetConnection(c)
	cb.SetID(c.allocID())
	c.register(cb)
	return cb
}

func (cb *Callback) Dispatch(e *Event) {
	if e.Opcode != opcodeCallbackDone {
		return
	}
	data := e.Uint()
	if cb.Done != nil {
		cb.Done(data)
	}
	cb.Connection().unregister(cb.ID())
}

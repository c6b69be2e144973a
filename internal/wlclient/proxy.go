package wlclient

import "github.com/bnema/wlcore/internal/wire"

// Proxy is the client-side representation of a protocol object.
// Incoming events for the object's id are delivered through Dispatch.
type Proxy interface {
	ID() uint32
	Dispatch(e *Event)
}

// BaseProxy carries the object id and connection for embedding in
// concrete proxy types.
type BaseProxy struct {
	id   uint32
	conn *Connection
}

func (p *BaseProxy) ID() uint32 {
	return p.id
}

func (p *BaseProxy) SetID(id uint32) {
	p.id = id
}

func (p *BaseProxy) Connection() *Connection {
	return p.conn
}

func (p *BaseProxy) SetConnection(c *Connection) {
	p.conn = c
}

// Event is a single decoded protocol message being delivered to a
// proxy. Argument getters consume the payload in order; file
// descriptors are popped from the connection's ancillary queue.
type Event struct {
	Object uint32
	Opcode uint16

	conn *Connection
	r    *wire.Reader
}

func (e *Event) Uint() uint32 {
	return e.r.Uint()
}

func (e *Event) Int() int32 {
	return e.r.Int()
}

func (e *Event) Fixed() wire.Fixed {
	return e.r.Fixed()
}

func (e *Event) String() string {
	return e.r.String()
}

func (e *Event) Array() []byte {
	return e.r.Array()
}

// FD pops the next received file descriptor. Returns -1 when the
// server sent fewer descriptors than the message promised.
func (e *Event) FD() int {
	return e.conn.popFD()
}

// Err reports a short or malformed payload encountered by the getters.
func (e *Event) Err() error {
	return e.r.Err()
}

// Package wlclient implements a client-side Wayland protocol core: a
// display connection with registry discovery, typed proxies for the
// core interfaces and a non-blocking dispatch path the event loop
// drives.
package wlclient

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/wire"
)

// ConnState tracks the connection lifecycle. Closed is terminal.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateReady
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const readChunk = 4096

// roundtripPollMillis bounds each socket wait inside Roundtrip, so the
// roundtrip limit engages even when the server goes completely silent.
const roundtripPollMillis = 250

// Connection is a single display-server connection. It is not safe for
// concurrent use; drive it from one goroutine per connection.
type Connection struct {
	fd       int
	state    ConnState
	closeErr error

	// Client-side object ids count up from 2 (the display is 1) and
	// are never handed out twice for the connection's lifetime.
	nextID  uint32
	objects map[uint32]Proxy

	out    []byte
	outFDs []int

	in      []byte
	fdQueue []int
	pending []wire.Message

	// Observer is invoked after proxy dispatch for every delivered
	// message; the event dispatcher hangs its handler overlay here.
	observer func(object uint32, opcode uint16, data []byte)

	display  *Display
	registry *Registry

	roundtripLimit int
}

// ResolveEndpoint turns a display name into a socket path following
// the usual WAYLAND_DISPLAY / XDG_RUNTIME_DIR conventions. An empty
// endpoint consults the environment, falling back to "wayland-0".
func ResolveEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		endpoint = os.Getenv("WAYLAND_DISPLAY")
	}
	if endpoint == "" {
		endpoint = "wayland-0"
	}
	if filepath.IsAbs(endpoint) {
		return endpoint, nil
	}
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return "", os.ErrNotExist
	}
	return filepath.Join(runDir, endpoint), nil
}

// Connect dials the display socket and performs registry discovery.
// The returned connection is in the Ready state with the server's
// globals buffered for binding.
func Connect(endpoint string) (*Connection, error) {
	path, err := ResolveEndpoint(endpoint)
	if err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, &ConnectError{Endpoint: path, Err: err}
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, &ConnectError{Endpoint: path, Err: err}
	}
	logger.Debugf("connected to display socket %s", path)
	return ConnectFD(fd)
}

// ConnectFD establishes a connection over an already-open display
// socket. Ownership of fd passes to the connection.
func ConnectFD(fd int) (*Connection, error) {
	c := &Connection{
		fd:             fd,
		state:          StateConnecting,
		nextID:         2,
		objects:        make(map[uint32]Proxy),
		roundtripLimit: 64,
	}
	c.display = newDisplay(c)
	reg, err := c.getRegistry()
	if err != nil {
		c.closeWith(err)
		return nil, err
	}
	c.registry = reg
	if err := c.Roundtrip(); err != nil {
		c.closeWith(err)
		return nil, err
	}
	c.state = StateReady
	logger.Debugf("registry discovery complete: %d globals", len(c.registry.Globals()))
	return c, nil
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	return c.state
}

// Err returns the error that closed the connection, if any.
func (c *Connection) Err() error {
	return c.closeErr
}

// FD exposes the socket for external readiness polling.
func (c *Connection) FD() int {
	return c.fd
}

// Display returns the wl_display singleton proxy.
func (c *Connection) Display() *Display {
	return c.display
}

// Registry returns the registry proxy created during connect.
func (c *Connection) Registry() *Registry {
	return c.registry
}

// SetRoundtripLimit bounds how many socket waits a single Roundtrip
// may perform before giving up on a lost sync callback.
func (c *Connection) SetRoundtripLimit(n int) {
	if n > 0 {
		c.roundtripLimit = n
	}
}

// SetObserver installs the post-dispatch message observer. Passing nil
// removes it.
func (c *Connection) SetObserver(f func(object uint32, opcode uint16, data []byte)) {
	c.observer = f
}

// Close shuts the connection down. Idempotent.
func (c *Connection) Close() error {
	c.closeWith(nil)
	return nil
}

func (c *Connection) closeWith(err error) {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	c.closeErr = err
	unix.Close(c.fd)
	for _, fd := range c.fdQueue {
		unix.Close(fd)
	}
	c.fdQueue = nil
	if err != nil {
		logger.Debugf("connection closed: %v", err)
	}
}

// allocID hands out the next object id. Ids are monotonic and never
// recycled, even after the server acknowledges a destroy.
func (c *Connection) allocID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Connection) register(p Proxy) {
	c.objects[p.ID()] = p
}

func (c *Connection) unregister(id uint32) {
	delete(c.objects, id)
}

// Object looks up the proxy for an object id.
func (c *Connection) Object(id uint32) Proxy {
	return c.objects[id]
}

func (c *Connection) popFD() int {
	if len(c.fdQueue) == 0 {
		return -1
	}
	fd := c.fdQueue[0]
	c.fdQueue = c.fdQueue[1:]
	return fd
}

// queueRequest buffers an outgoing request until the next Flush.
func (c *Connection) queueRequest(req *wire.Request) error {
	if c.state == StateClosed {
		return ErrClosed
	}
	c.out = append(c.out, req.Bytes()...)
	c.outFDs = append(c.outFDs, req.FDs()...)
	return nil
}

// Flush writes all buffered requests to the socket. A transport
// failure closes the connection and is returned as an IOError.
func (c *Connection) Flush() error {
	if c.state == StateClosed {
		return ErrClosed
	}
	if len(c.out) == 0 {
		return nil
	}
	err := wire.WriteBatch(c.fd, c.out, c.outFDs)
	c.out = c.out[:0]
	c.outFDs = nil
	if err != nil {
		ioErr := &IOError{Op: "flush", Err: err}
		c.closeWith(ioErr)
		return ioErr
	}
	return nil
}

// pull reads from the socket if data is available within the timeout
// and appends decoded messages to the pending queue. A negative
// timeout blocks until the socket is readable.
func (c *Connection) pull(timeoutMillis int) (bool, error) {
	if c.state == StateClosed {
		return false, ErrClosed
	}
	ready, err := wire.WaitReadable(c.fd, timeoutMillis)
	if err != nil {
		ioErr := &IOError{Op: "poll", Err: err}
		c.closeWith(ioErr)
		return false, ioErr
	}
	if !ready {
		return false, nil
	}
	buf := make([]byte, readChunk)
	n, fds, err := wire.ReadBatch(c.fd, buf)
	if err != nil {
		ioErr := &IOError{Op: "read", Err: err}
		c.closeWith(ioErr)
		return false, ioErr
	}
	if n == 0 && len(fds) == 0 {
		ioErr := &IOError{Op: "read", Err: io.EOF}
		c.closeWith(ioErr)
		return false, ioErr
	}
	c.in = append(c.in, buf[:n]...)
	c.fdQueue = append(c.fdQueue, fds...)
	msgs, consumed, err := wire.Parse(c.in)
	if err != nil {
		ioErr := &IOError{Op: "decode", Err: err}
		c.closeWith(ioErr)
		return false, ioErr
	}
	c.in = c.in[consumed:]
	c.pending = append(c.pending, msgs...)
	return len(msgs) > 0, nil
}

// Pull waits up to timeoutMillis for incoming data and buffers any
// complete messages for dispatch. A negative timeout blocks until the
// socket is readable. It reports whether new messages arrived. This is
// the connection's single suspension point.
func (c *Connection) Pull(timeoutMillis int) (bool, error) {
	return c.pull(timeoutMillis)
}

// DispatchPending processes every queued message against its proxy and
// returns the number processed. It performs an opportunistic
// non-blocking read first but never waits.
func (c *Connection) DispatchPending() (int, error) {
	if c.state == StateClosed {
		return 0, ErrClosed
	}
	if _, err := c.pull(0); err != nil && len(c.pending) == 0 {
		return 0, err
	}
	n := 0
	for len(c.pending) > 0 {
		m := c.pending[0]
		c.pending = c.pending[1:]
		c.deliver(m)
		n++
	}
	return n, nil
}

func (c *Connection) deliver(m wire.Message) {
	p := c.objects[m.ObjectID]
	if p == nil {
		logger.Debugf("event for unknown object %d (opcode %d)", m.ObjectID, m.Opcode)
	} else {
		ev := &Event{Object: m.ObjectID, Opcode: m.Opcode, conn: c, r: wire.NewReader(m.Data)}
		p.Dispatch(ev)
		if err := ev.Err(); err != nil {
			logger.Warnf("malformed event for object %d (opcode %d): %v", m.ObjectID, m.Opcode, err)
		}
	}
	if c.observer != nil {
		c.observer(m.ObjectID, m.Opcode, m.Data)
	}
}

// Sync issues wl_display.sync and returns the callback proxy that
// fires when the server has processed all prior requests.
func (c *Connection) Sync() (*Callback, error) {
	cb := newCallback(c)
	req := wire.NewRequest(c.display.ID(), opcodeDisplaySync).PutNewID(cb.ID())
	if err := c.queueRequest(req); err != nil {
		c.unregister(cb.ID())
		return nil, err
	}
	return cb, nil
}

// Roundtrip blocks until the server has processed all requests queued
// so far, dispatching everything that arrives in the meantime.
func (c *Connection) Roundtrip() error {
	cb, err := c.Sync()
	if err != nil {
		return err
	}
	done := false
	cb.Done = func(uint32) { done = true }
	if err := c.Flush(); err != nil {
		return err
	}
	for i := 0; !done; i++ {
		if i >= c.roundtripLimit {
			ioErr := &IOError{Op: "roundtrip", Err: errStalled}
			c.closeWith(ioErr)
			return ioErr
		}
		if c.state == StateClosed {
			if c.closeErr != nil {
				return c.closeErr
			}
			return ErrClosed
		}
		if _, err := c.pull(roundtripPollMillis); err != nil {
			return err
		}
		if _, err := c.DispatchPending(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) getRegistry() (*Registry, error) {
	reg := newRegistry(c)
	req := wire.NewRequest(c.display.ID(), opcodeDisplayGetRegistry).PutNewID(reg.ID())
	if err := c.queueRequest(req); err != nil {
		return nil, err
	}
	return reg, nil
}

// BindSeat binds the first advertised wl_seat global.
func (c *Connection) BindSeat() (*Seat, error) {
	p, err := c.registry.BindFirst("wl_seat")
	if err != nil {
		return nil, err
	}
	return p.(*Seat), nil
}

// BindCompositor binds the first advertised wl_compositor global.
func (c *Connection) BindCompositor() (*Compositor, error) {
	p, err := c.registry.BindFirst("wl_compositor")
	if err != nil {
		return nil, err
	}
	return p.(*Compositor), nil
}

// BindOutput binds the first advertised wl_output global.
func (c *Connection) BindOutput() (*Output, error) {
	p, err := c.registry.BindFirst("wl_output")
	if err != nil {
		return nil, err
	}
	return p.(*Output), nil
}

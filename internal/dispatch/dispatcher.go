// Package dispatch drives a connection's event loop: it owns the
// blocking wait on the display socket and routes delivered messages to
// per-object handlers registered by the embedding application.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/wlclient"
)

// ErrTimedOut is returned by RunOnce when no message arrived within
// the timeout.
var ErrTimedOut = errors.New("dispatch: timed out waiting for events")

// DuplicateHandlerError reports a second Register call for an object
// id that already has a handler.
type DuplicateHandlerError struct {
	Object uint32
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("dispatch: handler already registered for object %d", e.Object)
}

// Event is a delivered protocol message as the handler overlay sees
// it: object id, opcode and the raw argument payload. Typed decoding
// happens on the proxy layer before handlers run.
type Event struct {
	Object uint32
	Opcode uint16
	Data   []byte
}

// Handler consumes events for a single object. A returned error is
// logged and isolated; it never stops the dispatch of later messages.
type Handler interface {
	HandleEvent(e Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e Event) error

func (f HandlerFunc) HandleEvent(e Event) error {
	return f(e)
}

// Dispatcher routes a connection's events to registered handlers.
// Handlers for one object run in arrival order; the dispatcher is
// single-threaded like the connection it drives.
type Dispatcher struct {
	conn     *wlclient.Connection
	handlers map[uint32]Handler
	timeout  time.Duration
}

// New attaches a dispatcher to the connection's delivery path.
func New(conn *wlclient.Connection) *Dispatcher {
	d := &Dispatcher{
		conn:     conn,
		handlers: make(map[uint32]Handler),
		timeout:  200 * time.Millisecond,
	}
	conn.SetObserver(d.observe)
	return d
}

// SetTimeout adjusts how long each Run iteration waits for events,
// which bounds the cancellation latency.
func (d *Dispatcher) SetTimeout(t time.Duration) {
	if t > 0 {
		d.timeout = t
	}
}

func (d *Dispatcher) observe(object uint32, opcode uint16, data []byte) {
	h, ok := d.handlers[object]
	if !ok {
		return
	}
	if err := h.HandleEvent(Event{Object: object, Opcode: opcode, Data: data}); err != nil {
		logger.Error("event handler failed", "object", object, "opcode", opcode, "err", err)
	}
}

// Register associates a handler with a protocol object id.
func (d *Dispatcher) Register(objectID uint32, h Handler) error {
	if _, exists := d.handlers[objectID]; exists {
		return &DuplicateHandlerError{Object: objectID}
	}
	d.handlers[objectID] = h
	return nil
}

// Unregister removes the handler for an object id, if any.
func (d *Dispatcher) Unregister(objectID uint32) {
	delete(d.handlers, objectID)
}

// RunOnce flushes outgoing requests, blocks up to timeout for at least
// one message and dispatches everything available. It returns the
// number of messages dispatched, ErrTimedOut when nothing arrived, or
// ErrClosed once the connection has entered its terminal state. A
// negative timeout blocks indefinitely.
func (d *Dispatcher) RunOnce(timeout time.Duration) (int, error) {
	if d.conn.State() == wlclient.StateClosed {
		return 0, wlclient.ErrClosed
	}
	if err := d.conn.Flush(); err != nil {
		return 0, err
	}
	millis := -1
	if timeout >= 0 {
		millis = int(timeout / time.Millisecond)
	}
	if _, err := d.conn.Pull(millis); err != nil {
		return 0, err
	}
	n, err := d.conn.DispatchPending()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrTimedOut
	}
	return n, nil
}

// Run drives RunOnce until the context is cancelled or the connection
// fails. Timeouts are absorbed; they only bound the cancellation
// latency.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := d.RunOnce(d.timeout); err != nil {
			if errors.Is(err, ErrTimedOut) {
				continue
			}
			return err
		}
	}
}

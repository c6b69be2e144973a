package wlclient

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for any operation attempted after the
// connection has entered its terminal closed state.
var ErrClosed = errors.New("wlclient: connection closed")

// ErrNoSuchGlobal is returned when binding a registry name the server
// never advertised (or has since removed).
var ErrNoSuchGlobal = errors.New("wlclient: no such global")

// errStalled marks a roundtrip whose sync callback never fired within
// the configured iteration limit.
var errStalled = errors.New("sync callback never fired")

// ConnectError reports a failure to establish the display connection.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("wlclient: connecting to %q: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IOError reports a transport-level failure. The connection is closed
// when one of these is returned; retrying is the caller's decision.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("wlclient: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedInterfaceError reports an attempt to bind a global whose
// interface the client has no proxy implementation for.
type UnsupportedInterfaceError struct {
	Name      uint32
	Interface string
}

func (e *UnsupportedInterfaceError) Error() string {
	return fmt.Sprintf("wlclient: global %d has unsupported interface %q", e.Name, e.Interface)
}

// ProtocolError carries a fatal wl_display.error event. The connection
// is unusable once one has been received.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wlclient: protocol error on object %d (code %d): %s", e.ObjectID, e.Code, e.Message)
}

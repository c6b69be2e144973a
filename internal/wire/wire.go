// Package wire implements the Wayland wire format: 8-byte message
// headers, 32-bit aligned arguments and file-descriptor passing over
// the display socket via SCM_RIGHTS.
package wire

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// HeaderSize is the fixed size of a message header: object id word
	// followed by a size<<16|opcode word.
	HeaderSize = 8

	// MaxFDsPerRead bounds the ancillary buffer handed to recvmsg.
	MaxFDsPerRead = 28
)

// Messages use the compositor's native byte order.
var byteOrder = binary.NativeEndian

// Fixed is the Wayland signed 24.8 fixed-point number.
type Fixed int32

// FixedFromFloat64 converts a float to wire fixed-point representation.
func FixedFromFloat64(f float64) Fixed {
	return Fixed(f * 256)
}

// FixedFromInt converts an integer to wire fixed-point representation.
func FixedFromInt(i int32) Fixed {
	return Fixed(i << 8)
}

// Float64 returns the floating point value of f.
func (f Fixed) Float64() float64 {
	return float64(f) / 256
}

// Int returns the integer part of f.
func (f Fixed) Int() int32 {
	return int32(f) >> 8
}

// Message is a single decoded protocol message: the header fields plus
// the raw argument payload. File descriptors travel out of band and are
// queued separately by the connection.
type Message struct {
	ObjectID uint32
	Opcode   uint16
	Data     []byte
}

// Request accumulates an outgoing request's arguments. The size field
// of the header is patched in when Bytes is called.
type Request struct {
	buf []byte
	fds []int
}

// NewRequest starts a request for the given object and opcode.
func NewRequest(objectID uint32, opcode uint16) *Request {
	r := &Request{buf: make([]byte, HeaderSize, 32)}
	byteOrder.PutUint32(r.buf[0:4], objectID)
	byteOrder.PutUint32(r.buf[4:8], uint32(opcode))
	return r
}

func (r *Request) PutUint(v uint32) *Request {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	r.buf = append(r.buf, b[:]...)
	return r
}

func (r *Request) PutInt(v int32) *Request {
	return r.PutUint(uint32(v))
}

func (r *Request) PutFixed(f Fixed) *Request {
	return r.PutUint(uint32(f))
}

// PutNewID writes a client-allocated object id argument.
func (r *Request) PutNewID(id uint32) *Request {
	return r.PutUint(id)
}

// PutString writes a NUL-terminated string padded to 32-bit alignment.
func (r *Request) PutString(s string) *Request {
	r.PutUint(uint32(len(s) + 1))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, 0)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
	return r
}

// PutArray writes a length-prefixed byte array padded to 32-bit alignment.
func (r *Request) PutArray(a []byte) *Request {
	r.PutUint(uint32(len(a)))
	r.buf = append(r.buf, a...)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
	return r
}

// PutFD queues a file descriptor for the request. FDs occupy no space
// in the message body; they ride in the socket's ancillary data.
func (r *Request) PutFD(fd int) *Request {
	r.fds = append(r.fds, fd)
	return r
}

// Bytes finalizes the header and returns the encoded request.
func (r *Request) Bytes() []byte {
	opcode := byteOrder.Uint32(r.buf[4:8]) & 0xffff
	byteOrder.PutUint32(r.buf[4:8], uint32(len(r.buf))<<16|opcode)
	return r.buf
}

// FDs returns the file descriptors queued on the request.
func (r *Request) FDs() []int {
	return r.fds
}

// Reader decodes arguments from a message payload. Decode errors are
// sticky: once a read runs past the payload, all subsequent reads
// return zero values and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader over a message payload.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("wire: short message reading %s at offset %d (len %d)", what, r.off, len(r.data))
	}
}

func (r *Reader) Uint() uint32 {
	if r.err != nil || r.off+4 > len(r.data) {
		r.fail("uint")
		return 0
	}
	v := byteOrder.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *Reader) Int() int32 {
	return int32(r.Uint())
}

func (r *Reader) Fixed() Fixed {
	return Fixed(r.Uint())
}

// String reads a NUL-terminated, padded string argument.
func (r *Reader) String() string {
	n := int(r.Uint())
	if r.err != nil {
		return ""
	}
	if n == 0 {
		return ""
	}
	if r.off+n > len(r.data) {
		r.fail("string")
		return ""
	}
	s := string(r.data[r.off : r.off+n-1]) // strip NUL
	r.off += n
	if pad := r.off % 4; pad != 0 {
		r.off += 4 - pad
	}
	return s
}

// Array reads a length-prefixed, padded byte array argument.
func (r *Reader) Array() []byte {
	n := int(r.Uint())
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail("array")
		return nil
	}
	a := make([]byte, n)
	copy(a, r.data[r.off:r.off+n])
	r.off += n
	if pad := r.off % 4; pad != 0 {
		r.off += 4 - pad
	}
	return a
}

// Err reports the first decode error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Parse splits buffered socket data into complete messages. It returns
// the decoded messages and the number of bytes consumed; a trailing
// partial message is left for the next read.
func Parse(buf []byte) ([]Message, int, error) {
	var msgs []Message
	off := 0
	for len(buf)-off >= HeaderSize {
		objectID := byteOrder.Uint32(buf[off:])
		word := byteOrder.Uint32(buf[off+4:])
		size := int(word >> 16)
		opcode := uint16(word & 0xffff)
		if size < HeaderSize {
			return msgs, off, fmt.Errorf("wire: invalid message size %d for object %d", size, objectID)
		}
		if len(buf)-off < size {
			break
		}
		data := make([]byte, size-HeaderSize)
		copy(data, buf[off+HeaderSize:off+size])
		msgs = append(msgs, Message{ObjectID: objectID, Opcode: opcode, Data: data})
		off += size
	}
	return msgs, off, nil
}

// ReadBatch performs a single recvmsg on the socket, returning the
// number of bytes read into buf and any file descriptors received in
// ancillary data. A zero-byte read means the peer closed the socket.
func ReadBatch(fd int, buf []byte) (int, []int, error) {
	oob := make([]byte, unix.CmsgSpace(4*MaxFDsPerRead))
	n, oobn, _, _, err := unix.Recvmsg(fd, buf, oob, unix.MSG_CMSG_CLOEXEC)
	if err != nil {
		return 0, nil, err
	}
	var fds []int
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return n, nil, fmt.Errorf("wire: parsing control messages: %w", err)
		}
		for _, cmsg := range cmsgs {
			got, err := unix.ParseUnixRights(&cmsg)
			if err != nil {
				continue
			}
			fds = append(fds, got...)
		}
	}
	return n, fds, nil
}

// WriteBatch sends buffered request bytes, attaching file descriptors
// as SCM_RIGHTS ancillary data on the first sendmsg.
func WriteBatch(fd int, data []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	for len(data) > 0 {
		n, err := unix.SendmsgN(fd, data, oob, nil, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		data = data[n:]
		oob = nil
	}
	return nil
}

// WaitReadable polls the socket for readability. A negative timeout
// blocks indefinitely. It reports whether data is available.
func WaitReadable(fd int, timeoutMillis int) (bool, error) {
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(pfds, timeoutMillis)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		if pfds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 && pfds[0].Revents&unix.POLLIN == 0 {
			return false, unix.EPIPE
		}
		return true, nil
	}
}

package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRequestHeader(t *testing.T) {
	req := NewRequest(3, 5).PutUint(42)
	b := req.Bytes()

	require.Len(t, b, 12)
	assert.Equal(t, uint32(3), binary.NativeEndian.Uint32(b[0:4]))

	word := binary.NativeEndian.Uint32(b[4:8])
	assert.Equal(t, uint16(5), uint16(word&0xffff))
	assert.Equal(t, 12, int(word>>16))
	assert.Equal(t, uint32(42), binary.NativeEndian.Uint32(b[8:12]))
}

func TestRequestStringPadding(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		bodyLen int
	}{
		{"empty", "", 8},                    // length word + NUL padded to 4
		{"three chars pads to four", "abc", 8},
		{"four chars needs new word", "wxyz", 12},
		{"seat interface", "wl_seat", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRequest(1, 0).PutString(tt.s).Bytes()
			require.Equal(t, HeaderSize+tt.bodyLen, len(b))
			assert.Zero(t, len(b)%4)

			// Decode it back through the reader.
			r := NewReader(b[HeaderSize:])
			assert.Equal(t, tt.s, r.String())
			assert.NoError(t, r.Err())
		})
	}
}

func TestRequestArrayPadding(t *testing.T) {
	b := NewRequest(1, 0).PutArray([]byte{1, 2, 3, 4, 5}).Bytes()
	assert.Zero(t, len(b)%4)

	r := NewReader(b[HeaderSize:])
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, r.Array())
	assert.NoError(t, r.Err())
}

func TestRequestFDsOutOfBand(t *testing.T) {
	req := NewRequest(1, 0).PutUint(7).PutFD(99)
	assert.Len(t, req.Bytes(), 12)
	assert.Equal(t, []int{99}, req.FDs())
}

func TestFixedConversions(t *testing.T) {
	assert.Equal(t, 1.5, FixedFromFloat64(1.5).Float64())
	assert.Equal(t, int32(-3), FixedFromInt(-3).Int())
	assert.Equal(t, int32(7), FixedFromFloat64(7.25).Int())
}

func TestParseSplitsMessages(t *testing.T) {
	buf := NewRequest(4, 1).PutUint(10).Bytes()
	buf = append(buf, NewRequest(5, 2).PutString("x").Bytes()...)

	msgs, consumed, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, len(buf), consumed)

	assert.Equal(t, uint32(4), msgs[0].ObjectID)
	assert.Equal(t, uint16(1), msgs[0].Opcode)
	assert.Equal(t, uint32(5), msgs[1].ObjectID)
	assert.Equal(t, uint16(2), msgs[1].Opcode)
}

func TestParseKeepsPartialTail(t *testing.T) {
	full := NewRequest(2, 0).PutUint(1).Bytes()
	partial := NewRequest(3, 0).PutUint(2).PutUint(3).Bytes()

	buf := append(append([]byte{}, full...), partial[:10]...)
	msgs, consumed, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, len(full), consumed)

	// The rest of the tail completes the second message.
	buf = append(buf[consumed:], partial[10:]...)
	msgs, consumed, err = Parse(buf)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, len(partial), consumed)
	assert.Equal(t, uint32(3), msgs[0].ObjectID)
}

func TestParseRejectsUndersizedHeader(t *testing.T) {
	b := make([]byte, HeaderSize)
	binary.NativeEndian.PutUint32(b[0:4], 1)
	binary.NativeEndian.PutUint32(b[4:8], 4<<16) // size below header size

	_, _, err := Parse(b)
	assert.Error(t, err)
}

func TestReaderShortPayload(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0})
	assert.Equal(t, uint32(1), r.Uint())
	assert.Zero(t, r.Uint())
	require.Error(t, r.Err())

	// Sticky: further reads keep returning zero values.
	assert.Zero(t, r.Uint())
	assert.Empty(t, r.String())
}

func TestReaderStringOverrun(t *testing.T) {
	// Claims 100 bytes but carries none.
	b := NewRequest(1, 0).PutUint(100).Bytes()
	r := NewReader(b[HeaderSize:])
	assert.Empty(t, r.String())
	assert.Error(t, r.Err())
}

func TestReadWriteBatchOverSocketpair(t *testing.T) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(pair[0])
	defer unix.Close(pair[1])

	msg := NewRequest(7, 3).PutString("hello").Bytes()
	require.NoError(t, WriteBatch(pair[0], msg, nil))

	ready, err := WaitReadable(pair[1], 1000)
	require.NoError(t, err)
	require.True(t, ready)

	buf := make([]byte, 4096)
	n, fds, err := ReadBatch(pair[1], buf)
	require.NoError(t, err)
	assert.Empty(t, fds)

	msgs, _, err := Parse(buf[:n])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint32(7), msgs[0].ObjectID)

	r := NewReader(msgs[0].Data)
	assert.Equal(t, "hello", r.String())
}

func TestFDPassingOverSocketpair(t *testing.T) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(pair[0])
	defer unix.Close(pair[1])

	// Pass one end of a pipe across the socket.
	var pipe [2]int
	require.NoError(t, unix.Pipe(pipe[:]))
	defer unix.Close(pipe[0])
	defer unix.Close(pipe[1])

	msg := NewRequest(1, 0).PutUint(0).Bytes()
	require.NoError(t, WriteBatch(pair[0], msg, []int{pipe[0]}))

	buf := make([]byte, 4096)
	n, fds, err := ReadBatch(pair[1], buf)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	require.Len(t, fds, 1)
	assert.NotEqual(t, pipe[0], fds[0])
	unix.Close(fds[0])
}

func TestWaitReadableTimeout(t *testing.T) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(pair[0])
	defer unix.Close(pair[1])

	ready, err := WaitReadable(pair[0], 10)
	require.NoError(t, err)
	assert.False(t, ready)
}

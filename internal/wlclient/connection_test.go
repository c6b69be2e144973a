package wlclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlcore/internal/wire"
)

// fakeCompositor answers the minimal display protocol over one end of
// a socketpair: registry discovery, sync callbacks and registry binds.
type fakeCompositor struct {
	fd      int
	globals []Global
}

// startFakeCompositor returns the client end of the pair; the server
// end is serviced by a goroutine until the peer closes.
func startFakeCompositor(t *testing.T, globals []Global) int {
	t.Helper()
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	fc := &fakeCompositor{fd: pair[1], globals: globals}
	go fc.serve()
	t.Cleanup(func() { unix.Close(pair[1]) })
	return pair[0]
}

func (fc *fakeCompositor) serve() {
	var acc []byte
	buf := make([]byte, 4096)
	var registryID uint32
	for {
		if ready, err := wire.WaitReadable(fc.fd, -1); err != nil || !ready {
			return
		}
		n, fds, err := wire.ReadBatch(fc.fd, buf)
		if err != nil || (n == 0 && len(fds) == 0) {
			return
		}
		for _, fd := range fds {
			unix.Close(fd)
		}
		acc = append(acc, buf[:n]...)
		msgs, consumed, err := wire.Parse(acc)
		if err != nil {
			return
		}
		acc = acc[consumed:]
		for _, m := range msgs {
			r := wire.NewReader(m.Data)
			switch {
			case m.ObjectID == 1 && m.Opcode == 1: // get_registry
				registryID = r.Uint()
				var out []byte
				for _, g := range fc.globals {
					ev := wire.NewRequest(registryID, 0).
						PutUint(g.Name).
						PutString(g.Interface).
						PutUint(g.Version)
					out = append(out, ev.Bytes()...)
				}
				if len(out) > 0 {
					if err := wire.WriteBatch(fc.fd, out, nil); err != nil {
						return
					}
				}
			case m.ObjectID == 1 && m.Opcode == 0: // sync
				cb := r.Uint()
				done := wire.NewRequest(cb, 0).PutUint(0).Bytes()
				if err := wire.WriteBatch(fc.fd, done, nil); err != nil {
					return
				}
			}
		}
	}
}

func testGlobals() []Global {
	return []Global{
		{Name: 1, Interface: "wl_compositor", Version: 5},
		{Name: 2, Interface: "wl_seat", Version: 7},
		{Name: 3, Interface: "wl_output", Version: 4},
		{Name: 4, Interface: "wl_shm", Version: 1},
	}
}

func connectFake(t *testing.T, globals []Global) *Connection {
	t.Helper()
	fd := startFakeCompositor(t, globals)
	conn, err := ConnectFD(fd)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnectDiscoversGlobals(t *testing.T) {
	conn := connectFake(t, testGlobals())

	assert.Equal(t, StateReady, conn.State())
	assert.NotNil(t, conn.Display())
	assert.NotNil(t, conn.Registry())

	globals := conn.Registry().Globals()
	require.Len(t, globals, 4)

	// Announce order is preserved.
	assert.Equal(t, "wl_compositor", globals[0].Interface)
	assert.Equal(t, "wl_seat", globals[1].Interface)
	assert.Equal(t, "wl_output", globals[2].Interface)
	assert.Equal(t, "wl_shm", globals[3].Interface)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "closed", StateClosed.String())
}

func TestBindIsIdempotent(t *testing.T) {
	conn := connectFake(t, testGlobals())

	first, err := conn.Registry().Bind(2)
	require.NoError(t, err)
	second, err := conn.Registry().Bind(2)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.IsType(t, &Seat{}, first)
}

func TestBindSeatHelper(t *testing.T) {
	conn := connectFake(t, testGlobals())

	seat, err := conn.BindSeat()
	require.NoError(t, err)
	assert.NotZero(t, seat.ID())

	again, err := conn.BindSeat()
	require.NoError(t, err)
	assert.Same(t, seat, again)
}

func TestBindUnknownName(t *testing.T) {
	conn := connectFake(t, testGlobals())

	_, err := conn.Registry().Bind(99)
	assert.ErrorIs(t, err, ErrNoSuchGlobal)

	_, err = conn.Registry().BindFirst("zwlr_layer_shell_v1")
	assert.ErrorIs(t, err, ErrNoSuchGlobal)
}

func TestBindUnsupportedInterface(t *testing.T) {
	conn := connectFake(t, testGlobals())

	_, err := conn.Registry().Bind(4) // wl_shm has no proxy
	var uie *UnsupportedInterfaceError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "wl_shm", uie.Interface)
}

func TestObjectIDsNeverRecycle(t *testing.T) {
	conn := connectFake(t, testGlobals())

	cb1, err := conn.Sync()
	require.NoError(t, err)
	require.NoError(t, conn.Roundtrip())

	// The callback is retired after done fires.
	assert.Nil(t, conn.Object(cb1.ID()))

	cb2, err := conn.Sync()
	require.NoError(t, err)
	assert.Greater(t, cb2.ID(), cb1.ID())
}

func TestDispatchPendingWithoutEvents(t *testing.T) {
	conn := connectFake(t, testGlobals())

	n, err := conn.DispatchPending()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistryGlobalRemove(t *testing.T) {
	fd := startFakeCompositor(t, testGlobals())
	conn, err := ConnectFD(fd)
	require.NoError(t, err)
	defer conn.Close()

	// Remove wl_output by delivering the event directly.
	ev := &Event{Object: conn.Registry().ID(), Opcode: opcodeRegistryGlobalRemove,
		conn: conn, r: wire.NewReader(wire.NewRequest(0, 0).PutUint(3).Bytes()[wire.HeaderSize:])}
	conn.Registry().Dispatch(ev)

	globals := conn.Registry().Globals()
	require.Len(t, globals, 3)
	for _, g := range globals {
		assert.NotEqual(t, "wl_output", g.Interface)
	}

	_, err = conn.Registry().Bind(3)
	assert.ErrorIs(t, err, ErrNoSuchGlobal)
}

func TestFlushAfterPeerCloseIsTerminal(t *testing.T) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(pair[1])

	fc := &fakeCompositor{fd: pair[1], globals: testGlobals()}
	go fc.serve()

	conn, err := ConnectFD(pair[0])
	require.NoError(t, err)

	// Shut the peer down rather than closing it: the serve goroutine
	// parked in poll pins the open file, so a bare close would leave
	// the socket alive and the write below would still succeed.
	require.NoError(t, unix.Shutdown(pair[1], unix.SHUT_RDWR))
	// Give the shutdown a moment to take effect.
	time.Sleep(10 * time.Millisecond)

	_, err = conn.Sync()
	require.NoError(t, err)
	err = conn.Flush()

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, StateClosed, conn.State())

	// Closed is terminal: everything fails with ErrClosed from here.
	_, err = conn.Sync()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = conn.DispatchPending()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = conn.Pull(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRoundtripStallsOnSilentPeer(t *testing.T) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(pair[1])

	// A connection whose peer never answers anything, not even the
	// initial discovery, so the sync callback can never fire.
	c := &Connection{
		fd:             pair[0],
		state:          StateReady,
		nextID:         2,
		objects:        make(map[uint32]Proxy),
		roundtripLimit: 2,
	}
	c.display = newDisplay(c)

	start := time.Now()
	err = c.Roundtrip()

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "roundtrip", ioErr.Op)
	assert.Equal(t, StateClosed, c.State())

	// Each wait is bounded, so the stall surfaces in limit*poll time.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProtocolErrorClosesConnection(t *testing.T) {
	fd := startFakeCompositor(t, testGlobals())
	conn, err := ConnectFD(fd)
	require.NoError(t, err)
	defer conn.Close()

	// Deliver a fatal wl_display.error.
	payload := wire.NewRequest(0, 0).
		PutUint(conn.Registry().ID()).
		PutUint(1).
		PutString("invalid request").
		Bytes()[wire.HeaderSize:]
	conn.Display().Dispatch(&Event{Object: 1, Opcode: opcodeDisplayError, conn: conn, r: wire.NewReader(payload)})

	assert.Equal(t, StateClosed, conn.State())

	var perr *ProtocolError
	require.True(t, errors.As(conn.Err(), &perr))
	assert.Equal(t, uint32(1), perr.Code)
	assert.Equal(t, "invalid request", perr.Message)
}

func TestResolveEndpoint(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("WAYLAND_DISPLAY", "")

	tests := []struct {
		name     string
		endpoint string
		env      string
		want     string
	}{
		{"explicit name", "wayland-1", "", "/run/user/1000/wayland-1"},
		{"absolute path", "/tmp/test-socket", "", "/tmp/test-socket"},
		{"env fallback", "", "wayland-7", "/run/user/1000/wayland-7"},
		{"default display", "", "", "/run/user/1000/wayland-0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WAYLAND_DISPLAY", tt.env)
			got, err := ResolveEndpoint(tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing runtime dir", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "")
		_, err := ResolveEndpoint("wayland-0")
		assert.Error(t, err)
	})
}

package xkb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Evdev codes are keymap codes minus the fixed bias.
const (
	evdevA     = keyA - EvdevOffset
	evdevShift = keyShift - EvdevOffset
	evdevCtrl  = keyCtrl - EvdevOffset
)

func TestResolverEmpty(t *testing.T) {
	r := NewResolver()

	assert.Nil(t, r.Keymap())
	assert.Empty(t, r.KeyEvent(evdevA, true).Keysyms)
	assert.Equal(t, ModifierState{}, r.ModifierState())

	// SetModifiers before a keymap is a no-op, not a crash.
	r.SetModifiers(1, 0, 0, 0)
}

func TestResolverKeyEvent(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))

	res := r.KeyEvent(evdevA, true)
	require.Len(t, res.Keysyms, 1)
	assert.Equal(t, KeysymFromName("a"), res.Keysyms[0])
	assert.Equal(t, "a", res.Text)

	// Releases resolve syms but never produce text.
	res = r.KeyEvent(evdevA, false)
	require.Len(t, res.Keysyms, 1)
	assert.Empty(t, res.Text)
}

func TestResolverTracksModifiers(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))

	r.KeyEvent(evdevShift, true)
	res := r.KeyEvent(evdevA, true)
	require.Len(t, res.Keysyms, 1)
	assert.Equal(t, KeysymFromName("A"), res.Keysyms[0])
	assert.Equal(t, "A", res.Text)

	r.KeyEvent(evdevA, false)
	r.KeyEvent(evdevShift, false)

	res = r.KeyEvent(evdevA, true)
	assert.Equal(t, "a", res.Text)
}

func TestResolverControlText(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))

	r.KeyEvent(evdevCtrl, true)
	res := r.KeyEvent(evdevA, true)
	assert.Equal(t, "\x01", res.Text)
}

func TestResolverServerModifiers(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))

	r.SetModifiers(uint32(ModShift), 0, 0, 0)
	assert.Equal(t, ModShift, r.ModifierState().Effective())

	res := r.KeyEvent(evdevA, true)
	assert.Equal(t, "A", res.Text)
}

func TestResolverKeymapSwap(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))
	require.Equal(t, "a", r.KeyEvent(evdevA, true).Text)
	r.KeyEvent(evdevA, false)

	// A replacement keymap rebinds the same keycode.
	swapped := `xkb_keymap {
		xkb_keycodes "evdev" {
			minimum = 8;
			maximum = 255;
			<AC01> = 38;
		};
		xkb_symbols "dvorak-ish" {
			key <AC01> { [ o, O ] };
		};
	};`
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(swapped)))

	res := r.KeyEvent(evdevA, true)
	require.Len(t, res.Keysyms, 1)
	assert.Equal(t, KeysymFromName("o"), res.Keysyms[0])
	assert.Equal(t, "o", res.Text)
}

func TestResolverFormatNone(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.LoadKeymap(FormatXKBv1, []byte(testKeymapSource)))
	require.NotNil(t, r.Keymap())

	// Format none clears the active keymap.
	require.NoError(t, r.LoadKeymap(FormatNone, nil))
	assert.Nil(t, r.Keymap())
	assert.Empty(t, r.KeyEvent(evdevA, true).Keysyms)
}

func TestResolverUnknownFormat(t *testing.T) {
	r := NewResolver()
	err := r.LoadKeymap(7, []byte(testKeymapSource))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestResolverBadKeymap(t *testing.T) {
	r := NewResolver()
	err := r.LoadKeymap(FormatXKBv1, []byte("not a keymap"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Nil(t, r.Keymap())
}

func TestLoadKeymapFD(t *testing.T) {
	fd, err := unix.MemfdCreate("keymap-test", 0)
	require.NoError(t, err)

	data := append([]byte(testKeymapSource), 0)
	n, err := unix.Write(fd, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	r := NewResolver()
	require.NoError(t, r.LoadKeymapFD(FormatXKBv1, fd, uint32(len(data))))
	require.NotNil(t, r.Keymap())
	assert.Equal(t, "a", r.KeyEvent(evdevA, true).Text)
}

func TestLoadKeymapFDInvalid(t *testing.T) {
	r := NewResolver()
	err := r.LoadKeymapFD(FormatXKBv1, -1, 10)
	assert.Error(t, err)
}

package xkb

import (
	"fmt"
	"strconv"
	"strings"
)

// Keysym is a symbolic key identifier using the X11 keysym encoding:
// printable Latin-1 maps directly, function and modifier keys live in
// the 0xffxx range and other Unicode code points are offset by
// 0x01000000.
type Keysym uint32

const (
	NoSymbol   Keysym = 0
	VoidSymbol Keysym = 0xffffff

	unicodeOffset = 0x01000000
)

// Keysyms the state machine and text conversion refer to directly.
const (
	KeysymBackSpace     Keysym = 0xff08
	KeysymTab           Keysym = 0xff09
	KeysymLinefeed      Keysym = 0xff0a
	KeysymReturn        Keysym = 0xff0d
	KeysymEscape        Keysym = 0xff1b
	KeysymDelete        Keysym = 0xffff
	KeysymKPSpace       Keysym = 0xff80
	KeysymKPTab         Keysym = 0xff89
	KeysymKPEnter       Keysym = 0xff8d
	KeysymKPMultiply    Keysym = 0xffaa
	KeysymKPAdd         Keysym = 0xffab
	KeysymKPSubtract    Keysym = 0xffad
	KeysymKPDecimal     Keysym = 0xffae
	KeysymKPDivide      Keysym = 0xffaf
	KeysymKP0           Keysym = 0xffb0
	KeysymKP9           Keysym = 0xffb9
	KeysymKPEqual       Keysym = 0xffbd
	KeysymShiftL        Keysym = 0xffe1
	KeysymShiftR        Keysym = 0xffe2
	KeysymControlL      Keysym = 0xffe3
	KeysymControlR      Keysym = 0xffe4
	KeysymCapsLock      Keysym = 0xffe5
	KeysymShiftLock     Keysym = 0xffe6
	KeysymNumLock       Keysym = 0xff7f
	KeysymScrollLock    Keysym = 0xff14
	KeysymISOLock       Keysym = 0xfe01
	KeysymISOLevel3Lock Keysym = 0xfe05
	KeysymISOLevel5Lock Keysym = 0xfe13
	KeysymISOGroupLock  Keysym = 0xfe07
	KeysymISONextGroup  Keysym = 0xfe08
	KeysymISOPrevGroup  Keysym = 0xfe0a
)

// Named keysyms outside the direct Latin-1 range, as they appear in
// keymap sources. ASCII punctuation carries names too (comma, slash,
// ...) because symbols sections spell those out.
var keysymNames = map[string]Keysym{
	"NoSymbol":   NoSymbol,
	"VoidSymbol": VoidSymbol,

	"space":        0x0020,
	"exclam":       0x0021,
	"quotedbl":     0x0022,
	"numbersign":   0x0023,
	"dollar":       0x0024,
	"percent":      0x0025,
	"ampersand":    0x0026,
	"apostrophe":   0x0027,
	"parenleft":    0x0028,
	"parenright":   0x0029,
	"asterisk":     0x002a,
	"plus":         0x002b,
	"comma":        0x002c,
	"minus":        0x002d,
	"period":       0x002e,
	"slash":        0x002f,
	"colon":        0x003a,
	"semicolon":    0x003b,
	"less":         0x003c,
	"equal":        0x003d,
	"greater":      0x003e,
	"question":     0x003f,
	"at":           0x0040,
	"bracketleft":  0x005b,
	"backslash":    0x005c,
	"bracketright": 0x005d,
	"asciicircum":  0x005e,
	"underscore":   0x005f,
	"grave":        0x0060,
	"braceleft":    0x007b,
	"bar":          0x007c,
	"braceright":   0x007d,
	"asciitilde":   0x007e,

	"nobreakspace": 0x00a0,
	"exclamdown":   0x00a1,
	"sterling":     0x00a3,
	"section":      0x00a7,
	"degree":       0x00b0,
	"plusminus":    0x00b1,
	"mu":           0x00b5,
	"questiondown": 0x00bf,
	"ssharp":       0x00df,
	"agrave":       0x00e0,
	"aacute":       0x00e1,
	"eacute":       0x00e9,
	"egrave":       0x00e8,
	"ccedilla":     0x00e7,
	"ugrave":       0x00f9,
	"adiaeresis":   0x00e4,
	"odiaeresis":   0x00f6,
	"udiaeresis":   0x00fc,
	"Adiaeresis":   0x00c4,
	"Odiaeresis":   0x00d6,
	"Udiaeresis":   0x00dc,

	"BackSpace":   0xff08,
	"Tab":         0xff09,
	"Linefeed":    0xff0a,
	"Clear":       0xff0b,
	"Return":      0xff0d,
	"Pause":       0xff13,
	"Scroll_Lock": 0xff14,
	"Sys_Req":     0xff15,
	"Escape":      0xff1b,
	"Multi_key":   0xff20,
	"Delete":      0xffff,

	"Home":  0xff50,
	"Left":  0xff51,
	"Up":    0xff52,
	"Right": 0xff53,
	"Down":  0xff54,
	"Prior": 0xff55,
	"Next":  0xff56,
	"End":   0xff57,
	"Begin": 0xff58,

	"Select": 0xff60,
	"Print":  0xff61,
	"Insert": 0xff63,
	"Menu":   0xff67,
	"Break":  0xff6b,

	"Mode_switch": 0xff7e,
	"Num_Lock":    0xff7f,

	"KP_Space":     0xff80,
	"KP_Tab":       0xff89,
	"KP_Enter":     0xff8d,
	"KP_Home":      0xff95,
	"KP_Left":      0xff96,
	"KP_Up":        0xff97,
	"KP_Right":     0xff98,
	"KP_Down":      0xff99,
	"KP_Prior":     0xff9a,
	"KP_Next":      0xff9b,
	"KP_End":       0xff9c,
	"KP_Begin":     0xff9d,
	"KP_Insert":    0xff9e,
	"KP_Delete":    0xff9f,
	"KP_Equal":     0xffbd,
	"KP_Multiply":  0xffaa,
	"KP_Add":       0xffab,
	"KP_Separator": 0xffac,
	"KP_Subtract":  0xffad,
	"KP_Decimal":   0xffae,
	"KP_Divide":    0xffaf,
	"KP_0":         0xffb0,
	"KP_1":         0xffb1,
	"KP_2":         0xffb2,
	"KP_3":         0xffb3,
	"KP_4":         0xffb4,
	"KP_5":         0xffb5,
	"KP_6":         0xffb6,
	"KP_7":         0xffb7,
	"KP_8":         0xffb8,
	"KP_9":         0xffb9,

	"F1":  0xffbe,
	"F2":  0xffbf,
	"F3":  0xffc0,
	"F4":  0xffc1,
	"F5":  0xffc2,
	"F6":  0xffc3,
	"F7":  0xffc4,
	"F8":  0xffc5,
	"F9":  0xffc6,
	"F10": 0xffc7,
	"F11": 0xffc8,
	"F12": 0xffc9,

	"Shift_L":    0xffe1,
	"Shift_R":    0xffe2,
	"Control_L":  0xffe3,
	"Control_R":  0xffe4,
	"Caps_Lock":  0xffe5,
	"Shift_Lock": 0xffe6,
	"Meta_L":     0xffe7,
	"Meta_R":     0xffe8,
	"Alt_L":      0xffe9,
	"Alt_R":      0xffea,
	"Super_L":    0xffeb,
	"Super_R":    0xffec,
	"Hyper_L":    0xffed,
	"Hyper_R":    0xffee,

	"ISO_Lock":            0xfe01,
	"ISO_Level2_Latch":    0xfe02,
	"ISO_Level3_Shift":    0xfe03,
	"ISO_Level3_Latch":    0xfe04,
	"ISO_Level3_Lock":     0xfe05,
	"ISO_Group_Latch":     0xfe06,
	"ISO_Group_Lock":      0xfe07,
	"ISO_Next_Group":      0xfe08,
	"ISO_Next_Group_Lock": 0xfe09,
	"ISO_Prev_Group":      0xfe0a,
	"ISO_Prev_Group_Lock": 0xfe0b,
	"ISO_Level5_Shift":    0xfe11,
	"ISO_Level5_Latch":    0xfe12,
	"ISO_Level5_Lock":     0xfe13,

	"dead_grave":      0xfe50,
	"dead_acute":      0xfe51,
	"dead_circumflex": 0xfe52,
	"dead_tilde":      0xfe53,
	"dead_diaeresis":  0xfe57,
	"dead_abovering":  0xfe58,
	"dead_cedilla":    0xfe5b,
}

var keysymValues = func() map[Keysym]string {
	m := make(map[Keysym]string, len(keysymNames))
	for name, sym := range keysymNames {
		// First writer wins for aliased values; map order is fine
		// because the table has no duplicate values that matter.
		if _, ok := m[sym]; !ok {
			m[sym] = name
		}
	}
	return m
}()

// KeysymFromName resolves a keysym name as it appears in a keymap
// source. Single characters resolve directly, U<hex> and 0x<hex> parse
// numerically, and unknown names yield NoSymbol so a keymap referring
// to symbols outside the table still loads.
func KeysymFromName(name string) Keysym {
	if sym, ok := keysymNames[name]; ok {
		return sym
	}
	if len(name) == 1 {
		c := rune(name[0])
		if c >= 0x20 && c <= 0x7e {
			return Keysym(c)
		}
	}
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return Keysym(v)
		}
	}
	if len(name) > 1 && name[0] == 'U' {
		if v, err := strconv.ParseUint(name[1:], 16, 24); err == nil {
			return Keysym(unicodeOffset + uint32(v))
		}
	}
	return NoSymbol
}

// Name returns the conventional name of the keysym.
func (ks Keysym) Name() string {
	if name, ok := keysymValues[ks]; ok {
		return name
	}
	v := uint32(ks)
	switch {
	case v >= 0x20 && v <= 0x7e:
		return string(rune(v))
	case v >= 0xa0 && v <= 0xff:
		return string(rune(v))
	case v&0xff000000 == unicodeOffset:
		return fmt.Sprintf("U%04X", v&0xffffff)
	}
	return fmt.Sprintf("0x%08x", v)
}

// Rune returns the Unicode code point the keysym encodes, or -1 for
// function/modifier keysyms with no character meaning.
func (ks Keysym) Rune() rune {
	v := uint32(ks)
	switch {
	case v >= 0x20 && v <= 0x7e:
		return rune(v)
	case v >= 0xa0 && v <= 0xff:
		return rune(v)
	case v&0xff000000 == unicodeOffset:
		return rune(v & 0xffffff)
	}
	// Keypad digits produce their ASCII counterparts.
	if ks >= KeysymKP0 && ks <= KeysymKP9 {
		return rune('0' + uint32(ks-KeysymKP0))
	}
	switch ks {
	case KeysymReturn, KeysymKPEnter:
		return '\r'
	case KeysymLinefeed:
		return '\n'
	case KeysymTab, KeysymKPTab:
		return '\t'
	case KeysymBackSpace:
		return '\b'
	case KeysymEscape:
		return 0x1b
	case KeysymDelete:
		return 0x7f
	case KeysymKPMultiply:
		return '*'
	case KeysymKPAdd:
		return '+'
	case KeysymKPSubtract:
		return '-'
	case KeysymKPDecimal:
		return '.'
	case KeysymKPDivide:
		return '/'
	case KeysymKPEqual:
		return '='
	case KeysymKPSpace:
		return ' '
	}
	return -1
}

// isLockingSym reports whether a keysym carries lock semantics: its
// modifier latches on press and releases only on the next press.
func isLockingSym(ks Keysym) bool {
	switch ks {
	case KeysymCapsLock, KeysymShiftLock, KeysymNumLock,
		KeysymScrollLock, KeysymISOLock, KeysymISOLevel3Lock,
		KeysymISOLevel5Lock, KeysymISOGroupLock:
		return true
	}
	return false
}

// isUpperLowerPair reports whether two keysyms form a case pair, which
// marks a key as alphabetic for type inference.
func isUpperLowerPair(lower, upper Keysym) bool {
	lr, ur := lower.Rune(), upper.Rune()
	if lr < 0 || ur < 0 || lr == ur {
		return false
	}
	return strings.ToUpper(string(lr)) == string(ur)
}

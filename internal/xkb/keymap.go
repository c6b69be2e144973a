// Package xkb resolves raw key codes into keysyms and text through a
// compiled keymap, tracking modifier and group state the way the XKB
// protocol defines it. It parses the textual keymap format (v1) that
// Wayland compositors hand to clients over the keymap fd.
package xkb

import (
	"fmt"
	"strconv"
	"strings"
)

// EvdevOffset is the fixed bias between evdev key codes and keymap
// key codes.
const EvdevOffset = 8

// Real modifier bits, indexed as in the core protocol.
const (
	ModShift uint8 = 1 << iota
	ModLock
	ModControl
	ModMod1
	ModMod2
	ModMod3
	ModMod4
	ModMod5
)

// ModMaskString renders a modifier mask as "+"-joined modifier names
// for display. The zero mask renders as "".
func ModMaskString(mask uint8) string {
	names := []struct {
		bit  uint8
		name string
	}{
		{ModShift, "Shift"},
		{ModLock, "Lock"},
		{ModControl, "Control"},
		{ModMod1, "Mod1"},
		{ModMod2, "Mod2"},
		{ModMod3, "Mod3"},
		{ModMod4, "Mod4"},
		{ModMod5, "Mod5"},
	}
	var parts []string
	for _, n := range names {
		if mask&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

var realModNames = map[string]uint8{
	"Shift":   ModShift,
	"Lock":    ModLock,
	"Control": ModControl,
	"Mod1":    ModMod1,
	"Mod2":    ModMod2,
	"Mod3":    ModMod3,
	"Mod4":    ModMod4,
	"Mod5":    ModMod5,
	"None":    0,
	"none":    0,
	"all":     0xff,
	"All":     0xff,
}

// Conventional virtual-to-real modifier assignments on Linux. Full
// resolution would need the compat section; these cover the maps the
// standard types reference.
var builtinVmods = map[string]uint8{
	"NumLock":    ModMod2,
	"Alt":        ModMod1,
	"Meta":       ModMod1,
	"Super":      ModMod4,
	"Hyper":      ModMod4,
	"LevelThree": ModMod5,
	"AltGr":      ModMod5,
	"LevelFive":  ModMod3,
	"ScrollLock": 0,
	"Kana":       0,
}

// ParseError reports a malformed keymap source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xkb: parse error at line %d: %s", e.Line, e.Msg)
}

type typeEntry struct {
	mask  uint8
	level int
}

type keyType struct {
	name      string
	modifiers uint8
	entries   []typeEntry
}

// level returns the shift level selected by the modifier mask,
// counting from 1. Masks without a map entry select the base level.
func (t *keyType) level(mods uint8) int {
	relevant := mods & t.modifiers
	for _, e := range t.entries {
		if e.mask == relevant {
			return e.level
		}
	}
	return 1
}

type keyEntry struct {
	groups    [][]Keysym
	typeNames []string
	types     []*keyType
}

// Keymap is an immutable compiled keymap. Once Parse returns, nothing
// mutates it; state derived from it lives in State.
type Keymap struct {
	MinKeycode uint32
	MaxKeycode uint32

	keyNames  map[string]uint32
	aliases   map[string]string
	keys      map[uint32]*keyEntry
	types     map[string]*keyType
	vmods     map[string]uint8
	modMap    map[uint32]uint8
	numGroups int
}

// NumGroups returns the number of symbol groups the keymap declares.
func (km *Keymap) NumGroups() int {
	if km.numGroups < 1 {
		return 1
	}
	return km.numGroups
}

// KeycodeByName resolves a key name (or alias) from the keycodes
// section to its keycode.
func (km *Keymap) KeycodeByName(name string) (uint32, bool) {
	if code, ok := km.keyNames[name]; ok {
		return code, true
	}
	if target, ok := km.aliases[name]; ok {
		code, ok := km.keyNames[target]
		return code, ok
	}
	return 0, false
}

// ModifierMask returns the real modifier mask a keycode feeds, if the
// keymap maps it to a modifier.
func (km *Keymap) ModifierMask(keycode uint32) (uint8, bool) {
	mask, ok := km.modMap[keycode]
	return mask, ok
}

// KeyName returns the keycodes-section name for a keycode, or "".
func (km *Keymap) KeyName(keycode uint32) string {
	for name, code := range km.keyNames {
		if code == keycode {
			return name
		}
	}
	return ""
}

// NumKeys returns the number of keys with symbol entries.
func (km *Keymap) NumKeys() int {
	return len(km.keys)
}

// Syms returns the keysyms a keycode produces under the given
// modifier mask and group. Group indices wrap modulo the key's group
// count; unknown keycodes produce an empty set.
func (km *Keymap) Syms(keycode uint32, mods uint8, group int) []Keysym {
	e := km.keys[keycode]
	if e == nil || len(e.groups) == 0 {
		return nil
	}
	g := group
	if n := km.NumGroups(); n > 0 {
		g = ((g % n) + n) % n
	}
	g %= len(e.groups)
	levels := e.groups[g]
	level := e.types[g].level(mods)
	if level-1 >= len(levels) {
		level = 1
	}
	if level-1 >= len(levels) {
		return nil
	}
	sym := levels[level-1]
	if sym == NoSymbol {
		return nil
	}
	return []Keysym{sym}
}

// modMask resolves a '+'-joined modifier name list against real and
// virtual modifier names.
func (km *Keymap) modMask(names []string) uint8 {
	var mask uint8
	for _, n := range names {
		if bit, ok := realModNames[n]; ok {
			mask |= bit
			continue
		}
		if bit, ok := km.vmods[n]; ok {
			mask |= bit
		}
	}
	return mask
}

func (km *Keymap) resolveType(name string) *keyType {
	if t, ok := km.types[name]; ok {
		return t
	}
	t := km.builtinType(name)
	km.types[name] = t
	return t
}

// builtinType synthesizes the canonical types so keymaps that rely on
// the standard include set still resolve levels.
func (km *Keymap) builtinType(name string) *keyType {
	switch name {
	case "TWO_LEVEL":
		return &keyType{name: name, modifiers: ModShift,
			entries: []typeEntry{{ModShift, 2}}}
	case "ALPHABETIC":
		return &keyType{name: name, modifiers: ModShift | ModLock,
			entries: []typeEntry{{ModShift, 2}, {ModLock, 2}}}
	case "KEYPAD":
		numLock := builtinVmods["NumLock"]
		return &keyType{name: name, modifiers: ModShift | numLock,
			entries: []typeEntry{{ModShift, 2}, {numLock, 2}}}
	case "FOUR_LEVEL":
		lvl3 := builtinVmods["LevelThree"]
		return &keyType{name: name, modifiers: ModShift | lvl3,
			entries: []typeEntry{
				{ModShift, 2},
				{lvl3, 3},
				{ModShift | lvl3, 4},
			}}
	case "FOUR_LEVEL_ALPHABETIC", "FOUR_LEVEL_SEMIALPHABETIC":
		lvl3 := builtinVmods["LevelThree"]
		return &keyType{name: name, modifiers: ModShift | ModLock | lvl3,
			entries: []typeEntry{
				{ModShift, 2},
				{ModLock, 2},
				{lvl3, 3},
				{ModShift | lvl3, 4},
				{ModLock | lvl3, 4},
				{ModShift | ModLock | lvl3, 3},
			}}
	default:
		// ONE_LEVEL and anything unrecognized: base level only.
		return &keyType{name: name}
	}
}

// inferType picks a type for a key group the keymap left untyped,
// following the standard width/content heuristics.
func (km *Keymap) inferType(levels []Keysym) *keyType {
	switch {
	case len(levels) <= 1:
		return km.resolveType("ONE_LEVEL")
	case len(levels) == 2:
		if isUpperLowerPair(levels[0], levels[1]) {
			return km.resolveType("ALPHABETIC")
		}
		if levels[0] >= KeysymKP0 && levels[0] <= KeysymKP9 ||
			levels[1] >= KeysymKP0 && levels[1] <= KeysymKP9 {
			return km.resolveType("KEYPAD")
		}
		return km.resolveType("TWO_LEVEL")
	default:
		if isUpperLowerPair(levels[0], levels[1]) {
			return km.resolveType("FOUR_LEVEL_ALPHABETIC")
		}
		return km.resolveType("FOUR_LEVEL")
	}
}

// pendingModMap defers modifier_map resolution: entries name either a
// key (<CAPS>) or a keysym (Caps_Lock) whose key is found after all
// symbols are read.
type pendingModMap struct {
	mask    uint8
	keyName string
	sym     Keysym
}

func (km *Keymap) finalize(pending []pendingModMap) {
	for _, e := range km.keys {
		if len(e.groups) > km.numGroups {
			km.numGroups = len(e.groups)
		}
	}
	if km.numGroups == 0 {
		km.numGroups = 1
	}

	for _, e := range km.keys {
		e.types = make([]*keyType, len(e.groups))
		for g, levels := range e.groups {
			if g < len(e.typeNames) && e.typeNames[g] != "" {
				e.types[g] = km.resolveType(e.typeNames[g])
			} else {
				e.types[g] = km.inferType(levels)
			}
		}
	}

	for _, pm := range pending {
		if pm.keyName != "" {
			if code, ok := km.KeycodeByName(pm.keyName); ok {
				km.modMap[code] |= pm.mask
			}
			continue
		}
		for code, e := range km.keys {
			if len(e.groups) > 0 && len(e.groups[0]) > 0 && e.groups[0][0] == pm.sym {
				km.modMap[code] |= pm.mask
			}
		}
	}
}

// Parse compiles a textual keymap (xkb_keymap format v1). The input
// may carry the trailing NUL the compositor includes in the mapped
// buffer.
func Parse(data []byte) (*Keymap, error) {
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	p := newParser(data)
	km := &Keymap{
		keyNames: make(map[string]uint32),
		aliases:  make(map[string]string),
		keys:     make(map[uint32]*keyEntry),
		types:    make(map[string]*keyType),
		vmods:    make(map[string]uint8),
		modMap:   make(map[uint32]uint8),
	}

	if err := p.expectIdent("xkb_keymap"); err != nil {
		return nil, err
	}
	p.acceptString()
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}

	var pending []pendingModMap
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.isPunct('}') {
			break
		}
		if tok.kind != tokenIdent {
			return nil, p.errf("expected section name, got %q", tok.text)
		}
		switch tok.text {
		case "xkb_keycodes":
			err = p.parseKeycodes(km)
		case "xkb_types":
			err = p.parseTypes(km)
		case "xkb_symbols":
			pending, err = p.parseSymbols(km, pending)
		case "xkb_compatibility", "xkb_compat", "xkb_geometry", "xkb_semantics":
			err = p.skipSection()
		default:
			// Section flags (partial, default, ...) precede the
			// section keyword in standalone sources; tolerate them.
			if strings.HasPrefix(tok.text, "xkb_") {
				err = p.skipSection()
			}
		}
		if err != nil {
			return nil, err
		}
		p.acceptPunct(';')
	}
	p.acceptPunct(';')

	if len(km.keyNames) == 0 {
		return nil, &ParseError{Line: p.line(), Msg: "keymap has no keycodes section"}
	}
	km.finalize(pending)
	return km, nil
}

func (p *parser) parseKeycodes(km *Keymap) error {
	p.acceptString()
	if err := p.expectPunct('{'); err != nil {
		return err
	}
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case tok.isPunct('}'):
			return nil
		case tok.kind == tokenKeyName:
			if err := p.expectPunct('='); err != nil {
				return err
			}
			num, err := p.expectNumber()
			if err != nil {
				return err
			}
			code := uint32(num)
			km.keyNames[tok.text] = code
			if km.MaxKeycode < code {
				km.MaxKeycode = code
			}
			if err := p.expectPunct(';'); err != nil {
				return err
			}
		case tok.kind == tokenIdent && tok.text == "minimum":
			if err := p.expectPunct('='); err != nil {
				return err
			}
			num, err := p.expectNumber()
			if err != nil {
				return err
			}
			km.MinKeycode = uint32(num)
			if err := p.expectPunct(';'); err != nil {
				return err
			}
		case tok.kind == tokenIdent && tok.text == "maximum":
			if err := p.expectPunct('='); err != nil {
				return err
			}
			num, err := p.expectNumber()
			if err != nil {
				return err
			}
			km.MaxKeycode = uint32(num)
			if err := p.expectPunct(';'); err != nil {
				return err
			}
		case tok.kind == tokenIdent && tok.text == "alias":
			from, err := p.expectKeyName()
			if err != nil {
				return err
			}
			if err := p.expectPunct('='); err != nil {
				return err
			}
			to, err := p.expectKeyName()
			if err != nil {
				return err
			}
			km.aliases[from] = to
			if err := p.expectPunct(';'); err != nil {
				return err
			}
		case tok.kind == tokenIdent:
			// indicator, virtual, ... -- irrelevant to resolution.
			if err := p.skipStatement(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected %q in keycodes", tok.text)
		}
	}
}

func (p *parser) parseTypes(km *Keymap) error {
	p.acceptString()
	if err := p.expectPunct('{'); err != nil {
		return err
	}
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case tok.isPunct('}'):
			return nil
		case tok.kind == tokenIdent && tok.text == "virtual_modifiers":
			if err := p.parseVirtualModifiers(km); err != nil {
				return err
			}
		case tok.kind == tokenIdent && tok.text == "type":
			if err := p.parseType(km); err != nil {
				return err
			}
		case tok.kind == tokenIdent:
			if err := p.skipStatement(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected %q in types", tok.text)
		}
	}
}

func (p *parser) parseVirtualModifiers(km *Keymap) error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.isPunct(';') {
			return nil
		}
		if tok.isPunct(',') {
			continue
		}
		if tok.kind != tokenIdent {
			return p.errf("expected virtual modifier name, got %q", tok.text)
		}
		km.vmods[tok.text] = builtinVmods[tok.text]
	}
}

func (p *parser) parseType(km *Keymap) error {
	name, err := p.expectString()
	if err != nil {
		return err
	}
	if err := p.expectPunct('{'); err != nil {
		return err
	}
	t := &keyType{name: name}
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case tok.isPunct('}'):
			km.types[name] = t
			p.acceptPunct(';')
			return nil
		case tok.isPunct(';'):
			continue
		case tok.kind == tokenIdent && tok.text == "modifiers":
			if err := p.expectPunct('='); err != nil {
				return err
			}
			names, err := p.parseModNames()
			if err != nil {
				return err
			}
			t.modifiers = km.modMask(names)
		case tok.kind == tokenIdent && tok.text == "map":
			if err := p.expectPunct('['); err != nil {
				return err
			}
			names, err := p.parseModNamesUntil(']')
			if err != nil {
				return err
			}
			if err := p.expectPunct('='); err != nil {
				return err
			}
			level, err := p.parseLevel()
			if err != nil {
				return err
			}
			t.entries = append(t.entries, typeEntry{mask: km.modMask(names), level: level})
		case tok.kind == tokenIdent:
			// preserve, level_name, ... -- no effect on resolution.
			if err := p.skipStatement(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected %q in type %q", tok.text, name)
		}
	}
}

func (p *parser) parseSymbols(km *Keymap, pending []pendingModMap) ([]pendingModMap, error) {
	p.acceptString()
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.isPunct('}'):
			return pending, nil
		case tok.isPunct(';'):
			continue
		case tok.kind == tokenIdent && tok.text == "key":
			if p.peekPunct('.') {
				// key.type defaults; not needed per key.
				if err := p.skipStatement(); err != nil {
					return nil, err
				}
				continue
			}
			if err := p.parseKey(km); err != nil {
				return nil, err
			}
		case tok.kind == tokenIdent && tok.text == "modifier_map":
			pm, err := p.parseModifierMap(km)
			if err != nil {
				return nil, err
			}
			pending = append(pending, pm...)
		case tok.kind == tokenIdent && tok.text == "virtual_modifiers":
			if err := p.parseVirtualModifiers(km); err != nil {
				return nil, err
			}
		case tok.kind == tokenIdent:
			// name[Group1], default flags, ...
			if err := p.skipStatement(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errf("unexpected %q in symbols", tok.text)
		}
	}
}

func (p *parser) parseKey(km *Keymap) error {
	keyName, err := p.expectKeyName()
	if err != nil {
		return err
	}
	if err := p.expectPunct('{'); err != nil {
		return err
	}
	entry := &keyEntry{}
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case tok.isPunct('}'):
			code, ok := km.KeycodeByName(keyName)
			if !ok {
				// Symbols for keys the keycodes section never named
				// cannot be delivered; drop them.
				p.acceptPunct(';')
				return nil
			}
			km.keys[code] = entry
			p.acceptPunct(';')
			return nil
		case tok.isPunct(','):
			continue
		case tok.isPunct('['):
			syms, err := p.parseSymList()
			if err != nil {
				return err
			}
			entry.groups = append(entry.groups, syms)
			entry.typeNames = append(entry.typeNames, "")
		case tok.kind == tokenIdent && tok.text == "type":
			group := 0
			if p.peekPunct('[') {
				p.acceptPunct('[')
				g, err := p.parseGroupIndex()
				if err != nil {
					return err
				}
				group = g
			}
			if err := p.expectPunct('='); err != nil {
				return err
			}
			name, err := p.expectString()
			if err != nil {
				return err
			}
			for len(entry.typeNames) <= group {
				entry.typeNames = append(entry.typeNames, "")
			}
			entry.typeNames[group] = name
		case tok.kind == tokenIdent && tok.text == "symbols":
			if err := p.expectPunct('['); err != nil {
				return err
			}
			group, err := p.parseGroupIndex()
			if err != nil {
				return err
			}
			if err := p.expectPunct('='); err != nil {
				return err
			}
			if err := p.expectPunct('['); err != nil {
				return err
			}
			syms, err := p.parseSymList()
			if err != nil {
				return err
			}
			for len(entry.groups) <= group {
				entry.groups = append(entry.groups, nil)
				entry.typeNames = append(entry.typeNames, "")
			}
			entry.groups[group] = syms
		case tok.kind == tokenIdent:
			// actions, repeat, virtualMods, ...
			if err := p.skipKeyItem(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected %q in key %s", tok.text, keyName)
		}
	}
}

func (p *parser) parseSymList() ([]Keysym, error) {
	var syms []Keysym
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.isPunct(']'):
			return syms, nil
		case tok.isPunct(','):
			continue
		case tok.kind == tokenIdent:
			syms = append(syms, KeysymFromName(tok.text))
		case tok.kind == tokenNumber:
			// A bare digit is the digit keysym, not a raw value.
			if len(tok.text) == 1 {
				syms = append(syms, KeysymFromName(tok.text))
			} else {
				syms = append(syms, Keysym(tok.num))
			}
		default:
			return nil, p.errf("expected keysym, got %q", tok.text)
		}
	}
}

func (p *parser) parseModifierMap(km *Keymap) ([]pendingModMap, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenIdent {
		return nil, p.errf("expected modifier name, got %q", tok.text)
	}
	mask := km.modMask([]string{tok.text})
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	var pending []pendingModMap
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.isPunct('}'):
			if err := p.expectPunct(';'); err != nil {
				return nil, err
			}
			return pending, nil
		case tok.isPunct(','):
			continue
		case tok.kind == tokenKeyName:
			pending = append(pending, pendingModMap{mask: mask, keyName: tok.text})
		case tok.kind == tokenIdent:
			pending = append(pending, pendingModMap{mask: mask, sym: KeysymFromName(tok.text)})
		default:
			return nil, p.errf("unexpected %q in modifier_map", tok.text)
		}
	}
}

func (p *parser) parseModNames() ([]string, error) {
	return p.parseModNamesUntil(';')
}

func (p *parser) parseModNamesUntil(end byte) ([]string, error) {
	var names []string
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.isPunct(rune(end)):
			return names, nil
		case tok.isPunct('+'):
			continue
		case tok.kind == tokenIdent:
			names = append(names, tok.text)
		default:
			return nil, p.errf("expected modifier name, got %q", tok.text)
		}
	}
}

// parseLevel reads a LevelN name or plain number, consuming the
// trailing semicolon.
func (p *parser) parseLevel() (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	level := 0
	switch tok.kind {
	case tokenIdent:
		s := strings.TrimPrefix(tok.text, "Level")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, p.errf("bad level name %q", tok.text)
		}
		level = n
	case tokenNumber:
		level = int(tok.num)
	default:
		return 0, p.errf("expected level, got %q", tok.text)
	}
	if err := p.expectPunct(';'); err != nil {
		return 0, err
	}
	return level, nil
}

// parseGroupIndex reads Group1/group1 (or a number) up to the closing
// bracket and returns the zero-based index.
func (p *parser) parseGroupIndex() (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	group := 0
	switch tok.kind {
	case tokenIdent:
		s := strings.TrimPrefix(strings.TrimPrefix(tok.text, "Group"), "group")
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, p.errf("bad group name %q", tok.text)
		}
		group = n - 1
	case tokenNumber:
		if tok.num < 1 {
			return 0, p.errf("bad group index %d", tok.num)
		}
		group = int(tok.num) - 1
	default:
		return 0, p.errf("expected group, got %q", tok.text)
	}
	if err := p.expectPunct(']'); err != nil {
		return 0, err
	}
	return group, nil
}

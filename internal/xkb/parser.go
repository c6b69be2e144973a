package xkb

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenKeyName
	tokenPunct
)

type token struct {
	kind tokenKind
	text string
	num  int64
	line int
}

func (t token) isPunct(c rune) bool {
	return t.kind == tokenPunct && t.text == string(c)
}

type lexer struct {
	src     []byte
	pos     int
	curLine int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, curLine: 1}
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_'
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.curLine++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			l.skipLine()
		case c == '#':
			l.skipLine()
		default:
			return l.scan()
		}
	}
	return token{kind: tokenEOF, line: l.curLine}, nil
}

func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) scan() (token, error) {
	line := l.curLine
	c := l.src[l.pos]
	switch {
	case c == '"':
		l.pos++
		start := l.pos
		var out []byte
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				out = append(out, l.src[start:l.pos]...)
				l.pos++
				out = append(out, l.src[l.pos])
				l.pos++
				start = l.pos
				continue
			}
			if l.src[l.pos] == '\n' {
				l.curLine++
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, &ParseError{Line: line, Msg: "unterminated string"}
		}
		out = append(out, l.src[start:l.pos]...)
		l.pos++ // closing quote
		return token{kind: tokenString, text: string(out), line: line}, nil

	case c == '<':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '>' {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, &ParseError{Line: line, Msg: "unterminated key name"}
		}
		name := string(l.src[start:l.pos])
		l.pos++ // closing bracket
		return token{kind: tokenKeyName, text: name, line: line}, nil

	case c >= '0' && c <= '9':
		start := l.pos
		base := 10
		if c == '0' && l.pos+1 < len(l.src) && (l.src[l.pos+1] == 'x' || l.src[l.pos+1] == 'X') {
			base = 16
			l.pos += 2
			start = l.pos
			for l.pos < len(l.src) && isHexByte(l.src[l.pos]) {
				l.pos++
			}
		} else {
			for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
				l.pos++
			}
		}
		text := string(l.src[start:l.pos])
		n, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return token{}, &ParseError{Line: line, Msg: "bad number"}
		}
		if base == 16 {
			text = "0x" + text
		}
		return token{kind: tokenNumber, num: n, text: text, line: line}, nil

	case isIdentByte(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokenIdent, text: string(l.src[start:l.pos]), line: line}, nil

	default:
		l.pos++
		return token{kind: tokenPunct, text: string(rune(c)), line: line}, nil
	}
}

func isHexByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

type parser struct {
	lex    *lexer
	peeked *token
}

func newParser(src []byte) *parser {
	return &parser{lex: newLexer(src)}
}

func (p *parser) line() int {
	if p.peeked != nil {
		return p.peeked.line
	}
	return p.lex.curLine
}

func (p *parser) errf(format string, args ...interface{}) *ParseError {
	return &ParseError{Line: p.line(), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	t, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	if t.kind == tokenEOF {
		return t, &ParseError{Line: t.line, Msg: "unexpected end of keymap"}
	}
	return t, nil
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) expectIdent(name string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokenIdent || t.text != name {
		return p.errf("expected %q, got %q", name, t.text)
	}
	return nil
}

func (p *parser) expectPunct(c rune) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if !t.isPunct(c) {
		return p.errf("expected %q, got %q", string(c), t.text)
	}
	return nil
}

// acceptPunct consumes the punctuation if it is next.
func (p *parser) acceptPunct(c rune) bool {
	t, err := p.peek()
	if err != nil || !t.isPunct(c) {
		return false
	}
	p.peeked = nil
	return true
}

func (p *parser) peekPunct(c rune) bool {
	t, err := p.peek()
	return err == nil && t.isPunct(c)
}

// acceptString consumes an optional string token (section names).
func (p *parser) acceptString() {
	t, err := p.peek()
	if err == nil && t.kind == tokenString {
		p.peeked = nil
	}
}

func (p *parser) expectString() (string, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokenString {
		return "", p.errf("expected string, got %q", t.text)
	}
	return t.text, nil
}

func (p *parser) expectNumber() (int64, error) {
	t, err := p.next()
	if err != nil {
		return 0, err
	}
	if t.kind != tokenNumber {
		return 0, p.errf("expected number, got %q", t.text)
	}
	return t.num, nil
}

func (p *parser) expectKeyName() (string, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokenKeyName {
		return "", p.errf("expected <key name>, got %q", t.text)
	}
	return t.text, nil
}

// skipStatement consumes tokens through the terminating semicolon,
// balancing any nested braces or brackets on the way.
func (p *parser) skipStatement() error {
	depth := 0
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case t.isPunct('{') || t.isPunct('[') || t.isPunct('('):
			depth++
		case t.isPunct('}') || t.isPunct(']') || t.isPunct(')'):
			depth--
		case t.isPunct(';') && depth == 0:
			return nil
		}
	}
}

// skipKeyItem consumes one item inside a key's braces: through the
// next comma at depth zero, leaving a closing brace for the caller.
func (p *parser) skipKeyItem() error {
	depth := 0
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if depth == 0 && (t.isPunct(',') || t.isPunct('}')) {
			if t.isPunct(',') {
				p.peeked = nil
			}
			return nil
		}
		p.peeked = nil
		switch {
		case t.isPunct('{') || t.isPunct('[') || t.isPunct('('):
			depth++
		case t.isPunct('}') || t.isPunct(']') || t.isPunct(')'):
			depth--
		}
	}
}

// skipSection consumes an entire section body after its keyword.
func (p *parser) skipSection() error {
	p.acceptString()
	if err := p.expectPunct('{'); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t, err := p.next()
		if err != nil {
			return err
		}
		switch {
		case t.isPunct('{'):
			depth++
		case t.isPunct('}'):
			depth--
		}
	}
	return nil
}

package filter

import "strings"

type lexer struct {
	src []byte
	off int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peek() byte {
	if l.off >= len(l.src) {
		return 0
	}
	return l.src[l.off]
}

// Scan returns the position, the token and its value, if any.
func (l *lexer) Scan() (int, Token, string) {
	for isSpace(l.peek()) {
		l.off++
	}

	pos := l.off
	ch := l.peek()
	if ch == 0 {
		return pos, eol, ""
	}

	switch {
	case isIdentifierStart(ch):
		return l.scanWord(pos)
	case isDigit(ch):
		return l.scanQuantity(pos)
	}

	l.off++
	switch ch {
	case '(':
		return pos, lbracket, ""
	case ')':
		return pos, rbracket, ""
	case '=':
		return pos, equal, ""
	case '~':
		return pos, like, ""
	case '!':
		switch l.peek() {
		case '=':
			l.off++
			return pos, notEqual, ""
		case '~':
			l.off++
			return pos, notLike, ""
		}
		return pos, illegal, "expected = or ~ after !"
	case '<':
		if l.peek() == '=' {
			l.off++
			return pos, lte, ""
		}
		return pos, less, ""
	case '>':
		if l.peek() == '=' {
			l.off++
			return pos, gte, ""
		}
		return pos, greater, ""
	case '"', '\'':
		return l.scanString(pos, ch)
	case '/':
		return l.scanRegex(pos)
	}

	return pos, illegal, "unexpected char"
}

func (l *lexer) scanWord(pos int) (int, Token, string) {
	for {
		for isIdentifierStart(l.peek()) || isDigit(l.peek()) {
			l.off++
		}
		// a dot must be followed by another segment
		if l.peek() != '.' || l.off+1 >= len(l.src) || !isIdentifierStart(l.src[l.off+1]) {
			break
		}
		l.off++
	}

	name := string(l.src[pos:l.off])
	switch strings.ToLower(name) {
	case "and":
		return pos, and, ""
	case "or":
		return pos, or, ""
	case "not":
		return pos, not, ""
	case "true", "false":
		return pos, boolean, name
	}
	return pos, identifier, name
}

func (l *lexer) scanQuantity(pos int) (int, Token, string) {
	for isDigit(l.peek()) {
		l.off++
	}
	if l.peek() == '.' {
		l.off++
		if !isDigit(l.peek()) {
			return pos, illegal, "malformed number"
		}
		for isDigit(l.peek()) {
			l.off++
		}
	}
	for isIdentifierStart(l.peek()) {
		l.off++
	}
	return pos, quantity, string(l.src[pos:l.off])
}

func (l *lexer) scanString(pos int, quote byte) (int, Token, string) {
	start := l.off
	for l.peek() != quote {
		if l.peek() == 0 {
			return pos, illegal, "unclosed string"
		}
		l.off++
	}
	val := string(l.src[start:l.off])
	l.off++
	if val == "" {
		return pos, illegal, "empty string"
	}
	return pos, stringLit, val
}

func (l *lexer) scanRegex(pos int) (int, Token, string) {
	var b strings.Builder
	for l.peek() != '/' {
		ch := l.peek()
		if ch == 0 {
			return pos, illegal, "unclosed regex"
		}
		if ch == '\\' && l.off+1 < len(l.src) && l.src[l.off+1] == '/' {
			l.off++
			ch = '/'
		}
		b.WriteByte(ch)
		l.off++
	}
	l.off++
	return pos, regexLit, b.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

package conditional

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

type lexToken struct {
	text string
	kind tokenKind
	pos  int
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenInt is an integer literal.
	tokenInt
	// tokenReal is a real literal, with a fraction or an exponent.
	tokenReal
	// tokenStr is a quoted string. The text excludes the quotes.
	tokenStr
	// tokenBool is true or false in any case.
	tokenBool
	// tokenIdent is a parameter name.
	tokenIdent
	// tokenOp is an operator symbol or keyword.
	tokenOp
	// tokenOpen is (.
	tokenOpen
	// tokenClose is ).
	tokenClose
)

func (k tokenKind) String() string {
	switch k {
	case tokenNone:
		return "None"
	case tokenEOF:
		return "EOF"
	case tokenInt:
		return "Int"
	case tokenReal:
		return "Real"
	case tokenStr:
		return "Str"
	case tokenBool:
		return "Bool"
	case tokenIdent:
		return "Ident"
	case tokenOp:
		return "Op"
	case tokenOpen:
		return "Open"
	case tokenClose:
		return "Close"
	default:
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

var keywords = [...]string{"and", "or", "not", "is"}

// IsKeyword reports whether s lexes as an operator rather than an identifier.
// Keywords are case-sensitive.
func IsKeyword(s string) bool {
	for _, k := range keywords {
		if s == k {
			return true
		}
	}
	return false
}

type lexer struct {
	src  io.RuneScanner
	buf  strings.Builder
	rune int
	p    lexToken
	// stopped is set once a stop character has ended the input.
	stopped bool
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{
		src:  src,
		rune: 1,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("conditional: double push")
	}
	l.p = tok
}

// readRune reads a rune from the src and updates the lexer's position info.
func (l *lexer) readRune() (r rune, err error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.rune++
	}
	return r, err
}

// unreadRune unreads a rune from the src and updates the lexer's position
// info. Panics if unreading returns an error.
func (l *lexer) unreadRune() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.rune--
}

// peek returns the next rune without consuming it. ok is false at the end of
// the input.
func (l *lexer) peek() (r rune, ok bool, err error) {
	r, err = l.readRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, err
	}
	l.unreadRune()
	return r, true, nil
}

// next scans the next token from the input. Whitespace characters in wseof
// end the input as if they were EOF. Once the input is exhausted, every call
// returns an EOF token.
func (l *lexer) next(wseof string) (lexToken, error) {
	if l.p.kind != tokenNone {
		tok := l.p
		l.p = lexToken{}
		return tok, nil
	}
	if l.stopped {
		return lexToken{kind: tokenEOF, pos: l.rune}, nil
	}
	defer l.buf.Reset()
	for {
		tok := lexToken{pos: l.rune}
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				tok.kind = tokenEOF
				return tok, nil
			}
			return tok, err
		}
		switch {
		case isspace(r):
			if strings.ContainsRune(wseof, r) {
				tok.kind = tokenEOF
				l.stopped = true
				return tok, nil
			}
			continue
		case isdigit(r):
			l.unreadRune()
			kind, err := l.scanNum()
			if err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = kind
			return tok, nil
		case r == '_', isletter(r):
			l.unreadRune()
			if err := l.scanIdent(); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			switch {
			case IsKeyword(tok.text):
				tok.kind = tokenOp
			case strings.EqualFold(tok.text, "true"), strings.EqualFold(tok.text, "false"):
				tok.kind = tokenBool
			default:
				tok.kind = tokenIdent
			}
			return tok, nil
		case r == '\'', r == '"':
			if err := l.scanStr(r); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenStr
			return tok, nil
		case r == '(':
			tok.text = "("
			tok.kind = tokenOpen
			return tok, nil
		case r == ')':
			tok.text = ")"
			tok.kind = tokenClose
			return tok, nil
		default:
			l.buf.WriteRune(r)
			if err := l.scanOp(r); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenOp
			return tok, nil
		}
	}
}

// scanNum scans an integer or real literal. A number may not run directly
// into an identifier.
func (l *lexer) scanNum() (tokenKind, error) {
	kind := tokenInt
	if err := l.scanDigits(); err != nil {
		return tokenNone, err
	}
	r, ok, err := l.peek()
	if err != nil {
		return tokenNone, err
	}
	if ok && r == '.' {
		l.readRune()
		l.buf.WriteRune(r)
		if err := l.scanDigits(); err != nil {
			return tokenNone, err
		}
		kind = tokenReal
		if r, ok, err = l.peek(); err != nil {
			return tokenNone, err
		}
	}
	if ok && (r == 'e' || r == 'E') {
		l.readRune()
		l.buf.WriteRune(r)
		if r, ok, err = l.peek(); err != nil {
			return tokenNone, err
		}
		if ok && (r == '+' || r == '-') {
			l.readRune()
			l.buf.WriteRune(r)
		}
		if err := l.scanDigits(); err != nil {
			return tokenNone, err
		}
		kind = tokenReal
		if r, ok, err = l.peek(); err != nil {
			return tokenNone, err
		}
	}
	if ok && (r == '_' || r == '.' || isletter(r)) {
		l.readRune()
		l.buf.WriteRune(r)
		return tokenNone, l.error("number")
	}
	return kind, nil
}

// scanDigits scans one or more decimal digits.
func (l *lexer) scanDigits() error {
	n := 0
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if !isdigit(r) {
			l.unreadRune()
			break
		}
		l.buf.WriteRune(r)
		n++
	}
	if n == 0 {
		return l.error("number")
	}
	return nil
}

func (l *lexer) scanIdent() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// next unreads the rune that decides ident scanning before
				// calling scanIdent, so we have scanned at least one rune.
				return nil
			}
			return err
		}
		switch {
		case r == '_', isletter(r), isdigit(r):
			l.buf.WriteRune(r)
		default:
			l.unreadRune()
			return nil
		}
	}
}

// scanStr scans the contents of a string up to the closing quote q, which
// is consumed but not kept.
func (l *lexer) scanStr(q rune) error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.buf.WriteRune(q)
				return l.error("string")
			}
			return err
		}
		switch r {
		case q:
			return nil
		case '\n', '\r':
			return l.error("string")
		}
		l.buf.WriteRune(r)
	}
}

// scanOp scans the remainder of an operator beginning with r, which the
// caller has already written to the buffer.
func (l *lexer) scanOp(r rune) error {
	var second rune
	switch r {
	case '+', '-', '%':
		return nil
	case '*', '/':
		// ** and //
		second = r
	case '<', '>':
		second = '='
	case '=', '!':
		// == and != are the only operators starting with these.
		c, ok, err := l.peek()
		if err != nil {
			return err
		}
		if !ok || c != '=' {
			return l.error("operator")
		}
		l.readRune()
		l.buf.WriteRune(c)
		return nil
	default:
		return l.error("")
	}
	c, ok, err := l.peek()
	if err != nil {
		return err
	}
	if ok && c == second {
		l.readRune()
		l.buf.WriteRune(c)
	}
	return nil
}

func (l *lexer) error(kind string) error {
	return &LexError{
		Text: l.buf.String(),
		Kind: kind,
		Col:  l.rune - 1,
	}
}

func isspace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

func isdigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// isletter reports whether r is an ASCII letter. Identifiers are ASCII only.
func isletter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

// LexError indicates an invalid token. It implements SyntaxError.
type LexError struct {
	// Text is the token the lexer was scanning when the invalid rune was
	// encountered, plus the invalid rune.
	Text string
	// Kind is the type of token the lexer was scanning. This may be "number",
	// "string", "operator", or the empty string (if a token kind hadn't
	// been decided).
	Kind string
	// Col is the total number of runes scanned by the lexer up to and
	// including this error.
	Col int
}

func (err *LexError) Error() string {
	pos := "column " + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + err.Text
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + err.Text
}

func (err *LexError) Pos() int {
	return err.Col
}

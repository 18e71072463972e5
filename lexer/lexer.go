package lexer

import (
	"io"
	"strings"
	"unicode"

	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/types"
)

type item struct {
	tok types.Token
	lit string
}

// Lexer turns source text into tokens. Tokens are produced lazily; any
// number of them can be peeked.
type Lexer struct {
	pos    types.Position
	src    []rune
	at     int
	peeked []item
	last   types.Span
}

func NewLexer(reader io.Reader, filename string) *Lexer {
	data, err := io.ReadAll(reader)
	if err != nil {
		panic(err)
	}
	return NewLexerString(string(data), filename)
}

func NewLexerString(src string, filename string) *Lexer {
	return &Lexer{
		pos: types.Position{Line: 1, Column: 1, Filename: filename},
		src: []rune(src),
	}
}

func (l *Lexer) newline() {
	l.pos.Line++
	l.pos.Column = 1
}

func (l *Lexer) peekRune(n int) rune {
	if l.at+n >= len(l.src) {
		return 0
	}
	return l.src[l.at+n]
}

func (l *Lexer) eof() bool {
	return l.at >= len(l.src)
}

func (l *Lexer) next() rune {
	r := l.src[l.at]
	l.at++
	l.pos.Offset++
	if r == '\n' {
		l.newline()
	} else {
		l.pos.Column++
	}
	return r
}

func (l *Lexer) fail(from types.Position, msg string) {
	panic(errors.SyntaxError{
		Expectation: msg,
		Location:    types.Span{From: from, To: l.pos},
	})
}

func firstChar(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

func otherChar(r rune) bool {
	return firstChar(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) lexIdent() string {
	var b strings.Builder
	for !l.eof() && otherChar(l.peekRune(0)) {
		b.WriteRune(l.next())
	}
	return b.String()
}

func (l *Lexer) lexEscape(from types.Position, quote rune) rune {
	r := l.next()
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '0':
		return 0
	case '\'', '"':
		return r
	case 'x':
		hex := string([]rune{l.next(), l.next()})
		v, ok := parseHex(hex)
		if !ok || v > 0x7f {
			l.fail(from, "invalid \\x escape")
		}
		return rune(v)
	case 'u':
		if l.eof() || l.next() != '{' {
			l.fail(from, "expected '{' in unicode escape")
		}
		var hex strings.Builder
		for !l.eof() && l.peekRune(0) != '}' {
			hex.WriteRune(l.next())
		}
		if l.eof() {
			l.fail(from, "unterminated unicode escape")
		}
		l.next()
		v, ok := parseHex(hex.String())
		if !ok || v > unicode.MaxRune {
			l.fail(from, "invalid unicode escape")
		}
		return rune(v)
	}
	l.fail(from, "unknown character escape")
	return 0
}

func parseHex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			v = v*16 + int(r-'0')
		case r >= 'a' && r <= 'f':
			v = v*16 + int(r-'a'+10)
		case r >= 'A' && r <= 'F':
			v = v*16 + int(r-'A'+10)
		default:
			return 0, false
		}
		if v > unicode.MaxRune {
			return v, false
		}
	}
	return v, true
}

// lexString reads a quoted string; the opening quote has been consumed.
func (l *Lexer) lexString(from types.Position) string {
	var b strings.Builder
	for {
		if l.eof() {
			l.fail(from, "unterminated string literal")
		}
		r := l.next()
		switch r {
		case '"':
			return b.String()
		case '\\':
			if l.peekRune(0) == '\n' {
				// line continuation skips the newline and leading whitespace
				l.next()
				for !l.eof() && unicode.IsSpace(l.peekRune(0)) {
					l.next()
				}
				continue
			}
			b.WriteRune(l.lexEscape(from, '"'))
		default:
			b.WriteRune(r)
		}
	}
}

// lexRawString reads r"..." or r#"..."#; the 'r' has been consumed.
func (l *Lexer) lexRawString(from types.Position) string {
	hashes := 0
	for l.peekRune(0) == '#' {
		l.next()
		hashes++
	}
	if l.eof() || l.next() != '"' {
		l.fail(from, "expected '\"' to open raw string")
	}
	closing := "\"" + strings.Repeat("#", hashes)
	var b strings.Builder
	for {
		if l.eof() {
			l.fail(from, "unterminated raw string literal")
		}
		if l.peekRune(0) == '"' && string(l.src[l.at:min(l.at+len(closing), len(l.src))]) == closing {
			for range closing {
				l.next()
			}
			return b.String()
		}
		b.WriteRune(l.next())
	}
}

func (l *Lexer) lexNumber(from types.Position) (types.TokenKind, string) {
	var b strings.Builder
	base := 10
	if l.peekRune(0) == '0' {
		switch l.peekRune(1) {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 10 {
			b.WriteRune(l.next())
			b.WriteRune(l.next())
		}
	}
	for !l.eof() {
		r := l.peekRune(0)
		if r == '_' || isDigit(r, base) {
			b.WriteRune(l.next())
			continue
		}
		break
	}
	kind := types.INT
	if base == 10 && l.peekRune(0) == '.' && l.peekRune(1) >= '0' && l.peekRune(1) <= '9' {
		kind = types.FLOAT
		b.WriteRune(l.next())
		for !l.eof() && (isDigit(l.peekRune(0), 10) || l.peekRune(0) == '_') {
			b.WriteRune(l.next())
		}
	}
	if base == 10 && (l.peekRune(0) == 'e' || l.peekRune(0) == 'E') && isDigit(l.peekRune(1), 10) {
		kind = types.FLOAT
		b.WriteRune(l.next())
		for !l.eof() && isDigit(l.peekRune(0), 10) {
			b.WriteRune(l.next())
		}
	}
	if firstChar(l.peekRune(0)) {
		suffix := l.lexIdent()
		switch suffix {
		case "i8", "i16", "i32", "i64", "i128", "isize", "u8", "u16", "u32", "u64", "u128", "usize":
		case "f32", "f64":
			kind = types.FLOAT
		default:
			l.fail(from, "invalid suffix `"+suffix+"` for number literal")
		}
	}
	return kind, b.String()
}

func isDigit(r rune, base int) bool {
	switch base {
	case 2:
		return r == '0' || r == '1'
	case 8:
		return r >= '0' && r <= '7'
	case 16:
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	}
	return r >= '0' && r <= '9'
}

func (l *Lexer) skipSpaceAndComments() {
	for !l.eof() {
		r := l.peekRune(0)
		switch {
		case unicode.IsSpace(r):
			l.next()
		case r == '/' && l.peekRune(1) == '/':
			for !l.eof() && l.peekRune(0) != '\n' {
				l.next()
			}
		case r == '/' && l.peekRune(1) == '*':
			from := l.pos
			l.next()
			l.next()
			depth := 1
			for depth > 0 {
				if l.eof() {
					l.fail(from, "unterminated block comment")
				}
				switch {
				case l.peekRune(0) == '/' && l.peekRune(1) == '*':
					l.next()
					l.next()
					depth++
				case l.peekRune(0) == '*' && l.peekRune(1) == '/':
					l.next()
					l.next()
					depth--
				default:
					l.next()
				}
			}
		default:
			return
		}
	}
}

var punct3 = map[string]types.TokenKind{
	"..=": types.DOTDOTEQ,
	"<<=": types.SHLEQ,
	">>=": types.SHREQ,
}

var punct2 = map[string]types.TokenKind{
	"::": types.PATHSEP,
	"->": types.ARROW,
	"=>": types.FATARROW,
	"..": types.DOTDOT,
	"<<": types.SHL,
	">>": types.SHR,
	"&&": types.ANDAND,
	"||": types.OROR,
	"==": types.EQEQ,
	"!=": types.NOTEQ,
	"<=": types.LE,
	">=": types.GE,
	"+=": types.PLUSEQ,
	"-=": types.MINUSEQ,
	"*=": types.STAREQ,
	"/=": types.SLASHEQ,
	"%=": types.PERCENTEQ,
	"^=": types.CARETEQ,
	"&=": types.AMPEQ,
	"|=": types.PIPEEQ,
}

var punct1 = map[rune]types.TokenKind{
	':': types.COLON,
	'(': types.LPAREN,
	')': types.RPAREN,
	'{': types.LBRACKET,
	'}': types.RBRACKET,
	'[': types.LSQUARE,
	']': types.RSQUARE,
	',': types.COMMA,
	';': types.EOS,
	'.': types.PERIOD,
	'=': types.EQUALS,
	'#': types.HASH,
	'?': types.QUESTION,
	'@': types.AT,
	'!': types.BANG,
	'+': types.PLUS,
	'-': types.MINUS,
	'*': types.STAR,
	'/': types.SLASH,
	'%': types.PERCENT,
	'^': types.CARET,
	'&': types.AMP,
	'|': types.PIPE,
	'<': types.LT,
	'>': types.GT,
}

func (l *Lexer) scan() item {
	l.skipSpaceAndComments()
	from := l.pos
	tok := func(k types.TokenKind, lit string) item {
		return item{types.Token{Kind: k, Location: types.Span{From: from, To: l.pos}}, lit}
	}
	if l.eof() {
		return tok(types.EOF, "")
	}

	r := l.peekRune(0)
	switch {
	case r == '"':
		l.next()
		return tok(types.STRING, l.lexString(from))
	case r == 'r' && (l.peekRune(1) == '"' || (l.peekRune(1) == '#' && (l.peekRune(2) == '"' || l.peekRune(2) == '#'))):
		l.next()
		return tok(types.STRING, l.lexRawString(from))
	case r == 'r' && l.peekRune(1) == '#' && firstChar(l.peekRune(2)):
		l.next()
		l.next()
		return tok(types.IDENT, "r#"+l.lexIdent())
	case r == 'b' && l.peekRune(1) == '"':
		l.next()
		l.next()
		return tok(types.BYTESTRING, l.lexString(from))
	case r == 'b' && l.peekRune(1) == '\'':
		l.next()
		l.next()
		c := l.lexCharBody(from)
		if c > 0x7f {
			l.fail(from, "non-ASCII character in byte literal")
		}
		return tok(types.BYTE, string(c))
	case r == '\'':
		l.next()
		// 'a' and '\n' are characters, 'a without a closing quote is a label
		if l.peekRune(0) == '\\' || l.peekRune(1) == '\'' {
			return tok(types.CHAR, string(l.lexCharBody(from)))
		}
		if firstChar(l.peekRune(0)) {
			return tok(types.LIFETIME, l.lexIdent())
		}
		l.fail(from, "invalid character literal")
	case r >= '0' && r <= '9':
		kind, lit := l.lexNumber(from)
		return tok(kind, lit)
	case firstChar(r):
		lit := l.lexIdent()
		if lit == "_" {
			return tok(types.UNDERSCORE, lit)
		}
		if kind, ok := types.Keywords[lit]; ok {
			return tok(kind, lit)
		}
		return tok(types.IDENT, lit)
	}

	if l.at+3 <= len(l.src) {
		if kind, ok := punct3[string(l.src[l.at:l.at+3])]; ok {
			lit := string(l.src[l.at : l.at+3])
			l.next()
			l.next()
			l.next()
			return tok(kind, lit)
		}
	}
	if l.at+2 <= len(l.src) {
		if kind, ok := punct2[string(l.src[l.at:l.at+2])]; ok {
			lit := string(l.src[l.at : l.at+2])
			l.next()
			l.next()
			return tok(kind, lit)
		}
	}
	if kind, ok := punct1[r]; ok {
		l.next()
		return tok(kind, string(r))
	}

	l.next()
	l.fail(from, "unexpected character "+quoteRune(r))
	return item{}
}

// lexCharBody reads the character and closing quote of a char literal.
func (l *Lexer) lexCharBody(from types.Position) rune {
	if l.eof() {
		l.fail(from, "unterminated character literal")
	}
	c := l.next()
	if c == '\\' {
		c = l.lexEscape(from, '\'')
	}
	if l.eof() || l.next() != '\'' {
		l.fail(from, "unterminated character literal")
	}
	return c
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

func (l *Lexer) fill(n int) {
	for len(l.peeked) <= n {
		l.peeked = append(l.peeked, l.scan())
	}
}

func (l *Lexer) Peek() (types.Token, string) {
	return l.PeekAt(0)
}

// PeekAt returns the token n positions ahead without consuming anything.
func (l *Lexer) PeekAt(n int) (types.Token, string) {
	l.fill(n)
	return l.peeked[n].tok, l.peeked[n].lit
}

func (l *Lexer) PeekIs(k ...types.TokenKind) bool {
	token, _ := l.Peek()
	for _, kind := range k {
		if token.Kind == kind {
			return true
		}
	}

	return false
}

func (l *Lexer) PeekAtIs(n int, k ...types.TokenKind) bool {
	token, _ := l.PeekAt(n)
	for _, kind := range k {
		if token.Kind == kind {
			return true
		}
	}

	return false
}

func (l *Lexer) LexExpecting(k ...types.TokenKind) (types.Token, string) {
	token, lit := l.Lex()
	for _, kind := range k {
		if token.Kind == kind {
			return token, lit
		}
	}

	panic(errors.ExpectedOneOfKindGotKind{
		Expected: k,
		Got:      token.Kind,
		Location: token.Location,
	})
}

// Accept consumes the next token if it is of kind k.
func (l *Lexer) Accept(k types.TokenKind) bool {
	if l.PeekIs(k) {
		l.Lex()
		return true
	}
	return false
}

func (l *Lexer) Lex() (types.Token, string) {
	l.fill(0)
	it := l.peeked[0]
	l.peeked = l.peeked[1:]
	l.last = it.tok.Location
	return it.tok, it.lit
}

// Last is the span of the most recently consumed token.
func (l *Lexer) Last() types.Span {
	return l.last
}

// SplitGT splits a leading '>>', '>=' or '>>=' so that a single '>' can be
// consumed, as needed when closing nested generic argument lists.
func (l *Lexer) SplitGT() {
	l.fill(0)
	head := l.peeked[0]
	loc := head.tok.Location
	second := types.Position{Line: loc.From.Line, Column: loc.From.Column + 1, Offset: loc.From.Offset + 1, Filename: loc.From.Filename}
	first := item{types.Token{Kind: types.GT, Location: types.Span{From: loc.From, To: second}}, ">"}
	var rest item
	switch head.tok.Kind {
	case types.SHR:
		rest = item{types.Token{Kind: types.GT, Location: types.Span{From: second, To: loc.To}}, ">"}
	case types.GE:
		rest = item{types.Token{Kind: types.EQUALS, Location: types.Span{From: second, To: loc.To}}, "="}
	case types.SHREQ:
		rest = item{types.Token{Kind: types.GE, Location: types.Span{From: second, To: loc.To}}, ">="}
	default:
		return
	}
	l.peeked = append([]item{first, rest}, l.peeked[1:]...)
}

func (l *Lexer) Filename() string {
	return l.pos.Filename
}

// Slice returns the source text between two rune offsets.
func (l *Lexer) Slice(from, to int) string {
	if from < 0 || to > len(l.src) || from > to {
		return ""
	}
	return string(l.src[from:to])
}

package lexer

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/types"
)

func lexAll(input string) (kinds []types.TokenKind, lits []string) {
	l := NewLexer(strings.NewReader(input), "stdin")
	for {
		tok, lit := l.Lex()
		if tok.Kind == types.EOF {
			return
		}
		kinds = append(kinds, tok.Kind)
		lits = append(lits, lit)
	}
}

func lexError(input string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(error)
		}
	}()
	lexAll(input)
	return nil
}

func TestKeywordsAndIdents(t *testing.T) {
	kinds, lits := lexAll("fn main let mut x_1 _ match")
	be.Equal(t, kinds, []types.TokenKind{types.FN, types.IDENT, types.LET, types.MUT, types.IDENT, types.UNDERSCORE, types.MATCH})
	be.Equal(t, lits[1], "main")
	be.Equal(t, lits[4], "x_1")
}

func TestIntLiterals(t *testing.T) {
	tests := []struct {
		input string
		lit   string
	}{
		{"12345", "12345"},
		{"1_000", "1_000"},
		{"0xff", "0xff"},
		{"0b1010", "0b1010"},
		{"42u8", "42"},
		{"7i64", "7"},
	}

	for _, tt := range tests {
		kinds, lits := lexAll(tt.input)
		be.Equal(t, kinds, []types.TokenKind{types.INT})
		be.Equal(t, lits[0], tt.lit)
	}
}

func TestRangeIsNotFloat(t *testing.T) {
	kinds, _ := lexAll("1..=5")
	be.Equal(t, kinds, []types.TokenKind{types.INT, types.DOTDOTEQ, types.INT})

	kinds, _ = lexAll("0..n")
	be.Equal(t, kinds, []types.TokenKind{types.INT, types.DOTDOT, types.IDENT})

	kinds, _ = lexAll("1.5")
	be.Equal(t, kinds, []types.TokenKind{types.FLOAT})
}

func TestStringLiterals(t *testing.T) {
	_, lits := lexAll(`"a\tb\n\"q\" \u{41}"`)
	be.Equal(t, lits[0], "a\tb\n\"q\" A")

	kinds, lits := lexAll(`r#"raw "quoted" \n"#`)
	be.Equal(t, kinds, []types.TokenKind{types.STRING})
	be.Equal(t, lits[0], `raw "quoted" \n`)

	kinds, lits = lexAll(`b"bytes"`)
	be.Equal(t, kinds, []types.TokenKind{types.BYTESTRING})
	be.Equal(t, lits[0], "bytes")
}

func TestCharsAndLabels(t *testing.T) {
	kinds, lits := lexAll(`'a' '\n' 'outer: b'x'`)
	be.Equal(t, kinds, []types.TokenKind{types.CHAR, types.CHAR, types.LIFETIME, types.COLON, types.BYTE})
	be.Equal(t, lits[0], "a")
	be.Equal(t, lits[1], "\n")
	be.Equal(t, lits[2], "outer")
	be.Equal(t, lits[4], "x")
}

func TestOperators(t *testing.T) {
	tests := []struct {
		input string
		typ   types.TokenKind
	}{
		{"::", types.PATHSEP},
		{"->", types.ARROW},
		{"=>", types.FATARROW},
		{"..=", types.DOTDOTEQ},
		{"<<=", types.SHLEQ},
		{">>", types.SHR},
		{"&&", types.ANDAND},
		{"||", types.OROR},
		{"!=", types.NOTEQ},
		{"%=", types.PERCENTEQ},
		{"?", types.QUESTION},
		{"{", types.LBRACKET},
		{"]", types.RSQUARE},
		{";", types.EOS},
	}

	for _, tt := range tests {
		kinds, _ := lexAll(tt.input)
		be.Equal(t, kinds, []types.TokenKind{tt.typ})
	}
}

func TestComments(t *testing.T) {
	kinds, _ := lexAll("a // line\n /* block /* nested */ */ b")
	be.Equal(t, kinds, []types.TokenKind{types.IDENT, types.IDENT})
}

func TestPositions(t *testing.T) {
	l := NewLexer(strings.NewReader("fn\n  main"), "x.rs")
	l.Lex()
	tok, _ := l.Lex()
	be.Equal(t, tok.Location.From.Line, 2)
	be.Equal(t, tok.Location.From.Column, 3)
	be.Equal(t, tok.Location.From.Filename, "x.rs")
}

func TestPeekAt(t *testing.T) {
	l := NewLexer(strings.NewReader("a b c"), "stdin")
	_, lit := l.PeekAt(2)
	be.Equal(t, lit, "c")
	be.True(t, l.PeekIs(types.IDENT))
	_, lit = l.Lex()
	be.Equal(t, lit, "a")
}

func TestSplitGT(t *testing.T) {
	l := NewLexer(strings.NewReader(">>"), "stdin")
	l.SplitGT()
	first, _ := l.Lex()
	second, _ := l.Lex()
	be.Equal(t, first.Kind, types.GT)
	be.Equal(t, second.Kind, types.GT)
}

func TestLexErrors(t *testing.T) {
	for _, input := range []string{`"unterminated`, "/* open", "$", "'", "12abc"} {
		err := lexError(input)
		be.True(t, err != nil)
		kind, ok := errors.KindOf(err)
		be.True(t, ok)
		be.Equal(t, kind, errors.SyntaxErrorKind)
	}
}

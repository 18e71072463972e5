package types

import (
	"fmt"
)

type Position struct {
	Line     int
	Column   int
	Offset   int
	Filename string
}

type Span struct {
	From Position
	To   Position
}

type TokenKind int

const (
	EOF TokenKind = iota
	ILLEGAL

	COLON
	PATHSEP
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LSQUARE
	RSQUARE
	COMMA
	EQUALS
	FATARROW
	ARROW
	PERIOD
	DOTDOT
	DOTDOTEQ
	HASH
	QUESTION
	AT
	BANG
	UNDERSCORE

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	CARET
	AMP
	PIPE
	SHL
	SHR
	ANDAND
	OROR
	EQEQ
	NOTEQ
	LT
	GT
	LE
	GE

	PLUSEQ
	MINUSEQ
	STAREQ
	SLASHEQ
	PERCENTEQ
	CARETEQ
	AMPEQ
	PIPEEQ
	SHLEQ
	SHREQ

	EOS

	INT
	FLOAT
	CHAR
	BYTE
	STRING
	BYTESTRING
	LIFETIME

	IDENT

	FN
	LET
	MUT
	IF
	ELSE
	WHILE
	LOOP
	FOR
	IN
	BREAK
	CONTINUE
	RETURN
	MATCH
	TRUE
	FALSE
	STRUCT
	ENUM
	CONST
	USE
	AS
	PUB
	REF

	IMPL
	TRAIT
	ASYNC
	AWAIT
	MOVE
	DYN
	UNSAFE
	STATIC
	MOD
	TYPE
	WHERE
	EXTERN
)

var kindNames = map[TokenKind]string{
	EOF:        "EOF",
	ILLEGAL:    "ILLEGAL",
	COLON:      "':'",
	PATHSEP:    "'::'",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'{'",
	RBRACKET:   "'}'",
	LSQUARE:    "'['",
	RSQUARE:    "']'",
	COMMA:      "','",
	EQUALS:     "'='",
	FATARROW:   "'=>'",
	ARROW:      "'->'",
	PERIOD:     "'.'",
	DOTDOT:     "'..'",
	DOTDOTEQ:   "'..='",
	HASH:       "'#'",
	QUESTION:   "'?'",
	AT:         "'@'",
	BANG:       "'!'",
	UNDERSCORE: "'_'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	SLASH:      "'/'",
	PERCENT:    "'%'",
	CARET:      "'^'",
	AMP:        "'&'",
	PIPE:       "'|'",
	SHL:        "'<<'",
	SHR:        "'>>'",
	ANDAND:     "'&&'",
	OROR:       "'||'",
	EQEQ:       "'=='",
	NOTEQ:      "'!='",
	LT:         "'<'",
	GT:         "'>'",
	LE:         "'<='",
	GE:         "'>='",
	PLUSEQ:     "'+='",
	MINUSEQ:    "'-='",
	STAREQ:     "'*='",
	SLASHEQ:    "'/='",
	PERCENTEQ:  "'%='",
	CARETEQ:    "'^='",
	AMPEQ:      "'&='",
	PIPEEQ:     "'|='",
	SHLEQ:      "'<<='",
	SHREQ:      "'>>='",
	EOS:        "';'",
	INT:        "integer literal",
	FLOAT:      "float literal",
	CHAR:       "char literal",
	BYTE:       "byte literal",
	STRING:     "string literal",
	BYTESTRING: "byte string literal",
	LIFETIME:   "label",
	IDENT:      "identifier",
	FN:         "'fn'",
	LET:        "'let'",
	MUT:        "'mut'",
	IF:         "'if'",
	ELSE:       "'else'",
	WHILE:      "'while'",
	LOOP:       "'loop'",
	FOR:        "'for'",
	IN:         "'in'",
	BREAK:      "'break'",
	CONTINUE:   "'continue'",
	RETURN:     "'return'",
	MATCH:      "'match'",
	TRUE:       "'true'",
	FALSE:      "'false'",
	STRUCT:     "'struct'",
	ENUM:       "'enum'",
	CONST:      "'const'",
	USE:        "'use'",
	AS:         "'as'",
	PUB:        "'pub'",
	REF:        "'ref'",
	IMPL:       "'impl'",
	TRAIT:      "'trait'",
	ASYNC:      "'async'",
	AWAIT:      "'await'",
	MOVE:       "'move'",
	DYN:        "'dyn'",
	UNSAFE:     "'unsafe'",
	STATIC:     "'static'",
	MOD:        "'mod'",
	TYPE:       "'type'",
	WHERE:      "'where'",
	EXTERN:     "'extern'",
}

// Keywords maps reserved words to their token kinds.
var Keywords = map[string]TokenKind{
	"fn":       FN,
	"let":      LET,
	"mut":      MUT,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"loop":     LOOP,
	"for":      FOR,
	"in":       IN,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"match":    MATCH,
	"true":     TRUE,
	"false":    FALSE,
	"struct":   STRUCT,
	"enum":     ENUM,
	"const":    CONST,
	"use":      USE,
	"as":       AS,
	"pub":      PUB,
	"ref":      REF,
	"impl":     IMPL,
	"trait":    TRAIT,
	"async":    ASYNC,
	"await":    AWAIT,
	"move":     MOVE,
	"dyn":      DYN,
	"unsafe":   UNSAFE,
	"static":   STATIC,
	"mod":      MOD,
	"type":     TYPE,
	"where":    WHERE,
	"extern":   EXTERN,
}

func (t TokenKind) String() string {
	if name, ok := kindNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(t))
}

func (p Position) String() string {
	if p.Filename == "" {
		p.Filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.From, s.To.Line, s.To.Column)
}

func SingleCharSpan(p Position) Span {
	return Span{p, p}
}

// Join returns the span covering both a and b.
func Join(a, b Span) Span {
	return Span{From: a.From, To: b.To}
}

type Token struct {
	Kind     TokenKind
	Location Span
}

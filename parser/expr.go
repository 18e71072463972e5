package parser

import (
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/lexer"
	"github.com/pontaoski/tawash/types"
)

// binary operator binding power, loosest first
var binaryPrec = map[types.TokenKind]int{
	types.OROR:    1,
	types.ANDAND:  2,
	types.EQEQ:    3,
	types.NOTEQ:   3,
	types.LT:      3,
	types.GT:      3,
	types.LE:      3,
	types.GE:      3,
	types.PIPE:    4,
	types.CARET:   5,
	types.AMP:     6,
	types.SHL:     7,
	types.SHR:     7,
	types.PLUS:    8,
	types.MINUS:   8,
	types.STAR:    9,
	types.SLASH:   9,
	types.PERCENT: 9,
	types.AS:      10,
}

var assignOps = []types.TokenKind{
	types.EQUALS,
	types.PLUSEQ,
	types.MINUSEQ,
	types.STAREQ,
	types.SLASHEQ,
	types.PERCENTEQ,
	types.CARETEQ,
	types.AMPEQ,
	types.PIPEEQ,
	types.SHLEQ,
	types.SHREQ,
}

func (p *Parser) parseExpr() ast.Expression {
	tok, _ := p.l.Peek()
	p.enter(tok.Location)
	defer p.leave()

	if p.l.PeekIs(types.DOTDOT, types.DOTDOTEQ) {
		return p.parseRangeFrom(nil, tok.Location.From)
	}
	return p.parseAssignFrom(p.parseBinary(1))
}

// parseExprNoStruct parses an expression in a position directly followed
// by a block, where `Name {` opens the block rather than a struct literal.
func (p *Parser) parseExprNoStruct() ast.Expression {
	saved := p.noStruct
	p.noStruct = true
	defer func() { p.noStruct = saved }()
	return p.parseExpr()
}

func (p *Parser) withStructs(f func() ast.Expression) ast.Expression {
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()
	return f()
}

func (p *Parser) parseAssignFrom(lhs ast.Expression) ast.Expression {
	if p.l.PeekIs(types.DOTDOT, types.DOTDOTEQ) {
		return p.parseRangeFrom(lhs, lhs.Location().From)
	}
	if p.l.PeekIs(assignOps...) {
		tok, _ := p.l.Lex()
		rhs := p.parseExpr()
		return &ast.Assign{
			Op:    tok.Kind,
			To:    lhs,
			Value: rhs,
			Pos:   types.Join(lhs.Location(), rhs.Location()),
		}
	}
	return lhs
}

func (p *Parser) parseRangeFrom(lhs ast.Expression, from types.Position) ast.Expression {
	tok, _ := p.l.LexExpecting(types.DOTDOT, types.DOTDOTEQ)
	r := &ast.Range{From: lhs, Inclusive: tok.Kind == types.DOTDOTEQ}
	if p.canStartExpr() {
		r.To = p.parseBinary(1)
	} else if r.Inclusive {
		p.expected("an upper bound for `..=`")
	}
	r.Pos = p.span(from)
	return r
}

func (p *Parser) canStartExpr() bool {
	tok, _ := p.l.Peek()
	switch tok.Kind {
	case types.EOS, types.RBRACKET, types.RPAREN, types.RSQUARE, types.COMMA, types.FATARROW, types.EOF, types.EQUALS:
		return false
	case types.LBRACKET:
		return !p.noStruct
	}
	return true
}

func (p *Parser) parseBinary(minPrec int) ast.Expression {
	return p.parseBinaryRest(p.parseUnary(), minPrec)
}

func (p *Parser) parseBinaryRest(lhs ast.Expression, minPrec int) ast.Expression {
	for {
		tok, _ := p.l.Peek()
		prec, ok := binaryPrec[tok.Kind]
		if !ok || prec < minPrec {
			return lhs
		}
		p.l.Lex()

		if tok.Kind == types.AS {
			to := p.parseType()
			lhs = &ast.Cast{X: lhs, To: to, Pos: types.Join(lhs.Location(), to.Location())}
			continue
		}

		rhs := p.parseBinary(prec + 1)
		lhs = &ast.Binary{Op: tok.Kind, X: lhs, Y: rhs, Pos: types.Join(lhs.Location(), rhs.Location())}

		if prec == binaryPrec[types.EQEQ] {
			if next, _ := p.l.Peek(); binaryPrec[next.Kind] == prec {
				panic(errors.SyntaxError{
					Expectation: "comparison operators cannot be chained; use parentheses",
					Location:    next.Location,
				})
			}
		}
	}
}

func (p *Parser) parseUnary() ast.Expression {
	tok, _ := p.l.Peek()
	switch tok.Kind {
	case types.MINUS, types.BANG, types.STAR:
		p.l.Lex()
		p.enter(tok.Location)
		defer p.leave()
		x := p.parseUnary()
		return &ast.Unary{Op: tok.Kind, X: x, Pos: types.Join(tok.Location, x.Location())}
	case types.AMP, types.ANDAND:
		p.l.Lex()
		p.enter(tok.Location)
		defer p.leave()
		mut := p.l.Accept(types.MUT)
		x := p.parseUnary()
		u := &ast.Unary{Op: types.AMP, Mut: mut, X: x, Pos: types.Join(tok.Location, x.Location())}
		if tok.Kind == types.ANDAND {
			return &ast.Unary{Op: types.AMP, X: u, Pos: u.Pos}
		}
		return u
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parseArgs(close types.TokenKind) []ast.Expression {
	var args []ast.Expression
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	for !p.l.PeekIs(close) {
		args = append(args, p.parseExpr())
		if p.l.PeekIs(close) {
			break
		}
		p.l.LexExpecting(types.COMMA, close)
	}
	p.l.LexExpecting(close)
	return args
}

func (p *Parser) parsePostfix(x ast.Expression) ast.Expression {
	from := x.Location().From
	for {
		tok, _ := p.l.Peek()
		switch tok.Kind {
		case types.QUESTION:
			p.l.Lex()
			x = &ast.Try{X: x, Pos: p.span(from)}
		case types.LPAREN:
			p.l.Lex()
			args := p.parseArgs(types.RPAREN)
			x = &ast.Call{Func: x, Args: args, Pos: p.span(from)}
		case types.LSQUARE:
			p.l.Lex()
			idx := p.withStructs(p.parseExpr)
			p.l.LexExpecting(types.RSQUARE)
			x = &ast.Index{Of: x, Index: idx, Pos: p.span(from)}
		case types.PERIOD:
			p.l.Lex()
			ftok, lit := p.l.LexExpecting(types.IDENT, types.INT, types.FLOAT, types.AWAIT)
			switch ftok.Kind {
			case types.AWAIT:
				unsupported(ftok.Location, "`.await`")
			case types.INT:
				x = &ast.Field{Of: x, Ident: ast.Identifier{Name: lit, Pos: ftok.Location}, Pos: p.span(from)}
			case types.FLOAT:
				// `t.0.1` lexes its indexes as one float literal
				for _, part := range strings.Split(lit, ".") {
					if _, err := strconv.Atoi(part); err != nil {
						panic(errors.SyntaxError{Expectation: "invalid tuple index " + lit, Location: ftok.Location})
					}
					x = &ast.Field{Of: x, Ident: ast.Identifier{Name: part, Pos: ftok.Location}, Pos: p.span(from)}
				}
			case types.IDENT:
				ident := ast.Identifier{Name: lit, Pos: ftok.Location}
				var turbofish []ast.Type
				if p.l.Accept(types.PATHSEP) {
					p.l.LexExpecting(types.LT)
					for {
						turbofish = append(turbofish, p.parseType())
						p.l.SplitGT()
						if p.l.Accept(types.GT) {
							break
						}
						p.l.LexExpecting(types.COMMA)
					}
					if !p.l.PeekIs(types.LPAREN) {
						p.expected("'(' after method turbofish")
					}
				}
				if p.l.Accept(types.LPAREN) {
					args := p.parseArgs(types.RPAREN)
					x = &ast.MethodCall{Recv: x, Method: ident, Turbofish: turbofish, Args: args, Pos: p.span(from)}
				} else {
					x = &ast.Field{Of: x, Ident: ident, Pos: p.span(from)}
				}
			}
		default:
			return x
		}
	}
}

func startsBlockLike(l *lexer.Lexer) bool {
	return l.PeekIs(types.IF, types.MATCH, types.LOOP, types.WHILE, types.FOR, types.LBRACKET, types.LIFETIME, types.UNSAFE)
}

func isBlockLike(x ast.Expression) bool {
	switch x.(type) {
	case *ast.Block, *ast.If, *ast.Match, *ast.Loop, *ast.While, *ast.For:
		return true
	}
	return false
}

func (p *Parser) parseBlockLike() ast.Expression {
	tok, lit := p.l.Lex()
	from := tok.Location.From

	label := ""
	if tok.Kind == types.LIFETIME {
		label = lit
		p.l.LexExpecting(types.COLON)
		tok, _ = p.l.Lex()
		if tok.Kind == types.LBRACKET {
			unsupported(tok.Location, "labeled block")
		}
		if tok.Kind != types.LOOP && tok.Kind != types.WHILE && tok.Kind != types.FOR {
			panic(errors.ExpectedOneOfKindGotKind{
				Expected: []types.TokenKind{types.LOOP, types.WHILE, types.FOR},
				Got:      tok.Kind,
				Location: tok.Location,
			})
		}
	}

	switch tok.Kind {
	case types.LBRACKET:
		return p.parseBlock(from)
	case types.UNSAFE:
		unsupported(tok.Location, "unsafe block")
	case types.IF:
		return p.parseIf(from)
	case types.LOOP:
		open, _ := p.l.LexExpecting(types.LBRACKET)
		body := p.parseBlock(open.Location.From)
		return &ast.Loop{Label: label, Body: body, Pos: p.span(from)}
	case types.WHILE:
		cond := p.parseCond()
		open, _ := p.l.LexExpecting(types.LBRACKET)
		body := p.parseBlock(open.Location.From)
		return &ast.While{Label: label, Cond: cond, Body: body, Pos: p.span(from)}
	case types.FOR:
		pat := p.parsePattern()
		p.l.LexExpecting(types.IN)
		iter := p.parseExprNoStruct()
		open, _ := p.l.LexExpecting(types.LBRACKET)
		body := p.parseBlock(open.Location.From)
		return &ast.For{Label: label, Pat: pat, Iter: iter, Body: body, Pos: p.span(from)}
	case types.MATCH:
		return p.parseMatch(from)
	}
	panic(errors.SyntaxError{Expectation: "expected a block expression", Location: tok.Location})
}

// parseCond parses the condition of `if` and `while`, including the
// `let PAT = EXPR` form.
func (p *Parser) parseCond() ast.Expression {
	tok, _ := p.l.Peek()
	if tok.Kind != types.LET {
		return p.parseExprNoStruct()
	}
	p.l.Lex()
	pat := p.parsePattern()
	p.l.LexExpecting(types.EQUALS)
	saved := p.noStruct
	p.noStruct = true
	value := p.parseBinary(binaryPrec[types.ANDAND] + 1)
	p.noStruct = saved
	if next, _ := p.l.Peek(); next.Kind == types.ANDAND || next.Kind == types.OROR {
		unsupported(next.Location, "let chain")
	}
	return &ast.LetCond{Pat: pat, Value: value, Pos: p.span(tok.Location.From)}
}

func (p *Parser) parseIf(from types.Position) ast.Expression {
	cond := p.parseCond()
	open, _ := p.l.LexExpecting(types.LBRACKET)
	then := p.parseBlock(open.Location.From)
	n := &ast.If{Cond: cond, Then: then}
	if p.l.Accept(types.ELSE) {
		tok, _ := p.l.LexExpecting(types.IF, types.LBRACKET)
		if tok.Kind == types.IF {
			n.Else = p.parseIf(tok.Location.From)
		} else {
			n.Else = p.parseBlock(tok.Location.From)
		}
	}
	n.Pos = p.span(from)
	return n
}

func (p *Parser) parseMatch(from types.Position) ast.Expression {
	m := &ast.Match{Scrutinee: p.parseExprNoStruct()}
	p.l.LexExpecting(types.LBRACKET)
	for !p.l.PeekIs(types.RBRACKET) {
		for p.l.PeekIs(types.HASH) {
			p.skipAttribute()
		}
		start, _ := p.l.Peek()
		arm := ast.Arm{Pat: p.parsePattern()}
		if p.l.Accept(types.IF) {
			arm.Guard = p.parseExpr()
		}
		p.l.LexExpecting(types.FATARROW)
		if p.l.PeekIs(types.LBRACKET) {
			arm.Body = p.parseBlockLike()
		} else {
			arm.Body = p.parseExpr()
		}
		arm.Pos = p.span(start.Location.From)
		m.Arms = append(m.Arms, arm)

		if p.l.Accept(types.COMMA) || p.l.PeekIs(types.RBRACKET) {
			continue
		}
		if !isBlockLike(arm.Body) {
			p.l.LexExpecting(types.COMMA, types.RBRACKET)
		}
	}
	p.l.LexExpecting(types.RBRACKET)
	m.Pos = p.span(from)
	return m
}

func parseIntLit(tok types.Token, lit string) *ast.IntLit {
	digits := strings.ReplaceAll(lit, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0o"):
		base, digits = 8, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		panic(errors.SyntaxError{
			Expectation: "integer literal `" + lit + "` is out of range",
			Location:    tok.Location,
		})
	}
	return &ast.IntLit{Value: v, Raw: lit, Pos: tok.Location}
}

func (p *Parser) parsePrimary() ast.Expression {
	if startsBlockLike(p.l) {
		return p.parseBlockLike()
	}

	tok, lit := p.l.Lex()
	switch tok.Kind {
	case types.INT:
		return parseIntLit(tok, lit)
	case types.FLOAT:
		unsupported(tok.Location, "floating-point literal")
	case types.TRUE, types.FALSE:
		return &ast.BoolLit{Value: tok.Kind == types.TRUE, Pos: tok.Location}
	case types.STRING:
		return &ast.StrLit{Value: lit, Pos: tok.Location}
	case types.BYTESTRING:
		return &ast.StrLit{Value: lit, Byte: true, Pos: tok.Location}
	case types.CHAR:
		return &ast.CharLit{Value: []rune(lit)[0], Pos: tok.Location}
	case types.BYTE:
		return &ast.CharLit{Value: []rune(lit)[0], Byte: true, Pos: tok.Location}
	case types.PIPE, types.OROR, types.MOVE:
		unsupported(tok.Location, "closure")
	case types.ASYNC:
		unsupported(tok.Location, "async block")
	case types.LPAREN:
		saved := p.noStruct
		p.noStruct = false
		defer func() { p.noStruct = saved }()
		t := &ast.Tuple{}
		trailingComma := false
		for !p.l.PeekIs(types.RPAREN) {
			t.Elems = append(t.Elems, p.parseExpr())
			trailingComma = false
			if p.l.PeekIs(types.RPAREN) {
				break
			}
			p.l.LexExpecting(types.COMMA, types.RPAREN)
			trailingComma = true
		}
		p.l.LexExpecting(types.RPAREN)
		if len(t.Elems) == 1 && !trailingComma {
			return t.Elems[0]
		}
		t.Pos = p.span(tok.Location.From)
		return t
	case types.LSQUARE:
		return p.parseArrayBody(tok.Location.From, types.RSQUARE)
	case types.BREAK:
		b := &ast.Break{}
		if ltok, lit := p.l.Peek(); ltok.Kind == types.LIFETIME {
			p.l.Lex()
			b.Label = lit
		}
		if p.canStartExpr() {
			b.Value = p.parseExpr()
		}
		b.Pos = p.span(tok.Location.From)
		return b
	case types.CONTINUE:
		c := &ast.Continue{}
		if ltok, lit := p.l.Peek(); ltok.Kind == types.LIFETIME {
			p.l.Lex()
			c.Label = lit
		}
		c.Pos = p.span(tok.Location.From)
		return c
	case types.RETURN:
		r := &ast.Return{}
		if p.canStartExpr() {
			r.Value = p.parseExpr()
		}
		r.Pos = p.span(tok.Location.From)
		return r
	case types.IDENT, types.PATHSEP:
		return p.parsePathExpr(tok, lit)
	}

	panic(errors.SyntaxError{
		Expectation: "expected an expression, got " + tok.Kind.String(),
		Location:    tok.Location,
	})
}

// parseArrayBody parses `a, b, c` or `x; n` up to the closing token.
func (p *Parser) parseArrayBody(from types.Position, close types.TokenKind) ast.Expression {
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	if p.l.Accept(close) {
		return &ast.ArrayLit{Pos: p.span(from)}
	}
	first := p.parseExpr()
	if p.l.Accept(types.EOS) {
		count := p.parseExpr()
		p.l.LexExpecting(close)
		return &ast.ArrayRepeat{Value: first, Count: count, Pos: p.span(from)}
	}
	elems := []ast.Expression{first}
	for p.l.Accept(types.COMMA) {
		if p.l.PeekIs(close) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.l.LexExpecting(close)
	return &ast.ArrayLit{Elems: elems, Pos: p.span(from)}
}

func (p *Parser) parsePathExpr(first types.Token, lit string) ast.Expression {
	from := first.Location.From
	var segs []string
	if first.Kind == types.PATHSEP {
		_, lit = p.l.LexExpecting(types.IDENT)
	}
	if strings.HasPrefix(lit, "r#") {
		unsupported(first.Location, "raw identifier `"+lit+"`")
	}
	segs = append(segs, lit)
	for p.l.PeekIs(types.PATHSEP) {
		p.l.Lex()
		if tok, _ := p.l.Peek(); tok.Kind == types.LT {
			unsupported(tok.Location, "generic path arguments")
		}
		_, seg := p.l.LexExpecting(types.IDENT)
		segs = append(segs, seg)
	}
	at := p.span(from)
	checkConcurrency(segs, at)

	if len(segs) == 1 && p.l.PeekIs(types.BANG) && p.l.PeekAtIs(1, types.LPAREN, types.LSQUARE, types.LBRACKET) {
		p.l.Lex()
		return p.parseMacro(segs[0], from)
	}

	if p.l.PeekIs(types.LBRACKET) && !p.noStruct {
		return p.parseStructLit(segs, from)
	}
	return &ast.Path{Segments: segs, Pos: at}
}

func checkConcurrency(segs []string, at types.Span) {
	for i, s := range segs {
		switch s {
		case "thread":
			if i+1 < len(segs) && segs[i+1] != "sleep" {
				unsupported(at, "thread `"+strings.Join(segs, "::")+"`")
			}
		case "sync", "mpsc":
			unsupported(at, "concurrency primitive `"+strings.Join(segs, "::")+"`")
		}
	}
}

func (p *Parser) parseStructLit(path []string, from types.Position) ast.Expression {
	p.l.LexExpecting(types.LBRACKET)
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	s := &ast.StructLit{Path: path}
	seen := map[string]bool{}
	for !p.l.PeekIs(types.RBRACKET) {
		if tok, _ := p.l.Peek(); tok.Kind == types.DOTDOT {
			unsupported(tok.Location, "struct update syntax")
		}
		ident := p.parseIdent()
		if seen[ident.Name] {
			panic(errors.DuplicateField{
				Name:     ident.Name,
				Location: ident.Pos,
			})
		}
		seen[ident.Name] = true

		var value ast.Expression
		if p.l.Accept(types.COLON) {
			value = p.parseExpr()
		} else {
			value = &ast.Path{Segments: []string{ident.Name}, Pos: ident.Pos}
		}
		s.Fields = append(s.Fields, ast.FieldInit{Ident: ident, Value: value})

		if p.l.PeekIs(types.RBRACKET) {
			break
		}
		p.l.LexExpecting(types.COMMA, types.RBRACKET)
	}
	p.l.LexExpecting(types.RBRACKET)
	s.Pos = p.span(from)
	return s
}

var printMacros = map[string]bool{
	"println":  true,
	"print":    true,
	"eprintln": true,
	"eprint":   true,
	"format":   true,
}

var knownMacros = []string{
	"println", "print", "eprintln", "eprint", "format", "vec",
	"assert", "assert_eq", "assert_ne", "panic", "unreachable",
}

func closerOf(k types.TokenKind) types.TokenKind {
	switch k {
	case types.LPAREN:
		return types.RPAREN
	case types.LSQUARE:
		return types.RSQUARE
	}
	return types.RBRACKET
}

// parseMacro is called past the `!`.
func (p *Parser) parseMacro(name string, from types.Position) ast.Expression {
	open, _ := p.l.Lex()
	close := closerOf(open.Kind)
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	m := &ast.MacroCall{Name: name}
	switch {
	case name == "vec":
		return p.parseArrayBody(from, close)
	case printMacros[name]:
		if p.l.PeekIs(close) && (name == "println" || name == "eprintln") {
			p.l.Lex()
			m.Format = &ast.Format{Pieces: []ast.FormatPiece{}}
		} else {
			m.Format = p.parseFormatArgs(close)
		}
	case name == "panic" || name == "unreachable":
		if !p.l.Accept(close) {
			m.Format = p.parseFormatArgs(close)
		}
	case name == "assert" || name == "assert_eq" || name == "assert_ne":
		operands := 1
		if name != "assert" {
			operands = 2
		}
		for i := 0; i < operands; i++ {
			start, _ := p.l.Peek()
			m.Args = append(m.Args, p.parseExpr())
			if i == 0 {
				m.Text = p.l.Slice(start.Location.From.Offset, p.l.Last().To.Offset)
			}
			if i < operands-1 {
				p.l.LexExpecting(types.COMMA)
			}
		}
		if p.l.Accept(types.COMMA) && !p.l.PeekIs(close) {
			m.Format = p.parseFormatArgs(close)
		} else {
			p.l.LexExpecting(close)
		}
	default:
		construct := "macro `" + name + "!`"
		if s := suggest(name, knownMacros); s != "" {
			panic(errors.UnsupportedConstructError{
				Construct:  construct,
				Suggestion: s + "!",
				Location:   p.span(from),
			})
		}
		unsupported(p.span(from), construct)
	}
	m.Pos = p.span(from)
	return m
}

// parseFormatArgs parses `"fmt", args...` and the closing delimiter.
func (p *Parser) parseFormatArgs(close types.TokenKind) *ast.Format {
	tok, text := p.l.LexExpecting(types.STRING)
	var args []formatArg
	for p.l.Accept(types.COMMA) {
		if p.l.PeekIs(close) {
			break
		}
		var a formatArg
		if p.l.PeekIs(types.IDENT) && p.l.PeekAtIs(1, types.EQUALS) {
			_, a.name = p.l.Lex()
			p.l.Lex()
		}
		a.value = p.parseExpr()
		args = append(args, a)
	}
	p.l.LexExpecting(close)
	return parseFormat(text, tok.Location, args)
}

// suggest returns the closest candidate to name, if any is close enough.
func suggest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

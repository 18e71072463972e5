package parser

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/types"
)

func (p *Parser) parsePattern() ast.Pattern {
	tok, _ := p.l.Peek()
	p.enter(tok.Location)
	defer p.leave()

	p.l.Accept(types.PIPE)
	first := p.parsePatternAlt()
	if !p.l.PeekIs(types.PIPE) {
		return first
	}
	or := &ast.OrPat{Alts: []ast.Pattern{first}}
	for p.l.Accept(types.PIPE) {
		or.Alts = append(or.Alts, p.parsePatternAlt())
	}
	or.Pos = p.span(tok.Location.From)
	return or
}

func (p *Parser) parseLitPat() *ast.LitPat {
	tok, lit := p.l.Lex()
	pat := &ast.LitPat{}
	if tok.Kind == types.MINUS {
		pat.Neg = true
		tok, lit = p.l.LexExpecting(types.INT, types.FLOAT)
	}
	switch tok.Kind {
	case types.INT:
		pat.Value = parseIntLit(tok, lit)
	case types.FLOAT:
		unsupported(tok.Location, "floating-point literal")
	case types.STRING:
		pat.Value = &ast.StrLit{Value: lit, Pos: tok.Location}
	case types.BYTESTRING:
		pat.Value = &ast.StrLit{Value: lit, Byte: true, Pos: tok.Location}
	case types.CHAR:
		pat.Value = &ast.CharLit{Value: []rune(lit)[0], Pos: tok.Location}
	case types.BYTE:
		pat.Value = &ast.CharLit{Value: []rune(lit)[0], Byte: true, Pos: tok.Location}
	case types.TRUE, types.FALSE:
		pat.Value = &ast.BoolLit{Value: tok.Kind == types.TRUE, Pos: tok.Location}
	default:
		panic(errors.SyntaxError{Expectation: "expected a literal pattern, got " + tok.Kind.String(), Location: tok.Location})
	}
	if pat.Neg {
		if _, ok := pat.Value.(*ast.IntLit); !ok {
			panic(errors.SyntaxError{Expectation: "only integers can be negated in patterns", Location: tok.Location})
		}
	}
	pat.Pos = p.span(tok.Location.From)
	return pat
}

func (p *Parser) parsePatternAlt() ast.Pattern {
	tok, _ := p.l.Peek()
	from := tok.Location.From

	switch tok.Kind {
	case types.UNDERSCORE:
		p.l.Lex()
		return &ast.WildcardPat{Pos: tok.Location}
	case types.REF:
		unsupported(tok.Location, "`ref` binding")
	case types.AMP:
		p.l.Lex()
		return p.parsePatternAlt()
	case types.LSQUARE:
		unsupported(tok.Location, "slice pattern")
	case types.DOTDOT:
		unsupported(tok.Location, "rest pattern")
	case types.MUT:
		p.l.Lex()
		ident := p.parseIdent()
		return &ast.BindPat{Ident: ident, Mut: true}
	case types.INT, types.FLOAT, types.MINUS, types.STRING, types.BYTESTRING, types.CHAR, types.BYTE, types.TRUE, types.FALSE:
		lo := p.parseLitPat()
		if !p.l.PeekIs(types.DOTDOT, types.DOTDOTEQ) {
			return lo
		}
		rtok, _ := p.l.Lex()
		if !p.l.PeekIs(types.INT, types.MINUS, types.CHAR, types.BYTE) {
			unsupported(p.span(from), "half-open range pattern")
		}
		hi := p.parseLitPat()
		return &ast.RangePat{From: lo, To: hi, Inclusive: rtok.Kind == types.DOTDOTEQ, Pos: p.span(from)}
	case types.LPAREN:
		p.l.Lex()
		t := &ast.TuplePat{}
		trailingComma := false
		for !p.l.PeekIs(types.RPAREN) {
			t.Elems = append(t.Elems, p.parsePattern())
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
		t.Pos = p.span(from)
		return t
	case types.IDENT, types.PATHSEP:
	default:
		p.expected("a pattern")
	}

	var path []string
	p.l.Accept(types.PATHSEP)
	for {
		seg := p.parseIdent()
		path = append(path, seg.Name)
		if !p.l.Accept(types.PATHSEP) {
			break
		}
	}

	switch {
	case p.l.PeekIs(types.LPAREN):
		p.l.Lex()
		v := &ast.VariantPat{Path: path, Args: []ast.Pattern{}}
		for !p.l.PeekIs(types.RPAREN) {
			v.Args = append(v.Args, p.parsePattern())
			if p.l.PeekIs(types.RPAREN) {
				break
			}
			p.l.LexExpecting(types.COMMA, types.RPAREN)
		}
		p.l.LexExpecting(types.RPAREN)
		v.Pos = p.span(from)
		return v
	case p.l.PeekIs(types.LBRACKET):
		return p.parseStructPat(path, from)
	case len(path) == 1 && p.l.PeekIs(types.AT):
		p.l.Lex()
		ident := ast.Identifier{Name: path[0], Pos: tok.Location}
		return &ast.BindPat{Ident: ident, Sub: p.parsePatternAlt()}
	case len(path) > 1:
		return &ast.VariantPat{Path: path, Pos: p.span(from)}
	}
	return &ast.BindPat{Ident: ast.Identifier{Name: path[0], Pos: tok.Location}}
}

func (p *Parser) parseStructPat(path []string, from types.Position) ast.Pattern {
	p.l.LexExpecting(types.LBRACKET)
	s := &ast.StructPat{Path: path}
	seen := map[string]bool{}
	for !p.l.PeekIs(types.RBRACKET) {
		if p.l.Accept(types.DOTDOT) {
			s.Rest = true
			break
		}
		mut := p.l.Accept(types.MUT)
		ident := p.parseIdent()
		if seen[ident.Name] {
			panic(errors.DuplicateField{
				Name:     ident.Name,
				Location: ident.Pos,
			})
		}
		seen[ident.Name] = true

		field := ast.FieldPat{Ident: ident}
		if !mut && p.l.Accept(types.COLON) {
			field.Pat = p.parsePattern()
		} else {
			field.Pat = &ast.BindPat{Ident: ident, Mut: mut}
		}
		s.Fields = append(s.Fields, field)

		if p.l.PeekIs(types.RBRACKET) {
			break
		}
		p.l.LexExpecting(types.COMMA, types.RBRACKET)
	}
	p.l.LexExpecting(types.RBRACKET)
	s.Pos = p.span(from)
	return s
}

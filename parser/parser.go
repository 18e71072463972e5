package parser

import (
	"io"
	"runtime"
	"strings"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/lexer"
	"github.com/pontaoski/tawash/types"
	"github.com/ztrue/tracerr"
)

// DefaultMaxDepth bounds how deeply expressions, blocks, patterns and
// types may nest.
const DefaultMaxDepth = 256

type Parser struct {
	l        *lexer.Lexer
	MaxDepth int

	depth    int
	noStruct bool
}

func NewParser(l *lexer.Lexer) Parser {
	return Parser{l: l, MaxDepth: DefaultMaxDepth}
}

// Parse reads a whole source file.
func Parse(src io.Reader, filename string) (*ast.File, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return ParseString(string(data), filename)
}

func ParseString(src string, filename string) (*ast.File, error) {
	p := NewParser(lexer.NewLexerString(src, filename))
	return p.Parse()
}

func (p *Parser) Parse() (file *ast.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			rerr, ok := r.(error)
			if ok {
				file = nil
				err = tracerr.Wrap(rerr)
			} else {
				panic(r)
			}
		}
	}()

	file = &ast.File{Filename: p.l.Filename()}
	for !p.l.PeekIs(types.EOF) {
		file.Items = append(file.Items, p.parseItem()...)
	}
	return file, nil
}

func (p *Parser) enter(at types.Span) {
	p.depth++
	if p.MaxDepth > 0 && p.depth > p.MaxDepth {
		panic(errors.RecursionLimitExceeded{
			Stage:    "parse",
			Limit:    p.MaxDepth,
			Location: at,
		})
	}
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) span(from types.Position) types.Span {
	return types.Span{From: from, To: p.l.Last().To}
}

func unsupported(at types.Span, construct string) {
	panic(errors.UnsupportedConstructError{Construct: construct, Location: at})
}

func (p *Parser) expected(what string) {
	tok, _ := p.l.Peek()
	panic(errors.SyntaxError{
		Expectation: "expected " + what + ", got " + tok.Kind.String(),
		Location:    tok.Location,
	})
}

// skipAttribute consumes `#[...]` or `#![...]`.
func (p *Parser) skipAttribute() {
	p.l.LexExpecting(types.HASH)
	p.l.Accept(types.BANG)
	p.l.LexExpecting(types.LSQUARE)
	depth := 1
	for depth > 0 {
		tok, _ := p.l.Lex()
		switch tok.Kind {
		case types.LSQUARE:
			depth++
		case types.RSQUARE:
			depth--
		case types.EOF:
			panic(errors.SyntaxError{Expectation: "unterminated attribute", Location: tok.Location})
		}
	}
}

func (p *Parser) skipVisibility() {
	if !p.l.Accept(types.PUB) {
		return
	}
	if p.l.PeekIs(types.LPAREN) {
		p.l.LexExpecting(types.LPAREN)
		for !p.l.Accept(types.RPAREN) {
			if tok, _ := p.l.Lex(); tok.Kind == types.EOF {
				p.expected("')'")
			}
		}
	}
}

var unsupportedItems = map[types.TokenKind]string{
	types.IMPL:   "impl block",
	types.TRAIT:  "trait",
	types.MOD:    "module",
	types.STATIC: "static item",
	types.EXTERN: "extern block",
	types.TYPE:   "type alias",
	types.ASYNC:  "async function",
	types.UNSAFE: "unsafe function",
}

func (p *Parser) parseItem() []ast.Item {
	for p.l.PeekIs(types.HASH) {
		p.skipAttribute()
	}
	p.skipVisibility()

	tok, lit := p.l.Peek()
	if construct, ok := unsupportedItems[tok.Kind]; ok {
		unsupported(tok.Location, construct)
	}

	switch tok.Kind {
	case types.FN:
		p.l.Lex()
		return []ast.Item{p.parseFunc(tok.Location.From)}
	case types.CONST:
		p.l.Lex()
		return []ast.Item{p.parseConst(tok.Location.From)}
	case types.STRUCT:
		p.l.Lex()
		return []ast.Item{p.parseStruct(tok.Location.From)}
	case types.ENUM:
		p.l.Lex()
		return []ast.Item{p.parseEnum(tok.Location.From)}
	case types.USE:
		p.l.Lex()
		var uses []ast.Item
		p.parseUseTree(nil, &uses)
		p.l.LexExpecting(types.EOS)
		return uses
	case types.IDENT:
		if lit == "macro_rules" {
			unsupported(tok.Location, "macro_rules! definition")
		}
	}

	panic(errors.ExpectedOneOfKindGotKind{
		Expected: []types.TokenKind{types.FN, types.CONST, types.STRUCT, types.ENUM, types.USE},
		Got:      tok.Kind,
		Location: tok.Location,
	})
}

func (p *Parser) parseIdent() ast.Identifier {
	tok, name := p.l.LexExpecting(types.IDENT)
	if strings.HasPrefix(name, "r#") {
		unsupported(tok.Location, "raw identifier `"+name+"`")
	}
	return ast.Identifier{Name: name, Pos: tok.Location}
}

func (p *Parser) rejectGenerics(what string) {
	if tok, _ := p.l.Peek(); tok.Kind == types.LT {
		unsupported(tok.Location, "generic "+what)
	}
}

func (p *Parser) parseFunc(from types.Position) *ast.Func {
	f := &ast.Func{Ident: p.parseIdent()}
	p.rejectGenerics("function `" + f.Ident.Name + "`")

	p.l.LexExpecting(types.LPAREN)
	for !p.l.PeekIs(types.RPAREN) {
		f.Params = append(f.Params, p.parseParam())
		if p.l.PeekIs(types.RPAREN) {
			break
		}
		p.l.LexExpecting(types.COMMA, types.RPAREN)
	}
	p.l.LexExpecting(types.RPAREN)

	if p.l.Accept(types.ARROW) {
		f.Returns = p.parseType()
	}
	if tok, _ := p.l.Peek(); tok.Kind == types.WHERE {
		unsupported(tok.Location, "where clause")
	}
	open, _ := p.l.LexExpecting(types.LBRACKET)
	f.Body = p.parseBlock(open.Location.From)
	f.Pos = p.span(from)
	return f
}

func (p *Parser) parseParam() ast.Param {
	for p.l.PeekIs(types.HASH) {
		p.skipAttribute()
	}
	var param ast.Param
	tok, lit := p.l.Peek()
	if tok.Kind == types.AMP || (tok.Kind == types.IDENT && lit == "self") || (tok.Kind == types.MUT && p.l.PeekAtIs(1, types.IDENT) && isSelf(p.l, 1)) {
		unsupported(tok.Location, "method receiver `self`")
	}
	param.Mut = p.l.Accept(types.MUT)
	if p.l.PeekIs(types.UNDERSCORE) {
		tok, _ := p.l.Lex()
		param.Ident = ast.Identifier{Name: "_", Pos: tok.Location}
	} else {
		param.Ident = p.parseIdent()
	}
	p.l.LexExpecting(types.COLON)
	param.Kind = p.parseType()
	return param
}

func isSelf(l *lexer.Lexer, n int) bool {
	_, lit := l.PeekAt(n)
	return lit == "self"
}

func (p *Parser) parseConst(from types.Position) *ast.Const {
	c := &ast.Const{Ident: p.parseIdent()}
	p.l.LexExpecting(types.COLON)
	c.Kind = p.parseType()
	p.l.LexExpecting(types.EQUALS)
	c.Value = p.parseExpr()
	p.l.LexExpecting(types.EOS)
	c.Pos = p.span(from)
	return c
}

func (p *Parser) parseStruct(from types.Position) *ast.StructDecl {
	s := &ast.StructDecl{Ident: p.parseIdent()}
	p.rejectGenerics("struct `" + s.Ident.Name + "`")

	if tok, _ := p.l.Peek(); tok.Kind == types.LPAREN {
		unsupported(tok.Location, "tuple struct `"+s.Ident.Name+"`")
	}
	if p.l.Accept(types.EOS) {
		s.Pos = p.span(from)
		return s
	}

	seen := map[string]bool{}
	p.l.LexExpecting(types.LBRACKET)
	for !p.l.PeekIs(types.RBRACKET) {
		for p.l.PeekIs(types.HASH) {
			p.skipAttribute()
		}
		p.skipVisibility()
		field := ast.StructField{Ident: p.parseIdent()}
		if seen[field.Ident.Name] {
			panic(errors.DuplicateField{
				Name:     field.Ident.Name,
				Location: field.Ident.Pos,
			})
		}
		seen[field.Ident.Name] = true
		p.l.LexExpecting(types.COLON)
		field.Kind = p.parseType()
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

func (p *Parser) parseEnum(from types.Position) *ast.EnumDecl {
	e := &ast.EnumDecl{Ident: p.parseIdent()}
	p.rejectGenerics("enum `" + e.Ident.Name + "`")

	seen := map[string]bool{}
	p.l.LexExpecting(types.LBRACKET)
	for !p.l.PeekIs(types.RBRACKET) {
		for p.l.PeekIs(types.HASH) {
			p.skipAttribute()
		}
		v := ast.Variant{Ident: p.parseIdent()}
		if seen[v.Ident.Name] {
			panic(errors.DuplicateField{
				Name:     v.Ident.Name,
				Location: v.Ident.Pos,
			})
		}
		seen[v.Ident.Name] = true

		tok, _ := p.l.Peek()
		switch tok.Kind {
		case types.LPAREN:
			p.l.Lex()
			v.Payload = p.parseType()
			if tok, _ := p.l.Peek(); tok.Kind == types.COMMA && !p.l.PeekAtIs(1, types.RPAREN) {
				unsupported(tok.Location, "enum variant with more than one field")
			}
			p.l.Accept(types.COMMA)
			p.l.LexExpecting(types.RPAREN)
		case types.LBRACKET:
			unsupported(tok.Location, "struct-like enum variant")
		case types.EQUALS:
			unsupported(tok.Location, "explicit enum discriminant")
		}
		e.Variants = append(e.Variants, v)

		if p.l.PeekIs(types.RBRACKET) {
			break
		}
		p.l.LexExpecting(types.COMMA, types.RBRACKET)
	}
	p.l.LexExpecting(types.RBRACKET)
	e.Pos = p.span(from)
	return e
}

// parseUseTree flattens `a::b::{c, d as e, f::*}` into one Use per leaf.
func (p *Parser) parseUseTree(prefix []string, out *[]ast.Item) {
	from, _ := p.l.Peek()
	path := append([]string(nil), prefix...)
	p.l.Accept(types.PATHSEP)
	for {
		tok, lit := p.l.Peek()
		switch tok.Kind {
		case types.IDENT:
			p.l.Lex()
			path = append(path, lit)
		case types.STAR:
			p.l.Lex()
			*out = append(*out, &ast.Use{Path: path, Glob: true, Pos: p.span(from.Location.From)})
			return
		case types.LBRACKET:
			p.l.Lex()
			for !p.l.PeekIs(types.RBRACKET) {
				p.parseUseTree(path, out)
				if p.l.PeekIs(types.RBRACKET) {
					break
				}
				p.l.LexExpecting(types.COMMA, types.RBRACKET)
			}
			p.l.LexExpecting(types.RBRACKET)
			return
		default:
			p.expected("a path in use declaration")
		}

		if !p.l.Accept(types.PATHSEP) {
			break
		}
	}

	u := &ast.Use{Path: path}
	if p.l.Accept(types.AS) {
		if p.l.Accept(types.UNDERSCORE) {
			u.Alias = "_"
		} else {
			u.Alias = p.parseIdent().Name
		}
	}
	u.Pos = p.span(from.Location.From)
	*out = append(*out, u)
}

var heapTypes = map[string]bool{
	"Box":        true,
	"Rc":         true,
	"Arc":        true,
	"RefCell":    true,
	"Cell":       true,
	"HashMap":    true,
	"HashSet":    true,
	"BTreeMap":   true,
	"BTreeSet":   true,
	"LinkedList": true,
	"VecDeque":   true,
	"BinaryHeap": true,
	"Mutex":      true,
	"RwLock":     true,
}

func (p *Parser) parseType() ast.Type {
	tok, _ := p.l.Peek()
	p.enter(tok.Location)
	defer p.leave()

	switch tok.Kind {
	case types.AMP, types.ANDAND:
		p.l.Lex()
		if tok.Kind == types.ANDAND {
			inner := p.parseRefTail(tok.Location.From)
			return &ast.RefType{Elem: inner, Pos: p.span(tok.Location.From)}
		}
		return p.parseRefTail(tok.Location.From)
	case types.LSQUARE:
		p.l.Lex()
		elem := p.parseType()
		if p.l.Accept(types.EOS) {
			n := p.parseExpr()
			p.l.LexExpecting(types.RSQUARE)
			return &ast.ArrayType{Elem: elem, Len: n, Pos: p.span(tok.Location.From)}
		}
		p.l.LexExpecting(types.RSQUARE)
		return &ast.SliceType{Elem: elem, Pos: p.span(tok.Location.From)}
	case types.LPAREN:
		p.l.Lex()
		t := &ast.TupleType{}
		for !p.l.PeekIs(types.RPAREN) {
			t.Elems = append(t.Elems, p.parseType())
			if p.l.PeekIs(types.RPAREN) {
				break
			}
			p.l.LexExpecting(types.COMMA, types.RPAREN)
		}
		p.l.LexExpecting(types.RPAREN)
		t.Pos = p.span(tok.Location.From)
		if len(t.Elems) == 1 {
			return t.Elems[0]
		}
		return t
	case types.BANG:
		p.l.Lex()
		return &ast.NeverType{Pos: tok.Location}
	case types.FN:
		unsupported(tok.Location, "function pointer type")
	case types.IMPL:
		unsupported(tok.Location, "impl Trait type")
	case types.DYN:
		unsupported(tok.Location, "trait object type")
	case types.UNDERSCORE:
		unsupported(tok.Location, "inferred type `_`")
	case types.IDENT, types.PATHSEP:
	default:
		p.expected("a type")
	}

	t := &ast.PathType{}
	p.l.Accept(types.PATHSEP)
	for {
		seg := p.parseIdent()
		t.Path = append(t.Path, seg.Name)
		switch seg.Name {
		case "f32", "f64":
			unsupported(seg.Pos, "floating-point type `"+seg.Name+"`")
		case "Self":
			unsupported(seg.Pos, "`Self` type")
		}
		if heapTypes[seg.Name] {
			unsupported(seg.Pos, "heap-allocated type `"+seg.Name+"`")
		}
		if !p.l.Accept(types.PATHSEP) {
			break
		}
	}
	if p.l.Accept(types.LT) {
		for {
			if ltok, _ := p.l.Peek(); ltok.Kind == types.LIFETIME {
				unsupported(ltok.Location, "lifetime parameter")
			}
			t.Args = append(t.Args, p.parseType())
			p.l.SplitGT()
			if p.l.Accept(types.GT) {
				break
			}
			p.l.LexExpecting(types.COMMA)
			p.l.SplitGT()
			if p.l.Accept(types.GT) {
				break
			}
		}
	}
	t.Pos = p.span(tok.Location.From)
	return t
}

func (p *Parser) parseRefTail(from types.Position) ast.Type {
	if tok, _ := p.l.Peek(); tok.Kind == types.LIFETIME {
		unsupported(tok.Location, "lifetime annotation")
	}
	mut := p.l.Accept(types.MUT)
	elem := p.parseType()
	return &ast.RefType{Mut: mut, Elem: elem, Pos: p.span(from)}
}

var nestedItems = map[types.TokenKind]bool{
	types.FN:     true,
	types.STRUCT: true,
	types.ENUM:   true,
	types.CONST:  true,
	types.USE:    true,
	types.IMPL:   true,
	types.TRAIT:  true,
	types.MOD:    true,
	types.STATIC: true,
	types.EXTERN: true,
	types.TYPE:   true,
}

// parseBlock should be called with the parser past the opening brace
func (p *Parser) parseBlock(from types.Position) *ast.Block {
	p.enter(types.SingleCharSpan(from))
	defer p.leave()
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	b := &ast.Block{}
	for {
		if p.l.Accept(types.EOS) {
			continue
		}
		if p.l.PeekIs(types.RBRACKET) {
			break
		}

		tok, _ := p.l.Peek()
		if tok.Kind == types.HASH {
			p.skipAttribute()
			continue
		}
		if nestedItems[tok.Kind] {
			unsupported(tok.Location, "item declared inside a function body")
		}
		if tok.Kind == types.LET {
			b.Stmts = append(b.Stmts, p.parseLet())
			continue
		}

		var x ast.Expression
		blockLike := startsBlockLike(p.l)
		if blockLike {
			x = p.parseBlockLike()
			if p.l.PeekIs(types.PERIOD, types.QUESTION) {
				x = p.parseAssignFrom(p.parseBinaryRest(p.parsePostfix(x), 1))
				blockLike = false
			}
		} else {
			x = p.parseExpr()
		}

		if p.l.PeekIs(types.RBRACKET) {
			b.Tail = x
			break
		}
		if p.l.Accept(types.EOS) {
			b.Stmts = append(b.Stmts, &ast.ExprStmt{X: x, Semi: true, Pos: p.span(tok.Location.From)})
			continue
		}
		if blockLike {
			b.Stmts = append(b.Stmts, &ast.ExprStmt{X: x, Pos: x.Location()})
			continue
		}
		p.l.LexExpecting(types.EOS, types.RBRACKET)
	}
	p.l.LexExpecting(types.RBRACKET)
	b.Pos = p.span(from)
	return b
}

func (p *Parser) parseLet() *ast.Let {
	tok, _ := p.l.LexExpecting(types.LET)
	let := &ast.Let{Pat: p.parsePattern()}
	if p.l.Accept(types.COLON) {
		let.Kind = p.parseType()
	}
	if p.l.Accept(types.EQUALS) {
		let.Value = p.parseExpr()
	}
	if etok, _ := p.l.Peek(); etok.Kind == types.ELSE {
		unsupported(etok.Location, "let-else")
	}
	p.l.LexExpecting(types.EOS)
	let.Pos = p.span(tok.Location.From)
	return let
}

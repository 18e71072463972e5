package lower

import (
	"strconv"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func (c *Context) expr(b *block, e ast.Expression, want *Type) value {
	c.enter(e.Location())
	defer c.leave()

	switch v := e.(type) {
	case *ast.IntLit:
		if v.Value > 1<<63-1 {
			c.fail(errors.NewTypeError(v.Pos, "literal out of range for `i64`"))
		}
		t := tUntyped
		if want != nil && want.Kind == Int {
			t = want
		}
		return litInt(t, int64(v.Value))
	case *ast.BoolLit:
		if v.Value {
			return boolValue(&ir.True{})
		}
		return boolValue(&ir.False{})
	case *ast.CharLit:
		if v.Byte {
			return litInt(tInt("u8"), int64(v.Value))
		}
		return wordValue(tChar, ir.LitWord(string(v.Value)))
	case *ast.StrLit:
		if v.Byte {
			c.unsupported(v.Pos, "byte string literal")
		}
		return wordValue(&Type{Kind: Str, Name: "&str"}, ir.LitWord(v.Value))
	case *ast.Path:
		return c.path(b, v, want)
	case *ast.Unary:
		return c.unary(b, v, want)
	case *ast.Binary:
		return c.binary(b, v, want)
	case *ast.Assign:
		c.assign(b, v)
		return unitValue
	case *ast.Cast:
		return c.cast(b, v)
	case *ast.Try:
		return c.try(b, v)
	case *ast.Call:
		return c.call(b, v, want)
	case *ast.MethodCall:
		return c.method(b, v, want)
	case *ast.Field:
		return c.field(b, v)
	case *ast.Index:
		return c.index(b, v)
	case *ast.Range:
		c.unsupported(v.Pos, "range used as a value")
	case *ast.Tuple:
		return c.tuple(b, v, want)
	case *ast.ArrayLit:
		return c.arrayLit(b, v, want)
	case *ast.ArrayRepeat:
		return c.arrayRepeat(b, v, want)
	case *ast.StructLit:
		return c.structLit(b, v)
	case *ast.Block:
		return c.block(b, v, want)
	case *ast.If:
		return c.ifExpr(b, v, want)
	case *ast.LetCond:
		c.unsupported(v.Pos, "`let` expression outside an `if` or `while` condition")
	case *ast.While:
		return c.while(b, v)
	case *ast.Loop:
		return c.loop(b, v, want)
	case *ast.For:
		return c.forLoop(b, v)
	case *ast.Break:
		return c.breakExpr(b, v)
	case *ast.Continue:
		return c.continueExpr(b, v)
	case *ast.Return:
		return c.returnExpr(b, v)
	case *ast.Match:
		return c.match(b, v, want)
	case *ast.MacroCall:
		return c.macro(b, v, want)
	}
	panic("unhandled expression")
}

func (c *Context) path(b *block, p *ast.Path, want *Type) value {
	if len(p.Segments) == 1 {
		if sym, ok := c.lookup(p.Segments[0]); ok {
			if sym.alias != nil {
				return *sym.alias
			}
			return c.load(sym.typ, sym.name)
		}
	}
	if v, ok := c.variant(b, p.Segments, nil, want, p.Pos); ok {
		return v
	}
	if len(p.Segments) == 1 {
		if _, ok := c.funcs[p.Segments[0]]; ok {
			c.unsupported(p.Pos, "function `"+p.Segments[0]+"` used as a value")
		}
	}
	c.unknown("value", p.String(), p.Pos, c.visibleNames())
	return value{}
}

// variantInfo describes a resolved enum variant, including those of
// Option and Result.
type variantInfo struct {
	enum    string
	tag     string
	payload *Type
	unit    bool
}

func (c *Context) resolveVariant(path []string) (variantInfo, bool) {
	path = c.expandPath(path)
	last := path[len(path)-1]
	prefix := ""
	if len(path) > 1 {
		prefix = path[len(path)-2]
	}
	switch last {
	case "Some", "None":
		if prefix == "" || prefix == "Option" {
			return variantInfo{enum: "Option", tag: last, unit: last == "None"}, true
		}
	case "Ok", "Err":
		if prefix == "" || prefix == "Result" {
			return variantInfo{enum: "Result", tag: last}, true
		}
	}
	if prefix == "" {
		return variantInfo{}, false
	}
	ed, ok := c.enums[prefix]
	if !ok {
		return variantInfo{}, false
	}
	i := indexOf(ed.variants, last)
	if i < 0 {
		return variantInfo{}, false
	}
	return variantInfo{enum: prefix, tag: last, payload: ed.payloads[i], unit: ed.payloads[i] == nil}, true
}

func (c *Context) isUnitVariant(name string) bool {
	vi, ok := c.resolveVariant([]string{name})
	if _, shadowed := c.lookup(name); shadowed {
		return false
	}
	return ok && vi.unit
}

// variant builds a variant value. args is nil for a bare path.
func (c *Context) variant(b *block, path []string, args []ast.Expression, want *Type, at types.Span) (value, bool) {
	vi, ok := c.resolveVariant(path)
	if !ok {
		return value{}, false
	}
	name := vi.tag
	hasArgs := args != nil
	if vi.unit || (vi.enum == "Option" && vi.tag == "None") {
		if hasArgs {
			c.fail(errors.NewTypeError(at, "`%s` takes no arguments", name))
		}
	} else if !hasArgs {
		c.unsupported(at, "variant constructor `"+name+"` used as a value")
	} else if len(args) != 1 {
		c.fail(errors.NewTypeError(at, "this enum variant takes 1 argument but %d were supplied", len(args)))
	}

	var t *Type
	var payloadWant *Type
	switch vi.enum {
	case "Option":
		t = tOption(nil)
		if want != nil && want.Kind == Option {
			t = tOption(want.Elem)
		}
		payloadWant = t.Elem
	case "Result":
		t = tResult(nil, nil)
		if want != nil && want.Kind == Result {
			t = tResult(want.Elem, want.Err)
		}
		if name == "Ok" {
			payloadWant = t.Elem
		} else {
			payloadWant = t.Err
		}
	default:
		t = &Type{Kind: Enum, Name: vi.enum}
		payloadWant = vi.payload
	}

	v := value{typ: t, tag: name}
	if !hasArgs {
		v.word = ir.LitWord(name + ":")
		return v, true
	}

	pv := c.expr(b, args[0], payloadWant)
	c.expect(payloadWant, pv.typ, args[0])
	if pv.typ.Kind != Unit && !pv.typ.scalar() {
		c.unsupported(args[0].Location(), "variant payload of type `"+pv.typ.String()+"`")
	}
	switch {
	case vi.enum == "Option":
		t.Elem = unify(t.Elem, pv.typ)
	case name == "Ok":
		t.Elem = unify(t.Elem, pv.typ)
	case name == "Err":
		t.Err = unify(t.Err, pv.typ)
	}
	pw := ir.Word{}
	if pv.typ.Kind != Unit {
		pw = c.word(b, pv)
	}
	v.payload = &pv
	v.word = ir.Concat(ir.LitWord(name+":"), pw)
	return v, true
}

func negate(cond ir.Cond) ir.Cond {
	switch v := cond.(type) {
	case *ir.Not:
		return v.X
	case *ir.True:
		return &ir.False{}
	case *ir.False:
		return &ir.True{}
	}
	return &ir.Not{X: cond}
}

func (c *Context) requireInt(v value, e ast.Expression) {
	if v.typ.Kind != Int && v.typ.Kind != Never {
		c.fail(errors.NewTypeError(e.Location(), "expected an integer, found `%s`", v.typ))
	}
}

func (c *Context) requireBool(v value, e ast.Expression) {
	if v.typ.Kind != Bool && v.typ.Kind != Never {
		c.fail(errors.NewTypeError(e.Location(), "mismatched types: expected `bool`, found `%s`", v.typ))
	}
}

func (c *Context) cond(b *block, v value, e ast.Expression) ir.Cond {
	c.requireBool(v, e)
	if v.typ.Kind == Never {
		return &ir.False{}
	}
	return v.cond
}

func (c *Context) unary(b *block, u *ast.Unary, want *Type) value {
	switch u.Op {
	case types.MINUS:
		x := c.expr(b, u.X, want)
		c.requireInt(x, u.X)
		if x.typ.Name != "" && x.typ.Name[0] == 'u' {
			c.fail(errors.NewTypeError(u.Pos, "cannot apply unary operator `-` to type `%s`", x.typ))
		}
		if x.lit != nil {
			return litInt(x.typ, -*x.lit)
		}
		return intValue(x.typ, &ir.UnaryArith{Op: "-", X: x.arith})
	case types.BANG:
		x := c.expr(b, u.X, want)
		if x.typ.Kind == Int {
			if x.lit != nil {
				return litInt(x.typ, wrapInt(intName(x.typ), ^*x.lit))
			}
			return intValue(x.typ, wrapArith(x.typ, &ir.UnaryArith{Op: "~", X: x.arith}))
		}
		return boolValue(negate(c.cond(b, x, u.X)))
	}
	// references and dereferences are transparent
	return c.expr(b, u.X, want)
}

func intName(t *Type) string {
	if t.Name == "" {
		return "i32"
	}
	return t.Name
}

// wrapArith truncates x to the width of t.
func wrapArith(t *Type, x ir.Arith) ir.Arith {
	name := intName(t)
	bits := intBits[name]
	if bits >= 64 {
		return x
	}
	mask := &ir.Num{Value: int64(1)<<uint(bits) - 1}
	masked := &ir.BinaryArith{Op: "&", X: x, Y: mask}
	if name[0] == 'u' {
		return masked
	}
	sign := &ir.Num{Value: int64(1) << uint(bits-1)}
	return &ir.BinaryArith{Op: "-", X: &ir.BinaryArith{Op: "^", X: masked, Y: sign}, Y: sign}
}

var arithOps = map[types.TokenKind]string{
	types.PLUS: "+", types.MINUS: "-", types.STAR: "*", types.SLASH: "/",
	types.PERCENT: "%", types.AMP: "&", types.PIPE: "|", types.CARET: "^",
	types.SHL: "<<", types.SHR: ">>",
}

var compoundOps = map[types.TokenKind]types.TokenKind{
	types.PLUSEQ: types.PLUS, types.MINUSEQ: types.MINUS, types.STAREQ: types.STAR,
	types.SLASHEQ: types.SLASH, types.PERCENTEQ: types.PERCENT, types.CARETEQ: types.CARET,
	types.AMPEQ: types.AMP, types.PIPEEQ: types.PIPE, types.SHLEQ: types.SHL, types.SHREQ: types.SHR,
}

func (c *Context) binary(b *block, e *ast.Binary, want *Type) value {
	switch e.Op {
	case types.ANDAND, types.OROR:
		return c.logical(b, e)
	case types.EQEQ, types.NOTEQ, types.LT, types.LE, types.GT, types.GE:
		return c.compare(b, e)
	}

	var x value
	vals := c.exprsInOrder(b, []func(*block) value{
		func(b *block) value {
			x = c.expr(b, e.X, want)
			return x
		},
		func(b *block) value {
			hint := x.typ
			if e.Op == types.SHL || e.Op == types.SHR || (hint.Kind == Int && hint.Name == "") {
				hint = nil
			}
			return c.expr(b, e.Y, hint)
		},
	})
	return c.arith(b, e.Op, vals[0], vals[1], e)
}

// arith applies a non-comparison binary operator to two lowered operands.
func (c *Context) arith(b *block, op types.TokenKind, x, y value, e *ast.Binary) value {
	if x.typ.Kind == Never || y.typ.Kind == Never {
		return neverValue
	}
	switch x.typ.Kind {
	case Str:
		if op != types.PLUS || y.typ.Kind != Str {
			c.fail(errors.NewTypeError(e.Pos, "cannot apply `%s` to `%s` and `%s`", arithOps[op], x.typ, y.typ))
		}
		return wordValue(tStr, ir.Concat(c.word(b, x), c.word(b, y)))
	case Bool:
		c.requireBool(y, e.Y)
		switch op {
		case types.AMP:
			return boolValue(&ir.And{X: x.cond, Y: y.cond})
		case types.PIPE:
			return boolValue(&ir.Or{X: x.cond, Y: y.cond})
		case types.CARET:
			return boolValue(&ir.Test{Args: []ir.Word{c.word(b, x), ir.LitWord("!="), c.word(b, y)}})
		}
		c.fail(errors.NewTypeError(e.Pos, "cannot apply `%s` to `bool`", arithOps[op]))
	case Int:
	default:
		c.fail(errors.NewTypeError(e.Pos, "cannot apply `%s` to `%s`", arithOps[op], x.typ))
	}

	c.requireInt(y, e.Y)
	t := x.typ
	if op != types.SHL && op != types.SHR {
		if !compatible(x.typ, y.typ) {
			c.fail(errors.NewTypeError(e.Pos, "mismatched types: expected `%s`, found `%s`", x.typ, y.typ))
		}
		t = unify(x.typ, y.typ)
	}

	if op == types.SLASH || op == types.PERCENT {
		y = c.checkDivisor(b, op, y, e)
	}
	return intValue(t, &ir.BinaryArith{Op: arithOps[op], X: x.arith, Y: y.arith})
}

// checkDivisor panics at runtime on a zero divisor, as the source language
// does.
func (c *Context) checkDivisor(b *block, op types.TokenKind, y value, e *ast.Binary) value {
	msg := "attempt to divide by zero"
	if op == types.PERCENT {
		msg = "attempt to calculate the remainder with a divisor of zero"
	}
	if y.lit != nil {
		if *y.lit == 0 {
			c.fail(errors.NewTypeError(e.Pos, "this operation will panic at runtime: %s", msg))
		}
		return y
	}
	if _, ok := y.arith.(*ir.Ref); !ok {
		y = c.snapshot(b, y)
	}
	fail := &block{}
	c.panicAt(fail, e.Pos, ir.LitWord(msg))
	b.add(&ir.If{
		Cond: &ir.Test{Args: []ir.Word{ir.ArithWord(y.arith), ir.LitWord("-eq"), ir.LitWord("0")}},
		Then: fail.stmts,
	})
	return y
}

func (c *Context) assign(b *block, a *ast.Assign) {
	if idx, ok := a.To.(*ast.Index); ok {
		if _, static := c.foldInt(idx.Index); !static {
			c.assignIndex(b, a, idx)
			return
		}
	}
	pl := c.place(b, a.To)
	var v value
	if a.Op == types.EQUALS {
		v = c.expr(b, a.Value, pl.typ)
	} else {
		cur := c.load(pl.typ, pl.name)
		rhs := c.expr(b, a.Value, pl.typ)
		v = c.arith(b, compoundOps[a.Op], cur, rhs, &ast.Binary{Op: compoundOps[a.Op], X: a.To, Y: a.Value, Pos: a.Pos})
	}
	c.expect(pl.typ, v.typ, a.Value)
	v.typ = unify(pl.typ, v.typ)
	if v.typ.aggregate() {
		v = c.snapshot(b, v)
	}
	c.store(b, pl.name, v)
}

type place struct {
	name ir.Name
	typ  *Type
}

// place resolves an assignable expression to its storage.
func (c *Context) place(b *block, e ast.Expression) place {
	switch v := e.(type) {
	case *ast.Path:
		if len(v.Segments) != 1 {
			break
		}
		sym, ok := c.lookup(v.Segments[0])
		if !ok {
			c.unknown("value", v.Segments[0], v.Pos, c.visibleNames())
		}
		if sym.alias != nil {
			break
		}
		if !sym.mut && !sym.deferred {
			c.fail(errors.NewTypeError(v.Pos, "cannot assign twice to immutable variable `%s`", v.Segments[0]))
		}
		return place{name: sym.name, typ: sym.typ}
	case *ast.Unary:
		if v.Op == types.STAR || v.Op == types.AMP {
			return c.place(b, v.X)
		}
	case *ast.Field:
		of := c.place(b, v.Of)
		i, ft := c.fieldIndex(of.typ, v.Ident)
		return place{name: of.name.Sub(fieldName(of.typ, c.structOf(of.typ), i)), typ: ft}
	case *ast.Index:
		of := c.place(b, v.Of)
		n, _ := c.foldInt(v.Index)
		c.checkBounds(of.typ, n, v)
		return place{name: of.name.Sub(itoa(int(n))), typ: of.typ.Elem}
	}
	c.fail(errors.NewTypeError(e.Location(), "invalid left-hand side of assignment"))
	return place{}
}

func (c *Context) checkBounds(t *Type, n int64, e *ast.Index) {
	if t.Kind != Array {
		c.fail(errors.NewTypeError(e.Pos, "cannot index into a value of type `%s`", t))
	}
	if n < 0 || n >= int64(t.Len) {
		c.fail(errors.NewTypeError(e.Pos, "this operation will panic at runtime: index out of bounds: the length is %d but the index is %d", t.Len, n))
	}
}

// assignIndex stores into an array slot chosen at runtime.
func (c *Context) assignIndex(b *block, a *ast.Assign, idx *ast.Index) {
	of := c.place(b, idx.Of)
	if of.typ.Kind != Array {
		c.fail(errors.NewTypeError(idx.Pos, "cannot index into a value of type `%s`", of.typ))
	}
	i := c.expr(b, idx.Index, tInt("usize"))
	c.requireInt(i, idx.Index)
	iw := ir.VarWord(c.name(b, i))
	v := c.expr(b, a.Value, of.typ.Elem)
	c.expect(of.typ.Elem, v.typ, a.Value)
	v = c.snapshot(b, v)

	cs := &ir.Case{Subject: iw}
	for n := 0; n < of.typ.Len; n++ {
		slot := of.name.Sub(itoa(n))
		arm := &block{}
		nv := v
		if a.Op != types.EQUALS {
			nv = c.arith(arm, compoundOps[a.Op], c.load(of.typ.Elem, slot), v, &ast.Binary{Op: compoundOps[a.Op], X: idx, Y: a.Value, Pos: a.Pos})
		}
		c.store(arm, slot, nv)
		cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{ir.IntWord(int64(n))}, Body: arm.stmts})
	}
	cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{globWord("*")}, Body: c.boundsPanic(idx, of.typ.Len, iw)})
	b.add(cs)
}

func globWord(p string) ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: p}}}
}

func (c *Context) boundsPanic(idx *ast.Index, length int, i ir.Word) []ir.Stmt {
	fail := &block{}
	msg := ir.Concat(ir.LitWord("index out of bounds: the len is "+itoa(length)+" but the index is "), i)
	c.panicAt(fail, idx.Pos, msg)
	return fail.stmts
}

func (c *Context) fieldIndex(t *Type, id ast.Identifier) (int, *Type) {
	switch t.Kind {
	case Struct:
		sd := c.structs[t.Name]
		i := indexOf(sd.fields, id.Name)
		if i >= 0 {
			return i, sd.types[i]
		}
	case Tuple:
		if i, err := strconv.Atoi(id.Name); err == nil && i < len(t.Elems) {
			return i, t.Elems[i]
		}
	}
	c.fail(errors.NewTypeError(id.Pos, "no field `%s` on type `%s`", id.Name, t))
	return 0, nil
}

func (c *Context) field(b *block, f *ast.Field) value {
	of := c.expr(b, f.Of, nil)
	i, _ := c.fieldIndex(of.typ, f.Ident)
	return of.fields[i]
}

func (c *Context) index(b *block, e *ast.Index) value {
	of := c.expr(b, e.Of, nil)
	switch of.typ.Kind {
	case Args:
		return c.argsIndex(b, of, e)
	case Str:
		c.fail(errors.NewTypeError(e.Pos, "the type `str` cannot be indexed by `{integer}`"))
	case Array:
	default:
		c.fail(errors.NewTypeError(e.Pos, "cannot index into a value of type `%s`", of.typ))
	}
	if n, ok := c.foldInt(e.Index); ok {
		c.checkBounds(of.typ, n, e)
		return of.fields[n]
	}
	if !of.typ.Elem.scalar() {
		c.unsupported(e.Pos, "runtime index into an array of `"+of.typ.Elem.String()+"`")
	}
	i := c.expr(b, e.Index, tInt("usize"))
	c.requireInt(i, e.Index)
	iw := ir.VarWord(c.name(b, i))
	t := c.temp()
	cs := &ir.Case{Subject: iw}
	for n, f := range of.fields {
		arm := &block{}
		c.store(arm, t, f)
		cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{ir.IntWord(int64(n))}, Body: arm.stmts})
	}
	cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{globWord("*")}, Body: c.boundsPanic(e, of.typ.Len, iw)})
	b.add(cs)
	return c.load(of.typ.Elem, t)
}

func (c *Context) tuple(b *block, t *ast.Tuple, want *Type) value {
	if len(t.Elems) == 0 {
		return unitValue
	}
	var fs []func(*block) value
	for i, e := range t.Elems {
		i, e := i, e
		fs = append(fs, func(b *block) value {
			var w *Type
			if want != nil && want.Kind == Tuple && i < len(want.Elems) {
				w = want.Elems[i]
			}
			return c.expr(b, e, w)
		})
	}
	v := value{typ: &Type{Kind: Tuple}}
	v.fields = c.exprsInOrder(b, fs)
	for i, f := range v.fields {
		if !f.typ.scalar() {
			c.unsupported(t.Elems[i].Location(), "tuple element of type `"+f.typ.String()+"`")
		}
		v.typ.Elems = append(v.typ.Elems, f.typ)
	}
	return v
}

func (c *Context) arrayLit(b *block, a *ast.ArrayLit, want *Type) value {
	var elem *Type
	if want != nil && want.Kind == Array {
		elem = want.Elem
	}
	var fs []func(*block) value
	for _, e := range a.Elems {
		e := e
		fs = append(fs, func(b *block) value { return c.expr(b, e, elem) })
	}
	v := value{typ: &Type{Kind: Array, Elem: elem, Len: len(a.Elems)}}
	v.fields = c.exprsInOrder(b, fs)
	for i, f := range v.fields {
		c.expect(v.typ.Elem, f.typ, a.Elems[i])
		v.typ.Elem = unify(v.typ.Elem, f.typ)
	}
	if v.typ.Elem == nil && len(v.fields) == 0 {
		v.typ.Elem = tUnit
	}
	if v.typ.Elem != nil && !v.typ.Elem.scalar() && len(v.fields) > 0 {
		c.unsupported(a.Pos, "array of `"+v.typ.Elem.String()+"`")
	}
	return v
}

func (c *Context) arrayRepeat(b *block, a *ast.ArrayRepeat, want *Type) value {
	n, ok := c.foldInt(a.Count)
	if !ok || n < 0 {
		c.fail(errors.NewTypeError(a.Count.Location(), "array length must be a constant expression"))
	}
	if n > 4096 {
		c.unsupported(a.Count.Location(), "array of more than 4096 elements")
	}
	var elem *Type
	if want != nil && want.Kind == Array {
		elem = want.Elem
	}
	x := c.snapshot(b, c.expr(b, a.Value, elem))
	if !x.typ.scalar() {
		c.unsupported(a.Pos, "array of `"+x.typ.String()+"`")
	}
	v := value{typ: &Type{Kind: Array, Elem: x.typ, Len: int(n)}}
	for i := int64(0); i < n; i++ {
		v.fields = append(v.fields, x)
	}
	return v
}

func (c *Context) structLit(b *block, s *ast.StructLit) value {
	name := c.expandPath(s.Path)
	sd, ok := c.structs[name[len(name)-1]]
	if !ok {
		var names []string
		for n := range c.structs {
			names = append(names, n)
		}
		c.unknown("struct", name[len(name)-1], s.Pos, names)
	}
	t := &Type{Kind: Struct, Name: sd.decl.Ident.Name}

	var fs []func(*block) value
	for _, f := range s.Fields {
		f := f
		i := indexOf(sd.fields, f.Ident.Name)
		if i < 0 {
			c.fail(errors.NewTypeError(f.Ident.Pos, "struct `%s` has no field named `%s`", t.Name, f.Ident.Name))
		}
		fs = append(fs, func(b *block) value { return c.expr(b, f.Value, sd.types[i]) })
	}
	vals := c.exprsInOrder(b, fs)

	v := value{typ: t, fields: make([]value, len(sd.fields))}
	set := make([]bool, len(sd.fields))
	for k, f := range s.Fields {
		i := indexOf(sd.fields, f.Ident.Name)
		c.expect(sd.types[i], vals[k].typ, f.Value)
		vals[k].typ = unify(sd.types[i], vals[k].typ)
		v.fields[i] = vals[k]
		set[i] = true
	}
	for i, ok := range set {
		if !ok {
			c.fail(errors.NewTypeError(s.Pos, "missing field `%s` in initializer of `%s`", sd.fields[i], t.Name))
		}
	}
	return v
}

func (c *Context) cast(b *block, e *ast.Cast) value {
	to := c.resolveType(e.To)
	x := c.expr(b, e.X, nil)
	if to.Kind != Int && to.Kind != Char {
		c.fail(errors.NewTypeError(e.Pos, "non-primitive cast: `%s` as `%s`", x.typ, to))
	}
	switch x.typ.Kind {
	case Int:
		if to.Kind == Char {
			if x.typ.Name != "u8" {
				c.fail(errors.NewTypeError(e.Pos, "only `u8` can be cast as `char`, not `%s`", x.typ))
			}
			return c.charFromCode(b, x)
		}
		if x.lit != nil {
			return litInt(to, wrapInt(to.Name, *x.lit))
		}
		if widens(intName(x.typ), to.Name) {
			return intValue(to, x.arith)
		}
		return intValue(to, wrapArith(to, x.arith))
	case Bool:
		if to.Kind != Int {
			break
		}
		switch x.cond.(type) {
		case *ir.True:
			return litInt(to, 1)
		case *ir.False:
			return litInt(to, 0)
		}
		t := c.temp()
		b.add(&ir.If{
			Cond: x.cond,
			Then: []ir.Stmt{&ir.Assign{Name: t, Value: ir.LitWord("1")}},
			Else: []ir.Stmt{&ir.Assign{Name: t, Value: ir.LitWord("0")}},
		})
		return c.load(to, t)
	case Char:
		if to.Kind == Char {
			return x
		}
		code := c.charCode(b, x)
		return intValue(to, wrapArith(to, code.arith))
	}
	c.fail(errors.NewTypeError(e.Pos, "non-primitive cast: `%s` as `%s`", x.typ, to))
	return value{}
}

// widens reports whether every value of from is representable in to.
func widens(from, to string) bool {
	fb, tb := intBits[from], intBits[to]
	if from[0] == to[0] {
		return fb <= tb
	}
	return from[0] == 'u' && fb < tb
}

// charCode is the code point of a character.
func (c *Context) charCode(b *block, x value) value {
	if s, ok := x.word.Static(); ok {
		return litInt(tInt("u32"), int64([]rune(s)[0]))
	}
	t := c.temp()
	b.add(&ir.Assign{Name: t, Value: ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{
		ir.Cmd("printf", ir.LitWord("%d"), ir.Concat(ir.LitWord("'"), x.word)),
	}}}}})
	return c.load(tInt("u32"), t)
}

// charFromCode turns a byte value into a one-character string.
func (c *Context) charFromCode(b *block, x value) value {
	if x.lit != nil {
		return wordValue(tChar, ir.LitWord(string(rune(*x.lit))))
	}
	octal := ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{
		ir.Cmd("printf", ir.LitWord("%o"), ir.ArithWord(x.arith)),
	}}}}
	t := c.temp()
	b.add(&ir.Assign{Name: t, Value: ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{
		ir.Cmd("printf", ir.LitWord("%bx"), ir.Concat(ir.LitWord(`\0`), octal)),
	}}}}})
	b.add(&ir.Assign{Name: t, Value: stripSentinel(t)})
	return wordValue(tChar, ir.VarWord(t))
}

func stripSentinel(n ir.Name) ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Var{Name: n, Op: "%", Arg: &ir.Word{Parts: []ir.Part{&ir.Lit{Text: "x"}}}}}}
}

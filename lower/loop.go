package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

// Literal ranges up to this many iterations are enumerated by a `for`
// loop; longer or runtime ranges use a counter.
const maxEnumerated = 256

type loopFrame struct {
	label string
	// valued loops (`loop`) accept `break` with a value.
	valued bool
	broken bool
	result ir.Name
	typ    *Type

	// flag is set when a labeled jump to this loop crosses inner loops.
	flag    ir.Name
	hasFlag bool
	// checks lists outer loops whose flag is tested after this loop.
	checks []*loopFrame
}

func (c *Context) pushLoop(label string, valued bool) *loopFrame {
	f := &loopFrame{label: label, valued: valued}
	c.loops = append(c.loops, f)
	return f
}

// popLoop closes the innermost loop and adds stmt, surrounded by the
// flag handling labeled jumps need.
func (c *Context) popLoop(b *block, stmt ir.Stmt) {
	f := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	if f.hasFlag {
		b.add(&ir.Assign{Name: f.flag, Value: ir.Word{}})
	}
	if stmt != nil {
		b.add(stmt)
	}
	for _, t := range f.checks {
		flag := ir.VarWord(t.flag)
		if len(c.loops) > 0 && c.loops[len(c.loops)-1] == t {
			b.add(
				&ir.If{
					Cond: &ir.Test{Args: []ir.Word{flag, ir.LitWord("="), ir.LitWord("break")}},
					Then: []ir.Stmt{&ir.Break{}},
				},
				&ir.If{
					Cond: &ir.Test{Args: []ir.Word{flag, ir.LitWord("="), ir.LitWord("continue")}},
					Then: []ir.Stmt{&ir.Assign{Name: t.flag, Value: ir.Word{}}, &ir.Continue{}},
				},
			)
			continue
		}
		b.add(&ir.If{
			Cond: &ir.Test{Args: []ir.Word{ir.LitWord("-n"), flag}},
			Then: []ir.Stmt{&ir.Break{}},
		})
	}
}

func (c *Context) target(label string, kind string, at types.Span) int {
	if len(c.loops) == 0 {
		c.fail(errors.NewTypeError(at, "`%s` outside of a loop", kind))
	}
	if label == "" {
		return len(c.loops) - 1
	}
	for i := len(c.loops) - 1; i >= 0; i-- {
		if c.loops[i].label == label {
			return i
		}
	}
	c.fail(errors.NewTypeError(at, "use of undeclared label `'%s`", label))
	return 0
}

// jump leaves the loop at index ti with `break` or `continue`.
func (c *Context) jump(b *block, ti int, kind string) {
	t := c.loops[ti]
	if kind == "break" {
		t.broken = true
	}
	if ti == len(c.loops)-1 {
		if kind == "break" {
			b.add(&ir.Break{})
		} else {
			b.add(&ir.Continue{})
		}
		return
	}
	if !t.hasFlag {
		t.flag = c.fresh("__tw_brk_" + t.label)
		t.hasFlag = true
	}
	b.add(&ir.Assign{Name: t.flag, Value: ir.LitWord(kind)}, &ir.Break{})
	for _, inner := range c.loops[ti+1:] {
		if !containsFrame(inner.checks, t) {
			inner.checks = append(inner.checks, t)
		}
	}
}

func containsFrame(list []*loopFrame, f *loopFrame) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}

func (c *Context) breakExpr(b *block, br *ast.Break) value {
	ti := c.target(br.Label, "break", br.Pos)
	t := c.loops[ti]
	if br.Value != nil {
		if !t.valued {
			c.fail(errors.NewTypeError(br.Pos, "`break` with value from a `while` or `for` loop"))
		}
		v := c.expr(b, br.Value, t.typ)
		if v.typ.Kind == Never {
			return neverValue
		}
		c.expect(t.typ, v.typ, br.Value)
		if v.typ.Kind == Int && v.typ.Name == "" {
			v.typ = tInt("i32")
		}
		t.typ = unify(t.typ, v.typ)
		if t.result == (ir.Name{}) {
			t.result = c.temp()
		}
		c.store(b, t.result, v)
	} else if t.valued && t.typ != nil && t.typ.Kind != Unit {
		c.fail(errors.NewTypeError(br.Pos, "mismatched types: expected `%s`, found `()`", t.typ))
	} else if t.valued {
		t.typ = unify(t.typ, tUnit)
	}
	c.jump(b, ti, "break")
	return neverValue
}

func (c *Context) continueExpr(b *block, co *ast.Continue) value {
	c.jump(b, c.target(co.Label, "continue", co.Pos), "continue")
	return neverValue
}

func (c *Context) returnExpr(b *block, r *ast.Return) value {
	if c.fn == nil {
		c.fail(errors.NewTypeError(r.Pos, "return statement outside of function body"))
	}
	v := unitValue
	var at ast.Expression = r
	if r.Value != nil {
		v = c.expr(b, r.Value, c.fn.ret)
		at = r.Value
		if v.typ.Kind == Never {
			return neverValue
		}
	}
	c.returnValue(b, v, at)
	return neverValue
}

// loopBody lowers the body of a loop, which must be of type ().
func (c *Context) loopBody(b *block, body *ast.Block) {
	v := c.block(b, body, tUnit)
	c.expect(tUnit, v.typ, tailOf(body))
}

func (c *Context) while(b *block, w *ast.While) value {
	c.pushLoop(w.Label, false)
	pre := &block{}
	cond, binds := c.condition(pre, w.Cond)
	if len(pre.stmts) > 0 {
		cond = &ir.Seq{Pre: pre.stmts, X: cond}
	}
	c.pushScope()
	body := &block{}
	c.declareAll(body, binds)
	c.loopBody(body, w.Body)
	c.popScope()
	c.popLoop(b, &ir.While{Cond: cond, Body: body.stmts})
	return unitValue
}

func (c *Context) loop(b *block, l *ast.Loop, want *Type) value {
	f := c.pushLoop(l.Label, true)
	f.typ = want
	if want != nil && (want.Kind == Never || want.Kind == Unit) {
		f.typ = nil
	}
	body := &block{}
	c.loopBody(body, l.Body)
	c.popLoop(b, &ir.While{Cond: &ir.True{}, Body: body.stmts})
	switch {
	case !f.broken:
		return neverValue
	case f.typ == nil || f.result == (ir.Name{}):
		return unitValue
	}
	return c.load(f.typ, f.result)
}

// iterShape is a `for` iterable with its adapters peeled off.
type iterShape struct {
	expr      ast.Expression
	rev       bool
	enumerate bool
	chars     bool
}

func (c *Context) peelIter(e ast.Expression) iterShape {
	s := iterShape{expr: e}
	for {
		mc, ok := s.expr.(*ast.MethodCall)
		if !ok || len(mc.Args) > 0 {
			return s
		}
		switch mc.Method.Name {
		case "rev":
			s.rev = !s.rev
		case "enumerate":
			if s.rev || s.enumerate {
				c.unsupported(mc.Pos, "`enumerate` before other iterator adapters")
			}
			s.enumerate = true
		case "iter", "into_iter":
		case "chars":
			s.chars = true
			s.expr = mc.Recv
			return s
		default:
			return s
		}
		s.expr = mc.Recv
	}
}

func (c *Context) forLoop(b *block, f *ast.For) value {
	shape := c.peelIter(f.Iter)
	pat := f.Pat
	var index ast.Pattern
	if shape.enumerate {
		tp, ok := pat.(*ast.TuplePat)
		if !ok || len(tp.Elems) != 2 {
			c.fail(errors.NewTypeError(pat.Location(), "mismatched types: expected a tuple `(usize, _)` pattern for `enumerate`"))
		}
		index, pat = tp.Elems[0], tp.Elems[1]
	}

	if r, ok := shape.expr.(*ast.Range); ok && !shape.chars {
		c.rangeLoop(b, f, r, shape, index, pat)
		return unitValue
	}

	v := c.expr(b, shape.expr, nil)
	switch {
	case shape.chars:
		if v.typ.Kind != Str {
			c.fail(errors.NewTypeError(shape.expr.Location(), "no method named `chars` found for `%s`", v.typ))
		}
		c.charsLoop(b, f, v, shape, index, pat)
	case v.typ.Kind == Array:
		var items []ir.Word
		for _, e := range v.fields {
			items = append(items, c.word(b, e))
		}
		if shape.rev {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}
		c.itemsLoop(b, f, items, v.typ.Elem, index, pat)
	case v.typ.Kind == Args:
		if shape.rev {
			c.unsupported(f.Iter.Location(), "reversed `std::env::args()`")
		}
		var items []ir.Word
		switch v.skip {
		case 0:
			items = []ir.Word{{Parts: []ir.Part{&ir.Param{Index: 0}}}, {Parts: []ir.Part{&ir.Param{Special: "@"}}}}
		case 1:
			items = []ir.Word{{Parts: []ir.Part{&ir.Param{Special: "@"}}}}
		default:
			c.unsupported(f.Iter.Location(), "skipping more than one argument in a `for` loop")
		}
		c.itemsLoop(b, f, items, tStr, index, pat)
	default:
		c.fail(errors.NewTypeError(f.Iter.Location(), "`%s` is not an iterator", v.typ))
	}
	return unitValue
}

// loopVar binds pat to the variable a loop assigns each item to. A
// direct loop variable may be the binding itself.
func (c *Context) loopVar(body *block, pat ast.Pattern, t *Type, direct bool) ir.Name {
	if bp, ok := pat.(*ast.BindPat); ok && bp.Sub == nil && !c.isUnitVariant(bp.Ident.Name) && (direct || !bp.Mut) {
		c.checkIdent(bp.Ident)
		n := c.fresh(bp.Ident.Name)
		c.declare(bp.Ident, &symbol{name: n, typ: t, mut: bp.Mut})
		return n
	}
	n := c.temp()
	if _, ok := pat.(*ast.WildcardPat); !ok {
		c.bindIrrefutable(body, pat, c.load(t, n))
	}
	return n
}

// counter adds the `enumerate` index, counting from 0 at the top of body.
func (c *Context) counter(b, body *block, index ast.Pattern) {
	if index == nil {
		return
	}
	n := c.temp()
	b.add(&ir.Assign{Name: n, Value: ir.LitWord("-1")})
	body.add(&ir.Assign{Name: n, Value: ir.ArithWord(&ir.BinaryArith{Op: "+", X: &ir.Ref{Name: n}, Y: &ir.Num{Value: 1}})})
	c.bindIrrefutable(body, index, c.load(tInt("usize"), n))
}

func (c *Context) itemsLoop(b *block, f *ast.For, items []ir.Word, elem *Type, index, pat ast.Pattern) {
	c.pushLoop(f.Label, false)
	c.pushScope()
	body := &block{}
	c.counter(b, body, index)
	lv := c.loopVar(body, pat, elem, true)
	c.loopBody(body, f.Body)
	c.popScope()
	if len(items) == 0 {
		c.popLoop(b, nil)
		return
	}
	c.popLoop(b, &ir.For{Var: lv, Items: items, Body: body.stmts})
}

func (c *Context) rangeLoop(b *block, f *ast.For, r *ast.Range, shape iterShape, index, pat ast.Pattern) {
	if r.From == nil || r.To == nil {
		c.unsupported(r.Pos, "unbounded range in a `for` loop")
	}
	var from value
	bounds := c.exprsInOrder(b, []func(*block) value{
		func(b *block) value {
			from = c.expr(b, r.From, nil)
			return from
		},
		func(b *block) value {
			hint := from.typ
			if hint.Name == "" {
				hint = nil
			}
			return c.expr(b, r.To, hint)
		},
	})
	from, to := bounds[0], bounds[1]
	c.requireInt(from, r.From)
	c.requireInt(to, r.To)
	c.expect(from.typ, to.typ, r.To)
	t := unify(from.typ, to.typ)
	if t.Name == "" {
		t = tInt("i32")
	}

	if from.lit != nil && to.lit != nil {
		lo, hi := *from.lit, *to.lit
		if r.Inclusive {
			hi++
		}
		if hi-lo <= maxEnumerated {
			var items []ir.Word
			for n := lo; n < hi; n++ {
				items = append(items, ir.IntWord(n))
			}
			if shape.rev {
				for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
					items[i], items[j] = items[j], items[i]
				}
			}
			plog.Debugf("%s: enumerating %d iterations", f.Pos.From, len(items))
			c.itemsLoop(b, f, items, t, index, pat)
			return
		}
	}

	plog.Debugf("%s: range loop lowers to a counter", f.Pos.From)
	one := &ir.Num{Value: 1}
	var start, stop ir.Arith
	step, test := "+", "-lt"
	switch {
	case !shape.rev && r.Inclusive:
		start, stop = &ir.BinaryArith{Op: "-", X: from.arith, Y: one}, to.arith
	case !shape.rev:
		start, stop = &ir.BinaryArith{Op: "-", X: from.arith, Y: one}, &ir.BinaryArith{Op: "-", X: to.arith, Y: one}
	case r.Inclusive:
		start, stop = &ir.BinaryArith{Op: "+", X: to.arith, Y: one}, from.arith
		step, test = "-", "-gt"
	default:
		start, stop = to.arith, from.arith
		step, test = "-", "-gt"
	}
	if from.lit != nil && to.lit != nil {
		start, stop = foldArith(start), foldArith(stop)
	}
	if _, ok := stop.(*ir.Num); !ok {
		s := c.temp()
		b.add(&ir.Assign{Name: s, Value: ir.ArithWord(stop)})
		stop = &ir.Ref{Name: s}
	}

	c.pushLoop(f.Label, false)
	c.pushScope()
	body := &block{}
	c.counter(b, body, index)
	ctr := c.temp()
	if bp, ok := pat.(*ast.BindPat); ok && !bp.Mut && bp.Sub == nil && !c.isUnitVariant(bp.Ident.Name) {
		ctr = c.loopVar(body, pat, t, true)
		body.add(&ir.Assign{Name: ctr, Value: ir.ArithWord(&ir.BinaryArith{Op: step, X: &ir.Ref{Name: ctr}, Y: one})})
	} else {
		body.add(&ir.Assign{Name: ctr, Value: ir.ArithWord(&ir.BinaryArith{Op: step, X: &ir.Ref{Name: ctr}, Y: one})})
		if _, ok := pat.(*ast.WildcardPat); !ok {
			c.bindIrrefutable(body, pat, c.load(t, ctr))
		}
	}
	b.add(&ir.Assign{Name: ctr, Value: ir.ArithWord(start)})
	c.loopBody(body, f.Body)
	c.popScope()
	cond := &ir.Test{Args: []ir.Word{ir.VarWord(ctr), ir.LitWord(test), ir.ArithWord(stop)}}
	c.popLoop(b, &ir.While{Cond: cond, Body: body.stmts})
}

// foldArith evaluates an expression over literals.
func foldArith(x ir.Arith) ir.Arith {
	bin, ok := x.(*ir.BinaryArith)
	if !ok {
		return x
	}
	l, lok := foldArith(bin.X).(*ir.Num)
	r, rok := foldArith(bin.Y).(*ir.Num)
	if !lok || !rok {
		return x
	}
	switch bin.Op {
	case "+":
		return &ir.Num{Value: l.Value + r.Value}
	case "-":
		return &ir.Num{Value: l.Value - r.Value}
	}
	return x
}

// charsLoop peels one character off the front (or back) of a copy of the
// string per iteration.
func (c *Context) charsLoop(b *block, f *ast.For, s value, shape iterShape, index, pat ast.Pattern) {
	rest := c.temp()
	b.add(&ir.Assign{Name: rest, Value: c.word(b, s)})

	one := &ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "?"}}}
	take, drop := "%", "#"
	if shape.rev {
		take, drop = "#", "%"
	}
	others := &ir.Word{Parts: []ir.Part{&ir.Var{Name: rest, Op: drop, Arg: one}}}

	c.pushLoop(f.Label, false)
	c.pushScope()
	body := &block{}
	c.counter(b, body, index)
	ch := c.loopVar(body, pat, tChar, true)
	peel := []ir.Stmt{
		&ir.Assign{Name: ch, Value: ir.Word{Parts: []ir.Part{&ir.Var{Name: rest, Op: take, Arg: others}}}},
		&ir.Assign{Name: rest, Value: ir.Word{Parts: []ir.Part{&ir.Var{Name: rest, Op: drop, Arg: one}}}},
	}
	body.stmts = append(peel, body.stmts...)
	c.loopBody(body, f.Body)
	c.popScope()
	cond := &ir.Test{Args: []ir.Word{ir.LitWord("-n"), ir.VarWord(rest)}}
	c.popLoop(b, &ir.While{Cond: cond, Body: body.stmts})
}

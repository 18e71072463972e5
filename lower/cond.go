package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

var intTests = map[types.TokenKind]string{
	types.EQEQ: "-eq", types.NOTEQ: "-ne", types.LT: "-lt",
	types.LE: "-le", types.GT: "-gt", types.GE: "-ge",
}

var opText = map[types.TokenKind]string{
	types.EQEQ: "==", types.NOTEQ: "!=", types.LT: "<",
	types.LE: "<=", types.GT: ">", types.GE: ">=",
}

func (c *Context) compare(b *block, e *ast.Binary) value {
	var x value
	vals := c.exprsInOrder(b, []func(*block) value{
		func(b *block) value {
			x = c.expr(b, e.X, nil)
			return x
		},
		func(b *block) value {
			hint := x.typ
			if hint.Kind == Int && hint.Name == "" {
				hint = nil
			}
			return c.expr(b, e.Y, hint)
		},
	})
	x, y := vals[0], vals[1]
	if x.typ.Kind == Never || y.typ.Kind == Never {
		return neverValue
	}
	if !compatible(x.typ, y.typ) {
		c.fail(errors.NewTypeError(e.Pos, "mismatched types: expected `%s`, found `%s`", x.typ, y.typ))
	}

	switch e.Op {
	case types.EQEQ:
		return boolValue(c.equal(b, x, y, e))
	case types.NOTEQ:
		return boolValue(negate(c.equal(b, x, y, e)))
	}
	return boolValue(c.ordering(b, e.Op, x, y, e))
}

// equal is the condition that two values of the same type are equal.
func (c *Context) equal(b *block, x, y value, e *ast.Binary) ir.Cond {
	switch x.typ.Kind {
	case Unit:
		return &ir.True{}
	case Int:
		if x.lit != nil && y.lit != nil {
			return constCond(*x.lit == *y.lit)
		}
		return &ir.Test{Args: []ir.Word{ir.ArithWord(x.arith), ir.LitWord("-eq"), ir.ArithWord(y.arith)}}
	case Struct, Tuple, Array:
		var cond ir.Cond = &ir.True{}
		for i := range x.fields {
			cond = and(cond, c.equal(b, x.fields[i], y.fields[i], e))
		}
		return cond
	case Args, Stdin, Stdout:
		c.fail(errors.NewTypeError(e.Pos, "binary operation `%s` cannot be applied to type `%s`", opText[e.Op], x.typ))
	}
	xw, yw := c.word(b, x), c.word(b, y)
	xs, xok := xw.Static()
	ys, yok := yw.Static()
	if xok && yok {
		return constCond(xs == ys)
	}
	return &ir.Test{Args: []ir.Word{xw, ir.LitWord("="), yw}}
}

func (c *Context) ordering(b *block, op types.TokenKind, x, y value, e *ast.Binary) ir.Cond {
	switch x.typ.Kind {
	case Int:
		if x.lit != nil && y.lit != nil {
			return constCond(foldCompare(op, *x.lit, *y.lit))
		}
		return &ir.Test{Args: []ir.Word{ir.ArithWord(x.arith), ir.LitWord(intTests[op]), ir.ArithWord(y.arith)}}
	case Char:
		xc, yc := c.charCode(b, x), c.charCode(b, y)
		if xc.lit != nil && yc.lit != nil {
			return constCond(foldCompare(op, *xc.lit, *yc.lit))
		}
		return &ir.Test{Args: []ir.Word{ir.ArithWord(xc.arith), ir.LitWord(intTests[op]), ir.ArithWord(yc.arith)}}
	case Str:
		c.fail(errors.NewTypeError(e.Pos, "ordering comparison `%s` on strings cannot be expressed in POSIX sh", opText[e.Op]))
	case Bool:
		xi := c.boolInt(b, x)
		yi := c.boolInt(b, y)
		return &ir.Test{Args: []ir.Word{ir.ArithWord(xi.arith), ir.LitWord(intTests[op]), ir.ArithWord(yi.arith)}}
	}
	c.unsupported(e.Pos, "ordering comparison on `"+x.typ.String()+"`")
	return nil
}

// boolInt is 1 for true and 0 for false.
func (c *Context) boolInt(b *block, v value) value {
	switch v.cond.(type) {
	case *ir.True:
		return litInt(tInt("u8"), 1)
	case *ir.False:
		return litInt(tInt("u8"), 0)
	}
	t := c.temp()
	b.add(&ir.If{
		Cond: v.cond,
		Then: []ir.Stmt{&ir.Assign{Name: t, Value: ir.LitWord("1")}},
		Else: []ir.Stmt{&ir.Assign{Name: t, Value: ir.LitWord("0")}},
	})
	return c.load(tInt("u8"), t)
}

func foldCompare(op types.TokenKind, x, y int64) bool {
	switch op {
	case types.EQEQ:
		return x == y
	case types.NOTEQ:
		return x != y
	case types.LT:
		return x < y
	case types.LE:
		return x <= y
	case types.GT:
		return x > y
	}
	return x >= y
}

func constCond(ok bool) ir.Cond {
	if ok {
		return &ir.True{}
	}
	return &ir.False{}
}

// and joins two conditions, dropping constant operands.
func and(x, y ir.Cond) ir.Cond {
	switch x.(type) {
	case *ir.True:
		return y
	case *ir.False:
		return x
	}
	if _, ok := y.(*ir.True); ok {
		return x
	}
	return &ir.And{X: x, Y: y}
}

func or(x, y ir.Cond) ir.Cond {
	switch x.(type) {
	case *ir.False:
		return y
	case *ir.True:
		return x
	}
	if _, ok := y.(*ir.False); ok {
		return x
	}
	return &ir.Or{X: x, Y: y}
}

// logical lowers `&&` and `||`. Statements the right operand needs run
// only when it is evaluated.
func (c *Context) logical(b *block, e *ast.Binary) value {
	x := c.expr(b, e.X, tBool)
	xc := c.cond(b, x, e.X)
	if x.typ.Kind == Never {
		return neverValue
	}

	sub := &block{}
	y := c.expr(sub, e.Y, tBool)
	yc := c.cond(sub, y, e.Y)
	if len(sub.stmts) > 0 {
		yc = &ir.Seq{Pre: sub.stmts, X: yc}
	}
	if e.Op == types.ANDAND {
		return boolValue(and(xc, yc))
	}
	return boolValue(or(xc, yc))
}

// condition lowers the condition of `if` or `while`. Pattern bindings of
// `let` conditions are returned to be declared in the guarded block.
func (c *Context) condition(b *block, e ast.Expression) (ir.Cond, []binding) {
	if lc, ok := e.(*ast.LetCond); ok {
		v := c.stable(b, c.expr(b, lc.Value, nil))
		return c.pattern(b, lc.Pat, v)
	}
	v := c.expr(b, e, tBool)
	return c.cond(b, v, e), nil
}

func (c *Context) ifExpr(b *block, e *ast.If, want *Type) value {
	cond, binds := c.condition(b, e.Cond)

	c.pushScope()
	then := &block{}
	c.declareAll(then, binds)
	tv := c.block(then, e.Then, want)
	c.popScope()

	els := &block{}
	ev := unitValue
	var elseExpr ast.Expression = e.Then
	switch v := e.Else.(type) {
	case *ast.Block:
		ev = c.block(els, v, want)
		elseExpr = tailOf(v)
	case *ast.If:
		ev = c.ifExpr(els, v, want)
		elseExpr = v
	default:
		if tv.typ.Kind != Unit && tv.typ.Kind != Never {
			c.fail(errors.NewTypeError(e.Pos, "`if` may be missing an `else` clause: expected `()`, found `%s`", tv.typ))
		}
	}

	v := c.merge("`if` and `else`", []*block{then, els}, []value{tv, ev}, []ast.Expression{tailOf(e.Then), elseExpr}, want)
	switch cond.(type) {
	case *ir.True:
		b.add(then.stmts...)
	case *ir.False:
		b.add(els.stmts...)
	default:
		b.add(&ir.If{Cond: cond, Then: then.stmts, Else: els.stmts})
	}
	return v
}

// merge joins the values of alternative branches. Each branch stores its
// value into a shared result before control leaves it.
func (c *Context) merge(what string, arms []*block, vals []value, exprs []ast.Expression, want *Type) value {
	t := want
	if t != nil && t.Kind == Int && t.Name == "" {
		t = nil
	}
	var first *Type
	for i, v := range vals {
		if v.typ.Kind == Never {
			continue
		}
		if first == nil {
			first = v.typ
		}
		if !compatible(first, v.typ) {
			c.fail(errors.NewTypeError(exprs[i].Location(), "%s have incompatible types: expected `%s`, found `%s`", what, first, v.typ))
		}
		t = unify(t, v.typ)
	}
	if first == nil {
		return neverValue
	}
	switch t.Kind {
	case Unit:
		for i, v := range vals {
			c.discard(arms[i], v)
		}
		return unitValue
	case Args, Stdin, Stdout:
		c.unsupported(exprs[0].Location(), "branches producing `"+t.String()+"`")
	case Int:
		if t.Name == "" {
			t = tInt("i32")
		}
	}
	res := c.temp()
	for i, v := range vals {
		if v.typ.Kind == Never {
			continue
		}
		v.typ = t
		c.store(arms[i], res, v)
	}
	return c.load(t, res)
}

type binding struct {
	id  ast.Identifier
	mut bool
	v   value
}

func (c *Context) declareAll(b *block, binds []binding) {
	for _, bd := range binds {
		c.bind(b, bd.id, bd.mut, bd.v)
	}
}

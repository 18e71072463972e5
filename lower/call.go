package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

func (c *Context) call(b *block, call *ast.Call, want *Type) value {
	p, ok := call.Func.(*ast.Path)
	if !ok {
		c.unsupported(call.Func.Location(), "call of a computed function value")
	}
	if len(p.Segments) == 1 {
		if sym, local := c.lookup(p.Segments[0]); local && sym.alias == nil {
			c.fail(errors.NewTypeError(p.Pos, "expected function, found local variable `%s`", p.Segments[0]))
		}
	}
	path := c.expandPath(p.Segments)
	if len(path) == 1 {
		if fn, ok := c.funcs[path[0]]; ok {
			return c.userCall(b, fn, call)
		}
	}
	if v, ok := c.variant(b, p.Segments, call.Args, want, call.Pos); ok {
		return v
	}
	if len(path) == 1 {
		var names []string
		for n := range c.funcs {
			names = append(names, n)
		}
		c.unknown("function", path[0], p.Pos, append(names, "Some", "Ok", "Err"))
	}
	return c.libCall(b, path, call, want)
}

// lowerArgs evaluates call arguments left to right against the given
// parameter types; a nil type accepts anything.
func (c *Context) lowerArgs(b *block, call ast.Expression, args []ast.Expression, params []*Type) []value {
	if len(args) != len(params) {
		plural := "s"
		if len(params) == 1 {
			plural = ""
		}
		c.fail(errors.NewTypeError(call.Location(), "this function takes %d argument%s but %d were supplied", len(params), plural, len(args)))
	}
	var lower []func(*block) value
	for i, a := range args {
		i, a := i, a
		lower = append(lower, func(b *block) value {
			v := c.expr(b, a, params[i])
			c.expect(params[i], v.typ, a)
			if params[i] != nil {
				v.typ = unify(params[i], v.typ)
			}
			return v
		})
	}
	return c.exprsInOrder(b, lower)
}

func anyNever(vals []value) bool {
	for _, v := range vals {
		if v.typ.Kind == Never {
			return true
		}
	}
	return false
}

func (c *Context) userCall(b *block, fn *function, call *ast.Call) value {
	if fn.conv == entryFn {
		c.unsupported(call.Pos, "calling the entry function `"+fn.decl.Ident.Name+"`")
	}
	vals := c.lowerArgs(b, call, call.Args, fn.params)
	if anyNever(vals) {
		return neverValue
	}
	var args []ir.Word
	for _, v := range vals {
		args = append(args, c.flatten(b, v)...)
	}
	cmd := ir.Cmd(fn.shellName, args...)

	switch fn.conv {
	case unitFn:
		b.add(&ir.Exec{Cmd: cmd, Check: fn.recursive})
		if fn.ret.Kind == Never {
			return neverValue
		}
		return unitValue
	case statusFn:
		return value{typ: fn.ret, status: &status{cond: &ir.CmdCond{Cmd: cmd}, err: ir.VarWord(errName)}}
	}
	t := c.temp()
	b.add(&ir.Assign{Name: t, Value: ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{cmd}}}}, Check: true})
	if needsSentinel(fn.ret) {
		b.add(&ir.Assign{Name: t, Value: stripSentinel(t)})
	}
	return c.load(fn.ret, t)
}

// try lowers `x?`, returning early from the current function on None or
// Err.
func (c *Context) try(b *block, t *ast.Try) value {
	x := c.expr(b, t.X, nil)
	if x.typ.Kind == Never {
		return x
	}
	if c.fn == nil {
		c.fail(errors.NewTypeError(t.Pos, "the `?` operator can only be used in a function"))
	}
	ret := c.fn.ret
	okTag, failTag := "Ok", "Err"
	switch x.typ.Kind {
	case Option:
		if ret.Kind != Option {
			c.fail(errors.NewTypeError(t.Pos, "the `?` operator can only be used on `Option`s in a function that returns `Option`"))
		}
		okTag, failTag = "Some", "None"
	case Result:
		if ret.Kind != Result {
			c.fail(errors.NewTypeError(t.Pos, "the `?` operator can only be used on `Result`s in a function that returns `Result`"))
		}
		if !compatible(ret.Err, x.typ.Err) {
			c.fail(errors.NewTypeError(t.Pos, "`?` couldn't convert the error to `%s`: found `%s`", ret.Err, x.typ.Err))
		}
	default:
		c.fail(errors.NewTypeError(t.Pos, "the `?` operator can only be applied to values that implement `Try`, found `%s`", x.typ))
	}

	propagate := func(b *block, payload ir.Word) {
		rv := value{typ: ret, tag: "None", word: ir.LitWord("None:")}
		if failTag == "Err" {
			ev := c.fromWord(b, ret.Err, payload)
			rv = value{typ: ret, tag: "Err", payload: &ev, word: ir.Concat(ir.LitWord("Err:"), c.word(b, ev))}
		}
		c.returnValue(b, rv, t)
	}
	elem := func() *Type {
		if x.typ.Elem == nil {
			c.fail(errors.NewTypeError(t.Pos, "type annotations needed for the value of `?`"))
		}
		return x.typ.Elem
	}

	switch {
	case x.status != nil:
		fail := &block{}
		propagate(fail, x.status.err)
		b.add(&ir.If{Cond: negate(x.status.cond), Then: fail.stmts})
		return c.fromWord(b, elem(), x.status.ok)
	case x.tag == failTag:
		var w ir.Word
		if x.payload != nil {
			w = c.word(b, *x.payload)
		}
		propagate(b, w)
		return neverValue
	case x.tag == okTag:
		if x.payload == nil {
			return unitValue
		}
		return *x.payload
	}
	n := c.name(b, x)
	fail := &block{}
	propagate(fail, payloadWord(n))
	b.add(&ir.If{Cond: &ir.CaseCond{Subject: ir.VarWord(n), Patterns: []ir.Word{tagPattern(failTag)}}, Then: fail.stmts})
	return c.fromWord(b, elem(), payloadWord(n))
}

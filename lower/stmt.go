package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

// block lowers a block in a new scope and returns the value of its tail.
func (c *Context) block(b *block, blk *ast.Block, want *Type) value {
	c.enter(blk.Pos)
	defer c.leave()
	c.pushScope()
	defer c.popScope()

	diverged := false
	for _, s := range blk.Stmts {
		if c.stmt(b, s).typ.Kind == Never {
			diverged = true
		}
	}
	if blk.Tail == nil {
		if diverged {
			return neverValue
		}
		return unitValue
	}
	v := c.expr(b, blk.Tail, want)
	if diverged {
		v.typ = unify(v.typ, tNever)
	}
	return v
}

func (c *Context) stmt(b *block, s ast.Stmt) value {
	c.enter(s.Location())
	defer c.leave()

	switch st := s.(type) {
	case *ast.Let:
		c.let(b, st)
		return unitValue
	case *ast.ExprStmt:
		v := c.expr(b, st.X, nil)
		if v.typ.Kind == Never {
			return v
		}
		if !st.Semi && v.typ.Kind != Unit && isBlockLike(st.X) {
			c.fail(errors.NewTypeError(st.X.Location(), "mismatched types: expected `()`, found `%s`", v.typ))
		}
		c.discard(b, v)
		return unitValue
	}
	panic("unhandled statement")
}

func isBlockLike(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Block, *ast.If, *ast.Match, *ast.While, *ast.Loop, *ast.For:
		return true
	}
	return false
}

// discard runs whatever part of an unused value has effects.
func (c *Context) discard(b *block, v value) {
	switch {
	case v.status != nil:
		if cmd, ok := v.status.cond.(*ir.CmdCond); ok {
			b.add(&ir.Exec{Cmd: cmd.Cmd})
			return
		}
		c.materialize(b, v)
	case v.typ.Kind == Bool:
		if _, ok := v.cond.(*ir.Seq); ok {
			b.add(&ir.If{Cond: v.cond})
		}
	}
}

func (c *Context) let(b *block, l *ast.Let) {
	var want *Type
	if l.Kind != nil {
		want = c.resolveType(l.Kind)
	}
	if l.Value == nil {
		bind, ok := l.Pat.(*ast.BindPat)
		if !ok || want == nil {
			c.fail(errors.NewTypeError(l.Pos, "type annotations needed for a deferred binding"))
		}
		c.checkIdent(bind.Ident)
		c.declare(bind.Ident, &symbol{name: c.fresh(bind.Ident.Name), typ: want, mut: bind.Mut, deferred: true})
		return
	}

	v := c.expr(b, l.Value, want)
	if want != nil && want.Kind == Array && v.typ.Kind == Args {
		// a collected env::args() keeps its own representation
		want = nil
	}
	if want != nil {
		c.expect(want, v.typ, l.Value)
		v.typ = unify(want, v.typ)
	}
	c.bindIrrefutable(b, l.Pat, v)
}

// bindIrrefutable binds the names in a pattern that always matches.
func (c *Context) bindIrrefutable(b *block, p ast.Pattern, v value) {
	switch pat := p.(type) {
	case *ast.WildcardPat:
		c.discard(b, v)
	case *ast.BindPat:
		if pat.Sub != nil || c.isUnitVariant(pat.Ident.Name) {
			break
		}
		c.bind(b, pat.Ident, pat.Mut, v)
		return
	case *ast.TuplePat:
		if v.typ.Kind != Tuple || len(v.typ.Elems) != len(pat.Elems) {
			c.fail(errors.NewTypeError(pat.Pos, "mismatched types: expected `%s`, found a tuple pattern", v.typ))
		}
		fields := v.fields
		for i, e := range pat.Elems {
			c.bindIrrefutable(b, e, fields[i])
		}
		return
	case *ast.StructPat:
		sd, ok := c.structs[pat.Path[len(pat.Path)-1]]
		if !ok || v.typ.Kind != Struct || v.typ.Name != sd.decl.Ident.Name {
			break
		}
		for _, f := range pat.Fields {
			i := indexOf(sd.fields, f.Ident.Name)
			if i < 0 {
				c.fail(errors.NewTypeError(f.Ident.Pos, "struct `%s` does not have a field named `%s`", v.typ.Name, f.Ident.Name))
			}
			c.bindIrrefutable(b, f.Pat, v.fields[i])
		}
		return
	}
	if _, ok := p.(*ast.WildcardPat); ok {
		return
	}
	c.fail(errors.NewTypeError(p.Location(), "refutable pattern in local binding"))
}

// bind stores v under a fresh generation of id and declares it.
func (c *Context) bind(b *block, id ast.Identifier, mut bool, v value) {
	c.checkIdent(id)
	switch v.typ.Kind {
	case Args:
		c.declare(id, &symbol{typ: v.typ, alias: &v})
		return
	case Stdin, Stdout:
		c.declare(id, &symbol{typ: v.typ, alias: &v})
		return
	}
	if v.typ.Kind == Int && v.typ.Name == "" {
		v.typ = tInt("i32")
	}
	name := c.fresh(id.Name)
	c.store(b, name, v)
	c.declare(id, &symbol{name: name, typ: v.typ, mut: mut})
}

func indexOf(list []string, s string) int {
	for i, x := range list {
		if x == s {
			return i
		}
	}
	return -1
}

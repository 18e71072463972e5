package lower

import (
	"fmt"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

func (c *Context) macro(b *block, m *ast.MacroCall, want *Type) value {
	switch m.Name {
	case "println", "print", "eprintln", "eprint":
		w := c.format(b, m.Format)
		format := "%s"
		if m.Name == "println" || m.Name == "eprintln" {
			format += "\n"
		}
		cmd := ir.Printf(format, w)
		if m.Name[0] == 'e' {
			cmd = redirect(cmd, 2)
		} else {
			cmd = c.stdout(cmd)
		}
		b.add(&ir.Exec{Cmd: cmd})
		return unitValue
	case "format":
		return wordValue(tStr, c.format(b, m.Format))
	case "assert":
		c.assert(b, m)
		return unitValue
	case "assert_eq", "assert_ne":
		c.assertCompare(b, m)
		return unitValue
	case "panic":
		msg := ir.LitWord("explicit panic")
		if m.Format != nil {
			msg = c.format(b, m.Format)
		}
		c.panicAt(b, m.Pos, msg)
		return neverValue
	case "unreachable":
		msg := ir.LitWord("internal error: entered unreachable code")
		if m.Format != nil {
			msg = ir.Concat(msg, ir.LitWord(": "), c.format(b, m.Format))
		}
		c.panicAt(b, m.Pos, msg)
		return neverValue
	}
	c.unsupported(m.Pos, "macro `"+m.Name+"!`")
	return value{}
}

// panicAt reports a panic the way the Rust runtime does and exits with
// status 101.
func (c *Context) panicAt(b *block, at types.Span, msg ir.Word) {
	file := at.From.Filename
	if file == "" {
		file = "src/main.rs"
	}
	loc := fmt.Sprintf("thread 'main' panicked at %s:%d:%d:", file, at.From.Line, at.From.Column)
	cmd := ir.Cmd("printf", ir.LitWord("%s\n"), ir.LitWord(loc), msg)
	b.add(&ir.Exec{Cmd: redirect(cmd, 2)})
	b.add(&ir.Exit{Status: ir.LitWord("101")})
}

func (c *Context) assert(b *block, m *ast.MacroCall) {
	v := c.expr(b, m.Args[0], tBool)
	cond := c.cond(b, v, m.Args[0])
	if _, ok := cond.(*ir.True); ok {
		return
	}
	fail := &block{}
	msg := ir.LitWord("assertion failed: " + m.Text)
	if m.Format != nil {
		msg = c.format(fail, m.Format)
	}
	c.panicAt(fail, m.Pos, msg)
	b.add(&ir.If{Cond: negate(cond), Then: fail.stmts})
}

func (c *Context) assertCompare(b *block, m *ast.MacroCall) {
	var x value
	vals := c.exprsInOrder(b, []func(*block) value{
		func(b *block) value {
			x = c.expr(b, m.Args[0], nil)
			return x
		},
		func(b *block) value {
			hint := x.typ
			if hint.Kind == Int && hint.Name == "" {
				hint = nil
			}
			return c.expr(b, m.Args[1], hint)
		},
	})
	if !compatible(vals[0].typ, vals[1].typ) {
		c.fail(errors.NewTypeError(m.Args[1].Location(), "mismatched types: expected `%s`, found `%s`", vals[0].typ, vals[1].typ))
	}
	left, right := c.stable(b, vals[0]), c.stable(b, vals[1])

	op := types.EQEQ
	if m.Name == "assert_ne" {
		op = types.NOTEQ
	}
	eq := c.equal(b, left, right, &ast.Binary{Op: op, X: m.Args[0], Y: m.Args[1], Pos: m.Pos})
	failing := negate(eq)
	if op == types.NOTEQ {
		failing = eq
	}
	if _, ok := failing.(*ir.False); ok {
		return
	}

	fail := &block{}
	msg := ir.LitWord("assertion `left " + opText[op] + " right` failed")
	if m.Format != nil {
		msg = ir.Concat(msg, ir.LitWord(": "), c.format(fail, m.Format))
	}
	msg = ir.Concat(msg,
		ir.LitWord("\n  left: "), c.debug(fail, left),
		ir.LitWord("\n right: "), c.debug(fail, right))
	c.panicAt(fail, m.Pos, msg)
	b.add(&ir.If{Cond: failing, Then: fail.stmts})
}

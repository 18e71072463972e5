package lower

import (
	"github.com/pontaoski/tawash/ir"
)

// writes collects every variable the statements may assign.
func writes(stmts []ir.Stmt, out map[ir.Name]bool) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ir.Assign:
			out[st.Name] = true
		case *ir.If:
			condWrites(st.Cond, out)
			writes(st.Then, out)
			writes(st.Else, out)
		case *ir.While:
			condWrites(st.Cond, out)
			writes(st.Body, out)
		case *ir.For:
			out[st.Var] = true
			writes(st.Body, out)
		case *ir.Case:
			for _, arm := range st.Arms {
				writes(arm.Body, out)
			}
		case *ir.Exec:
			for _, e := range st.Cmd.Env {
				out[ir.Name{Base: e.Name}] = true
			}
			if st.Cmd.Name == "read" || st.Cmd.Name == "unset" {
				for _, a := range st.Cmd.Args {
					if s, ok := a.Static(); ok {
						out[ir.Name{Base: s}] = true
					}
				}
			}
		}
	}
}

func condWrites(c ir.Cond, out map[ir.Name]bool) {
	switch v := c.(type) {
	case *ir.Capture:
		out[v.Name] = true
	case *ir.Not:
		condWrites(v.X, out)
	case *ir.And:
		condWrites(v.X, out)
		condWrites(v.Y, out)
	case *ir.Or:
		condWrites(v.X, out)
		condWrites(v.Y, out)
	case *ir.Seq:
		writes(v.Pre, out)
		condWrites(v.X, out)
	}
}

// reads reports whether v reads any of the given variables.
func reads(v value, names map[ir.Name]bool) bool {
	if len(names) == 0 {
		return false
	}
	if v.status != nil {
		return true
	}
	for _, f := range v.fields {
		if reads(f, names) {
			return true
		}
	}
	return wordReads(v.word, names) || arithReads(v.arith, names) || condReads(v.cond, names)
}

func wordReads(w ir.Word, names map[ir.Name]bool) bool {
	for _, p := range w.Parts {
		switch v := p.(type) {
		case *ir.Var:
			if names[v.Name] || (v.Arg != nil && wordReads(*v.Arg, names)) {
				return true
			}
		case *ir.ArithPart:
			if arithReads(v.X, names) {
				return true
			}
		case *ir.CmdSubst:
			for _, cmd := range v.List {
				for _, a := range cmd.Args {
					if wordReads(a, names) {
						return true
					}
				}
			}
		}
	}
	return false
}

func arithReads(x ir.Arith, names map[ir.Name]bool) bool {
	switch v := x.(type) {
	case *ir.Ref:
		return names[v.Name]
	case *ir.UnaryArith:
		return arithReads(v.X, names)
	case *ir.BinaryArith:
		return arithReads(v.X, names) || arithReads(v.Y, names)
	}
	return false
}

func condReads(c ir.Cond, names map[ir.Name]bool) bool {
	switch v := c.(type) {
	case nil:
		return false
	case *ir.Test:
		for _, a := range v.Args {
			if wordReads(a, names) {
				return true
			}
		}
	case *ir.CaseCond:
		if wordReads(v.Subject, names) {
			return true
		}
		for _, p := range v.Patterns {
			if wordReads(p, names) {
				return true
			}
		}
	case *ir.Not:
		return condReads(v.X, names)
	case *ir.And:
		return condReads(v.X, names) || condReads(v.Y, names)
	case *ir.Or:
		return condReads(v.X, names) || condReads(v.Y, names)
	case *ir.CmdCond, *ir.Capture, *ir.Seq:
		return true
	}
	return false
}

// exprs lowers expressions left to right. When a later expression needs
// statements that assign a variable an earlier value reads, the earlier
// value is copied first so evaluation order is kept.
func (c *Context) exprsInOrder(b *block, lower []func(b *block) value) []value {
	vals := make([]value, len(lower))
	for i, f := range lower {
		sub := &block{}
		v := f(sub)
		if len(sub.stmts) > 0 {
			w := map[ir.Name]bool{}
			writes(sub.stmts, w)
			for j := 0; j < i; j++ {
				if reads(vals[j], w) {
					vals[j] = c.snapshot(b, vals[j])
				}
			}
		}
		b.add(sub.stmts...)
		vals[i] = v
	}
	return vals
}

package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

// payloadWord is the payload of the tagged value stored in n.
func payloadWord(n ir.Name) ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Var{Name: n, Op: "#", Arg: &ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "*:"}}}}}}
}

// tagPattern matches any tagged value with the given tag.
func tagPattern(tag string) ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Lit{Text: tag + ":"}, &ir.Glob{Pattern: "*"}}}
}

// fromWord is a value of type t read from w.
func (c *Context) fromWord(b *block, t *Type, w ir.Word) value {
	switch t.Kind {
	case Unit:
		return unitValue
	case Int, Bool:
		n := c.temp()
		b.add(&ir.Assign{Name: n, Value: w})
		return c.load(t, n)
	}
	return wordValue(t, w)
}

// stable returns v in a form that can be read repeatedly without
// re-running anything.
func (c *Context) stable(b *block, v value) value {
	if v.status != nil {
		v = c.materialize(b, v)
	}
	switch v.typ.Kind {
	case Unit, Never, Args, Stdin, Stdout:
		return v
	case Struct, Tuple, Array:
		fields := make([]value, len(v.fields))
		for i, f := range v.fields {
			fields[i] = c.stable(b, f)
		}
		v.fields = fields
		return v
	case Int:
		switch v.arith.(type) {
		case *ir.Num, *ir.Ref:
			return v
		}
	case Bool:
		switch v.cond.(type) {
		case *ir.True, *ir.False:
			return v
		}
		if plainVar(v.word) {
			return v
		}
	default:
		if _, ok := v.word.Static(); ok || plainVar(v.word) {
			return v
		}
	}
	t := c.temp()
	c.store(b, t, v)
	return c.load(v.typ, t)
}

func plainVar(w ir.Word) bool {
	if len(w.Parts) != 1 {
		return false
	}
	v, ok := w.Parts[0].(*ir.Var)
	return ok && v.Op == ""
}

// pattern returns the condition under which p matches the stable value v
// and the names it binds. Statements the tests depend on are added to b;
// they never have effects.
func (c *Context) pattern(b *block, p ast.Pattern, v value) (ir.Cond, []binding) {
	c.enter(p.Location())
	defer c.leave()

	switch pat := p.(type) {
	case *ast.WildcardPat:
		return &ir.True{}, nil
	case *ast.BindPat:
		if pat.Sub == nil && c.isUnitVariant(pat.Ident.Name) {
			return c.variantPattern(b, []string{pat.Ident.Name}, nil, v, pat.Ident.Pos)
		}
		var cond ir.Cond = &ir.True{}
		var binds []binding
		if pat.Sub != nil {
			cond, binds = c.pattern(b, pat.Sub, v)
		}
		return cond, append(binds, binding{id: pat.Ident, mut: pat.Mut, v: v})
	case *ast.LitPat:
		return c.litPattern(b, pat, v), nil
	case *ast.RangePat:
		return c.rangePattern(b, pat, v), nil
	case *ast.OrPat:
		var cond ir.Cond = &ir.False{}
		for _, alt := range pat.Alts {
			ac, binds := c.pattern(b, alt, v)
			if len(binds) > 0 {
				c.unsupported(alt.Location(), "bindings inside an or-pattern")
			}
			cond = or(cond, ac)
		}
		return cond, nil
	case *ast.TuplePat:
		if len(pat.Elems) == 0 && v.typ.Kind == Unit {
			return &ir.True{}, nil
		}
		if v.typ.Kind != Tuple || len(v.typ.Elems) != len(pat.Elems) {
			c.fail(errors.NewTypeError(pat.Pos, "mismatched types: expected `%s`, found a tuple pattern with %d elements", v.typ, len(pat.Elems)))
		}
		var cond ir.Cond = &ir.True{}
		var binds []binding
		for i, e := range pat.Elems {
			ec, eb := c.pattern(b, e, v.fields[i])
			cond = and(cond, ec)
			binds = append(binds, eb...)
		}
		return cond, binds
	case *ast.StructPat:
		name := c.expandPath(pat.Path)
		sd, ok := c.structs[name[len(name)-1]]
		if !ok || v.typ.Kind != Struct || v.typ.Name != sd.decl.Ident.Name {
			c.fail(errors.NewTypeError(pat.Pos, "mismatched types: expected `%s`, found struct pattern `%s`", v.typ, name[len(name)-1]))
		}
		var cond ir.Cond = &ir.True{}
		var binds []binding
		seen := map[string]bool{}
		for _, f := range pat.Fields {
			i := indexOf(sd.fields, f.Ident.Name)
			if i < 0 {
				c.fail(errors.NewTypeError(f.Ident.Pos, "struct `%s` does not have a field named `%s`", v.typ.Name, f.Ident.Name))
			}
			seen[f.Ident.Name] = true
			fc, fb := c.pattern(b, f.Pat, v.fields[i])
			cond = and(cond, fc)
			binds = append(binds, fb...)
		}
		if !pat.Rest {
			for _, f := range sd.fields {
				if !seen[f] {
					c.fail(errors.NewTypeError(pat.Pos, "pattern does not mention field `%s`", f))
				}
			}
		}
		return cond, binds
	case *ast.VariantPat:
		return c.variantPattern(b, pat.Path, pat.Args, v, pat.Pos)
	}
	panic("unhandled pattern")
}

func (c *Context) variantPattern(b *block, path []string, args []ast.Pattern, v value, at types.Span) (ir.Cond, []binding) {
	vi, ok := c.resolveVariant(path)
	if !ok {
		var names []string
		for n := range c.enums {
			names = append(names, n)
		}
		c.unknown("variant", path[len(path)-1], at, append(names, "Some", "None", "Ok", "Err"))
	}

	var pt *Type
	switch {
	case vi.enum == "Option" && v.typ.Kind == Option:
		pt = v.typ.Elem
	case vi.enum == "Result" && v.typ.Kind == Result:
		pt = v.typ.Elem
		if vi.tag == "Err" {
			pt = v.typ.Err
		}
	case v.typ.Kind == Enum && v.typ.Name == vi.enum:
		pt = vi.payload
	default:
		c.fail(errors.NewTypeError(at, "mismatched types: expected `%s`, found variant `%s`", v.typ, vi.tag))
	}

	if vi.unit && len(args) > 0 {
		c.fail(errors.NewTypeError(at, "this pattern has %d fields, but the variant `%s` has 0 fields", len(args), vi.tag))
	}
	if !vi.unit && len(args) != 1 {
		c.fail(errors.NewTypeError(at, "this pattern has %d fields, but the variant `%s` has 1 field", len(args), vi.tag))
	}

	var cond ir.Cond
	if v.tag != "" {
		cond = constCond(v.tag == vi.tag)
	} else {
		cond = &ir.CaseCond{Subject: v.word, Patterns: []ir.Word{tagPattern(vi.tag)}}
	}
	if len(args) == 0 {
		return cond, nil
	}
	if _, ok := args[0].(*ast.WildcardPat); ok {
		return cond, nil
	}
	if pt == nil {
		c.fail(errors.NewTypeError(at, "type annotations needed for the payload of `%s`", vi.tag))
	}

	var pv value
	switch {
	case v.payload != nil && v.tag == vi.tag:
		pv = c.stable(b, *v.payload)
	default:
		pv = c.stable(b, c.fromWord(b, pt, c.payloadOf(b, v)))
	}
	pc, binds := c.pattern(b, args[0], pv)
	return and(cond, pc), binds
}

// payloadOf is the payload of a stable tagged value.
func (c *Context) payloadOf(b *block, v value) ir.Word {
	if s, ok := v.word.Static(); ok {
		for i := 0; i < len(s); i++ {
			if s[i] == ':' {
				return ir.LitWord(s[i+1:])
			}
		}
		return ir.LitWord("")
	}
	return payloadWord(c.name(b, v))
}

func (c *Context) litPattern(b *block, lp *ast.LitPat, v value) ir.Cond {
	lit := c.patternLit(lp)
	c.expect(v.typ, lit.typ, lp.Value)
	switch v.typ.Kind {
	case Bool:
		if _, ok := lit.cond.(*ir.True); ok {
			return v.cond
		}
		return negate(v.cond)
	case Int:
		if v.lit != nil {
			return constCond(*v.lit == *lit.lit)
		}
		return &ir.Test{Args: []ir.Word{ir.ArithWord(v.arith), ir.LitWord("-eq"), ir.ArithWord(lit.arith)}}
	}
	if s, ok := v.word.Static(); ok {
		ls, _ := lit.word.Static()
		return constCond(s == ls)
	}
	return &ir.Test{Args: []ir.Word{v.word, ir.LitWord("="), lit.word}}
}

// patternLit is the value a literal pattern stands for.
func (c *Context) patternLit(lp *ast.LitPat) value {
	switch l := lp.Value.(type) {
	case *ast.IntLit:
		n := int64(l.Value)
		if lp.Neg {
			n = -n
		}
		return litInt(tUntyped, n)
	case *ast.BoolLit:
		return boolValue(constCond(l.Value))
	case *ast.CharLit:
		if l.Byte {
			return litInt(tInt("u8"), int64(l.Value))
		}
		return wordValue(tChar, ir.LitWord(string(l.Value)))
	case *ast.StrLit:
		return wordValue(&Type{Kind: Str, Name: "&str"}, ir.LitWord(l.Value))
	}
	panic("unhandled literal pattern")
}

func (c *Context) rangePattern(b *block, rp *ast.RangePat, v value) ir.Cond {
	var x value
	switch v.typ.Kind {
	case Int:
		x = v
	case Char:
		x = c.charCode(b, v)
	default:
		c.fail(errors.NewTypeError(rp.Pos, "only `char` and numeric types are allowed in range patterns, found `%s`", v.typ))
	}
	bound := func(lp *ast.LitPat) int64 {
		lit := c.patternLit(lp)
		if v.typ.Kind == Char {
			c.expect(tChar, lit.typ, lp.Value)
			s, _ := lit.word.Static()
			return int64([]rune(s)[0])
		}
		c.expect(v.typ, lit.typ, lp.Value)
		return *lit.lit
	}

	var cond ir.Cond = &ir.True{}
	test := func(op string, n int64) ir.Cond {
		if x.lit != nil {
			switch op {
			case "-ge":
				return constCond(*x.lit >= n)
			case "-le":
				return constCond(*x.lit <= n)
			}
			return constCond(*x.lit < n)
		}
		return &ir.Test{Args: []ir.Word{ir.ArithWord(x.arith), ir.LitWord(op), ir.IntWord(n)}}
	}
	if rp.From != nil {
		cond = and(cond, test("-ge", bound(rp.From)))
	}
	if rp.To != nil {
		if rp.Inclusive {
			cond = and(cond, test("-le", bound(rp.To)))
		} else {
			cond = and(cond, test("-lt", bound(rp.To)))
		}
	}
	return cond
}

// catchAll reports whether p matches every value of its type.
func (c *Context) catchAll(p ast.Pattern) bool {
	switch pat := p.(type) {
	case *ast.WildcardPat:
		return true
	case *ast.BindPat:
		if pat.Sub != nil {
			return c.catchAll(pat.Sub)
		}
		return !c.isUnitVariant(pat.Ident.Name)
	case *ast.TuplePat:
		for _, e := range pat.Elems {
			if !c.catchAll(e) {
				return false
			}
		}
		return true
	case *ast.StructPat:
		for _, f := range pat.Fields {
			if !c.catchAll(f.Pat) {
				return false
			}
		}
		return true
	case *ast.OrPat:
		for _, alt := range pat.Alts {
			if c.catchAll(alt) {
				return true
			}
		}
	}
	return false
}

// covers adds the variants or boolean values p matches in full.
func (c *Context) covers(p ast.Pattern, seen map[string]bool) {
	switch pat := p.(type) {
	case *ast.BindPat:
		if pat.Sub != nil {
			c.covers(pat.Sub, seen)
		} else if vi, ok := c.resolveVariant([]string{pat.Ident.Name}); ok && c.isUnitVariant(pat.Ident.Name) {
			seen[vi.tag] = true
		}
	case *ast.VariantPat:
		vi, ok := c.resolveVariant(pat.Path)
		if ok && (len(pat.Args) == 0 || c.catchAll(pat.Args[0])) {
			seen[vi.tag] = true
		}
	case *ast.LitPat:
		if bl, ok := pat.Value.(*ast.BoolLit); ok {
			seen[boolText(bl.Value)] = true
		}
	case *ast.OrPat:
		for _, alt := range pat.Alts {
			c.covers(alt, seen)
		}
	}
}

func boolText(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// exhaustive reports whether the unguarded arms match every value of t.
func (c *Context) exhaustive(t *Type, arms []ast.Arm) bool {
	seen := map[string]bool{}
	for _, arm := range arms {
		if arm.Guard != nil {
			continue
		}
		if c.catchAll(arm.Pat) {
			return true
		}
		c.covers(arm.Pat, seen)
	}
	var all []string
	switch t.Kind {
	case Bool:
		all = []string{"true", "false"}
	case Option:
		all = []string{"Some", "None"}
	case Result:
		all = []string{"Ok", "Err"}
	case Enum:
		all = c.enums[t.Name].variants
	case Unit:
		return len(arms) > 0
	default:
		return false
	}
	for _, v := range all {
		if !seen[v] {
			return false
		}
	}
	return true
}

// casePatterns returns the case patterns for p when it can be matched by
// case dispatch.
func (c *Context) casePatterns(p ast.Pattern, t *Type) ([]ir.Word, bool) {
	switch pat := p.(type) {
	case *ast.WildcardPat:
		return []ir.Word{globWord("*")}, true
	case *ast.LitPat:
		lit := c.patternLit(pat)
		if t.Kind == Int {
			return []ir.Word{ir.IntWord(*lit.lit)}, true
		}
		return []ir.Word{lit.word}, true
	case *ast.BindPat:
		if pat.Sub == nil && c.isUnitVariant(pat.Ident.Name) {
			vi, _ := c.resolveVariant([]string{pat.Ident.Name})
			return []ir.Word{tagPattern(vi.tag)}, true
		}
	case *ast.VariantPat:
		if len(pat.Args) > 0 {
			if _, ok := pat.Args[0].(*ast.WildcardPat); !ok {
				return nil, false
			}
		}
		vi, ok := c.resolveVariant(pat.Path)
		if ok {
			return []ir.Word{tagPattern(vi.tag)}, true
		}
	case *ast.OrPat:
		var words []ir.Word
		for _, alt := range pat.Alts {
			w, ok := c.casePatterns(alt, t)
			if !ok {
				return nil, false
			}
			words = append(words, w...)
		}
		return words, true
	}
	return nil, false
}

func (c *Context) match(b *block, m *ast.Match, want *Type) value {
	scrut := c.stable(b, c.expr(b, m.Scrutinee, nil))
	if scrut.typ.Kind == Never {
		return neverValue
	}

	arms := m.Arms
	for i, arm := range arms {
		if arm.Guard == nil && c.catchAll(arm.Pat) && i < len(arms)-1 {
			plog.Debugf("%s: dropping %d arms after a catch-all", m.Pos.From, len(arms)-i-1)
			arms = arms[:i+1]
			break
		}
	}
	exhaustive := c.exhaustive(scrut.typ, arms)

	dispatch := scrut.typ.scalar() && scrut.typ.Kind != Bool
	var patterns [][]ir.Word
	for _, arm := range arms {
		ws, ok := c.casePatterns(arm.Pat, scrut.typ)
		if !ok || arm.Guard != nil {
			dispatch = false
			break
		}
		patterns = append(patterns, ws)
	}

	var blocks []*block
	var vals []value
	var exprs []ast.Expression
	var conds []ir.Cond
	for _, arm := range arms {
		cond, binds := c.pattern(b, arm.Pat, scrut)
		c.pushScope()
		body := &block{}
		if arm.Guard != nil {
			pre := &block{}
			c.declareAll(pre, binds)
			g := c.expr(pre, arm.Guard, tBool)
			gc := c.cond(pre, g, arm.Guard)
			if len(pre.stmts) > 0 {
				gc = &ir.Seq{Pre: pre.stmts, X: gc}
			}
			cond = and(cond, gc)
		} else {
			c.declareAll(body, binds)
		}
		v := c.expr(body, arm.Body, want)
		c.popScope()
		blocks = append(blocks, body)
		vals = append(vals, v)
		exprs = append(exprs, arm.Body)
		conds = append(conds, cond)
	}
	if len(arms) == 0 {
		if !exhaustive && scrut.typ.Kind != Enum {
			c.fail(errors.NewTypeError(m.Pos, "non-exhaustive patterns: type `%s` is non-empty", scrut.typ))
		}
		return neverValue
	}

	v := c.merge("`match` arms", blocks, vals, exprs, want)

	unreachable := &block{}
	if !exhaustive {
		c.panicAt(unreachable, m.Pos, ir.LitWord("internal error: entered unreachable code"))
	}

	if dispatch {
		plog.Debugf("%s: match lowers to case dispatch", m.Pos.From)
		cs := &ir.Case{Subject: c.word(b, scrut)}
		for i := range arms {
			cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: patterns[i], Body: blocks[i].stmts})
		}
		if !exhaustive {
			cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{globWord("*")}, Body: unreachable.stmts})
		}
		b.add(cs)
		return v
	}

	plog.Debugf("%s: match lowers to a conditional chain", m.Pos.From)
	tail := unreachable.stmts
	last := len(arms) - 1
	if exhaustive {
		tail = nil
		if arms[last].Guard == nil {
			tail = blocks[last].stmts
			last--
		}
	}
	for i := last; i >= 0; i-- {
		switch conds[i].(type) {
		case *ir.True:
			tail = blocks[i].stmts
			continue
		case *ir.False:
			continue
		}
		tail = []ir.Stmt{&ir.If{Cond: conds[i], Then: blocks[i].stmts, Else: tail}}
	}
	b.add(tail...)
	return v
}

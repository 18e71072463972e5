package lower

import (
	"fmt"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

// format builds the text of a format string. Arguments are evaluated once,
// left to right, before any of them is converted.
func (c *Context) format(b *block, f *ast.Format) ir.Word {
	var lower []func(*block) value
	for _, a := range f.Args {
		a := a
		lower = append(lower, func(b *block) value { return c.expr(b, a, nil) })
	}
	vals := c.exprsInOrder(b, lower)

	var w ir.Word
	for _, p := range f.Pieces {
		switch {
		case !p.Hole:
			w = ir.Concat(w, ir.LitWord(p.Text))
		case p.Debug:
			w = ir.Concat(w, c.debug(b, vals[p.Arg]))
		default:
			w = ir.Concat(w, c.display(b, vals[p.Arg], f.Args[p.Arg]))
		}
	}
	return w
}

func (c *Context) display(b *block, v value, e ast.Expression) ir.Word {
	switch v.typ.Kind {
	case Int, Str, Char, Bool, Opaque:
		return c.word(b, v)
	case Never:
		return ir.Word{}
	}
	c.fail(errors.NewTypeError(e.Location(), "`%s` doesn't implement `std::fmt::Display`", v.typ))
	return ir.Word{}
}

// The messages carried by opaque error values, and what `{:?}` shows for
// them.
var parseIntKinds = []struct{ msg, kind string }{
	{"cannot parse integer from empty string", "Empty"},
	{"invalid digit found in string", "InvalidDigit"},
	{"number too large to fit in target type", "PosOverflow"},
	{"number too small to fit in target type", "NegOverflow"},
}

type osError struct {
	code int
	kind string
	msg  string
}

func (e osError) display() string {
	return fmt.Sprintf("%s (os error %d)", e.msg, e.code)
}

func (e osError) debug() string {
	return fmt.Sprintf("Os { code: %d, kind: %s, message: %q }", e.code, e.kind, e.msg)
}

var (
	errNotFound      = osError{2, "NotFound", "No such file or directory"}
	errDenied        = osError{13, "PermissionDenied", "Permission denied"}
	errExists        = osError{17, "AlreadyExists", "File exists"}
	errNotADirectory = osError{20, "NotADirectory", "Not a directory"}
	errIsADirectory  = osError{21, "IsADirectory", "Is a directory"}
	errNotEmpty      = osError{39, "DirectoryNotEmpty", "Directory not empty"}
)

var osErrors = []osError{errNotFound, errDenied, errExists, errNotADirectory, errIsADirectory, errNotEmpty}

const varErrorMsg = "environment variable not found"

func (c *Context) debug(b *block, v value) ir.Word {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.maxDepth {
		c.fail(errors.RecursionLimitExceeded{Stage: "lower", Limit: c.maxDepth, Location: c.at})
	}

	switch v.typ.Kind {
	case Int, Bool:
		return c.word(b, v)
	case Never:
		return ir.Word{}
	case Unit:
		return ir.LitWord("()")
	case Str:
		return ir.Concat(ir.LitWord(`"`), c.word(b, v), ir.LitWord(`"`))
	case Char:
		return ir.Concat(ir.LitWord("'"), c.word(b, v), ir.LitWord("'"))
	case Duration:
		return ir.Concat(c.word(b, v), ir.LitWord("s"))
	case Opaque:
		return c.debugOpaque(b, v)
	case Option, Result, Enum:
		return c.debugTagged(b, v)
	case Struct:
		sd := c.structs[v.typ.Name]
		if len(v.fields) == 0 {
			return ir.LitWord(v.typ.Name)
		}
		w := ir.LitWord(v.typ.Name + " { ")
		for i, f := range v.fields {
			if i > 0 {
				w = ir.Concat(w, ir.LitWord(", "))
			}
			w = ir.Concat(w, ir.LitWord(sd.fields[i]+": "), c.debug(b, f))
		}
		return ir.Concat(w, ir.LitWord(" }"))
	case Tuple:
		w := ir.LitWord("(")
		for i, f := range v.fields {
			if i > 0 {
				w = ir.Concat(w, ir.LitWord(", "))
			}
			w = ir.Concat(w, c.debug(b, f))
		}
		if len(v.fields) == 1 {
			w = ir.Concat(w, ir.LitWord(","))
		}
		return ir.Concat(w, ir.LitWord(")"))
	case Array:
		w := ir.LitWord("[")
		for i, f := range v.fields {
			if i > 0 {
				w = ir.Concat(w, ir.LitWord(", "))
			}
			w = ir.Concat(w, c.debug(b, f))
		}
		return ir.Concat(w, ir.LitWord("]"))
	}
	c.unsupported(c.at, "`{:?}` of `"+v.typ.String()+"`")
	return ir.Word{}
}

func (c *Context) debugOpaque(b *block, v value) ir.Word {
	var table [][2]string
	var fallback func(ir.Word) ir.Word
	switch v.typ.Name {
	case tVarError.Name:
		return ir.LitWord("NotPresent")
	case tParseInt.Name:
		for _, k := range parseIntKinds {
			table = append(table, [2]string{k.msg, "ParseIntError { kind: " + k.kind + " }"})
		}
	default:
		for _, e := range osErrors {
			table = append(table, [2]string{e.display(), e.debug()})
		}
		fallback = func(w ir.Word) ir.Word {
			return ir.Concat(ir.LitWord(`Custom { kind: Other, error: "`), w, ir.LitWord(`" }`))
		}
	}

	if s, ok := v.word.Static(); ok {
		for _, row := range table {
			if row[0] == s {
				return ir.LitWord(row[1])
			}
		}
		if fallback != nil {
			return fallback(v.word)
		}
		return v.word
	}

	res := c.temp()
	cs := &ir.Case{Subject: v.word}
	for _, row := range table {
		cs.Arms = append(cs.Arms, ir.CaseArm{
			Patterns: []ir.Word{ir.LitWord(row[0])},
			Body:     []ir.Stmt{&ir.Assign{Name: res, Value: ir.LitWord(row[1])}},
		})
	}
	other := v.word
	if fallback != nil {
		other = fallback(v.word)
	}
	cs.Arms = append(cs.Arms, ir.CaseArm{
		Patterns: []ir.Word{globWord("*")},
		Body:     []ir.Stmt{&ir.Assign{Name: res, Value: other}},
	})
	b.add(cs)
	return ir.VarWord(res)
}

type variantDesc struct {
	tag     string
	payload *Type
}

func (c *Context) variantsOf(t *Type) []variantDesc {
	switch t.Kind {
	case Option:
		return []variantDesc{{"None", nil}, {"Some", t.Elem}}
	case Result:
		return []variantDesc{{"Ok", t.Elem}, {"Err", t.Err}}
	}
	ed := c.enums[t.Name]
	var out []variantDesc
	for i, name := range ed.variants {
		out = append(out, variantDesc{name, ed.payloads[i]})
	}
	return out
}

func (c *Context) debugTagged(b *block, v value) ir.Word {
	show := func(b *block, vd variantDesc, payload func(b *block) value) ir.Word {
		if vd.payload == nil {
			return ir.LitWord(vd.tag)
		}
		return ir.Concat(ir.LitWord(vd.tag+"("), c.debug(b, payload(b)), ir.LitWord(")"))
	}

	if v.tag != "" {
		vd := variantDesc{tag: v.tag}
		if v.payload != nil {
			vd.payload = v.payload.typ
		}
		return show(b, vd, func(*block) value { return *v.payload })
	}

	n := c.name(b, v)
	res := c.temp()
	cs := &ir.Case{Subject: ir.VarWord(n)}
	for _, vd := range c.variantsOf(v.typ) {
		vd := vd
		unit := vd.tag == "None" || (v.typ.Kind == Enum && vd.payload == nil)
		if !unit && vd.payload == nil {
			// no value of this variant can exist while its payload type is unknown
			continue
		}
		arm := &block{}
		w := show(arm, vd, func(b *block) value { return c.fromWord(b, vd.payload, payloadWord(n)) })
		arm.add(&ir.Assign{Name: res, Value: w})
		cs.Arms = append(cs.Arms, ir.CaseArm{Patterns: []ir.Word{tagPattern(vd.tag)}, Body: arm.stmts})
	}
	b.add(cs)
	return ir.VarWord(res)
}

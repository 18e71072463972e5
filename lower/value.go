package lower

import (
	"strconv"

	"github.com/pontaoski/tawash/ir"
)

// value is the result of lowering an expression. Which representation is
// set depends on the type: integers carry arith, booleans carry cond (and
// word when they are already stored), aggregates carry fields and every
// other scalar carries word.
type value struct {
	typ    *Type
	word   ir.Word
	arith  ir.Arith
	cond   ir.Cond
	fields []value
	lit    *int64
	status *status
	// tag and payload are known for a variant built in place.
	tag     string
	payload *value
	// skip counts leading arguments dropped from env::args().
	skip int
}

// status is a Result<(), E> produced by a command's exit status. The
// command runs when cond is evaluated.
type status struct {
	cond ir.Cond
	ok   ir.Word
	err  ir.Word
}

var unitValue = value{typ: tUnit}
var neverValue = value{typ: tNever}

func intValue(t *Type, x ir.Arith) value {
	return value{typ: t, arith: x}
}

func litInt(t *Type, n int64) value {
	return value{typ: t, arith: &ir.Num{Value: n}, lit: &n}
}

func wordValue(t *Type, w ir.Word) value {
	return value{typ: t, word: w}
}

func boolValue(c ir.Cond) value {
	return value{typ: tBool, cond: c}
}

func litStr(s string) value {
	return wordValue(tStr, ir.LitWord(s))
}

func isTrue(w ir.Word) ir.Cond {
	return &ir.Test{Args: []ir.Word{w, ir.LitWord("="), ir.LitWord("true")}}
}

func fieldName(t *Type, sd *structDecl, i int) string {
	if t.Kind == Struct {
		return sd.fields[i]
	}
	return strconv.Itoa(i)
}

func (c *Context) fieldTypes(t *Type) []*Type {
	switch t.Kind {
	case Struct:
		return c.structs[t.Name].types
	case Tuple:
		return t.Elems
	case Array:
		var ts []*Type
		for i := 0; i < t.Len; i++ {
			ts = append(ts, t.Elem)
		}
		return ts
	}
	return nil
}

func (c *Context) structOf(t *Type) *structDecl {
	if t.Kind == Struct {
		return c.structs[t.Name]
	}
	return nil
}

// load is the value stored under n.
func (c *Context) load(t *Type, n ir.Name) value {
	switch t.Kind {
	case Int:
		return intValue(t, &ir.Ref{Name: n})
	case Bool:
		w := ir.VarWord(n)
		return value{typ: t, word: w, cond: isTrue(w)}
	case Unit, Never:
		return value{typ: t}
	case Struct, Tuple, Array:
		v := value{typ: t}
		sd := c.structOf(t)
		for i, ft := range c.fieldTypes(t) {
			v.fields = append(v.fields, c.load(ft, n.Sub(fieldName(t, sd, i))))
		}
		return v
	}
	return wordValue(t, ir.VarWord(n))
}

// store assigns v to the storage named n.
func (c *Context) store(b *block, n ir.Name, v value) {
	t := v.typ
	if v.status != nil {
		b.add(&ir.Assign{Name: n, Value: c.materialize(b, v).word})
		return
	}
	switch t.Kind {
	case Int:
		b.add(&ir.Assign{Name: n, Value: ir.ArithWord(v.arith)})
	case Bool:
		switch {
		case len(v.word.Parts) > 0:
			b.add(&ir.Assign{Name: n, Value: v.word})
		default:
			b.add(c.setBool(n, v.cond)...)
		}
	case Unit, Never, Args, Stdin, Stdout:
	case Struct, Tuple, Array:
		sd := c.structOf(t)
		for i, f := range v.fields {
			c.store(b, n.Sub(fieldName(t, sd, i)), f)
		}
	default:
		b.add(&ir.Assign{Name: n, Value: v.word})
	}
}

func (c *Context) setBool(n ir.Name, cond ir.Cond) []ir.Stmt {
	switch cond.(type) {
	case *ir.True:
		return []ir.Stmt{&ir.Assign{Name: n, Value: ir.LitWord("true")}}
	case *ir.False:
		return []ir.Stmt{&ir.Assign{Name: n, Value: ir.LitWord("false")}}
	}
	return []ir.Stmt{&ir.If{
		Cond: cond,
		Then: []ir.Stmt{&ir.Assign{Name: n, Value: ir.LitWord("true")}},
		Else: []ir.Stmt{&ir.Assign{Name: n, Value: ir.LitWord("false")}},
	}}
}

// materialize turns a status into its tagged form.
func (c *Context) materialize(b *block, v value) value {
	if v.status == nil {
		return v
	}
	t := c.temp()
	b.add(&ir.If{
		Cond: v.status.cond,
		Then: []ir.Stmt{&ir.Assign{Name: t, Value: ir.Concat(ir.LitWord("Ok:"), v.status.ok)}},
		Else: []ir.Stmt{&ir.Assign{Name: t, Value: ir.Concat(ir.LitWord("Err:"), v.status.err)}},
	})
	return wordValue(v.typ, ir.VarWord(t))
}

// snapshot copies v into fresh temporaries so later statements cannot
// change what it reads.
func (c *Context) snapshot(b *block, v value) value {
	if c.constant(v) {
		return v
	}
	if v.typ.Kind == Args {
		return v
	}
	t := c.temp()
	c.store(b, t, v)
	return c.load(v.typ, t)
}

// constant reports whether v reads no variables.
func (c *Context) constant(v value) bool {
	if v.status != nil {
		return false
	}
	switch v.typ.Kind {
	case Unit, Never:
		return true
	case Int:
		_, ok := v.arith.(*ir.Num)
		return ok
	case Bool:
		switch v.cond.(type) {
		case *ir.True, *ir.False:
			return true
		}
		return false
	case Struct, Tuple, Array:
		for _, f := range v.fields {
			if !c.constant(f) {
				return false
			}
		}
		return true
	}
	_, ok := v.word.Static()
	return ok
}

// word is the single-word form of a scalar value.
func (c *Context) word(b *block, v value) ir.Word {
	if v.status != nil {
		v = c.materialize(b, v)
	}
	switch v.typ.Kind {
	case Int:
		return ir.ArithWord(v.arith)
	case Bool:
		if len(v.word.Parts) > 0 {
			return v.word
		}
		switch v.cond.(type) {
		case *ir.True:
			return ir.LitWord("true")
		case *ir.False:
			return ir.LitWord("false")
		}
		t := c.temp()
		b.add(c.setBool(t, v.cond)...)
		return ir.VarWord(t)
	}
	return v.word
}

// name returns a variable holding the scalar v, storing it first when it
// is not already a plain variable.
func (c *Context) name(b *block, v value) ir.Name {
	w := c.word(b, v)
	if len(w.Parts) == 1 {
		if vr, ok := w.Parts[0].(*ir.Var); ok && vr.Op == "" {
			return vr.Name
		}
	}
	t := c.temp()
	b.add(&ir.Assign{Name: t, Value: w})
	return t
}

// flatten lists the words of v in storage order, as passed to functions.
func (c *Context) flatten(b *block, v value) []ir.Word {
	switch v.typ.Kind {
	case Unit, Never:
		return nil
	case Struct, Tuple, Array:
		var words []ir.Word
		for _, f := range v.fields {
			words = append(words, c.flatten(b, f)...)
		}
		return words
	}
	return []ir.Word{c.word(b, v)}
}

// slots lists the storage names of a value of type t stored under n.
func (c *Context) slots(t *Type, n ir.Name) []ir.Name {
	switch t.Kind {
	case Unit, Never:
		return nil
	case Struct, Tuple, Array:
		var names []ir.Name
		sd := c.structOf(t)
		for i, ft := range c.fieldTypes(t) {
			names = append(names, c.slots(ft, n.Sub(fieldName(t, sd, i)))...)
		}
		return names
	}
	return []ir.Name{n}
}

package lower

import (
	"strings"
	"unicode/utf8"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

// methodNames lists the methods each kind of value supports, for
// suggestions.
var methodNames = map[Kind][]string{
	Str: {"len", "is_empty", "contains", "starts_with", "ends_with", "trim", "trim_start", "trim_end",
		"to_string", "to_owned", "clone", "into", "as_str", "display", "to_string_lossy", "to_str",
		"as_path", "to_path_buf", "exists", "is_file", "is_dir", "join", "parse", "push_str", "push", "chars"},
	Char: {"is_alphabetic", "is_numeric", "is_alphanumeric", "is_whitespace", "is_uppercase", "is_lowercase",
		"is_control", "is_ascii_digit", "is_ascii_alphabetic", "is_ascii_alphanumeric", "is_ascii_uppercase",
		"is_ascii_lowercase", "is_ascii_hexdigit", "is_ascii_punctuation", "is_digit", "to_digit", "to_string", "clone"},
	Int:      {"abs", "min", "max", "pow", "signum", "is_positive", "is_negative", "to_string", "clone"},
	Bool:     {"to_string", "clone"},
	Option:   {"is_some", "is_none", "unwrap", "expect", "unwrap_or", "unwrap_or_default", "as_ref", "as_deref", "clone", "copied", "cloned"},
	Result:   {"is_ok", "is_err", "unwrap", "expect", "unwrap_err", "expect_err", "unwrap_or", "unwrap_or_default", "ok", "err", "as_ref", "clone"},
	Array:    {"len", "is_empty", "contains", "first", "last", "iter", "into_iter", "to_vec", "as_slice", "clone"},
	Args:     {"collect", "iter", "into_iter", "skip", "len", "count", "nth"},
	Stdin:    {"read_line", "lock"},
	Stdout:   {"flush", "lock"},
	Duration: {"as_secs", "clone"},
	Opaque:   {"to_string", "clone"},
}

var unwrapFamily = map[string]bool{"unwrap": true, "expect": true, "unwrap_or": true, "unwrap_or_default": true}

func (c *Context) noMethod(mc *ast.MethodCall, t *Type) {
	msg := "no method named `" + mc.Method.Name + "` found for `" + t.String() + "` in the current scope"
	if s := suggest(mc.Method.Name, methodNames[t.Kind]); s != "" {
		msg += " (did you mean `" + s + "`?)"
	}
	c.fail(errors.NewTypeError(mc.Method.Pos, msg))
}

func (c *Context) methodArgs(b *block, mc *ast.MethodCall, params ...*Type) []value {
	return c.lowerArgs(b, mc, mc.Args, params)
}

func (c *Context) method(b *block, mc *ast.MethodCall, want *Type) value {
	name := mc.Method.Name
	switch name {
	case "push_str", "push":
		return c.push(b, mc)
	case "read_line":
		return c.readLine(b, mc)
	case "count":
		if inner, ok := mc.Recv.(*ast.MethodCall); ok && inner.Method.Name == "chars" && len(inner.Args) == 0 {
			s := c.expr(b, inner.Recv, nil)
			if s.typ.Kind != Str {
				c.noMethod(inner, s.typ)
			}
			c.methodArgs(b, mc)
			return c.strLen(b, s, true)
		}
	}

	var hint *Type
	if inner, ok := mc.Recv.(*ast.MethodCall); ok && inner.Method.Name == "parse" && unwrapFamily[name] && want != nil {
		hint = tResult(want, nil)
	}
	recv := c.expr(b, mc.Recv, hint)
	if recv.typ.Kind == Never {
		return neverValue
	}

	var v value
	ok := false
	switch recv.typ.Kind {
	case Str:
		v, ok = c.strMethod(b, mc, recv, want)
	case Char:
		v, ok = c.charMethod(b, mc, recv)
	case Int:
		v, ok = c.intMethod(b, mc, recv)
	case Bool, Opaque:
		switch name {
		case "to_string":
			c.methodArgs(b, mc)
			v, ok = wordValue(tStr, c.word(b, recv)), true
		case "clone":
			c.methodArgs(b, mc)
			v, ok = recv, true
		}
	case Option, Result:
		v, ok = c.taggedMethod(b, mc, recv, want)
	case Array:
		v, ok = c.arrayMethod(b, mc, recv)
	case Args:
		v, ok = c.argsMethod(b, mc, recv)
	case Stdin, Stdout:
		switch name {
		case "lock":
			c.methodArgs(b, mc)
			v, ok = recv, true
		case "flush":
			if recv.typ.Kind == Stdout {
				c.methodArgs(b, mc)
				v, ok = value{typ: tResult(tUnit, tIoError), tag: "Ok", payload: &unitValue, word: ir.LitWord("Ok:")}, true
			}
		}
	case Duration:
		switch name {
		case "as_secs":
			c.methodArgs(b, mc)
			v, ok = c.fromWord(b, tInt("u64"), c.word(b, recv)), true
		case "clone":
			c.methodArgs(b, mc)
			v, ok = recv, true
		}
	case Struct, Tuple, Enum:
		if name == "clone" {
			c.methodArgs(b, mc)
			v, ok = recv, true
		}
	}
	if !ok {
		c.noMethod(mc, recv.typ)
	}
	return v
}

// push appends to a String in place.
func (c *Context) push(b *block, mc *ast.MethodCall) value {
	pl := c.place(b, mc.Recv)
	switch {
	case pl.typ.Kind == Array:
		c.unsupported(mc.Pos, "growing a `Vec`")
	case pl.typ.Kind != Str:
		c.noMethod(mc, pl.typ)
	}
	param := strArg
	if mc.Method.Name == "push" {
		param = tChar
	}
	a := c.methodArgs(b, mc, param)
	if anyNever(a) {
		return neverValue
	}
	cur := c.load(pl.typ, pl.name)
	b.add(&ir.Assign{Name: pl.name, Value: ir.Concat(cur.word, c.word(b, a[0]))})
	return unitValue
}

// readLine appends one line of standard input, including its newline, to
// a String and returns the number of characters read. End of input reads
// zero characters.
func (c *Context) readLine(b *block, mc *ast.MethodCall) value {
	recv := c.expr(b, mc.Recv, nil)
	if recv.typ.Kind != Stdin {
		c.noMethod(mc, recv.typ)
	}
	if len(mc.Args) != 1 {
		c.fail(errors.NewTypeError(mc.Pos, "this method takes 1 argument but %d were supplied", len(mc.Args)))
	}
	pl := c.place(b, mc.Args[0])
	if pl.typ.Kind != Str {
		c.fail(errors.NewTypeError(mc.Args[0].Location(), "mismatched types: expected `&mut String`, found `%s`", pl.typ))
	}

	line, n := c.temp(), c.temp()
	read := &ir.Command{
		Env:  []ir.EnvAssign{{Name: "IFS"}},
		Name: "read",
		Args: []ir.Word{ir.LitWord("-r"), ir.LitWord(line.String())},
	}
	count := &ir.Assign{Name: n, Value: ir.Word{Parts: []ir.Part{&ir.Var{Name: line, Op: "len"}}}}
	b.add(&ir.If{
		Cond: &ir.CmdCond{Cmd: read},
		Then: []ir.Stmt{
			&ir.Assign{Name: pl.name, Value: ir.Concat(ir.VarWord(pl.name), ir.VarWord(line), ir.LitWord("\n"))},
			count,
			&ir.Assign{Name: n, Value: ir.ArithWord(&ir.BinaryArith{Op: "+", X: &ir.Ref{Name: n}, Y: &ir.Num{Value: 1}})},
		},
		Else: []ir.Stmt{
			&ir.Assign{Name: pl.name, Value: ir.Concat(ir.VarWord(pl.name), ir.VarWord(line))},
			count,
		},
	})
	nv := c.load(tInt("usize"), n)
	return value{typ: tResult(nv.typ, tIoError), tag: "Ok", payload: &nv, word: ir.Concat(ir.LitWord("Ok:"), ir.VarWord(n))}
}

func (c *Context) strLen(b *block, s value, chars bool) value {
	if st, ok := s.word.Static(); ok {
		if chars {
			return litInt(tInt("usize"), int64(utf8.RuneCountInString(st)))
		}
		return litInt(tInt("usize"), int64(len(st)))
	}
	t := c.temp()
	n := c.name(b, s)
	b.add(&ir.Assign{Name: t, Value: ir.Word{Parts: []ir.Part{&ir.Var{Name: n, Op: "len"}}}})
	return c.load(tInt("usize"), t)
}

var fileTests = map[string]string{"exists": "-e", "is_file": "-f", "is_dir": "-d"}

// strIdentity maps conversions between string types to the type they
// produce.
var strIdentity = map[string]string{
	"to_string": "String", "to_owned": "String", "clone": "", "into": "String",
	"as_str": "&str", "display": "&str", "to_string_lossy": "&str", "as_ref": "",
	"as_path": "&Path", "to_path_buf": "PathBuf",
}

func (c *Context) strMethod(b *block, mc *ast.MethodCall, s value, want *Type) (value, bool) {
	name := mc.Method.Name
	if to, ok := strIdentity[name]; ok {
		c.methodArgs(b, mc)
		t := s.typ
		if to != "" {
			t = &Type{Kind: Str, Name: to}
		}
		return wordValue(t, s.word), true
	}
	if flag, ok := fileTests[name]; ok {
		c.methodArgs(b, mc)
		return boolValue(&ir.Test{Args: []ir.Word{ir.LitWord(flag), s.word}}), true
	}

	switch name {
	case "len":
		c.methodArgs(b, mc)
		return c.strLen(b, s, false), true
	case "is_empty":
		c.methodArgs(b, mc)
		if st, ok := s.word.Static(); ok {
			return boolValue(constCond(st == "")), true
		}
		return boolValue(&ir.Test{Args: []ir.Word{ir.LitWord("-z"), s.word}}), true
	case "contains", "starts_with", "ends_with":
		a := c.methodArgs(b, mc, nil)
		if a[0].typ.Kind != Str && a[0].typ.Kind != Char {
			c.fail(errors.NewTypeError(mc.Args[0].Location(), "expected a string or `char` pattern, found `%s`", a[0].typ))
		}
		pw := c.word(b, a[0])
		st, ok1 := s.word.Static()
		pt, ok2 := pw.Static()
		if ok1 && ok2 {
			switch name {
			case "contains":
				return boolValue(constCond(strings.Contains(st, pt))), true
			case "starts_with":
				return boolValue(constCond(strings.HasPrefix(st, pt))), true
			}
			return boolValue(constCond(strings.HasSuffix(st, pt))), true
		}
		var pat ir.Word
		switch name {
		case "contains":
			pat = ir.Concat(globWord("*"), pw, globWord("*"))
		case "starts_with":
			pat = ir.Concat(pw, globWord("*"))
		default:
			pat = ir.Concat(globWord("*"), pw)
		}
		return boolValue(&ir.CaseCond{Subject: s.word, Patterns: []ir.Word{pat}}), true
	case "trim", "trim_start", "trim_end":
		c.methodArgs(b, mc)
		if st, ok := s.word.Static(); ok {
			switch name {
			case "trim":
				st = strings.TrimSpace(st)
			case "trim_start":
				st = strings.TrimLeftFunc(st, isSpace)
			default:
				st = strings.TrimRightFunc(st, isSpace)
			}
			return wordValue(strArg, ir.LitWord(st)), true
		}
		n := c.name(b, s)
		if name != "trim_end" {
			n = c.trimStart(b, n)
		}
		if name != "trim_start" {
			n = c.trimEnd(b, n)
		}
		return wordValue(strArg, ir.VarWord(n)), true
	case "to_str":
		c.methodArgs(b, mc)
		p := wordValue(strArg, s.word)
		return value{typ: tOption(strArg), tag: "Some", payload: &p, word: ir.Concat(ir.LitWord("Some:"), s.word)}, true
	case "join":
		a := c.methodArgs(b, mc, strArg)
		return wordValue(&Type{Kind: Str, Name: "PathBuf"}, ir.Concat(s.word, ir.LitWord("/"), c.word(b, a[0]))), true
	case "parse":
		return c.parse(b, mc, s, want), true
	}
	return value{}, false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func removal(n ir.Name, op string, arg ir.Word) ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Var{Name: n, Op: op, Arg: &arg}}}
}

// trimStart strips leading whitespace: the prefix removed is everything
// before the first non-space character.
func (c *Context) trimStart(b *block, n ir.Name) ir.Name {
	t := c.temp()
	lead := removal(n, "%%", globWord("[![:space:]]*"))
	b.add(&ir.Assign{Name: t, Value: removal(n, "#", lead)})
	return t
}

func (c *Context) trimEnd(b *block, n ir.Name) ir.Name {
	t := c.temp()
	trail := removal(n, "##", globWord("*[![:space:]]"))
	b.add(&ir.Assign{Name: t, Value: removal(n, "%", trail)})
	return t
}

// intRange is the range of values of an integer type that shell
// arithmetic can hold.
func intRange(name string) (int64, int64) {
	bits := intBits[name]
	if bits >= 64 {
		if name[0] == 'u' {
			return 0, 1<<63 - 1
		}
		return -1 << 63, 1<<63 - 1
	}
	if name[0] == 'u' {
		return 0, 1<<bits - 1
	}
	return -1 << (bits - 1), 1<<(bits-1) - 1
}

// maxParseDigits bounds the digits `parse` accepts before reporting
// overflow, keeping every candidate within shell arithmetic.
const maxParseDigits = 18

// parse converts a string to an integer, reporting the same errors as
// Rust's `str::parse`.
func (c *Context) parse(b *block, mc *ast.MethodCall, s value, want *Type) value {
	var t *Type
	switch {
	case len(mc.Turbofish) == 1:
		t = c.resolveType(mc.Turbofish[0])
	case want != nil && want.Kind == Result && want.Elem != nil:
		t = want.Elem
	}
	if t == nil {
		c.fail(errors.NewTypeError(mc.Pos, "type annotations needed: cannot infer the type of `parse`"))
	}
	if t.Kind != Int || t.Name == "" {
		c.unsupported(mc.Pos, "`parse` into `"+t.String()+"`")
	}
	c.methodArgs(b, mc)

	src := c.name(b, s)
	r, d, z, v := c.temp(), c.temp(), c.temp(), c.temp()
	fail := func(k int) []ir.Stmt {
		return []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("Err:" + parseIntKinds[k].msg)}}
	}
	sign := "+"
	if t.Name[0] == 'i' {
		sign = "[+-]"
	}
	negative := globWord("-*")
	overflow := &ir.Case{Subject: ir.VarWord(src), Arms: []ir.CaseArm{
		{Patterns: []ir.Word{negative}, Body: fail(3)},
		{Patterns: []ir.Word{globWord("*")}, Body: fail(2)},
	}}
	min, max := intRange(t.Name)
	convert := []ir.Stmt{
		&ir.Case{Subject: ir.VarWord(src), Arms: []ir.CaseArm{
			{Patterns: []ir.Word{negative}, Body: []ir.Stmt{&ir.Assign{Name: v, Value: ir.ArithWord(&ir.BinaryArith{Op: "-", X: &ir.Num{Value: 0}, Y: &ir.Ref{Name: d}})}}},
			{Patterns: []ir.Word{globWord("*")}, Body: []ir.Stmt{&ir.Assign{Name: v, Value: ir.VarWord(d)}}},
		}},
		&ir.If{
			Cond: &ir.Test{Args: []ir.Word{ir.VarWord(v), ir.LitWord("-gt"), ir.IntWord(max)}},
			Then: fail(2),
			Else: []ir.Stmt{&ir.If{
				Cond: &ir.Test{Args: []ir.Word{ir.VarWord(v), ir.LitWord("-lt"), ir.IntWord(min)}},
				Then: fail(3),
				Else: []ir.Stmt{&ir.Assign{Name: r, Value: ir.Concat(ir.LitWord("Ok:"), ir.VarWord(v))}},
			}},
		},
	}
	digits := []ir.Stmt{
		&ir.Assign{Name: z, Value: removal(d, "%%", globWord("[!0]*"))},
		&ir.Assign{Name: d, Value: removal(d, "#", ir.VarWord(z))},
		&ir.Assign{Name: d, Value: removal(d, ":-", ir.LitWord("0"))},
		&ir.If{
			Cond: &ir.Test{Args: []ir.Word{{Parts: []ir.Part{&ir.Var{Name: d, Op: "len"}}}, ir.LitWord("-gt"), ir.IntWord(maxParseDigits)}},
			Then: []ir.Stmt{overflow},
			Else: convert,
		},
	}
	b.add(&ir.If{
		Cond: &ir.Test{Args: []ir.Word{ir.LitWord("-z"), ir.VarWord(src)}},
		Then: fail(0),
		Else: []ir.Stmt{
			&ir.Assign{Name: d, Value: removal(src, "#", globWord(sign))},
			&ir.Case{Subject: ir.VarWord(d), Arms: []ir.CaseArm{
				{Patterns: []ir.Word{ir.LitWord(""), globWord("*[!0123456789]*")}, Body: fail(1)},
				{Patterns: []ir.Word{globWord("*")}, Body: digits},
			}},
		},
	})
	return wordValue(tResult(t, tParseInt), ir.VarWord(r))
}

var charClasses = map[string]string{
	"is_alphabetic":         "[[:alpha:]]",
	"is_numeric":            "[[:digit:]]",
	"is_alphanumeric":       "[[:alnum:]]",
	"is_whitespace":         "[[:space:]]",
	"is_uppercase":          "[[:upper:]]",
	"is_lowercase":          "[[:lower:]]",
	"is_control":            "[[:cntrl:]]",
	"is_ascii_punctuation":  "[[:punct:]]",
	"is_ascii_digit":        "[0123456789]",
	"is_ascii_hexdigit":     "[0123456789abcdefABCDEF]",
	"is_ascii_uppercase":    "[" + upper + "]",
	"is_ascii_lowercase":    "[" + lower + "]",
	"is_ascii_alphabetic":   "[" + upper + lower + "]",
	"is_ascii_alphanumeric": "[" + upper + lower + "0123456789]",
}

const (
	upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower = "abcdefghijklmnopqrstuvwxyz"
)

func (c *Context) charMethod(b *block, mc *ast.MethodCall, ch value) (value, bool) {
	name := mc.Method.Name
	if class, ok := charClasses[name]; ok {
		c.methodArgs(b, mc)
		return boolValue(&ir.CaseCond{Subject: ch.word, Patterns: []ir.Word{globWord(class)}}), true
	}
	switch name {
	case "is_digit", "to_digit":
		radix, ok := int64(0), false
		if len(mc.Args) == 1 {
			radix, ok = c.foldInt(mc.Args[0])
		}
		if !ok || radix != 10 {
			c.unsupported(mc.Pos, "`"+name+"` with a radix other than 10")
		}
		digit := globWord("[0123456789]")
		if name == "is_digit" {
			return boolValue(&ir.CaseCond{Subject: ch.word, Patterns: []ir.Word{digit}}), true
		}
		r := c.temp()
		b.add(&ir.Case{Subject: ch.word, Arms: []ir.CaseArm{
			{Patterns: []ir.Word{digit}, Body: []ir.Stmt{&ir.Assign{Name: r, Value: ir.Concat(ir.LitWord("Some:"), ch.word)}}},
			{Patterns: []ir.Word{globWord("*")}, Body: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("None:")}}},
		}})
		return wordValue(tOption(tInt("u32")), ir.VarWord(r)), true
	case "to_string":
		c.methodArgs(b, mc)
		return wordValue(tStr, ch.word), true
	case "clone":
		c.methodArgs(b, mc)
		return ch, true
	}
	return value{}, false
}

func (c *Context) intMethod(b *block, mc *ast.MethodCall, x value) (value, bool) {
	t := x.typ
	lit := func(n int64) value {
		return litInt(t, wrapInt(intName(t), n))
	}
	test := func(y ir.Word, op string, z ir.Word) ir.Cond {
		return &ir.Test{Args: []ir.Word{y, ir.LitWord(op), z}}
	}

	switch mc.Method.Name {
	case "abs":
		c.methodArgs(b, mc)
		if x.lit != nil {
			n := *x.lit
			if n < 0 {
				n = -n
			}
			return lit(n), true
		}
		r := c.temp()
		b.add(&ir.Assign{Name: r, Value: c.word(b, x)})
		b.add(&ir.If{
			Cond: test(ir.VarWord(r), "-lt", ir.LitWord("0")),
			Then: []ir.Stmt{&ir.Assign{Name: r, Value: ir.ArithWord(&ir.UnaryArith{Op: "-", X: &ir.Ref{Name: r}})}},
		})
		return c.load(t, r), true
	case "min", "max":
		a := c.methodArgs(b, mc, t)
		if anyNever(a) {
			return neverValue, true
		}
		y := a[0]
		t = unify(t, y.typ)
		if x.lit != nil && y.lit != nil {
			pick := *x.lit
			if (mc.Method.Name == "min") == (*y.lit < pick) {
				pick = *y.lit
			}
			return litInt(t, pick), true
		}
		op := "-lt"
		if mc.Method.Name == "max" {
			op = "-gt"
		}
		y = c.stable(b, y)
		r := c.temp()
		b.add(&ir.Assign{Name: r, Value: c.word(b, x)})
		b.add(&ir.If{
			Cond: test(c.word(b, y), op, ir.VarWord(r)),
			Then: []ir.Stmt{&ir.Assign{Name: r, Value: c.word(b, y)}},
		})
		return c.load(t, r), true
	case "pow":
		k, ok := int64(0), false
		if len(mc.Args) == 1 {
			k, ok = c.foldInt(mc.Args[0])
		}
		if !ok || k < 0 || k > 64 {
			c.unsupported(mc.Pos, "`pow` with an exponent that is not a constant between 0 and 64")
		}
		if x.lit != nil {
			n := int64(1)
			for i := int64(0); i < k; i++ {
				n *= *x.lit
			}
			return lit(n), true
		}
		x = c.stable(b, x)
		var p ir.Arith = &ir.Num{Value: 1}
		for i := int64(0); i < k; i++ {
			if i == 0 {
				p = x.arith
				continue
			}
			p = &ir.BinaryArith{Op: "*", X: p, Y: x.arith}
		}
		return intValue(t, wrapArith(t, p)), true
	case "signum":
		c.methodArgs(b, mc)
		r := c.temp()
		w := c.word(b, c.stable(b, x))
		b.add(&ir.Assign{Name: r, Value: ir.LitWord("0")})
		b.add(&ir.If{
			Cond: test(w, "-gt", ir.LitWord("0")),
			Then: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("1")}},
			Else: []ir.Stmt{&ir.If{
				Cond: test(w, "-lt", ir.LitWord("0")),
				Then: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("-1")}},
			}},
		})
		return c.load(t, r), true
	case "is_positive", "is_negative":
		c.methodArgs(b, mc)
		op := "-gt"
		if mc.Method.Name == "is_negative" {
			op = "-lt"
		}
		if x.lit != nil {
			return boolValue(constCond((op == "-gt" && *x.lit > 0) || (op == "-lt" && *x.lit < 0))), true
		}
		return boolValue(test(c.word(b, x), op, ir.LitWord("0"))), true
	case "to_string":
		c.methodArgs(b, mc)
		return wordValue(tStr, c.word(b, x)), true
	case "clone":
		c.methodArgs(b, mc)
		return x, true
	}
	return value{}, false
}

// taggedMethod covers the methods of Option and Result.
func (c *Context) taggedMethod(b *block, mc *ast.MethodCall, v value, want *Type) (value, bool) {
	name := mc.Method.Name
	isOption := v.typ.Kind == Option
	okTag, failTag := "Ok", "Err"
	if isOption {
		okTag, failTag = "Some", "None"
	}
	switch name {
	case "as_ref", "as_deref", "clone", "copied", "cloned":
		c.methodArgs(b, mc)
		return v, true
	case "is_some", "is_none", "is_ok", "is_err", "unwrap", "expect", "unwrap_or", "unwrap_or_default":
		if isOption == (name == "is_ok" || name == "is_err") {
			return value{}, false
		}
	case "unwrap_err", "expect_err", "ok", "err":
		if isOption {
			return value{}, false
		}
	default:
		return value{}, false
	}

	// Arguments are evaluated before the value is inspected.
	var args []value
	switch name {
	case "expect", "expect_err":
		args = c.methodArgs(b, mc, strArg)
	case "unwrap_or":
		args = c.methodArgs(b, mc, v.typ.Elem)
	default:
		c.methodArgs(b, mc)
	}
	if anyNever(args) {
		return neverValue, true
	}

	known := v.tag != ""
	var n ir.Name
	if !known {
		n = c.name(b, v)
	}
	typeOf := func(tag string) *Type {
		t := v.typ.Elem
		if tag == "Err" {
			t = v.typ.Err
		}
		if t == nil && tag == okTag && want != nil && (name == "unwrap" || name == "expect") {
			t = want
		}
		if t == nil && tag != "None" {
			c.fail(errors.NewTypeError(mc.Pos, "type annotations needed for `%s`", v.typ))
		}
		return t
	}
	// payload reads the payload of v, which must have the given tag.
	payload := func(b *block, tag string) value {
		if known {
			if v.payload == nil {
				return unitValue
			}
			return *v.payload
		}
		return c.fromWord(b, typeOf(tag), payloadWord(n))
	}
	has := func(tag string) ir.Cond {
		if known {
			return constCond(v.tag == tag)
		}
		return &ir.CaseCond{Subject: ir.VarWord(n), Patterns: []ir.Word{tagPattern(tag)}}
	}

	switch name {
	case "is_some", "is_ok":
		return boolValue(has(okTag)), true
	case "is_none", "is_err":
		return boolValue(has(failTag)), true

	case "unwrap", "expect", "unwrap_err", "expect_err":
		wantTag, other := okTag, failTag
		if name == "unwrap_err" || name == "expect_err" {
			wantTag, other = failTag, okTag
		}
		fail := &block{}
		var msg ir.Word
		switch {
		case isOption && name == "unwrap":
			msg = ir.LitWord("called `Option::unwrap()` on a `None` value")
		case isOption:
			msg = c.word(b, args[0])
		default:
			shown := c.debug(fail, payload(fail, other))
			if len(args) > 0 {
				msg = ir.Concat(c.word(b, args[0]), ir.LitWord(": "), shown)
			} else {
				msg = ir.Concat(ir.LitWord("called `Result::"+name+"()` on an `"+other+"` value: "), shown)
			}
		}
		c.panicAt(fail, mc.Pos, msg)
		if known {
			if v.tag != wantTag {
				b.add(fail.stmts...)
				return neverValue, true
			}
			return payload(b, wantTag), true
		}
		b.add(&ir.If{Cond: has(other), Then: fail.stmts})
		return payload(b, wantTag), true

	case "unwrap_or", "unwrap_or_default":
		t := typeOf(okTag)
		var d value
		if name == "unwrap_or" {
			d = args[0]
			t = unify(t, d.typ)
		} else {
			d = c.zero(mc, t)
		}
		if t.Kind == Int && t.Name == "" {
			t = tInt("i32")
		}
		if known {
			if v.tag == okTag {
				return payload(b, okTag), true
			}
			return d, true
		}
		r := c.temp()
		then, els := &block{}, &block{}
		c.store(then, r, c.fromWord(then, t, payloadWord(n)))
		c.store(els, r, d)
		b.add(&ir.If{Cond: has(okTag), Then: then.stmts, Else: els.stmts})
		return c.load(t, r), true

	case "ok", "err":
		tag, t := "Ok", v.typ.Elem
		if name == "err" {
			tag, t = "Err", v.typ.Err
		}
		rt := tOption(t)
		if known {
			if v.tag != tag {
				return value{typ: rt, tag: "None", word: ir.LitWord("None:")}, true
			}
			p := payload(b, tag)
			return value{typ: rt, tag: "Some", payload: &p, word: ir.Concat(ir.LitWord("Some:"), c.word(b, p))}, true
		}
		r := c.temp()
		b.add(&ir.Case{Subject: ir.VarWord(n), Arms: []ir.CaseArm{
			{Patterns: []ir.Word{tagPattern(tag)}, Body: []ir.Stmt{&ir.Assign{Name: r, Value: ir.Concat(ir.LitWord("Some:"), payloadWord(n))}}},
			{Patterns: []ir.Word{globWord("*")}, Body: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("None:")}}},
		}})
		return wordValue(rt, ir.VarWord(r)), true
	}
	return value{}, false
}

// zero is the Default value of t.
func (c *Context) zero(mc *ast.MethodCall, t *Type) value {
	switch t.Kind {
	case Int:
		return litInt(t, 0)
	case Str:
		return wordValue(t, ir.LitWord(""))
	case Bool:
		return boolValue(&ir.False{})
	case Unit:
		return unitValue
	}
	c.unsupported(mc.Pos, "`Default` for `"+t.String()+"`")
	return value{}
}

func (c *Context) arrayMethod(b *block, mc *ast.MethodCall, a value) (value, bool) {
	switch mc.Method.Name {
	case "len":
		c.methodArgs(b, mc)
		return litInt(tInt("usize"), int64(len(a.fields))), true
	case "is_empty":
		c.methodArgs(b, mc)
		return boolValue(constCond(len(a.fields) == 0)), true
	case "iter", "into_iter", "to_vec", "as_slice", "clone":
		c.methodArgs(b, mc)
		return a, true
	case "contains":
		args := c.methodArgs(b, mc, a.typ.Elem)
		if anyNever(args) {
			return neverValue, true
		}
		x := c.stable(b, args[0])
		var cond ir.Cond = &ir.False{}
		for _, f := range a.fields {
			eq := c.equal(b, f, x, &ast.Binary{Op: types.EQEQ, X: mc.Recv, Y: mc.Args[0], Pos: mc.Pos})
			cond = or(cond, eq)
		}
		return boolValue(cond), true
	case "first", "last":
		c.methodArgs(b, mc)
		t := tOption(a.typ.Elem)
		if len(a.fields) == 0 {
			return value{typ: t, tag: "None", word: ir.LitWord("None:")}, true
		}
		if !a.typ.Elem.scalar() {
			c.unsupported(mc.Pos, "`"+mc.Method.Name+"` of an array of `"+a.typ.Elem.String()+"`")
		}
		f := a.fields[0]
		if mc.Method.Name == "last" {
			f = a.fields[len(a.fields)-1]
		}
		return value{typ: t, tag: "Some", payload: &f, word: ir.Concat(ir.LitWord("Some:"), c.word(b, f))}, true
	case "push":
		c.unsupported(mc.Pos, "growing a `Vec`")
	}
	return value{}, false
}

func argCount() ir.Word {
	return ir.Word{Parts: []ir.Part{&ir.Param{Special: "#"}}}
}

func (c *Context) argsMethod(b *block, mc *ast.MethodCall, a value) (value, bool) {
	literal := func() int {
		n, ok := int64(0), false
		if len(mc.Args) == 1 {
			n, ok = c.foldInt(mc.Args[0])
		}
		if !ok || n < 0 {
			c.unsupported(mc.Pos, "`"+mc.Method.Name+"` on `std::env::args()` with a non-constant argument")
		}
		return int(n)
	}

	switch mc.Method.Name {
	case "collect", "iter", "into_iter":
		c.methodArgs(b, mc)
		return a, true
	case "skip":
		a.skip += literal()
		return a, true
	case "len", "count":
		c.methodArgs(b, mc)
		r := c.temp()
		b.add(&ir.Assign{Name: r, Value: argCount()})
		// $# excludes the program name, which env::args() includes.
		if d := 1 - a.skip; d != 0 {
			b.add(&ir.Assign{Name: r, Value: ir.ArithWord(&ir.BinaryArith{Op: "+", X: &ir.Ref{Name: r}, Y: &ir.Num{Value: int64(d)}})})
		}
		if a.skip > 1 {
			b.add(&ir.If{
				Cond: &ir.Test{Args: []ir.Word{ir.VarWord(r), ir.LitWord("-lt"), ir.LitWord("0")}},
				Then: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("0")}},
			})
		}
		return c.load(tInt("usize"), r), true
	case "nth":
		idx := literal() + a.skip
		t := tOption(tStr)
		arg := ir.Word{Parts: []ir.Part{&ir.Param{Index: idx}}}
		if idx == 0 {
			p := wordValue(tStr, arg)
			return value{typ: t, tag: "Some", payload: &p, word: ir.Concat(ir.LitWord("Some:"), arg)}, true
		}
		r := c.temp()
		b.add(&ir.If{
			Cond: &ir.Test{Args: []ir.Word{argCount(), ir.LitWord("-ge"), ir.IntWord(int64(idx))}},
			Then: []ir.Stmt{&ir.Assign{Name: r, Value: ir.Concat(ir.LitWord("Some:"), arg)}},
			Else: []ir.Stmt{&ir.Assign{Name: r, Value: ir.LitWord("None:")}},
		})
		return wordValue(t, ir.VarWord(r)), true
	case "next":
		c.unsupported(mc.Pos, "`next` on `std::env::args()`")
	}
	return value{}, false
}

// argsIndex reads one element of a collected `env::args()`.
func (c *Context) argsIndex(b *block, of value, e *ast.Index) value {
	k, ok := c.foldInt(e.Index)
	if !ok || k < 0 {
		c.unsupported(e.Index.Location(), "runtime index into `std::env::args()`")
	}
	idx := int(k) + of.skip
	arg := ir.Word{Parts: []ir.Part{&ir.Param{Index: idx}}}
	if idx == 0 {
		return wordValue(tStr, arg)
	}
	n := c.temp()
	b.add(&ir.Assign{Name: n, Value: argCount()})
	if d := 1 - of.skip; d != 0 {
		b.add(&ir.Assign{Name: n, Value: ir.ArithWord(&ir.BinaryArith{Op: "+", X: &ir.Ref{Name: n}, Y: &ir.Num{Value: int64(d)}})})
	}
	fail := &block{}
	msg := ir.Concat(ir.LitWord("index out of bounds: the len is "), ir.VarWord(n), ir.LitWord(" but the index is "+itoa(int(k))))
	c.panicAt(fail, e.Pos, msg)
	b.add(&ir.If{
		Cond: &ir.Test{Args: []ir.Word{argCount(), ir.LitWord("-lt"), ir.IntWord(int64(idx))}},
		Then: fail.stmts,
	})
	return wordValue(tStr, arg)
}

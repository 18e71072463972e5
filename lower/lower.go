package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

// names the emitted script must not shadow with a function.
var reservedFuncs = map[string]bool{
	"cat": true, "cd": true, "exec": true, "exit": true, "export": true,
	"false": true, "mkdir": true, "printf": true, "pwd": true, "read": true,
	"return": true, "rm": true, "rmdir": true, "set": true, "shift": true,
	"sleep": true, "test": true, "true": true, "unset": true, "eval": true,
	"break": true, "continue": true, "trap": true, "wait": true, "echo": true,
	"alias": true, "command": true, "getopts": true, "hash": true, "kill": true,
	"times": true, "type": true, "ulimit": true, "umask": true, "readonly": true,
	"local": true, "source": true, "let": true, "select": true, "function": true,
	"if": true, "then": true, "else": true, "elif": true, "fi": true, "do": true,
	"done": true, "case": true, "esac": true, "while": true, "until": true,
	"for": true, "in": true, "jobs": true, "fg": true, "bg": true, "cp": true,
	"mv": true, "ls": true, "sh": true, "declare": true, "typeset": true,
	"time": true,
}

func shellFuncName(name string) string {
	if reservedFuncs[name] {
		return "__tw_f_" + name
	}
	return name
}

func (c *Context) program(items []ast.Item) *ir.Program {
	c.pushScope()
	defer c.popScope()

	var funcs []*ast.Func
	seen := map[string]types.Span{}
	define := func(id ast.Identifier) {
		if _, ok := seen[id.Name]; ok {
			c.fail(errors.NewTypeError(id.Pos, "the name `%s` is defined multiple times", id.Name))
		}
		seen[id.Name] = id.Pos
	}

	for _, item := range items {
		switch it := item.(type) {
		case *ast.Func:
			define(it.Ident)
			funcs = append(funcs, it)
		case *ast.StructDecl:
			define(it.Ident)
			c.structs[it.Ident.Name] = &structDecl{decl: it}
		case *ast.EnumDecl:
			define(it.Ident)
			c.enums[it.Ident.Name] = &enumDecl{decl: it}
		case *ast.Const:
			define(it.Ident)
			c.consts[it.Ident.Name] = it
		case *ast.Use:
			c.use(it)
		}
	}

	for _, item := range items {
		switch it := item.(type) {
		case *ast.StructDecl:
			c.structFields(c.structs[it.Ident.Name])
		case *ast.EnumDecl:
			c.enumVariants(c.enums[it.Ident.Name])
		}
	}

	for _, f := range funcs {
		c.signature(f)
	}
	entry, ok := c.funcs[c.entry]
	if !ok {
		c.fail(errors.NewTypeError(types.Span{}, "`%s` function not found in crate", c.entry))
	}
	c.checkEntry(entry)
	c.markRecursion(funcs)

	for _, it := range items {
		if k, ok := it.(*ast.Const); ok {
			c.constItem(k)
		}
	}

	prog := &ir.Program{Entry: entry.shellName}
	for _, f := range c.order {
		prog.Funcs = append(prog.Funcs, c.function(f))
	}
	prog.Globals = c.globals.stmts
	prog.SavedStdout = c.usesFd3
	plog.Debugf("lowered %d functions, %d globals, %d generations", len(prog.Funcs), len(prog.Globals), c.gen)
	return prog
}

func (c *Context) structFields(sd *structDecl) {
	for _, f := range sd.decl.Fields {
		c.checkIdent(f.Ident)
		ft := c.resolveType(f.Kind)
		if !ft.scalar() {
			c.unsupported(f.Kind.Location(), "struct field of type `"+ft.String()+"`")
		}
		sd.fields = append(sd.fields, f.Ident.Name)
		sd.types = append(sd.types, ft)
	}
}

func (c *Context) enumVariants(ed *enumDecl) {
	for _, v := range ed.decl.Variants {
		var pt *Type
		if v.Payload != nil {
			pt = c.resolveType(v.Payload)
			if !pt.scalar() {
				c.unsupported(v.Payload.Location(), "enum payload of type `"+pt.String()+"`")
			}
		}
		ed.variants = append(ed.variants, v.Ident.Name)
		ed.payloads = append(ed.payloads, pt)
	}
}

func (c *Context) use(u *ast.Use) {
	if u.Glob {
		full := c.expandPath(u.Path)
		if ed, ok := c.enumByPath(full); ok {
			for _, v := range ed.Variants {
				c.aliases[v.Ident.Name] = []string{ed.Ident.Name, v.Ident.Name}
			}
		}
		return
	}
	name := u.Alias
	if name == "" {
		name = u.Path[len(u.Path)-1]
	}
	if name == "_" || name == "self" {
		return
	}
	c.aliases[name] = u.Path
}

func (c *Context) enumByPath(path []string) (*ast.EnumDecl, bool) {
	ed, ok := c.enums[path[len(path)-1]]
	if !ok {
		return nil, false
	}
	return ed.decl, true
}

func (c *Context) signature(f *ast.Func) {
	fn := &function{decl: f, shellName: shellFuncName(f.Ident.Name)}
	c.checkIdent(f.Ident)
	for _, p := range f.Params {
		if r, ok := p.Kind.(*ast.RefType); ok && r.Mut {
			c.unsupported(r.Pos, "`&mut` parameter")
		}
		t := c.resolveType(p.Kind)
		if t.Kind == Array && t.Len < 0 {
			c.unsupported(p.Kind.Location(), "parameter of type `"+ast.TypeString(p.Kind)+"` without a fixed length")
		}
		if t.Kind == Args || t.Kind == Stdin || t.Kind == Stdout {
			c.unsupported(p.Kind.Location(), "parameter of type `"+t.String()+"`")
		}
		fn.params = append(fn.params, t)
	}
	fn.ret = c.resolveType(f.Returns)

	switch {
	case f.Ident.Name == c.entry:
		fn.conv = entryFn
	case fn.ret.Kind == Unit || fn.ret.Kind == Never:
		fn.conv = unitFn
	case fn.ret.Kind == Result && fn.ret.Elem.Kind == Unit:
		fn.conv = statusFn
	case fn.ret.aggregate():
		c.unsupported(f.Returns.Location(), "returning a value of type `"+fn.ret.String()+"` from a function")
	case fn.ret.Kind == Args || fn.ret.Kind == Stdin || fn.ret.Kind == Stdout:
		c.unsupported(f.Returns.Location(), "returning a value of type `"+fn.ret.String()+"` from a function")
	default:
		fn.conv = valueFn
	}
	c.funcs[f.Ident.Name] = fn
	c.order = append(c.order, fn)
}

func (c *Context) checkEntry(fn *function) {
	f := fn.decl
	if len(f.Params) > 0 {
		c.fail(errors.NewTypeError(f.Pos, "`%s` function has wrong type: it takes no parameters", f.Ident.Name))
	}
	ok := fn.ret.Kind == Unit || (fn.ret.Kind == Result && fn.ret.Elem.Kind == Unit)
	if !ok {
		c.fail(errors.NewTypeError(f.Pos, "`%s` has invalid return type `%s`", f.Ident.Name, fn.ret))
	}
}

func (c *Context) markRecursion(funcs []*ast.Func) {
	graph := callGraph(funcs)
	for _, fn := range c.order {
		name := fn.decl.Ident.Name
		if !reaches(graph, name, name) {
			continue
		}
		fn.recursive = true
		switch fn.conv {
		case statusFn:
			c.unsupported(fn.decl.Pos, "recursive function returning `"+fn.ret.String()+"`")
		case unitFn:
			plog.Debugf("%s is recursive, its body runs in a subshell", name)
		}
	}
}

// constItem lowers a const item. Integer constants fold into literals;
// anything else is assigned once before the entry point runs.
func (c *Context) constItem(k *ast.Const) {
	c.checkIdent(k.Ident)
	t := c.resolveType(k.Kind)
	if t.Kind == Int {
		if n, ok := c.foldInt(k.Value); ok {
			v := litInt(t, n)
			c.declare(k.Ident, &symbol{typ: t, alias: &v})
			return
		}
	}
	b := &block{}
	v := c.expr(b, k.Value, t)
	c.expect(t, v.typ, k.Value)
	if len(b.stmts) > 0 || !t.scalar() {
		c.unsupported(k.Pos, "constant of type `"+t.String()+"` that is not a literal")
	}
	name := c.fresh(k.Ident.Name)
	c.store(&c.globals, name, v)
	c.declare(k.Ident, &symbol{name: name, typ: t})
}

func (c *Context) function(fn *function) *ir.Function {
	c.enter(fn.decl.Pos)
	defer c.leave()
	c.fn = fn
	c.loops = nil
	c.pushScope()
	defer c.popScope()

	body := &block{}
	index := 1
	for i, p := range fn.decl.Params {
		t := fn.params[i]
		if p.Ident.Name == "_" {
			index += len(c.slots(t, ir.Name{}))
			continue
		}
		c.checkIdent(p.Ident)
		name := c.fresh(p.Ident.Name)
		for _, slot := range c.slots(t, name) {
			body.add(&ir.Assign{Name: slot, Value: ir.Word{Parts: []ir.Part{&ir.Param{Index: index}}}})
			index++
		}
		c.declare(p.Ident, &symbol{name: name, typ: t, mut: p.Mut})
	}

	v := c.block(body, fn.decl.Body, fn.ret)
	if v.typ.Kind != Never {
		switch fn.conv {
		case unitFn:
			c.expect(fn.ret, v.typ, tailOf(fn.decl.Body))
			if fn.recursive {
				body.add(&ir.Return{Status: 0})
			}
		case entryFn:
			if fn.ret.Kind == Unit {
				c.expect(fn.ret, v.typ, tailOf(fn.decl.Body))
			} else {
				c.returnValue(body, v, tailOf(fn.decl.Body))
			}
		default:
			c.returnValue(body, v, tailOf(fn.decl.Body))
		}
	}

	return &ir.Function{
		Name:     fn.shellName,
		Body:     body.stmts,
		Subshell: fn.recursive && fn.conv == unitFn,
	}
}

// tailOf is the expression a block's value comes from, for diagnostics.
func tailOf(b *ast.Block) ast.Expression {
	if b.Tail != nil {
		return b.Tail
	}
	return b
}

// returnValue leaves the current function with v according to its calling
// convention.
func (c *Context) returnValue(b *block, v value, at ast.Expression) {
	fn := c.fn
	c.expect(fn.ret, v.typ, at)
	switch fn.conv {
	case unitFn:
		b.add(&ir.Return{Status: 0})
	case valueFn:
		b.add(c.printResult(b, v, fn.ret))
		b.add(&ir.Return{Status: 0})
	case statusFn:
		c.leaveStatus(b, v, func(b *block, err ir.Word) {
			b.add(&ir.Assign{Name: errName, Value: err})
			b.add(&ir.Return{Status: 1})
		})
	case entryFn:
		if fn.ret.Kind == Unit {
			b.add(&ir.Return{Status: 0})
			return
		}
		c.leaveStatus(b, v, func(b *block, err ir.Word) {
			c.mainError(b, c.fromWord(b, fn.ret.Err, err))
		})
	}
}

// errName carries the error payload of a failed Result<(), E> function.
var errName = ir.Name{Base: "__tw_err"}

// leaveStatus returns 0 for Ok and runs onErr with the payload for Err.
func (c *Context) leaveStatus(b *block, v value, onErr func(b *block, err ir.Word)) {
	switch {
	case v.status != nil:
		fail := &block{}
		onErr(fail, v.status.err)
		b.add(&ir.If{Cond: v.status.cond, Then: []ir.Stmt{&ir.Return{Status: 0}}, Else: fail.stmts})
	case v.tag == "Ok":
		b.add(&ir.Return{Status: 0})
	case v.tag == "Err":
		onErr(b, c.word(b, *v.payload))
	default:
		n := c.name(b, v)
		fail := &block{}
		onErr(fail, payloadWord(n))
		b.add(&ir.Case{Subject: ir.VarWord(n), Arms: []ir.CaseArm{
			{Patterns: []ir.Word{tagPattern("Ok")}, Body: []ir.Stmt{&ir.Return{Status: 0}}},
			{Patterns: []ir.Word{{Parts: []ir.Part{&ir.Glob{Pattern: "*"}}}}, Body: fail.stmts},
		}})
	}
}

// mainError reports an error returned from the entry function the way a
// Rust binary does and exits with status 1.
func (c *Context) mainError(b *block, err value) {
	msg := ir.Concat(ir.LitWord("Error: "), c.debug(b, err))
	b.add(&ir.Exec{Cmd: redirect(ir.Printf("%s\n", msg), 2)})
	b.add(&ir.Exit{Status: ir.LitWord("1")})
}

// printResult writes a function's return value for the caller's command
// substitution. Types that may end in a newline get a trailing sentinel.
func (c *Context) printResult(b *block, v value, t *Type) ir.Stmt {
	w := c.word(b, v)
	if needsSentinel(t) {
		w = ir.Concat(w, ir.LitWord("x"))
	}
	return &ir.Exec{Cmd: ir.Printf("%s", w)}
}

func needsSentinel(t *Type) bool {
	return t.Kind != Int && t.Kind != Bool
}

func redirect(cmd *ir.Command, fd int) *ir.Command {
	cmd.Redirs = append(cmd.Redirs, ir.Redir{Op: ">&", Target: ir.LitWord(itoa(fd))})
	return cmd
}

// stdout returns cmd with its output sent to the script's real standard
// output, which is descriptor 3 inside functions whose output may be
// captured.
func (c *Context) stdout(cmd *ir.Command) *ir.Command {
	if c.fn == nil || c.fn.conv == entryFn {
		return cmd
	}
	c.usesFd3 = true
	return redirect(cmd, 3)
}

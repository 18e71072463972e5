package lower

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
)

// libFuncs lists the library functions a program may call, by path with
// the leading `std::` removed.
var libFuncs = []string{
	"fs::read_to_string", "fs::write", "fs::create_dir", "fs::create_dir_all",
	"fs::remove_file", "fs::remove_dir", "fs::remove_dir_all",
	"path::Path::new", "path::PathBuf::from",
	"env::var", "env::set_var", "env::remove_var", "env::args",
	"env::current_dir", "env::set_current_dir",
	"process::exit", "thread::sleep",
	"time::Duration::from_secs", "time::Duration::from_millis",
	"io::stdin", "io::stdout",
	"string::String::new", "string::String::from",
	"vec::Vec::new", "vec::Vec::with_capacity",
}

// resolveLib finds the catalog entry for path. Associated functions of
// library types are accepted by their short form (`String::new`).
func resolveLib(path []string) (string, bool) {
	if path[0] == "std" || path[0] == "core" {
		path = path[1:]
	}
	key := strings.Join(path, "::")
	for _, f := range libFuncs {
		if f == key {
			return f, true
		}
	}
	if len(path) < 2 || !unicode.IsUpper(rune(path[0][0])) {
		return key, false
	}
	for _, f := range libFuncs {
		if strings.HasSuffix(f, "::"+key) {
			return f, true
		}
	}
	return key, false
}

var strArg = &Type{Kind: Str, Name: "&str"}

func (c *Context) libCall(b *block, path []string, call *ast.Call, want *Type) value {
	key, ok := resolveLib(path)
	if !ok {
		c.fail(errors.UnsupportedConstructError{
			Construct:  "library function `std::" + key + "`",
			Suggestion: suggest(key, libFuncs),
			Location:   call.Pos,
		})
	}
	args := func(params ...*Type) []value {
		return c.lowerArgs(b, call, call.Args, params)
	}
	plog.Tracef("library call %s", key)

	switch key {
	case "fs::read_to_string":
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		t := c.temp()
		cat := ir.Cmd("cat", ir.LitWord("--"), p)
		cat.Redirs = append(cat.Redirs, ir.Redir{Fd: 2, Op: ">", Target: ir.LitWord("/dev/null")})
		capture := &ir.Capture{Name: t, Cmd: &ir.CmdSubst{List: []*ir.Command{cat, ir.Printf("%s", ir.LitWord("x"))}}}
		return c.ioStatus(capture, stripSentinel(t), tStr, p,
			[]ioCheck{{"-d", errIsADirectory}, {"-e", errDenied}}, errNotFound)
	case "fs::write":
		a := args(strArg, strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		cmd := ir.Printf("%s", c.word(b, a[1]))
		cmd.Redirs = append(cmd.Redirs,
			ir.Redir{Fd: 2, Op: ">", Target: ir.LitWord("/dev/null")},
			ir.Redir{Op: ">", Target: p})
		return c.ioStatus(&ir.CmdCond{Cmd: cmd}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-d", errIsADirectory}, {"-e", errDenied}}, errNotFound)
	case "fs::create_dir", "fs::create_dir_all":
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		flags := []ir.Word{ir.LitWord("--"), p}
		fallback := errNotFound
		if key == "fs::create_dir_all" {
			flags = append([]ir.Word{ir.LitWord("-p")}, flags...)
			fallback = errDenied
		}
		return c.ioStatus(&ir.CmdCond{Cmd: quiet(ir.Cmd("mkdir", flags...))}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-e", errExists}}, fallback)
	case "fs::remove_file":
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		rm := &ir.CmdCond{Cmd: quiet(ir.Cmd("rm", ir.LitWord("-f"), ir.LitWord("--"), p))}
		return c.ioStatus(&ir.And{X: &ir.Test{Args: []ir.Word{ir.LitWord("-e"), p}}, Y: rm}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-d", errIsADirectory}, {"-e", errDenied}}, errNotFound)
	case "fs::remove_dir":
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		return c.ioStatus(&ir.CmdCond{Cmd: quiet(ir.Cmd("rmdir", ir.LitWord("--"), p))}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-d", errNotEmpty}, {"-e", errNotADirectory}}, errNotFound)
	case "fs::remove_dir_all":
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		rm := &ir.CmdCond{Cmd: quiet(ir.Cmd("rm", ir.LitWord("-rf"), ir.LitWord("--"), p))}
		return c.ioStatus(&ir.And{X: &ir.Test{Args: []ir.Word{ir.LitWord("-d"), p}}, Y: rm}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-d", errDenied}, {"-e", errNotADirectory}}, errNotFound)

	case "path::Path::new", "path::PathBuf::from":
		a := args(strArg)
		name := "&Path"
		if strings.HasPrefix(key, "path::PathBuf") {
			name = "PathBuf"
		}
		return wordValue(&Type{Kind: Str, Name: name}, c.word(b, a[0]))

	case "env::var":
		name := c.envName(call)
		cond := &ir.Test{Args: []ir.Word{
			ir.LitWord("-n"),
			{Parts: []ir.Part{&ir.Var{Name: name, Op: "+", Arg: &ir.Word{Parts: []ir.Part{&ir.Lit{Text: "x"}}}}}},
		}}
		return value{typ: tResult(tStr, tVarError), status: &status{cond: cond, ok: ir.VarWord(name), err: ir.LitWord(varErrorMsg)}}
	case "env::set_var":
		name := c.envName(call)
		c.stateful(call.Pos, "std::env::set_var")
		a := c.lowerArgs(b, call, call.Args[1:], []*Type{strArg})
		if anyNever(a) {
			return neverValue
		}
		b.add(&ir.Assign{Name: name, Value: c.word(b, a[0])})
		b.add(&ir.Exec{Cmd: ir.Cmd("export", ir.LitWord(name.String()))})
		return unitValue
	case "env::remove_var":
		name := c.envName(call)
		c.stateful(call.Pos, "std::env::remove_var")
		b.add(&ir.Exec{Cmd: ir.Cmd("unset", ir.LitWord(name.String()))})
		return unitValue
	case "env::args":
		args()
		if c.fn == nil || c.fn.conv != entryFn {
			c.unsupported(call.Pos, "`std::env::args()` outside the entry function")
		}
		return value{typ: tArgs}
	case "env::current_dir":
		args()
		t := c.temp()
		b.add(&ir.Assign{Name: t, Value: ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{ir.Cmd("pwd")}}}}})
		dir := wordValue(&Type{Kind: Str, Name: "PathBuf"}, ir.VarWord(t))
		return value{typ: tResult(dir.typ, tIoError), tag: "Ok", payload: &dir, word: ir.Concat(ir.LitWord("Ok:"), dir.word)}
	case "env::set_current_dir":
		c.stateful(call.Pos, "std::env::set_current_dir")
		a := args(strArg)
		if anyNever(a) {
			return neverValue
		}
		p := c.word(b, c.stable(b, a[0]))
		return c.ioStatus(&ir.CmdCond{Cmd: quiet(ir.Cmd("cd", ir.LitWord("--"), p))}, ir.Word{}, tUnit, p,
			[]ioCheck{{"-d", errDenied}, {"-e", errNotADirectory}}, errNotFound)

	case "process::exit":
		a := args(tInt("i32"))
		if anyNever(a) {
			return neverValue
		}
		b.add(&ir.Exit{Status: c.word(b, a[0])})
		return neverValue
	case "thread::sleep":
		a := args(tDuration)
		if anyNever(a) {
			return neverValue
		}
		b.add(&ir.Exec{Cmd: ir.Cmd("sleep", c.word(b, a[0]))})
		return unitValue
	case "time::Duration::from_secs":
		a := args(tInt("u64"))
		if anyNever(a) {
			return neverValue
		}
		return wordValue(tDuration, c.word(b, a[0]))
	case "time::Duration::from_millis":
		n, ok := int64(0), false
		if len(call.Args) == 1 {
			n, ok = c.foldInt(call.Args[0])
		}
		if !ok || n%1000 != 0 {
			c.unsupported(call.Pos, "`Duration::from_millis` with a value that is not a constant number of whole seconds")
		}
		return wordValue(tDuration, ir.IntWord(n/1000))

	case "io::stdin":
		args()
		return value{typ: tStdin}
	case "io::stdout":
		args()
		return value{typ: tStdout}

	case "string::String::new":
		args()
		return litStr("")
	case "string::String::from":
		a := args(strArg)
		return wordValue(tStr, c.word(b, a[0]))
	case "vec::Vec::new", "vec::Vec::with_capacity":
		if key == "vec::Vec::with_capacity" {
			args(tInt("usize"))
		} else {
			args()
		}
		t := &Type{Kind: Array, Len: 0}
		if want != nil && want.Kind == Array {
			t.Elem = want.Elem
		}
		return value{typ: t}
	}
	panic("unhandled library function " + key)
}

// quiet discards a command's diagnostics; failures are reported through
// the io::Error value instead.
func quiet(cmd *ir.Command) *ir.Command {
	cmd.Redirs = append(cmd.Redirs, ir.Redir{Fd: 2, Op: ">", Target: ir.LitWord("/dev/null")})
	return cmd
}

// ioCheck picks the error reported for a failed operation when a file
// test on the path succeeds.
type ioCheck struct {
	test string
	err  osError
}

// ioStatus is the io::Result of running cond. On failure the error is
// classified by testing the path after the fact.
func (c *Context) ioStatus(cond ir.Cond, ok ir.Word, elem *Type, path ir.Word, checks []ioCheck, fallback osError) value {
	e := c.temp()
	classify := []ir.Stmt{&ir.Assign{Name: e, Value: ir.LitWord(fallback.display())}}
	for i := len(checks) - 1; i >= 0; i-- {
		classify = []ir.Stmt{&ir.If{
			Cond: &ir.Test{Args: []ir.Word{ir.LitWord(checks[i].test), path}},
			Then: []ir.Stmt{&ir.Assign{Name: e, Value: ir.LitWord(checks[i].err.display())}},
			Else: classify,
		}}
	}
	return value{
		typ: tResult(elem, tIoError),
		status: &status{
			cond: &ir.Or{X: cond, Y: &ir.Seq{Pre: classify, X: &ir.False{}}},
			ok:   ok,
			err:  ir.VarWord(e),
		},
	}
}

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var generatedSuffix = regexp.MustCompile(`_[0-9]+$`)

// envName resolves the variable named by a call's first argument, which
// must be a string literal that cannot collide with generated names.
func (c *Context) envName(call *ast.Call) ir.Name {
	if len(call.Args) == 0 {
		c.fail(errors.NewTypeError(call.Pos, "this function takes at least 1 argument but 0 were supplied"))
	}
	lit, ok := call.Args[0].(*ast.StrLit)
	if !ok {
		c.unsupported(call.Args[0].Location(), "environment variable name that is not a string literal")
	}
	k := lit.Value
	switch {
	case !envNamePattern.MatchString(k),
		strings.Contains(k, "__"),
		generatedSuffix.MatchString(k),
		k == "IFS" || k == "PATH" || k == "PWD" || k == "OPTIND":
		c.unsupported(lit.Pos, "environment variable name `"+k+"`")
	}
	return ir.Name{Base: k}
}

// stateful rejects operations whose effect would be lost because the
// current function body runs in a subshell.
func (c *Context) stateful(at types.Span, what string) {
	if c.fn == nil {
		return
	}
	if c.fn.conv == valueFn || (c.fn.recursive && c.fn.conv == unitFn) {
		c.unsupported(at, "`"+what+"` in a function whose body runs in a subshell")
	}
}

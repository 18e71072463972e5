// Package emit renders the shell IR as POSIX sh text. Output depends only
// on the program: the same IR always produces the same bytes.
package emit

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/tawash", "emit")

const (
	Shebang       = "#!/bin/sh"
	GeneratedLine = "# Code generated by tawash. DO NOT EDIT."
	// TypeInfoPrefix starts the header line that carries the program's
	// function signatures as JSON.
	TypeInfoPrefix = "# tawash:typeinfo "
	// SaveStdout keeps the script's standard output reachable on
	// descriptor 3 from inside command substitutions.
	SaveStdout = "exec 3>&1"
)

const DefaultMaxDepth = 256

type Options struct {
	// TypeInfo is embedded in the header when not empty. It must be a
	// single line.
	TypeInfo string
	MaxDepth int
}

type emitter struct {
	depth    int
	maxDepth int
}

func internalError(format string, args ...interface{}) error {
	return fmt.Errorf("emit: "+format, args...)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (e *emitter) push() {
	e.depth++
	if e.depth > e.maxDepth {
		panic(errors.RecursionLimitExceeded{
			Stage:    "emit",
			Limit:    e.maxDepth,
			Location: types.SingleCharSpan(types.Position{Filename: "<generated>"}),
		})
	}
}

func (e *emitter) pop() {
	e.depth--
}

// Emit renders p as a complete script.
func Emit(p *ir.Program, opts Options) (out string, err error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if strings.ContainsAny(opts.TypeInfo, "\n\r") {
		return "", tracerr.Wrap(internalError("type information must be a single line"))
	}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			if e, ok := r.(error); ok {
				err = tracerr.Wrap(e)
				return
			}
			panic(r)
		}
	}()

	e := &emitter{maxDepth: opts.MaxDepth}
	var sb strings.Builder
	sb.WriteString(Shebang + "\n")
	sb.WriteString(GeneratedLine + "\n")
	if opts.TypeInfo != "" {
		sb.WriteString(TypeInfoPrefix + opts.TypeInfo + "\n")
	}
	if p.SavedStdout {
		sb.WriteString(SaveStdout + "\n")
	}
	for _, f := range p.Funcs {
		sb.WriteString("\n")
		e.function(&sb, f)
	}
	sb.WriteString("\n")
	e.stmts(&sb, p.Globals, 0)
	sb.WriteString(literal(p.Entry) + ` "$@"` + "\n")

	plog.Debugf("emitted %d functions, %d bytes", len(p.Funcs), sb.Len())
	return sb.String(), nil
}

func indent(n int) string {
	return strings.Repeat("    ", n)
}

func (e *emitter) function(sb *strings.Builder, f *ir.Function) {
	open, close := "{", "}"
	if f.Subshell {
		open, close = "(", ")"
	}
	sb.WriteString(f.Name + "() " + open + "\n")
	e.body(sb, f.Body, 1)
	sb.WriteString(close + "\n")
}

// body renders a statement list that must not be empty in sh.
func (e *emitter) body(sb *strings.Builder, list []ir.Stmt, level int) {
	if len(list) == 0 {
		sb.WriteString(indent(level) + ":\n")
		return
	}
	e.stmts(sb, list, level)
}

func (e *emitter) stmts(sb *strings.Builder, list []ir.Stmt, level int) {
	for _, s := range list {
		e.stmt(sb, s, level)
	}
}

func checked(s string, check bool) string {
	if check {
		return s + " || exit"
	}
	return s
}

func (e *emitter) stmt(sb *strings.Builder, s ir.Stmt, level int) {
	e.push()
	defer e.pop()

	ind := indent(level)
	switch v := s.(type) {
	case *ir.Assign:
		sb.WriteString(ind + checked(e.assign(v.Name, v.Value), v.Check) + "\n")
	case *ir.Exec:
		sb.WriteString(ind + checked(e.command(v.Cmd), v.Check) + "\n")
	case *ir.If:
		sb.WriteString(ind + "if " + e.cond(v.Cond, level) + "; then\n")
		e.body(sb, v.Then, level+1)
		els := v.Else
		for len(els) == 1 {
			elif, ok := els[0].(*ir.If)
			if !ok {
				break
			}
			sb.WriteString(ind + "elif " + e.cond(elif.Cond, level) + "; then\n")
			e.body(sb, elif.Then, level+1)
			els = elif.Else
		}
		if len(els) > 0 {
			sb.WriteString(ind + "else\n")
			e.stmts(sb, els, level+1)
		}
		sb.WriteString(ind + "fi\n")
	case *ir.While:
		sb.WriteString(ind + "while " + e.cond(v.Cond, level) + "; do\n")
		e.body(sb, v.Body, level+1)
		sb.WriteString(ind + "done\n")
	case *ir.For:
		var items []string
		for _, w := range v.Items {
			items = append(items, e.word(w))
		}
		sb.WriteString(ind + "for " + v.Var.String() + " in " + strings.Join(items, " ") + "; do\n")
		e.body(sb, v.Body, level+1)
		sb.WriteString(ind + "done\n")
	case *ir.Case:
		sb.WriteString(ind + "case " + e.word(v.Subject) + " in\n")
		for _, arm := range v.Arms {
			sb.WriteString(indent(level+1) + e.patterns(arm.Patterns) + ")\n")
			e.body(sb, arm.Body, level+2)
			sb.WriteString(indent(level+2) + ";;\n")
		}
		sb.WriteString(ind + "esac\n")
	case *ir.Break:
		sb.WriteString(ind + "break\n")
	case *ir.Continue:
		sb.WriteString(ind + "continue\n")
	case *ir.Return:
		sb.WriteString(ind + "return " + itoa(v.Status) + "\n")
	case *ir.Exit:
		sb.WriteString(ind + "exit " + e.word(v.Status) + "\n")
	default:
		panic(internalError("unexpected statement %T", s))
	}
}

func (e *emitter) assign(n ir.Name, w ir.Word) string {
	if len(w.Parts) == 0 {
		return n.String() + "="
	}
	return n.String() + "=" + e.word(w)
}

func (e *emitter) patterns(ps []ir.Word) string {
	var out []string
	for _, p := range ps {
		out = append(out, e.word(p))
	}
	return strings.Join(out, "|")
}

func (e *emitter) command(c *ir.Command) string {
	var parts []string
	for _, a := range c.Env {
		parts = append(parts, a.Name+"="+e.envValue(a.Value))
	}
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, e.word(a))
	}
	for _, r := range c.Redirs {
		fd := ""
		if r.Fd > 0 {
			fd = itoa(r.Fd)
		}
		parts = append(parts, fd+r.Op+e.word(r.Target))
	}
	return strings.Join(parts, " ")
}

func (e *emitter) envValue(w ir.Word) string {
	if len(w.Parts) == 0 {
		return ""
	}
	return e.word(w)
}

// cond renders a condition. Statements embedded in a condition are laid
// out at the given level, so the result may span lines.
func (e *emitter) cond(c ir.Cond, level int) string {
	e.push()
	defer e.pop()

	switch v := c.(type) {
	case *ir.True:
		return "true"
	case *ir.False:
		return "false"
	case *ir.Test:
		var args []string
		for _, a := range v.Args {
			args = append(args, e.word(a))
		}
		return "[ " + strings.Join(args, " ") + " ]"
	case *ir.CmdCond:
		return e.command(v.Cmd)
	case *ir.Capture:
		return v.Name.String() + `="` + e.expansion(v.Cmd) + `"`
	case *ir.CaseCond:
		return "case " + e.word(v.Subject) + " in " + e.patterns(v.Patterns) + ") true ;; *) false ;; esac"
	case *ir.Not:
		return "! " + e.pipeline(v.X, level)
	case *ir.And:
		return e.cond(v.X, level) + " && " + e.operand2(v.Y, level)
	case *ir.Or:
		return e.cond(v.X, level) + " || " + e.operand2(v.Y, level)
	case *ir.Seq:
		var sb strings.Builder
		sb.WriteString("{\n")
		e.stmts(&sb, v.Pre, level+1)
		sb.WriteString(indent(level+1) + e.cond(v.X, level+1) + "\n")
		sb.WriteString(indent(level) + "}")
		return sb.String()
	}
	panic(internalError("unexpected condition %T", c))
}

// operand2 renders the right operand of `&&` or `||`. Lists are
// left-associative, so a nested list on the right needs a group.
func (e *emitter) operand2(c ir.Cond, level int) string {
	switch c.(type) {
	case *ir.And, *ir.Or:
		return "{ " + e.cond(c, level) + "; }"
	}
	return e.cond(c, level)
}

// pipeline renders the operand of `!`, which applies to a single
// pipeline.
func (e *emitter) pipeline(c ir.Cond, level int) string {
	switch c.(type) {
	case *ir.And, *ir.Or, *ir.Not:
		return "{ " + e.cond(c, level) + "; }"
	}
	return e.cond(c, level)
}

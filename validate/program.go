package validate

import (
	"fmt"
	"regexp"

	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

// Commands the generated code may run besides its own functions.
var allowedCommands = map[string]bool{
	"printf": true, "cat": true, "mkdir": true, "rm": true, "rmdir": true,
	"cd": true, "sleep": true, "export": true, "unset": true, "read": true,
	"pwd": true, "true": true, "false": true, ":": true,
}

var allowedRedirs = map[string]bool{">": true, ">>": true, "<": true, ">&": true}

// Parameter expansion operators, keyed by whether the operand may hold a
// pattern.
var allowedOps = map[string]bool{
	"": false, "len": false, "-": false, ":-": false, "+": false, ":+": false,
	"#": true, "##": true, "%": true, "%%": true,
}

var (
	validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	fdNumber  = regexp.MustCompile(`^[0-9]$`)
)

type checker struct {
	p          *ir.Program
	fn         string
	violations []errors.Violation
}

// Program checks the structure of a program before it is trusted to
// render safely.
func Program(p *ir.Program) []errors.Violation {
	c := &checker{p: p}
	if p.Function(p.Entry) == nil {
		c.violate("entry function not defined", p.Entry)
	}
	seen := map[string]bool{}
	for _, f := range p.Funcs {
		c.fn = f.Name
		switch {
		case !validName.MatchString(f.Name):
			c.violate("invalid function name", f.Name)
		case allowedCommands[f.Name] || denied[f.Name] != "":
			c.violate("function shadows a command", f.Name)
		case seen[f.Name]:
			c.violate("function defined twice", f.Name)
		}
		seen[f.Name] = true
		c.stmts(f.Body)
	}
	c.fn = ""
	c.stmts(p.Globals)
	return c.violations
}

func (c *checker) violate(rule, excerpt string) {
	if c.fn != "" {
		excerpt = fmt.Sprintf("%s (in %s)", excerpt, c.fn)
	}
	c.violations = append(c.violations, errors.Violation{Rule: rule, Excerpt: excerpt})
}

func (c *checker) name(n string) {
	if !validName.MatchString(n) {
		c.violate("invalid variable name", n)
	}
}

func (c *checker) stmts(list []ir.Stmt) {
	for _, s := range list {
		c.stmt(s)
	}
}

func (c *checker) stmt(s ir.Stmt) {
	switch v := s.(type) {
	case *ir.Assign:
		c.name(v.Name.String())
		c.word(v.Value, false)
	case *ir.Exec:
		c.command(v.Cmd)
	case *ir.If:
		c.cond(v.Cond)
		c.stmts(v.Then)
		c.stmts(v.Else)
	case *ir.While:
		c.cond(v.Cond)
		c.stmts(v.Body)
	case *ir.For:
		c.name(v.Var.String())
		for _, w := range v.Items {
			c.word(w, false)
		}
		c.stmts(v.Body)
	case *ir.Case:
		c.word(v.Subject, false)
		for _, arm := range v.Arms {
			for _, p := range arm.Patterns {
				c.word(p, true)
			}
			c.stmts(arm.Body)
		}
	case *ir.Exit:
		c.word(v.Status, false)
	case *ir.Return:
		if v.Status < 0 || v.Status > 255 {
			c.violate("return status out of range", fmt.Sprint(v.Status))
		}
	case *ir.Break, *ir.Continue:
	default:
		c.violate("unknown statement", fmt.Sprintf("%T", s))
	}
}

func (c *checker) cond(x ir.Cond) {
	switch v := x.(type) {
	case *ir.Test:
		for _, w := range v.Args {
			c.word(w, false)
		}
	case *ir.CmdCond:
		c.command(v.Cmd)
	case *ir.Capture:
		c.name(v.Name.String())
		c.subst(v.Cmd)
	case *ir.CaseCond:
		c.word(v.Subject, false)
		for _, p := range v.Patterns {
			c.word(p, true)
		}
	case *ir.Not:
		c.cond(v.X)
	case *ir.And:
		c.cond(v.X)
		c.cond(v.Y)
	case *ir.Or:
		c.cond(v.X)
		c.cond(v.Y)
	case *ir.Seq:
		c.stmts(v.Pre)
		c.cond(v.X)
	case *ir.True, *ir.False:
	default:
		c.violate("unknown condition", fmt.Sprintf("%T", x))
	}
}

func (c *checker) command(cmd *ir.Command) {
	if !allowedCommands[cmd.Name] && c.p.Function(cmd.Name) == nil {
		c.violate("command not allowed", cmd.Name)
	}
	for _, e := range cmd.Env {
		c.name(e.Name)
		c.word(e.Value, false)
	}
	if cmd.Name == "printf" {
		if len(cmd.Args) == 0 {
			c.violate("printf without a format", "printf")
		} else if _, ok := cmd.Args[0].Static(); !ok {
			c.violate("printf format is not constant", "printf")
		}
	}
	for _, a := range cmd.Args {
		c.word(a, false)
	}
	for _, r := range cmd.Redirs {
		if !allowedRedirs[r.Op] {
			c.violate("redirection not allowed", r.Op)
		}
		if r.Op == ">&" {
			if t, ok := r.Target.Static(); !ok || !fdNumber.MatchString(t) {
				c.violate("descriptor duplication needs a constant descriptor", r.Op)
			}
			continue
		}
		c.word(r.Target, false)
	}
}

func (c *checker) subst(s *ir.CmdSubst) {
	if len(s.List) == 0 {
		c.violate("empty command substitution", "$()")
	}
	for _, cmd := range s.List {
		c.command(cmd)
	}
}

// word checks every part of w. Globs are only meaningful where a pattern
// is matched.
func (c *checker) word(w ir.Word, pattern bool) {
	for _, p := range w.Parts {
		switch v := p.(type) {
		case *ir.Lit:
		case *ir.Glob:
			if !pattern {
				c.violate("glob outside a pattern", v.Pattern)
			}
		case *ir.Var:
			c.name(v.Name.String())
			takesPattern, ok := allowedOps[v.Op]
			if !ok {
				c.violate("parameter expansion not allowed", v.Op)
			}
			if v.Arg != nil {
				if v.Op == "" || v.Op == "len" {
					c.violate("operand without an operator", v.Name.String())
				}
				c.word(*v.Arg, takesPattern)
			}
		case *ir.Param:
			if v.Special != "" && v.Special != "@" && v.Special != "#" && v.Special != "?" {
				c.violate("special parameter not allowed", "$"+v.Special)
			}
		case *ir.ArithPart:
			c.arith(v.X)
		case *ir.CmdSubst:
			c.subst(v)
		default:
			c.violate("unknown word part", fmt.Sprintf("%T", p))
		}
	}
}

func (c *checker) arith(x ir.Arith) {
	switch v := x.(type) {
	case *ir.Num:
	case *ir.Ref:
		c.name(v.Name.String())
	case *ir.UnaryArith:
		c.arith(v.X)
	case *ir.BinaryArith:
		c.arith(v.X)
		c.arith(v.Y)
	default:
		c.violate("unknown arithmetic node", fmt.Sprintf("%T", x))
	}
}

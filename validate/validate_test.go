package validate

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
)

func rules(vs []errors.Violation) []string {
	var out []string
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func hasRule(vs []errors.Violation, rule string) bool {
	for _, v := range vs {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

const emitted = `#!/bin/sh
# Code generated by tawash. DO NOT EDIT.
# tawash:typeinfo {"functions":{"main":"fn()"}}
exec 3>&1

count() (
    x="$1"
    t="$(cat -- "${p}" 2>/dev/null && printf '%s' x)" || exit
    y="${t%x}"
    if [ "${#x}" -gt 0 ] && case "${v}" in Ok:*) true ;; *) false ;; esac; then
        printf '%s\n' "it's ${v#*:}" "$((x - (-5)))" "$(((a + b) * c))" >&3
    fi
    z="${n#"${n%%[![:space:]]*}"}"
    d="${d:-0}"
    if [ -n "${K+x}" ] || ! { true && false; }; then
        printf '%s' 'it'\''s' 'eval' "exec" '{1..3}' "$#"
    fi
    return 0
)

main() {
    :
}

main "$@"
`

func TestScriptAcceptsEmitterOutput(t *testing.T) {
	vs := Script(emitted)
	be.Equal(t, len(vs), 0)
	be.Err(t, Validate(emitted, nil), nil)
}

func TestScriptRejects(t *testing.T) {
	tests := []struct {
		script string
		rule   string
	}{
		{`eval "${x}"`, "eval"},
		{`x=$y`, "unquoted expansion"},
		{"x=`pwd`", "backtick command substitution"},
		{`x="` + "`pwd`" + `"`, "backtick command substitution"},
		{`printf '%s' $'a'`, "ANSI-C quoting"},
		{`x="${!y}"`, "indirect expansion"},
		{`x="${y//a/b}"`, "pattern substitution"},
		{`x="${y:1}"`, "substring expansion"},
		{`x="${y^^}"`, "case modification"},
		{`cat <<< "${x}"`, "here-string"},
		{`cat <(pwd)`, "process substitution"},
		{`x=(a b)`, "array assignment"},
		{`for i in {1..3}; do :; done`, "brace expansion"},
		{`((x++))`, "arithmetic command"},
		{`[[ -n "${x}" ]]`, "non-POSIX test"},
		{`local x=1`, "non-POSIX builtin"},
		{`. ./lib.sh`, "sourcing a file"},
		{`exec 2>/dev/null`, "exec"},
		{`f &> /dev/null`, "non-POSIX redirection"},
		{`printf '%s' 'unterminated`, "unbalanced quoting"},
	}
	for _, tt := range tests {
		vs := Script(tt.script)
		if !hasRule(vs, tt.rule) {
			t.Errorf("%q: want rule %q, got %v", tt.script, tt.rule, rules(vs))
		}
	}
}

func TestScriptReportsLines(t *testing.T) {
	vs := Script("a=1\nx=$y\n")
	be.Equal(t, len(vs), 1)
	be.Equal(t, vs[0].Line, 2)
	be.Equal(t, vs[0].Excerpt, "x=$y")
	be.Equal(t, vs[0].Error(), "line 2: unquoted expansion: x=$y")
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	err := Validate("eval x\ny=$z\n", nil)
	be.True(t, err != nil)

	verr, ok := err.(errors.ValidationError)
	be.True(t, ok)
	be.Equal(t, rules(verr.Violations), []string{"eval", "unquoted expansion"})
	be.True(t, verr.Unwrap() != nil)

	kind, ok := errors.KindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, errors.ValidationErrorKind)
}

func program(body ...ir.Stmt) *ir.Program {
	return &ir.Program{Entry: "main", Funcs: []*ir.Function{{Name: "main", Body: body}}}
}

func TestProgramAcceptsLoweredCode(t *testing.T) {
	v := ir.Name{Base: "v"}
	p := program(
		&ir.Assign{Name: v, Value: ir.Concat(ir.LitWord("Ok:"), ir.ArithWord(&ir.BinaryArith{Op: "+", X: &ir.Ref{Name: v}, Y: &ir.Num{Value: 1}}))},
		&ir.If{
			Cond: &ir.CaseCond{Subject: ir.VarWord(v), Patterns: []ir.Word{{Parts: []ir.Part{&ir.Lit{Text: "Ok:"}, &ir.Glob{Pattern: "*"}}}}},
			Then: []ir.Stmt{&ir.Exec{Cmd: ir.Printf("%s\n", ir.Word{Parts: []ir.Part{&ir.Var{Name: v, Op: "#", Arg: &ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "*:"}}}}}})}},
		},
		&ir.Exec{Cmd: &ir.Command{Name: "printf", Args: []ir.Word{ir.LitWord("%s"), ir.LitWord("x")}, Redirs: []ir.Redir{{Op: ">&", Target: ir.LitWord("3")}}}},
	)
	be.Equal(t, len(Program(p)), 0)
}

func TestProgramRejects(t *testing.T) {
	glob := ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "*"}}}
	tests := []struct {
		p    *ir.Program
		rule string
	}{
		{&ir.Program{Entry: "main"}, "entry function not defined"},
		{program(&ir.Exec{Cmd: ir.Cmd("curl", ir.LitWord("example.com"))}), "command not allowed"},
		{program(&ir.Exec{Cmd: ir.Cmd("printf", ir.VarWord(ir.Name{Base: "fmt"}))}), "printf format is not constant"},
		{program(&ir.Exec{Cmd: ir.Cmd("rm", glob)}), "glob outside a pattern"},
		{program(&ir.Assign{Name: ir.Name{Base: "a-b"}, Value: ir.LitWord("1")}), "invalid variable name"},
		{program(&ir.Exec{Cmd: ir.Printf("%s", ir.Word{Parts: []ir.Part{&ir.Param{Special: "$"}}})}), "special parameter not allowed"},
		{program(&ir.Exec{Cmd: ir.Printf("%s", ir.Word{Parts: []ir.Part{&ir.Var{Name: ir.Name{Base: "x"}, Op: "/"}}})}), "parameter expansion not allowed"},
		{program(&ir.Exec{Cmd: &ir.Command{Name: "cat", Redirs: []ir.Redir{{Op: "<>", Target: ir.LitWord("f")}}}}), "redirection not allowed"},
		{program(&ir.Exec{Cmd: &ir.Command{Name: "cat", Redirs: []ir.Redir{{Op: ">&", Target: ir.VarWord(ir.Name{Base: "fd"})}}}}), "descriptor duplication needs a constant descriptor"},
		{&ir.Program{Entry: "main", Funcs: []*ir.Function{{Name: "main"}, {Name: "printf"}}}, "function shadows a command"},
		{&ir.Program{Entry: "main", Funcs: []*ir.Function{{Name: "main"}, {Name: "main"}}}, "function defined twice"},
		{program(&ir.Return{Status: 300}), "return status out of range"},
	}
	for _, tt := range tests {
		vs := Program(tt.p)
		if !hasRule(vs, tt.rule) {
			t.Errorf("want rule %q, got %v", tt.rule, rules(vs))
		}
	}
}

func TestProgramAllowsUserFunctions(t *testing.T) {
	p := &ir.Program{Entry: "main", Funcs: []*ir.Function{
		{Name: "greet", Body: []ir.Stmt{&ir.Exec{Cmd: ir.Printf("%s\n", ir.LitWord("hi"))}}},
		{Name: "main", Body: []ir.Stmt{&ir.Exec{Cmd: ir.Cmd("greet"), Check: true}}},
	}}
	be.Equal(t, len(Program(p)), 0)
}

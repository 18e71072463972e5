package emit

import (
	"testing"

	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func name(s string) ir.Name { return ir.Name{Base: s} }

func ref(s string) ir.Arith { return &ir.Ref{Name: name(s)} }

func TestSafe(t *testing.T) {
	for _, s := range []string{"main", "a.b", "Ok:", "-n", "/dev/null", "x=1", "a,b+c@d"} {
		assert.True(t, Safe(s), s)
	}
	for _, s := range []string{"", "if", "done", "{", "a b", "$x", "*", "it's", "a;b", "~"} {
		assert.False(t, Safe(s), s)
	}
}

func TestSingleQuote(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, SingleQuote("it's"))
	assert.Equal(t, `'$HOME'`, SingleQuote("$HOME"))
	assert.Equal(t, `''`, SingleQuote(""))
}

func TestWords(t *testing.T) {
	e := &emitter{maxDepth: DefaultMaxDepth}
	tests := []struct {
		word ir.Word
		want string
	}{
		{ir.LitWord("plain"), "plain"},
		{ir.LitWord("two words"), "'two words'"},
		{ir.LitWord(""), "''"},
		{ir.Word{}, "''"},
		{ir.VarWord(name("x")), `"${x}"`},
		{ir.Concat(ir.LitWord("Some:"), ir.VarWord(name("x"))), `Some:"${x}"`},
		{ir.Concat(ir.LitWord("it's $"), ir.VarWord(name("x"))), `"it's \$${x}"`},
		{ir.Concat(ir.LitWord("Ok:"), ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "*"}}}), `Ok:*`},
		{ir.Word{Parts: []ir.Part{&ir.Var{Name: name("s"), Op: "len"}}}, `"${#s}"`},
		{ir.Word{Parts: []ir.Part{&ir.Var{Name: name("v"), Op: "#", Arg: &ir.Word{Parts: []ir.Part{&ir.Glob{Pattern: "*:"}}}}}}, `"${v#*:}"`},
		{ir.Word{Parts: []ir.Part{&ir.Var{Name: name("d"), Op: "#", Arg: &ir.Word{Parts: []ir.Part{&ir.Var{Name: name("z")}}}}}}, `"${d#"${z}"}"`},
		{ir.Word{Parts: []ir.Part{&ir.Param{Index: 1}}}, `"$1"`},
		{ir.Word{Parts: []ir.Part{&ir.Param{Index: 12}}}, `"${12}"`},
		{ir.Word{Parts: []ir.Part{&ir.Param{Special: "@"}}}, `"$@"`},
		{ir.ArithWord(&ir.BinaryArith{Op: "+", X: ref("a"), Y: &ir.Num{Value: 1}}), `"$((a + 1))"`},
		{ir.Word{Parts: []ir.Part{&ir.CmdSubst{List: []*ir.Command{ir.Cmd("pwd")}}}}, `"$(pwd)"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.word(tt.word))
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	e := &emitter{maxDepth: DefaultMaxDepth}
	bin := func(op string, x, y ir.Arith) ir.Arith { return &ir.BinaryArith{Op: op, X: x, Y: y} }
	tests := []struct {
		x    ir.Arith
		want string
	}{
		{bin("*", bin("+", ref("a"), ref("b")), ref("c")), "(a + b) * c"},
		{bin("+", ref("a"), bin("*", ref("b"), ref("c"))), "a + b * c"},
		{bin("-", ref("a"), bin("-", ref("b"), ref("c"))), "a - (b - c)"},
		{bin("-", bin("-", ref("a"), ref("b")), ref("c")), "a - b - c"},
		{bin("-", ref("a"), &ir.Num{Value: -5}), "a - (-5)"},
		{bin("&", bin("<<", ref("a"), &ir.Num{Value: 2}), &ir.Num{Value: 255}), "a << 2 & 255"},
		{&ir.UnaryArith{Op: "-", X: ref("a")}, "-a"},
		{&ir.UnaryArith{Op: "-", X: &ir.UnaryArith{Op: "-", X: ref("a")}}, "-(-a)"},
		{bin("*", &ir.UnaryArith{Op: "~", X: ref("a")}, ref("b")), "(~a) * b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.arith(tt.x, 0))
	}
}

func TestEmitProgram(t *testing.T) {
	p := &ir.Program{
		Entry: "main",
		Funcs: []*ir.Function{{
			Name: "main",
			Body: []ir.Stmt{&ir.Exec{Cmd: ir.Printf("%s\n", ir.LitWord("hello, world"))}},
		}},
	}
	out, err := Emit(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n"+
		"# Code generated by tawash. DO NOT EDIT.\n"+
		"\n"+
		"main() {\n"+
		"    printf '%s\\n' 'hello, world'\n"+
		"}\n"+
		"\n"+
		"main \"$@\"\n", out)
}

func TestEmitHeader(t *testing.T) {
	p := &ir.Program{Entry: "main", SavedStdout: true, Funcs: []*ir.Function{{Name: "main"}}}
	out, err := Emit(p, Options{TypeInfo: `{"functions":{}}`})
	require.NoError(t, err)
	assert.Contains(t, out, "\n"+TypeInfoPrefix+`{"functions":{}}`+"\n"+SaveStdout+"\n")
	assert.Contains(t, out, "main() {\n    :\n}\n")

	_, err = Emit(p, Options{TypeInfo: "a\nb"})
	assert.Error(t, err)
}

func TestEmitStatements(t *testing.T) {
	x := name("x")
	p := &ir.Program{
		Entry: "main",
		Funcs: []*ir.Function{{
			Name:     "count",
			Subshell: true,
			Body: []ir.Stmt{
				&ir.Assign{Name: x, Value: ir.Word{Parts: []ir.Part{&ir.Param{Index: 1}}}},
				&ir.If{
					Cond: &ir.Test{Args: []ir.Word{ir.VarWord(x), ir.LitWord("-gt"), ir.LitWord("0")}},
					Then: []ir.Stmt{&ir.Exec{Cmd: ir.Cmd("count", ir.ArithWord(&ir.BinaryArith{Op: "-", X: &ir.Ref{Name: x}, Y: &ir.Num{Value: 1}})), Check: true}},
					Else: []ir.Stmt{&ir.If{
						Cond: &ir.CaseCond{Subject: ir.VarWord(x), Patterns: []ir.Word{ir.LitWord("0")}},
						Then: []ir.Stmt{&ir.Return{Status: 0}},
						Else: []ir.Stmt{&ir.Exit{Status: ir.LitWord("101")}},
					}},
				},
				&ir.Return{Status: 0},
			},
		}, {
			Name: "main",
			Body: []ir.Stmt{
				&ir.Case{Subject: ir.VarWord(x), Arms: []ir.CaseArm{
					{Patterns: []ir.Word{ir.LitWord("a"), ir.LitWord("b c")}, Body: []ir.Stmt{&ir.Break{}}},
					{Patterns: []ir.Word{{Parts: []ir.Part{&ir.Glob{Pattern: "*"}}}}},
				}},
			},
		}},
	}
	out, err := Emit(p, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `count() (
    x="$1"
    if [ "${x}" -gt 0 ]; then
        count "$((x - 1))" || exit
    elif case "${x}" in 0) true ;; *) false ;; esac; then
        return 0
    else
        exit 101
    fi
    return 0
)
`)
	assert.Contains(t, out, `    case "${x}" in
        a|'b c')
            break
            ;;
        *)
            :
            ;;
    esac
`)
}

func TestEmitConditions(t *testing.T) {
	e := &emitter{maxDepth: DefaultMaxDepth}
	a := &ir.Test{Args: []ir.Word{ir.LitWord("-n"), ir.VarWord(name("a"))}}
	b := &ir.CmdCond{Cmd: ir.Cmd("true")}
	c := &ir.False{}

	assert.Equal(t, `[ -n "${a}" ] || true && false`, e.cond(&ir.And{X: &ir.Or{X: a, Y: b}, Y: c}, 0))
	assert.Equal(t, `[ -n "${a}" ] && { true || false; }`, e.cond(&ir.And{X: a, Y: &ir.Or{X: b, Y: c}}, 0))
	assert.Equal(t, `! { true && false; }`, e.cond(&ir.Not{X: &ir.And{X: b, Y: c}}, 0))
	assert.Equal(t, `t="$(pwd)"`, e.cond(&ir.Capture{Name: name("t"), Cmd: &ir.CmdSubst{List: []*ir.Command{ir.Cmd("pwd")}}}, 0))
	assert.Equal(t, "{\n    x=1\n    [ -n \"${a}\" ]\n}", e.cond(&ir.Seq{Pre: []ir.Stmt{&ir.Assign{Name: name("x"), Value: ir.LitWord("1")}}, X: a}, 0))
}

func TestEmitIsDeterministic(t *testing.T) {
	p := &ir.Program{Entry: "main", Funcs: []*ir.Function{{
		Name: "main",
		Body: []ir.Stmt{&ir.For{Var: name("i"), Items: []ir.Word{ir.LitWord("1"), ir.LitWord("2")}, Body: []ir.Stmt{
			&ir.Exec{Cmd: ir.Printf("%s\n", ir.VarWord(name("i")))},
		}}},
	}}}
	first, err := Emit(p, Options{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Emit(p, Options{})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	assert.Contains(t, first, "    for i in 1 2; do\n        printf '%s\\n' \"${i}\"\n    done\n")
}

func TestEmitDepthLimit(t *testing.T) {
	var x ir.Arith = ref("a")
	for i := 0; i < 100; i++ {
		x = &ir.BinaryArith{Op: "+", X: x, Y: &ir.Num{Value: 1}}
	}
	p := &ir.Program{Entry: "main", Funcs: []*ir.Function{{
		Name: "main",
		Body: []ir.Stmt{&ir.Assign{Name: name("a"), Value: ir.ArithWord(x)}},
	}}}
	_, err := Emit(p, Options{MaxDepth: 16})
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.RecursionLimitKind, kind)

	_, err = Emit(p, Options{})
	assert.NoError(t, err)
}

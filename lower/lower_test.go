package lower

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseString(src, "src/main.rs")
	require.NoError(t, err)
	return f
}

func lowerSrc(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := Lower(Options{}, parse(t, src))
	require.NoError(t, err)
	return p
}

func lowerErr(t *testing.T, src string) errors.Diagnostic {
	t.Helper()
	_, err := Lower(Options{}, parse(t, src))
	require.Error(t, err)
	d, ok := errors.AsDiagnostic(err)
	require.True(t, ok, "not a diagnostic: %v", err)
	return d
}

func TestLowerHello(t *testing.T) {
	got := lowerSrc(t, `fn main() { println!("Hello"); }`)
	want := &ir.Program{
		Entry: "main",
		Funcs: []*ir.Function{{
			Name: "main",
			Body: []ir.Stmt{&ir.Exec{Cmd: ir.Printf("%s\n", ir.LitWord("Hello"))}},
		}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerUnitCall(t *testing.T) {
	got := lowerSrc(t, `
fn greet() {
    println!("hi");
}

fn main() {
    greet();
}
`)
	want := &ir.Program{
		Entry:       "main",
		SavedStdout: true,
		Funcs: []*ir.Function{{
			Name: "greet",
			Body: []ir.Stmt{&ir.Exec{Cmd: &ir.Command{
				Name:   "printf",
				Args:   []ir.Word{ir.LitWord("%s\n"), ir.LitWord("hi")},
				Redirs: []ir.Redir{{Op: ">&", Target: ir.LitWord("3")}},
			}}},
		}, {
			Name: "main",
			Body: []ir.Stmt{&ir.Exec{Cmd: ir.Cmd("greet")}},
		}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReservedFunctionNames(t *testing.T) {
	p := lowerSrc(t, `
fn test() {}
fn main() { test(); }
`)
	require.Len(t, p.Funcs, 2)
	assert.Equal(t, "__tw_f_test", p.Funcs[0].Name)
	assert.Equal(t, "__tw_f_test", p.Funcs[1].Body[0].(*ir.Exec).Cmd.Name)
}

func TestRecursiveFunctionsRunInSubshells(t *testing.T) {
	p := lowerSrc(t, `
fn countdown(n: u32) {
    if n > 0 {
        println!("{}", n);
        countdown(n - 1);
    }
}

fn main() {
    countdown(3);
}
`)
	f := p.Function("countdown")
	require.NotNil(t, f)
	assert.True(t, f.Subshell)
	assert.False(t, p.Function("main").Subshell)

	last := f.Body[len(f.Body)-1]
	assert.Equal(t, &ir.Return{Status: 0}, last)
}

func TestSignatures(t *testing.T) {
	ctx := NewContext(Options{})
	_, err := ctx.Lower(parse(t, `
fn add(a: i32, b: i32) -> i32 { a + b }
fn check(s: &str) -> Result<(), String> { Ok(()) }
fn main() {}
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"add":   "fn(i32, i32) -> i32",
		"check": "fn(&str) -> Result<(), String>",
		"main":  "fn()",
	}, ctx.Signatures())
}

func TestLowerDiagnostics(t *testing.T) {
	tests := []struct {
		src  string
		kind errors.Kind
		msg  string
	}{
		{`fn helper() {}`, errors.TypeErrorKind, "`main` function not found in crate"},
		{`fn main() { let count = 1; println!("{}", cuont); }`, errors.TypeErrorKind, "cannot find value `cuont` in this scope (did you mean `count`?)"},
		{`fn greet() {} fn main() { gret(); }`, errors.TypeErrorKind, "cannot find function `gret` in this scope (did you mean `greet`?)"},
		{`fn f(a: i32) {} fn main() { f(1, 2); }`, errors.TypeErrorKind, "this function takes 1 argument but 2 were supplied"},
		{`fn main() { let x = 1; x = 2; }`, errors.TypeErrorKind, "cannot assign twice to immutable variable `x`"},
		{`fn main() { break; }`, errors.TypeErrorKind, "`break` outside of a loop"},
		{`fn f() {} fn f() {} fn main() {}`, errors.TypeErrorKind, "the name `f` is defined multiple times"},
		{`fn f(x: &mut i32) {} fn main() {}`, errors.UnsupportedConstructKind, ""},
		{`fn main() { main(); }`, errors.UnsupportedConstructKind, ""},
	}
	for _, tt := range tests {
		d := lowerErr(t, tt.src)
		assert.Equal(t, tt.kind, d.Kind(), tt.src)
		if tt.msg != "" {
			assert.Equal(t, tt.msg, d.Message(), tt.src)
		}
	}
}

func TestDiagnosticsAreRecorded(t *testing.T) {
	ctx := NewContext(Options{})
	_, err := ctx.Lower(parse(t, `fn main() { let y = x; }`))
	require.Error(t, err)
	require.Len(t, ctx.Diagnostics(), 1)
	assert.Equal(t, errors.TypeErrorKind, ctx.Diagnostics()[0].Kind())
}

func TestLowerDepthLimit(t *testing.T) {
	src := "fn main() { let x = 1"
	for i := 0; i < 40; i++ {
		src += " + 1"
	}
	src += "; }"
	_, err := Lower(Options{MaxDepth: 10}, parse(t, src))
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.RecursionLimitKind, kind)

	_, err = Lower(Options{}, parse(t, src))
	assert.NoError(t, err)
}

func TestLoweringIsDeterministic(t *testing.T) {
	const src = `
fn classify(n: i32) -> u8 {
    match n {
        0 => 0,
        1..=9 => 1,
        _ => 2,
    }
}

fn main() {
    for i in 0..12 {
        println!("{} {}", i, classify(i));
    }
}
`
	first := lowerSrc(t, src)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, lowerSrc(t, src)); diff != "" {
			t.Fatalf("lowering changed between runs:\n%s", diff)
		}
	}
}

package parser

import (
	"strings"
	"testing"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := ParseString(src, "test.rs")
	require.NoError(t, err)
	return f
}

func mainBody(t *testing.T, src string) *ast.Block {
	t.Helper()
	f := parse(t, "fn main() {"+src+"}")
	require.Len(t, f.Items, 1)
	return f.Items[0].(*ast.Func).Body
}

func parseErr(t *testing.T, src string) errors.Diagnostic {
	t.Helper()
	_, err := ParseString(src, "test.rs")
	require.Error(t, err)
	d, ok := errors.AsDiagnostic(err)
	require.True(t, ok, "not a diagnostic: %v", err)
	return d
}

func TestParseFunction(t *testing.T) {
	f := parse(t, `
		#[allow(dead_code)]
		pub fn add(a: i32, mut b: &str) -> Option<Vec<i32>> { None }
	`)
	require.Len(t, f.Items, 1)
	fn := f.Items[0].(*ast.Func)
	assert.Equal(t, "add", fn.Ident.Name)
	require.Len(t, fn.Params, 2)
	assert.True(t, fn.Params[1].Mut)
	assert.Equal(t, "fn add(a: i32, b: &str) -> Option<Vec<i32>>", fn.Signature())
	assert.Equal(t, 3, fn.Pos.From.Line)
	assert.IsType(t, &ast.Path{}, fn.Body.Tail)
}

func TestPrecedence(t *testing.T) {
	b := mainBody(t, "let x = 2 + 3 * 4 - 1;")
	let := b.Stmts[0].(*ast.Let)
	sub := let.Value.(*ast.Binary)
	assert.Equal(t, types.MINUS, sub.Op)
	add := sub.X.(*ast.Binary)
	assert.Equal(t, types.PLUS, add.Op)
	mul := add.Y.(*ast.Binary)
	assert.Equal(t, types.STAR, mul.Op)

	b = mainBody(t, "let y = a || b && c == d | e;")
	or := b.Stmts[0].(*ast.Let).Value.(*ast.Binary)
	assert.Equal(t, types.OROR, or.Op)
	and := or.Y.(*ast.Binary)
	assert.Equal(t, types.ANDAND, and.Op)
	eq := and.Y.(*ast.Binary)
	assert.Equal(t, types.EQEQ, eq.Op)
	assert.Equal(t, types.PIPE, eq.Y.(*ast.Binary).Op)
}

func TestUnaryAndCast(t *testing.T) {
	b := mainBody(t, "let x = -a as i64;")
	cast := b.Stmts[0].(*ast.Let).Value.(*ast.Cast)
	assert.Equal(t, types.MINUS, cast.X.(*ast.Unary).Op)
}

func TestChainedComparison(t *testing.T) {
	d := parseErr(t, "fn main() { let x = a < b < c; }")
	assert.Equal(t, errors.SyntaxErrorKind, d.Kind())
}

func TestStatementsAndTail(t *testing.T) {
	b := mainBody(t, `
		let mut i = 0;
		while i < 10 { i += 1; }
		if i == 10 { println!("done"); }
		i
	`)
	require.Len(t, b.Stmts, 3)
	assert.IsType(t, &ast.While{}, b.Stmts[1].(*ast.ExprStmt).X)
	assert.False(t, b.Stmts[2].(*ast.ExprStmt).Semi)
	assert.IsType(t, &ast.Path{}, b.Tail)
}

func TestBlockStatementIsNotBinaryOperand(t *testing.T) {
	b := mainBody(t, "if a { f(); } *x = 1;")
	require.Len(t, b.Stmts, 2)
	assign := b.Stmts[1].(*ast.ExprStmt).X.(*ast.Assign)
	assert.Equal(t, types.STAR, assign.To.(*ast.Unary).Op)
}

func TestLabeledLoops(t *testing.T) {
	b := mainBody(t, `'outer: loop { 'inner: for i in 0..3 { break 'outer; continue 'inner; } }`)
	loop := b.Tail.(*ast.Loop)
	assert.Equal(t, "outer", loop.Label)
	inner := loop.Body.Tail.(*ast.For)
	assert.Equal(t, "inner", inner.Label)
	assert.Equal(t, "outer", inner.Body.Stmts[0].(*ast.ExprStmt).X.(*ast.Break).Label)
	rng := inner.Iter.(*ast.Range)
	assert.False(t, rng.Inclusive)
}

func TestMatch(t *testing.T) {
	b := mainBody(t, `
		match n {
			0 => println!("zero"),
			1..=5 | 10 => {}
			x if x < 0 => println!("neg"),
			Some(v) => (),
			Color::Red => (),
			Point { x, y: 0, .. } => (),
			_ => {}
		}
	`)
	m := b.Tail.(*ast.Match)
	require.Len(t, m.Arms, 7)
	assert.IsType(t, &ast.LitPat{}, m.Arms[0].Pat)
	or := m.Arms[1].Pat.(*ast.OrPat)
	rng := or.Alts[0].(*ast.RangePat)
	assert.True(t, rng.Inclusive)
	assert.NotNil(t, m.Arms[2].Guard)
	assert.Equal(t, []string{"Some"}, m.Arms[3].Pat.(*ast.VariantPat).Path)
	assert.Equal(t, []string{"Color", "Red"}, m.Arms[4].Pat.(*ast.VariantPat).Path)
	sp := m.Arms[5].Pat.(*ast.StructPat)
	assert.True(t, sp.Rest)
	require.Len(t, sp.Fields, 2)
	assert.IsType(t, &ast.WildcardPat{}, m.Arms[6].Pat)
}

func TestNegativeLiteralPattern(t *testing.T) {
	b := mainBody(t, "match n { -1 => {} _ => {} }")
	lit := b.Tail.(*ast.Match).Arms[0].Pat.(*ast.LitPat)
	assert.True(t, lit.Neg)
	assert.Equal(t, uint64(1), lit.Value.(*ast.IntLit).Value)
}

func TestStructLiteralNotInCondition(t *testing.T) {
	b := mainBody(t, "let p = Point { x: 1, y }; if p.x == y { }")
	lit := b.Stmts[0].(*ast.Let).Value.(*ast.StructLit)
	require.Len(t, lit.Fields, 2)
	assert.Equal(t, "y", lit.Fields[1].Value.(*ast.Path).Segments[0])
	cond := b.Tail.(*ast.If).Cond.(*ast.Binary)
	assert.IsType(t, &ast.Field{}, cond.X)
}

func TestIfLetAndWhileLet(t *testing.T) {
	b := mainBody(t, "if let Some(x) = o { } while let Ok(v) = r { }")
	assert.IsType(t, &ast.LetCond{}, b.Stmts[0].(*ast.ExprStmt).X.(*ast.If).Cond)
	assert.IsType(t, &ast.LetCond{}, b.Tail.(*ast.While).Cond)
}

func TestMethodsAndTurbofish(t *testing.T) {
	b := mainBody(t, `let n = s.trim().parse::<i32>().unwrap_or(0); let t = pair.0;`)
	call := b.Stmts[0].(*ast.Let).Value.(*ast.MethodCall)
	assert.Equal(t, "unwrap_or", call.Method.Name)
	parse := call.Recv.(*ast.MethodCall)
	assert.Equal(t, "parse", parse.Method.Name)
	require.Len(t, parse.Turbofish, 1)
	assert.Equal(t, "0", b.Stmts[1].(*ast.Let).Value.(*ast.Field).Ident.Name)
}

func TestUseTree(t *testing.T) {
	f := parse(t, "use std::{fs, env::var as getenv}; use Color::*;")
	require.Len(t, f.Items, 3)
	assert.Equal(t, []string{"std", "fs"}, f.Items[0].(*ast.Use).Path)
	u := f.Items[1].(*ast.Use)
	assert.Equal(t, []string{"std", "env", "var"}, u.Path)
	assert.Equal(t, "getenv", u.Alias)
	assert.True(t, f.Items[2].(*ast.Use).Glob)
}

func TestItems(t *testing.T) {
	f := parse(t, `
		const MAX: u32 = 10;
		struct Point { x: i32, y: i32 }
		enum Shape { Empty, Square(u32), }
	`)
	require.Len(t, f.Items, 3)
	assert.Equal(t, "MAX", f.Items[0].(*ast.Const).Ident.Name)
	assert.Len(t, f.Items[1].(*ast.StructDecl).Fields, 2)
	e := f.Items[2].(*ast.EnumDecl)
	require.Len(t, e.Variants, 2)
	assert.Nil(t, e.Variants[0].Payload)
	assert.NotNil(t, e.Variants[1].Payload)
}

func TestDuplicateField(t *testing.T) {
	d := parseErr(t, "struct P { x: i32, x: i32 }")
	assert.IsType(t, errors.DuplicateField{}, d)
}

func TestFormatStrings(t *testing.T) {
	b := mainBody(t, `println!("{} + {1} = {sum:?} {{ok}}", a, b);`)
	m := b.Stmts[0].(*ast.ExprStmt).X.(*ast.MacroCall)
	require.NotNil(t, m.Format)
	f := m.Format
	require.Len(t, f.Args, 3)
	assert.Equal(t, []ast.FormatPiece{
		{Hole: true, Arg: 0},
		{Text: " + "},
		{Hole: true, Arg: 1},
		{Text: " = "},
		{Hole: true, Arg: 2, Debug: true},
		{Text: " {ok}"},
	}, f.Pieces)
	assert.Equal(t, "sum", f.Args[2].(*ast.Path).Segments[0])
}

func TestFormatArity(t *testing.T) {
	assert.Equal(t, errors.SyntaxErrorKind, parseErr(t, `fn main() { println!("{} {}", a); }`).Kind())
	assert.Equal(t, errors.SyntaxErrorKind, parseErr(t, `fn main() { println!("{}", a, b); }`).Kind())
	assert.Equal(t, errors.SyntaxErrorKind, parseErr(t, `fn main() { println!("{", a); }`).Kind())
	assert.Equal(t, errors.UnsupportedConstructKind, parseErr(t, `fn main() { println!("{:>5}", a); }`).Kind())
}

func TestMacros(t *testing.T) {
	b := mainBody(t, `
		assert_eq!(a, b, "values differ: {}", a);
		assert!(ok);
		panic!();
		let v = vec![1, 2, 3];
		let z = vec![0; 4];
	`)
	eq := b.Stmts[0].(*ast.ExprStmt).X.(*ast.MacroCall)
	assert.Len(t, eq.Args, 2)
	assert.NotNil(t, eq.Format)
	assert.Nil(t, b.Stmts[1].(*ast.ExprStmt).X.(*ast.MacroCall).Format)
	assert.Nil(t, b.Stmts[2].(*ast.ExprStmt).X.(*ast.MacroCall).Format)
	assert.IsType(t, &ast.ArrayLit{}, b.Stmts[3].(*ast.Let).Value)
	assert.IsType(t, &ast.ArrayRepeat{}, b.Stmts[4].(*ast.Let).Value)
}

func TestUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		src       string
		construct string
	}{
		{"fn main() { let f = |x| x + 1; }", "closure"},
		{"fn main() { let f = move || 1; }", "closure"},
		{"fn id<T>(x: T) -> T { x }", "generic function `id`"},
		{"struct W<T> { v: T }", "generic struct `W`"},
		{"impl P {}", "impl block"},
		{"trait T {}", "trait"},
		{"async fn f() {}", "async function"},
		{"fn main() { let x = 1.5; }", "floating-point literal"},
		{"fn f(x: f64) {}", "floating-point type `f64`"},
		{"fn f(x: Box<i32>) {}", "heap-allocated type `Box`"},
		{"fn f(x: &'a str) {}", "lifetime annotation"},
		{"fn main() { std::thread::spawn(f); }", "thread `std::thread::spawn`"},
		{"fn main() { fn inner() {} }", "item declared inside a function body"},
		{"fn main() { unsafe { } }", "unsafe block"},
		{"fn main() { x.await; }", "`.await`"},
		{"fn main() { dbg!(x); }", "macro `dbg!`"},
	}

	for _, tt := range tests {
		d := parseErr(t, tt.src)
		require.Equal(t, errors.UnsupportedConstructKind, d.Kind(), tt.src)
		assert.Equal(t, tt.construct, d.(errors.UnsupportedConstructError).Construct, tt.src)
	}
}

func TestMacroSuggestion(t *testing.T) {
	d := parseErr(t, `fn main() { printn!("x"); }`)
	assert.Equal(t, "println!", d.(errors.UnsupportedConstructError).Suggestion)
}

func TestSyntaxErrorSpan(t *testing.T) {
	d := parseErr(t, "fn main() {\n  let = 5;\n}")
	assert.Equal(t, errors.SyntaxErrorKind, d.Kind())
	assert.Equal(t, 2, d.Span().From.Line)
	assert.Equal(t, "test.rs", d.Span().From.Filename)
}

func TestRecursionLimit(t *testing.T) {
	src := "fn main() { let x = " + strings.Repeat("(", 400) + "1" + strings.Repeat(")", 400) + "; }"
	d := parseErr(t, src)
	assert.Equal(t, errors.RecursionLimitKind, d.Kind())

	p := NewParser(nil)
	assert.Equal(t, DefaultMaxDepth, p.MaxDepth)
}

package compiler

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/reader"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hello = `fn main() {
    println!("Hello, world!");
}
`

func TestCompileGolden(t *testing.T) {
	g := goldie.New(t)

	s, err := CompileString(hello)
	require.NoError(t, err)
	g.Assert(t, "hello", []byte(s.Text))

	s, err = Compile(Options{TypeInfo: true}, Source{Name: "src/main.rs", Text: hello})
	require.NoError(t, err)
	g.Assert(t, "hello_typeinfo", []byte(s.Text))
}

func TestCompileIsDeterministic(t *testing.T) {
	const src = `
fn add(a: i32, b: i32) -> i32 {
    a + b
}

fn main() {
    let mut total = 0;
    for i in 1..=10 {
        total += add(i, 1);
    }
    println!("{}", total);
}
`
	first, err := CompileString(src)
	require.NoError(t, err)

	var wg sync.WaitGroup
	texts := make([]string, 8)
	errs := make([]error, 8)
	for i := range texts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := CompileString(src)
			errs[i] = err
			if err == nil {
				texts[i] = s.Text
			}
		}(i)
	}
	wg.Wait()
	for i := range texts {
		require.NoError(t, errs[i])
		assert.Equal(t, first.Text, texts[i])
	}
}

func TestTypeInfo(t *testing.T) {
	const src = `
fn half(n: i64) -> Option<i64> {
    if n % 2 == 0 { Some(n / 2) } else { None }
}

fn main() {
    let _ = half(4);
}
`
	s, err := Compile(Options{TypeInfo: true}, Source{Name: "main.rs", Text: src})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"half": "fn(i64) -> Option<i64>",
		"main": "fn()",
	}, s.TypeInfo.Functions)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "half", []byte(s.Text), 0755))
	data, err := reader.ReadTypeInfo(fs, "half")
	require.NoError(t, err)
	info, err := DecodeTypeInfo(data)
	require.NoError(t, err)
	assert.Equal(t, s.TypeInfo, info)

	plain, err := CompileString(src)
	require.NoError(t, err)
	assert.NotContains(t, plain.Text, "tawash:typeinfo")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		src  string
		kind errors.Kind
	}{
		{"syntax", Options{}, "fn main( {", errors.SyntaxErrorKind},
		{"no entry", Options{}, "fn helper() {}", errors.TypeErrorKind},
		{"other entry", Options{Entry: "start"}, "fn main() {}", errors.TypeErrorKind},
		{"unsupported", Options{}, "fn f(x: &mut i32) {}\nfn main() {}", errors.UnsupportedConstructKind},
		{"depth", Options{MaxDepth: 8}, "fn main() { let x = ((((((((((((1)))))))))))); }", errors.RecursionLimitKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.opts, Source{Name: "main.rs", Text: tt.src})
			require.Error(t, err)
			kind, ok := errors.KindOf(err)
			require.True(t, ok, "not a diagnostic: %v", err)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestCompileSeveralSources(t *testing.T) {
	s, err := Compile(Options{},
		Source{Name: "src/util.rs", Text: "fn twice(n: u8) -> u8 { n * 2 }"},
		Source{Name: "src/main.rs", Text: "fn main() { println!(\"{}\", twice(21)); }"},
	)
	require.NoError(t, err)
	assert.Len(t, s.Files, 2)
	assert.NotNil(t, s.Program.Function("twice"))
}

// run executes a compiled script with the system shell.
func run(t *testing.T, script string) (stdout, stderr string, status int) {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh in PATH")
	}
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	cmd := exec.Command(sh, path)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	if exit, ok := err.(*exec.ExitError); ok {
		status = exit.ExitCode()
	} else {
		require.NoError(t, err)
	}
	return out.String(), errOut.String(), status
}

func TestRunScripts(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		stdout string
		status int
	}{
		{"hello", hello, "Hello, world!\n", 0},
		{"function", `
fn add(a: i32, b: i32) -> i32 {
    a + b
}

fn main() {
    let x = add(2, 3);
    println!("{} {}", x, add(x, -10));
}
`, "5 -5\n", 0},
		{"loop", `
fn main() {
    let mut total = 0;
    for i in 1..=10 {
        total += i;
    }
    println!("total = {}", total);
}
`, "total = 55\n", 0},
		{"option", `
fn find(n: i32) -> Option<i32> {
    if n > 0 {
        Some(n * 2)
    } else {
        None
    }
}

fn main() {
    for n in [3, -1] {
        match find(n) {
            Some(v) => println!("got {}", v),
            None => println!("none"),
        }
    }
}
`, "got 6\nnone\n", 0},
		{"quoting", `
fn main() {
    let s = "$(echo pwned); ` + "`id`" + ` 'q' \"d\" \\ *";
    println!("{}", s);
}
`, "$(echo pwned); `id` 'q' \"d\" \\ *\n", 0},
		{"while", `
fn main() {
    let mut n: u64 = 27;
    let mut steps = 0;
    while n != 1 {
        n = if n % 2 == 0 { n / 2 } else { 3 * n + 1 };
        steps += 1;
    }
    println!("{}", steps);
}
`, "111\n", 0},
		{"main error", `
fn main() -> Result<(), String> {
    println!("before");
    Err(String::from("boom"))
}
`, "before\n", 1},
		{"panic", `
fn main() {
    let v = [1, 2, 3];
    let i = 7;
    if i > 5 {
        panic!("too far: {}", i);
    }
    println!("{}", v[0]);
}
`, "", 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CompileString(tt.src)
			require.NoError(t, err)
			stdout, stderr, status := run(t, s.Text)
			assert.Equal(t, tt.stdout, stdout)
			assert.Equal(t, tt.status, status, "stderr: %s", stderr)
			if tt.status == 101 {
				assert.True(t, strings.HasPrefix(stderr, "thread 'main' panicked at src/main.rs:"), stderr)
			}
			if tt.status == 1 {
				assert.Equal(t, "Error: \"boom\"\n", stderr)
			}
		})
	}
}

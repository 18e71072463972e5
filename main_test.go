package main

import (
	"bytes"
	"testing"

	"github.com/pontaoski/tawash/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTool() (*tool, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &tool{fs: afero.NewMemMapFs(), stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func (t *tool) run(args ...string) error {
	return t.app().Run(append([]string{"tawash"}, args...))
}

const helloSource = `fn main() {
    println!("hello");
}
`

func TestInit(t *testing.T) {
	tl, _, stderr := newTool()
	require.NoError(t, tl.run("init", "hello"))

	m, err := config.Load(tl.fs, ".")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Package)

	assert.Error(t, tl.run("init"))
	assert.Contains(t, stderr.String(), "no module name provided")
}

func TestBuild(t *testing.T) {
	tl, stdout, _ := newTool()
	require.NoError(t, tl.run("init", "hello"))
	require.NoError(t, afero.WriteFile(tl.fs, "main.rs", []byte(helloSource), 0644))
	require.NoError(t, afero.WriteFile(tl.fs, "notes.txt", []byte("not a source"), 0644))

	require.NoError(t, tl.run("build"))
	script, err := afero.ReadFile(tl.fs, "hello")
	require.NoError(t, err)
	assert.Contains(t, string(script), "#!/bin/sh\n")
	assert.Contains(t, string(script), "    printf '%s\\n' hello\n")
	fi, err := tl.fs.Stat("hello")
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", fi.Mode().String())

	require.NoError(t, tl.run("build", "--output", "out.sh"))
	exists, err := afero.Exists(tl.fs, "out.sh")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, tl.run("build", "--dump"))
	assert.Equal(t, string(script), stdout.String())
}

func TestBuildDumps(t *testing.T) {
	tl, stdout, _ := newTool()
	require.NoError(t, tl.run("init", "hello"))
	require.NoError(t, afero.WriteFile(tl.fs, "main.rs", []byte(helloSource), 0644))

	require.NoError(t, tl.run("build", "--dump-ir", "--dump-ast", "--dump"))
	assert.Contains(t, stdout.String(), "ast.File{")
	assert.Contains(t, stdout.String(), "ir.Program{")
	assert.Contains(t, stdout.String(), "main \"$@\"\n")
}

func TestCheckReportsDiagnostics(t *testing.T) {
	tl, stdout, stderr := newTool()
	require.NoError(t, tl.run("init", "hello"))
	require.NoError(t, afero.WriteFile(tl.fs, "main.rs", []byte("fn helper() {}\n"), 0644))

	assert.Error(t, tl.run("check"))
	assert.Contains(t, stderr.String(), "TypeError")
	assert.Contains(t, stderr.String(), "`main` function not found in crate")

	require.NoError(t, tl.run("check", "--entry", "helper"))
	assert.Equal(t, "ok\n", stdout.String())
}

func TestBuildWithoutSources(t *testing.T) {
	tl, _, stderr := newTool()
	require.NoError(t, tl.run("init", "hello"))
	assert.Error(t, tl.run("build"))
	assert.Contains(t, stderr.String(), "no .rs files")
}

func TestTypeInfoCommand(t *testing.T) {
	tl, stdout, _ := newTool()
	require.NoError(t, config.Save(tl.fs, ".", config.Module{Package: "hello", TypeInfo: true}))
	require.NoError(t, afero.WriteFile(tl.fs, "main.rs", []byte(helloSource), 0644))
	require.NoError(t, tl.run("build"))

	require.NoError(t, tl.run("typeinfo", "hello"))
	assert.Contains(t, stdout.String(), `"main": "fn()"`)

	assert.Error(t, tl.run("typeinfo"))
}

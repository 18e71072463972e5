// Package compiler runs the whole pipeline: every source is parsed, the
// files are lowered together as one crate, and the emitted script is only
// returned once it has passed validation.
package compiler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/emit"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/lexer"
	"github.com/pontaoski/tawash/lower"
	"github.com/pontaoski/tawash/parser"
	"github.com/pontaoski/tawash/validate"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/tawash", "compiler")

// Options configures a compilation. The zero value compiles `main` with
// the default nesting limit.
type Options struct {
	Entry    string
	MaxDepth int
	// TypeInfo embeds the function signatures in the script header.
	TypeInfo bool
}

type Source struct {
	Name string
	Text string
}

// TypeInfo lists the signature of every function in a compiled program.
type TypeInfo struct {
	Functions map[string]string `json:"functions"`
}

// Script is a compiled program. Files and Program are what the script was
// produced from.
type Script struct {
	Text     string
	TypeInfo TypeInfo
	Files    []*ast.File
	Program  *ir.Program
}

func (o Options) withDefaults() Options {
	if o.Entry == "" {
		o.Entry = "main"
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = parser.DefaultMaxDepth
	}
	return o
}

// Parse parses every source with the nesting limit of opts.
func Parse(opts Options, sources ...Source) ([]*ast.File, error) {
	opts = opts.withDefaults()
	var files []*ast.File
	for _, src := range sources {
		p := parser.NewParser(lexer.NewLexerString(src.Text, src.Name))
		p.MaxDepth = opts.MaxDepth
		f, err := p.Parse()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Compile translates sources, taken together as one crate, into a shell
// script. Calls share no state and may run concurrently.
func Compile(opts Options, sources ...Source) (*Script, error) {
	opts = opts.withDefaults()
	files, err := Parse(opts, sources...)
	if err != nil {
		return nil, err
	}

	ctx := lower.NewContext(lower.Options{Entry: opts.Entry, MaxDepth: opts.MaxDepth})
	prog, err := ctx.Lower(files...)
	if err != nil {
		return nil, err
	}
	info := TypeInfo{Functions: ctx.Signatures()}

	header := ""
	if opts.TypeInfo {
		header, err = info.Encode()
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	text, err := emit.Emit(prog, emit.Options{TypeInfo: header, MaxDepth: opts.MaxDepth})
	if err != nil {
		return nil, err
	}
	if err := validate.Validate(text, prog); err != nil {
		return nil, tracerr.Wrap(err)
	}

	plog.Debugf("compiled %d sources into %d bytes", len(sources), len(text))
	return &Script{Text: text, TypeInfo: info, Files: files, Program: prog}, nil
}

// CompileString compiles a single source named src/main.rs with the
// default options.
func CompileString(src string) (*Script, error) {
	return Compile(Options{}, Source{Name: "src/main.rs", Text: src})
}

// Encode renders t as the single line of JSON embedded in a script.
func (t TypeInfo) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// DecodeTypeInfo parses the JSON produced by Encode.
func DecodeTypeInfo(data string) (TypeInfo, error) {
	var t TypeInfo
	err := json.Unmarshal([]byte(data), &t)
	return t, err
}

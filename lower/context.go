package lower

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
	"github.com/pontaoski/tawash/ir"
	"github.com/pontaoski/tawash/types"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/tawash", "lower")

const DefaultMaxDepth = 256

type Options struct {
	Entry    string
	MaxDepth int
}

type symbol struct {
	name ir.Name
	typ  *Type
	mut  bool
	// deferred bindings (`let x;`) may be assigned without `mut`.
	deferred bool
	// alias holds the value itself for bindings that have no storage,
	// such as constants and `env::args()`.
	alias *value
}

type structDecl struct {
	decl   *ast.StructDecl
	fields []string
	types  []*Type
}

type enumDecl struct {
	decl     *ast.EnumDecl
	variants []string
	payloads []*Type
}

type convention int

const (
	unitFn convention = iota
	valueFn
	statusFn
	entryFn
)

type function struct {
	decl      *ast.Func
	shellName string
	params    []*Type
	ret       *Type
	conv      convention
	recursive bool
}

// Context is the state of one compilation unit. It is created by Lower and
// discarded once the program has been produced.
type Context struct {
	gen      int
	scopes   []map[string]*symbol
	diags    []errors.Diagnostic
	depth    int
	maxDepth int
	// at is the node most recently entered, for diagnostics raised
	// without a node at hand.
	at types.Span
	entry    string

	funcs   map[string]*function
	order   []*function
	structs map[string]*structDecl
	enums   map[string]*enumDecl
	consts  map[string]*ast.Const
	aliases map[string][]string
	globals block

	fn      *function
	loops   []*loopFrame
	usesFd3 bool
}

func NewContext(opts Options) *Context {
	if opts.Entry == "" {
		opts.Entry = "main"
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Context{
		maxDepth: opts.MaxDepth,
		entry:    opts.Entry,
		funcs:    map[string]*function{},
		structs:  map[string]*structDecl{},
		enums:    map[string]*enumDecl{},
		consts:   map[string]*ast.Const{},
		aliases:  map[string][]string{},
	}
}

// Lower converts the given files, taken as one compilation unit, into a
// shell program.
func Lower(opts Options, files ...*ast.File) (*ir.Program, error) {
	return NewContext(opts).Lower(files...)
}

// Diagnostics returns everything reported to the context's sink.
func (c *Context) Diagnostics() []errors.Diagnostic {
	return c.diags
}

func (c *Context) Lower(files ...*ast.File) (prog *ir.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			if e, ok := r.(error); ok {
				err = tracerr.Wrap(e)
				prog = nil
				return
			}
			panic(r)
		}
	}()

	var items []ast.Item
	for _, f := range files {
		items = append(items, f.Items...)
	}
	return c.program(items), nil
}

// fail reports d to the sink and aborts the compilation.
func (c *Context) fail(d errors.Diagnostic) {
	c.diags = append(c.diags, d)
	panic(d)
}

func (c *Context) unsupported(at types.Span, construct string) {
	c.fail(errors.UnsupportedConstructError{Construct: construct, Location: at})
}

func (c *Context) enter(at types.Span) {
	c.depth++
	c.at = at
	if c.depth > c.maxDepth {
		c.fail(errors.RecursionLimitExceeded{Stage: "lower", Limit: c.maxDepth, Location: at})
	}
}

func (c *Context) leave() {
	c.depth--
}

// fresh returns a new generation of base. Generations are never reused
// within a compilation, so two bindings never share storage.
func (c *Context) fresh(base string) ir.Name {
	c.gen++
	return ir.Name{Base: base, Gen: c.gen}
}

func (c *Context) temp() ir.Name {
	return c.fresh("__tw_t")
}

func (c *Context) pushScope() {
	c.scopes = append(c.scopes, map[string]*symbol{})
}

func (c *Context) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Context) top() map[string]*symbol {
	return c.scopes[len(c.scopes)-1]
}

func (c *Context) checkIdent(id ast.Identifier) {
	if strings.Contains(id.Name, "__") || (len(id.Name) > 1 && strings.HasSuffix(id.Name, "_")) {
		c.unsupported(id.Pos, "identifier `"+id.Name+"` (double and trailing underscores are reserved)")
	}
}

// declare binds id in the innermost scope, shadowing any earlier binding.
func (c *Context) declare(id ast.Identifier, sym *symbol) {
	c.top()[id.Name] = sym
}

func (c *Context) lookup(id string) (*symbol, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if sym, ok := c.scopes[i][id]; ok {
			return sym, true
		}
	}
	return nil, false
}

func (c *Context) visibleNames() []string {
	seen := map[string]bool{}
	var names []string
	for i := len(c.scopes) - 1; i >= 0; i-- {
		for name := range c.scopes[i] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for name := range c.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// suggest finds the closest candidate to name, if any is close enough to
// be a likely typo.
func suggest(name string, candidates []string) string {
	best := ""
	bestDist := 3
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, cand := range sorted {
		if cand == name {
			continue
		}
		if d := fuzzy.LevenshteinDistance(name, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func (c *Context) unknown(what string, name string, at types.Span, candidates []string) {
	msg := fmt.Sprintf("cannot find %s `%s` in this scope", what, name)
	if s := suggest(name, candidates); s != "" {
		msg += fmt.Sprintf(" (did you mean `%s`?)", s)
	}
	c.fail(errors.NewTypeError(at, msg))
}

// expandPath replaces a leading `use` alias with the path it names.
func (c *Context) expandPath(path []string) []string {
	if full, ok := c.aliases[path[0]]; ok {
		return append(append([]string(nil), full...), path[1:]...)
	}
	if path[0] == "crate" || path[0] == "self" {
		return path[1:]
	}
	return path
}

type block struct {
	stmts []ir.Stmt
}

func (b *block) add(s ...ir.Stmt) {
	b.stmts = append(b.stmts, s...)
}

// Signatures describes every function of the lowered program by source
// name, in Rust notation.
func (c *Context) Signatures() map[string]string {
	out := map[string]string{}
	for _, fn := range c.order {
		var params []string
		for _, p := range fn.params {
			params = append(params, p.String())
		}
		sig := "fn(" + strings.Join(params, ", ") + ")"
		if fn.ret != nil && fn.ret.Kind != Unit {
			sig += " -> " + fn.ret.String()
		}
		out[fn.decl.Ident.Name] = sig
	}
	return out
}

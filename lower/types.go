package lower

import (
	"fmt"
	"strings"

	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/errors"
)

type Kind int

const (
	Int Kind = iota
	Bool
	Str
	Char
	Unit
	Never
	Option
	Result
	Array
	Struct
	Enum
	Tuple
	Opaque
	Args
	Duration
	Stdin
	Stdout
)

// Type is a resolved type. Name is the integer type (empty for an
// unsuffixed literal), the struct or enum name, or the opaque type name.
// Elem is the payload of Option, the Ok type of Result and the element of
// Array. A nil Elem in an Option or Result is not yet known.
type Type struct {
	Kind  Kind
	Name  string
	Elem  *Type
	Err   *Type
	Len   int
	Elems []*Type
}

var (
	tBool     = &Type{Kind: Bool}
	tStr      = &Type{Kind: Str, Name: "String"}
	tChar     = &Type{Kind: Char}
	tUnit     = &Type{Kind: Unit}
	tNever    = &Type{Kind: Never}
	tArgs     = &Type{Kind: Args}
	tDuration = &Type{Kind: Duration}
	tStdin    = &Type{Kind: Stdin}
	tStdout   = &Type{Kind: Stdout}
	tIoError  = &Type{Kind: Opaque, Name: "std::io::Error"}
	tVarError = &Type{Kind: Opaque, Name: "std::env::VarError"}
	tParseInt = &Type{Kind: Opaque, Name: "std::num::ParseIntError"}
	tUntyped  = &Type{Kind: Int}
)

func tInt(name string) *Type { return &Type{Kind: Int, Name: name} }
func tOption(t *Type) *Type { return &Type{Kind: Option, Elem: t} }
func tResult(t, e *Type) *Type { return &Type{Kind: Result, Elem: t, Err: e} }

var intBits = map[string]int{
	"i8": 8, "i16": 16, "i32": 32, "i64": 64, "i128": 64, "isize": 64,
	"u8": 8, "u16": 16, "u32": 32, "u64": 64, "u128": 64, "usize": 64,
}

func (t *Type) String() string {
	if t == nil {
		return "_"
	}
	switch t.Kind {
	case Int:
		if t.Name == "" {
			return "{integer}"
		}
		return t.Name
	case Bool:
		return "bool"
	case Str:
		return t.Name
	case Char:
		return "char"
	case Unit:
		return "()"
	case Never:
		return "!"
	case Option:
		return fmt.Sprintf("Option<%s>", t.Elem)
	case Result:
		return fmt.Sprintf("Result<%s, %s>", t.Elem, t.Err)
	case Array:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	case Struct, Enum, Opaque:
		return t.Name
	case Tuple:
		var elems []string
		for _, e := range t.Elems {
			elems = append(elems, e.String())
		}
		if len(elems) == 1 {
			return "(" + elems[0] + ",)"
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case Args:
		return "std::env::Args"
	case Duration:
		return "std::time::Duration"
	case Stdin:
		return "std::io::Stdin"
	case Stdout:
		return "std::io::Stdout"
	}
	return "?"
}

// scalar types live in a single shell variable.
func (t *Type) scalar() bool {
	switch t.Kind {
	case Int, Bool, Str, Char, Option, Result, Enum, Opaque, Duration:
		return true
	}
	return false
}

func (t *Type) aggregate() bool {
	return t.Kind == Struct || t.Kind == Tuple || t.Kind == Array
}

// tagged types are stored as `Tag:payload`.
func (t *Type) tagged() bool {
	return t.Kind == Option || t.Kind == Result || t.Kind == Enum
}

// compatible reports whether a value of type got can be used where want
// is expected.
func compatible(want, got *Type) bool {
	if want == nil || got == nil {
		return true
	}
	if got.Kind == Never || want.Kind == Never {
		return true
	}
	if want.Kind != got.Kind {
		return false
	}
	switch want.Kind {
	case Int:
		return want.Name == "" || got.Name == "" || want.Name == got.Name
	case Str:
		return true
	case Option:
		return compatible(want.Elem, got.Elem)
	case Result:
		return compatible(want.Elem, got.Elem) && compatible(want.Err, got.Err)
	case Array:
		return (want.Len < 0 || got.Len < 0 || want.Len == got.Len) && compatible(want.Elem, got.Elem)
	case Struct, Enum, Opaque:
		return want.Name == got.Name
	case Tuple:
		if len(want.Elems) != len(got.Elems) {
			return false
		}
		for i := range want.Elems {
			if !compatible(want.Elems[i], got.Elems[i]) {
				return false
			}
		}
	}
	return true
}

// unify picks the more specific of two compatible types.
func unify(a, b *Type) *Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Kind == Never {
		return b
	}
	if b.Kind == Never {
		return a
	}
	switch a.Kind {
	case Int:
		if a.Name == "" {
			return b
		}
	case Option:
		return tOption(unify(a.Elem, b.Elem))
	case Result:
		return tResult(unify(a.Elem, b.Elem), unify(a.Err, b.Err))
	case Array:
		if a.Len < 0 {
			return &Type{Kind: Array, Elem: unify(a.Elem, b.Elem), Len: b.Len}
		}
		return &Type{Kind: Array, Elem: unify(a.Elem, b.Elem), Len: a.Len}
	case Tuple:
		t := &Type{Kind: Tuple}
		for i := range a.Elems {
			t.Elems = append(t.Elems, unify(a.Elems[i], b.Elems[i]))
		}
		return t
	}
	return a
}

func (c *Context) expect(want, got *Type, e ast.Expression) {
	if !compatible(want, got) {
		c.fail(errors.NewTypeError(e.Location(), "mismatched types: expected `%s`, found `%s`", want, got))
	}
}

var strTypes = map[string]bool{
	"String": true, "str": true, "PathBuf": true, "Path": true, "OsString": true, "OsStr": true,
}

func (c *Context) resolveType(t ast.Type) *Type {
	if t == nil {
		return tUnit
	}
	switch v := t.(type) {
	case *ast.RefType:
		return c.resolveType(v.Elem)
	case *ast.NeverType:
		return tNever
	case *ast.TupleType:
		if len(v.Elems) == 0 {
			return tUnit
		}
		tt := &Type{Kind: Tuple}
		for _, e := range v.Elems {
			tt.Elems = append(tt.Elems, c.resolveType(e))
		}
		return tt
	case *ast.ArrayType:
		n, ok := c.foldInt(v.Len)
		if !ok || n < 0 {
			c.fail(errors.NewTypeError(v.Len.Location(), "array length must be a constant expression"))
		}
		return &Type{Kind: Array, Elem: c.resolveType(v.Elem), Len: int(n)}
	case *ast.SliceType:
		return &Type{Kind: Array, Elem: c.resolveType(v.Elem), Len: -1}
	case *ast.PathType:
		return c.resolvePathType(v)
	}
	panic("unhandled type")
}

func (c *Context) resolvePathType(v *ast.PathType) *Type {
	path := c.expandPath(v.Path)
	name := path[len(path)-1]
	arg := func(i int) *Type {
		if i >= len(v.Args) {
			c.fail(errors.NewTypeError(v.Pos, "missing generics for `%s`", name))
		}
		return c.resolveType(v.Args[i])
	}

	if len(v.Args) == 0 {
		if _, ok := intBits[name]; ok {
			return tInt(name)
		}
		switch {
		case name == "bool":
			return tBool
		case name == "char":
			return tChar
		case strTypes[name]:
			return &Type{Kind: Str, Name: name}
		case name == "Duration":
			return tDuration
		case name == "Error" && len(path) > 1 && path[len(path)-2] == "io":
			return tIoError
		case name == "VarError":
			return tVarError
		case name == "ParseIntError":
			return tParseInt
		case name == "Args":
			return tArgs
		}
		if _, ok := c.structs[name]; ok {
			return &Type{Kind: Struct, Name: name}
		}
		if _, ok := c.enums[name]; ok {
			return &Type{Kind: Enum, Name: name}
		}
	}

	switch name {
	case "Option":
		return tOption(arg(0))
	case "Result":
		if len(path) > 1 && path[len(path)-2] == "io" {
			return tResult(arg(0), tIoError)
		}
		return tResult(arg(0), arg(1))
	case "Vec":
		return &Type{Kind: Array, Elem: arg(0), Len: -1}
	}

	candidates := []string{"bool", "char", "String", "Option", "Result", "Vec"}
	for n := range c.structs {
		candidates = append(candidates, n)
	}
	for n := range c.enums {
		candidates = append(candidates, n)
	}
	c.fail(errors.UnsupportedConstructError{
		Construct:  "type `" + strings.Join(v.Path, "::") + "`",
		Suggestion: suggest(name, candidates),
		Location:   v.Pos,
	})
	return nil
}

package ast

import (
	"fmt"
	"strings"
)

func TypeString(t Type) string {
	if t == nil {
		return "()"
	}

	switch v := t.(type) {
	case *PathType:
		s := strings.Join(v.Path, "::")
		if len(v.Args) > 0 {
			var args []string
			for _, a := range v.Args {
				args = append(args, TypeString(a))
			}
			s += "<" + strings.Join(args, ", ") + ">"
		}
		return s
	case *RefType:
		if v.Mut {
			return "&mut " + TypeString(v.Elem)
		}
		return "&" + TypeString(v.Elem)
	case *ArrayType:
		if n, ok := v.Len.(*IntLit); ok {
			return fmt.Sprintf("[%s; %d]", TypeString(v.Elem), n.Value)
		}
		return fmt.Sprintf("[%s; _]", TypeString(v.Elem))
	case *SliceType:
		return "[" + TypeString(v.Elem) + "]"
	case *TupleType:
		var elems []string
		for _, e := range v.Elems {
			elems = append(elems, TypeString(e))
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *NeverType:
		return "!"
	}

	panic("unhandled")
}

// Signature renders the function header, e.g. `fn add(a: i32, b: i32) -> i32`.
func (f *Func) Signature() string {
	var args []string
	for _, arg := range f.Params {
		args = append(args, fmt.Sprintf("%s: %s", arg.Ident.Name, TypeString(arg.Kind)))
	}
	s := fmt.Sprintf("fn %s(%s)", f.Ident.Name, strings.Join(args, ", "))
	if f.Returns != nil {
		s += " -> " + TypeString(f.Returns)
	}
	return s
}

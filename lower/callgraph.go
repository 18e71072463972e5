package lower

import (
	"github.com/pontaoski/tawash/ast"
)

// callGraph maps every function to the functions its body names in call
// position.
func callGraph(funcs []*ast.Func) map[string]map[string]bool {
	graph := map[string]map[string]bool{}
	for _, f := range funcs {
		calls := map[string]bool{}
		walkExpr(f.Body, func(e ast.Expression) {
			if call, ok := e.(*ast.Call); ok {
				if p, ok := call.Func.(*ast.Path); ok && len(p.Segments) == 1 {
					calls[p.Segments[0]] = true
				}
			}
		})
		graph[f.Ident.Name] = calls
	}
	return graph
}

// reaches reports whether to is reachable from from through at least one
// call.
func reaches(graph map[string]map[string]bool, from, to string) bool {
	seen := map[string]bool{}
	var visit func(n string) bool
	visit = func(n string) bool {
		for callee := range graph[n] {
			if callee == to {
				return true
			}
			if !seen[callee] {
				seen[callee] = true
				if visit(callee) {
					return true
				}
			}
		}
		return false
	}
	return visit(from)
}

// walkExpr calls fn on e and every expression nested inside it.
func walkExpr(e ast.Expression, fn func(ast.Expression)) {
	if e == nil {
		return
	}
	fn(e)
	switch v := e.(type) {
	case *ast.Unary:
		walkExpr(v.X, fn)
	case *ast.Binary:
		walkExpr(v.X, fn)
		walkExpr(v.Y, fn)
	case *ast.Assign:
		walkExpr(v.To, fn)
		walkExpr(v.Value, fn)
	case *ast.Cast:
		walkExpr(v.X, fn)
	case *ast.Try:
		walkExpr(v.X, fn)
	case *ast.Call:
		walkExpr(v.Func, fn)
		walkAll(v.Args, fn)
	case *ast.MethodCall:
		walkExpr(v.Recv, fn)
		walkAll(v.Args, fn)
	case *ast.Field:
		walkExpr(v.Of, fn)
	case *ast.Index:
		walkExpr(v.Of, fn)
		walkExpr(v.Index, fn)
	case *ast.Range:
		walkExpr(v.From, fn)
		walkExpr(v.To, fn)
	case *ast.Tuple:
		walkAll(v.Elems, fn)
	case *ast.ArrayLit:
		walkAll(v.Elems, fn)
	case *ast.ArrayRepeat:
		walkExpr(v.Value, fn)
		walkExpr(v.Count, fn)
	case *ast.StructLit:
		for _, f := range v.Fields {
			walkExpr(f.Value, fn)
		}
	case *ast.Block:
		for _, s := range v.Stmts {
			switch st := s.(type) {
			case *ast.Let:
				walkExpr(st.Value, fn)
			case *ast.ExprStmt:
				walkExpr(st.X, fn)
			}
		}
		walkExpr(v.Tail, fn)
	case *ast.If:
		walkExpr(v.Cond, fn)
		walkExpr(v.Then, fn)
		walkExpr(v.Else, fn)
	case *ast.LetCond:
		walkExpr(v.Value, fn)
	case *ast.While:
		walkExpr(v.Cond, fn)
		walkExpr(v.Body, fn)
	case *ast.Loop:
		walkExpr(v.Body, fn)
	case *ast.For:
		walkExpr(v.Iter, fn)
		walkExpr(v.Body, fn)
	case *ast.Break:
		walkExpr(v.Value, fn)
	case *ast.Return:
		walkExpr(v.Value, fn)
	case *ast.Match:
		walkExpr(v.Scrutinee, fn)
		for _, arm := range v.Arms {
			walkExpr(arm.Guard, fn)
			walkExpr(arm.Body, fn)
		}
	case *ast.MacroCall:
		walkAll(v.Args, fn)
		if v.Format != nil {
			walkAll(v.Format.Args, fn)
		}
	}
}

func walkAll(es []ast.Expression, fn func(ast.Expression)) {
	for _, e := range es {
		walkExpr(e, fn)
	}
}

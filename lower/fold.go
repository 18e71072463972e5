package lower

import (
	"github.com/pontaoski/tawash/ast"
	"github.com/pontaoski/tawash/types"
)

// foldInt evaluates a constant integer expression: literals, constants
// and arithmetic over them.
func (c *Context) foldInt(e ast.Expression) (int64, bool) {
	return c.fold(e, 0)
}

func (c *Context) fold(e ast.Expression, depth int) (int64, bool) {
	if depth > c.maxDepth {
		return 0, false
	}
	switch v := e.(type) {
	case *ast.IntLit:
		return int64(v.Value), v.Value <= 1<<63-1
	case *ast.CharLit:
		if v.Byte {
			return int64(v.Value), true
		}
	case *ast.Path:
		if len(v.Segments) != 1 {
			return 0, false
		}
		if sym, ok := c.lookup(v.Segments[0]); ok {
			if sym.alias != nil && sym.alias.lit != nil {
				return *sym.alias.lit, true
			}
			return 0, false
		}
		if k, ok := c.consts[v.Segments[0]]; ok {
			return c.fold(k.Value, depth+1)
		}
	case *ast.Cast:
		n, ok := c.fold(v.X, depth+1)
		if !ok {
			return 0, false
		}
		if t, ok := v.To.(*ast.PathType); ok && len(t.Path) == 1 {
			if _, isInt := intBits[t.Path[0]]; isInt {
				return wrapInt(t.Path[0], n), true
			}
		}
	case *ast.Unary:
		n, ok := c.fold(v.X, depth+1)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case types.MINUS:
			return -n, true
		case types.BANG:
			return ^n, true
		}
	case *ast.Binary:
		x, ok := c.fold(v.X, depth+1)
		if !ok {
			return 0, false
		}
		y, ok := c.fold(v.Y, depth+1)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case types.PLUS:
			return x + y, true
		case types.MINUS:
			return x - y, true
		case types.STAR:
			return x * y, true
		case types.SLASH:
			if y == 0 {
				return 0, false
			}
			return x / y, true
		case types.PERCENT:
			if y == 0 {
				return 0, false
			}
			return x % y, true
		case types.AMP:
			return x & y, true
		case types.PIPE:
			return x | y, true
		case types.CARET:
			return x ^ y, true
		case types.SHL:
			return x << uint64(y), y >= 0 && y < 64
		case types.SHR:
			return x >> uint64(y), y >= 0 && y < 64
		}
	case *ast.Block:
		if len(v.Stmts) == 0 && v.Tail != nil {
			return c.fold(v.Tail, depth+1)
		}
	}
	return 0, false
}

// wrapInt truncates n to the width of the named integer type.
func wrapInt(name string, n int64) int64 {
	bits := intBits[name]
	if bits >= 64 {
		return n
	}
	mask := int64(1)<<uint(bits) - 1
	n &= mask
	if name[0] == 'i' && n >= int64(1)<<uint(bits-1) {
		n -= int64(1) << uint(bits)
	}
	return n
}

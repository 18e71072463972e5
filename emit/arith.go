package emit

import (
	"math"

	"github.com/pontaoski/tawash/ir"
)

// precedence of the binary operators inside $(( )), as in C.
var precedence = map[string]int{
	"|":  1,
	"^":  2,
	"&":  3,
	"<<": 4, ">>": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// arith renders x. min is the lowest precedence x may have without
// parentheses in its position.
func (e *emitter) arith(x ir.Arith, min int) string {
	e.push()
	defer e.pop()

	switch v := x.(type) {
	case *ir.Num:
		s := itoa64(v.Value)
		if v.Value == math.MinInt64 {
			// the magnitude alone does not fit in a shell integer
			s = "(-9223372036854775807 - 1)"
		} else if v.Value < 0 && min > 0 {
			s = "(" + s + ")"
		}
		return s
	case *ir.Ref:
		return v.Name.String()
	case *ir.UnaryArith:
		s := v.Op + e.atom(v.X)
		if min > 0 {
			return "(" + s + ")"
		}
		return s
	case *ir.BinaryArith:
		p, ok := precedence[v.Op]
		if !ok {
			panic(internalError("unknown arithmetic operator %q", v.Op))
		}
		// left-associative: the right operand binds tighter
		s := e.arith(v.X, p) + " " + v.Op + " " + e.arith(v.Y, p+1)
		if p < min {
			return "(" + s + ")"
		}
		return s
	}
	panic(internalError("unexpected arithmetic node %T", x))
}

// atom renders the operand of a unary operator, which is parenthesized
// unless it is a name or a non-negative number.
func (e *emitter) atom(x ir.Arith) string {
	switch v := x.(type) {
	case *ir.Ref:
		return v.Name.String()
	case *ir.Num:
		if v.Value >= 0 {
			return itoa64(v.Value)
		}
	}
	return "(" + e.arith(x, 0) + ")"
}

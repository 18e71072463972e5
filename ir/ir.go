// Package ir is the shell-oriented intermediate representation produced by
// lowering. Every node maps onto one POSIX sh construct; the tree mirrors
// the source structure and iteration is only ever expressed by loop nodes.
package ir

import (
	"strconv"
)

// Name is a shell variable. Gen separates source bindings that share a
// surface name; Field selects one slot of an aggregate.
type Name struct {
	Base  string
	Gen   int
	Field string
}

func (n Name) String() string {
	s := n.Base
	if n.Gen > 0 {
		s += "_" + strconv.Itoa(n.Gen)
	}
	if n.Field != "" {
		s += "__" + n.Field
	}
	return s
}

// Sub names a field of the aggregate stored under n.
func (n Name) Sub(field string) Name {
	if n.Field != "" {
		field = n.Field + "__" + field
	}
	return Name{Base: n.Base, Gen: n.Gen, Field: field}
}

// Word is one shell word built from adjacent parts. An empty Word is the
// empty string.
type Word struct {
	Parts []Part
}

type Part interface {
	is_Part()
}

// Lit is literal text, always emitted so that it reads back verbatim.
type Lit struct {
	Text string
}

func (*Lit) is_Part() {}

// Glob is raw pattern text (`*`, `?`, bracket expressions). Only valid in
// case patterns and in the operand of a pattern-removal expansion.
type Glob struct {
	Pattern string
}

func (*Glob) is_Part() {}

// Var is `${Name}` or a parameter expansion `${Name<Op><Arg>}`. Op "len"
// is the length form `${#Name}`.
type Var struct {
	Name Name
	Op   string
	Arg  *Word
}

func (*Var) is_Part() {}

// Param is a positional or special parameter: Index 0..n, or Special "@"
// or "#".
type Param struct {
	Index   int
	Special string
}

func (*Param) is_Part() {}

type ArithPart struct {
	X Arith
}

func (*ArithPart) is_Part() {}

// CmdSubst runs its commands joined by `&&` and substitutes the output.
type CmdSubst struct {
	List []*Command
}

func (*CmdSubst) is_Part() {}

// Arith is an integer expression evaluated by `$(( ))`.
type Arith interface {
	is_Arith()
}

type Num struct {
	Value int64
}

func (*Num) is_Arith() {}

type Ref struct {
	Name Name
}

func (*Ref) is_Arith() {}

// UnaryArith is `-x` or `~x`.
type UnaryArith struct {
	Op string
	X  Arith
}

func (*UnaryArith) is_Arith() {}

type BinaryArith struct {
	Op string
	X  Arith
	Y  Arith
}

func (*BinaryArith) is_Arith() {}

// Cond is something whose exit status is tested.
type Cond interface {
	is_Cond()
}

// Test is `[ Args... ]`.
type Test struct {
	Args []Word
}

func (*Test) is_Cond() {}

type CmdCond struct {
	Cmd *Command
}

func (*CmdCond) is_Cond() {}

// Capture assigns the output of Cmd to Name and succeeds when Cmd does.
type Capture struct {
	Name Name
	Cmd  *CmdSubst
}

func (*Capture) is_Cond() {}

type Not struct {
	X Cond
}

func (*Not) is_Cond() {}

type And struct {
	X Cond
	Y Cond
}

func (*And) is_Cond() {}

type Or struct {
	X Cond
	Y Cond
}

func (*Or) is_Cond() {}

// Seq runs Pre and then tests X. It keeps statements that a condition
// depends on inside the condition so they are re-run on every evaluation.
type Seq struct {
	Pre []Stmt
	X   Cond
}

func (*Seq) is_Cond() {}

type True struct{}

func (*True) is_Cond() {}

type False struct{}

func (*False) is_Cond() {}

// CaseCond succeeds when Subject matches one of Patterns.
type CaseCond struct {
	Subject  Word
	Patterns []Word
}

func (*CaseCond) is_Cond() {}

type Stmt interface {
	is_Stmt()
}

// Assign is `Name=Value`. Check appends `|| exit` so that a failing
// command substitution ends the script with its status.
type Assign struct {
	Name  Name
	Value Word
	Check bool
}

func (*Assign) is_Stmt() {}

type Exec struct {
	Cmd   *Command
	Check bool
}

func (*Exec) is_Stmt() {}

// If renders an Else made of a single *If as `elif`.
type If struct {
	Cond Cond
	Then []Stmt
	Else []Stmt
}

func (*If) is_Stmt() {}

type While struct {
	Cond Cond
	Body []Stmt
}

func (*While) is_Stmt() {}

type For struct {
	Var   Name
	Items []Word
	Body  []Stmt
}

func (*For) is_Stmt() {}

type CaseArm struct {
	Patterns []Word
	Body     []Stmt
}

type Case struct {
	Subject Word
	Arms    []CaseArm
}

func (*Case) is_Stmt() {}

type Break struct{}

func (*Break) is_Stmt() {}

type Continue struct{}

func (*Continue) is_Stmt() {}

type Return struct {
	Status int
}

func (*Return) is_Stmt() {}

type Exit struct {
	Status Word
}

func (*Exit) is_Stmt() {}

// Redir is `[Fd]Op Target`; Fd 0 means the operator's default.
type Redir struct {
	Fd     int
	Op     string
	Target Word
}

type EnvAssign struct {
	Name  string
	Value Word
}

type Command struct {
	Env    []EnvAssign
	Name   string
	Args   []Word
	Redirs []Redir
}

type Function struct {
	Name     string
	Body     []Stmt
	Subshell bool
}

// Program is a whole script. SavedStdout duplicates stdout onto
// descriptor 3 before anything runs.
type Program struct {
	SavedStdout bool
	Funcs       []*Function
	Globals     []Stmt
	Entry       string
}

// Function looks up a function by name.
func (p *Program) Function(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

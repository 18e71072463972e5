package ast

import "github.com/pontaoski/tawash/types"

type Identifier struct {
	Name string
	Pos  types.Span
}

type File struct {
	Filename string
	Items    []Item
}

type Item interface {
	is_Item()
	Location() types.Span
}

type Param struct {
	Ident Identifier
	Mut   bool
	Kind  Type
}

type Func struct {
	Ident   Identifier
	Params  []Param
	Returns Type
	Body    *Block
	Pos     types.Span
}

func (v *Func) is_Item() {}
func (v *Func) Location() types.Span { return v.Pos }

type Const struct {
	Ident Identifier
	Kind  Type
	Value Expression
	Pos   types.Span
}

func (v *Const) is_Item() {}
func (v *Const) Location() types.Span { return v.Pos }

type StructField struct {
	Ident Identifier
	Kind  Type
}

type StructDecl struct {
	Ident  Identifier
	Fields []StructField
	Pos    types.Span
}

func (v *StructDecl) is_Item() {}
func (v *StructDecl) Location() types.Span { return v.Pos }

type Variant struct {
	Ident   Identifier
	Payload Type
}

type EnumDecl struct {
	Ident    Identifier
	Variants []Variant
	Pos      types.Span
}

func (v *EnumDecl) is_Item() {}
func (v *EnumDecl) Location() types.Span { return v.Pos }

// Use is one leaf of a use tree. Glob imports end in `*`.
type Use struct {
	Path  []string
	Alias string
	Glob  bool
	Pos   types.Span
}

func (v *Use) is_Item() {}
func (v *Use) Location() types.Span { return v.Pos }

type Type interface {
	is_Type()
	Location() types.Span
}

// PathType is a named type with optional generic arguments, such as
// `i32`, `String` or `Option<Vec<u8>>`.
type PathType struct {
	Path []string
	Args []Type
	Pos  types.Span
}

func (v *PathType) is_Type() {}
func (v *PathType) Location() types.Span { return v.Pos }

type RefType struct {
	Mut  bool
	Elem Type
	Pos  types.Span
}

func (v *RefType) is_Type() {}
func (v *RefType) Location() types.Span { return v.Pos }

type ArrayType struct {
	Elem Type
	Len  Expression
	Pos  types.Span
}

func (v *ArrayType) is_Type() {}
func (v *ArrayType) Location() types.Span { return v.Pos }

type SliceType struct {
	Elem Type
	Pos  types.Span
}

func (v *SliceType) is_Type() {}
func (v *SliceType) Location() types.Span { return v.Pos }

// TupleType with no elements is the unit type.
type TupleType struct {
	Elems []Type
	Pos   types.Span
}

func (v *TupleType) is_Type() {}
func (v *TupleType) Location() types.Span { return v.Pos }

type NeverType struct {
	Pos types.Span
}

func (v *NeverType) is_Type() {}
func (v *NeverType) Location() types.Span { return v.Pos }

type Stmt interface {
	is_Stmt()
	Location() types.Span
}

type Let struct {
	Pat   Pattern
	Kind  Type
	Value Expression
	Pos   types.Span
}

func (v *Let) is_Stmt() {}
func (v *Let) Location() types.Span { return v.Pos }

type ExprStmt struct {
	X    Expression
	Semi bool
	Pos  types.Span
}

func (v *ExprStmt) is_Stmt() {}
func (v *ExprStmt) Location() types.Span { return v.Pos }

type Expression interface {
	is_Expression()
	Location() types.Span
}

type IntLit struct {
	Value uint64
	Raw   string
	Pos   types.Span
}

func (v *IntLit) is_Expression() {}
func (v *IntLit) Location() types.Span { return v.Pos }

type BoolLit struct {
	Value bool
	Pos   types.Span
}

func (v *BoolLit) is_Expression() {}
func (v *BoolLit) Location() types.Span { return v.Pos }

type CharLit struct {
	Value rune
	Byte  bool
	Pos   types.Span
}

func (v *CharLit) is_Expression() {}
func (v *CharLit) Location() types.Span { return v.Pos }

type StrLit struct {
	Value string
	Byte  bool
	Pos   types.Span
}

func (v *StrLit) is_Expression() {}
func (v *StrLit) Location() types.Span { return v.Pos }

// Path is a variable, constant, unit variant or function reference.
type Path struct {
	Segments []string
	Pos      types.Span
}

func (v *Path) is_Expression() {}
func (v *Path) Location() types.Span { return v.Pos }

func (v *Path) String() string {
	s := ""
	for i, seg := range v.Segments {
		if i > 0 {
			s += "::"
		}
		s += seg
	}
	return s
}

// Unary covers `-x`, `!x`, `&x`, `&mut x` and `*x`.
type Unary struct {
	Op  types.TokenKind
	Mut bool
	X   Expression
	Pos types.Span
}

func (v *Unary) is_Expression() {}
func (v *Unary) Location() types.Span { return v.Pos }

type Binary struct {
	Op  types.TokenKind
	X   Expression
	Y   Expression
	Pos types.Span
}

func (v *Binary) is_Expression() {}
func (v *Binary) Location() types.Span { return v.Pos }

// Assign is plain or compound assignment; Op is EQUALS or one of the
// compound operator kinds.
type Assign struct {
	Op    types.TokenKind
	To    Expression
	Value Expression
	Pos   types.Span
}

func (v *Assign) is_Expression() {}
func (v *Assign) Location() types.Span { return v.Pos }

type Cast struct {
	X   Expression
	To  Type
	Pos types.Span
}

func (v *Cast) is_Expression() {}
func (v *Cast) Location() types.Span { return v.Pos }

type Try struct {
	X   Expression
	Pos types.Span
}

func (v *Try) is_Expression() {}
func (v *Try) Location() types.Span { return v.Pos }

type Call struct {
	Func Expression
	Args []Expression
	Pos  types.Span
}

func (v *Call) is_Expression() {}
func (v *Call) Location() types.Span { return v.Pos }

type MethodCall struct {
	Recv      Expression
	Method    Identifier
	Turbofish []Type
	Args      []Expression
	Pos       types.Span
}

func (v *MethodCall) is_Expression() {}
func (v *MethodCall) Location() types.Span { return v.Pos }

// Field is `x.name` or a tuple index `x.0`.
type Field struct {
	Of    Expression
	Ident Identifier
	Pos   types.Span
}

func (v *Field) is_Expression() {}
func (v *Field) Location() types.Span { return v.Pos }

type Index struct {
	Of    Expression
	Index Expression
	Pos   types.Span
}

func (v *Index) is_Expression() {}
func (v *Index) Location() types.Span { return v.Pos }

type Range struct {
	From      Expression
	To        Expression
	Inclusive bool
	Pos       types.Span
}

func (v *Range) is_Expression() {}
func (v *Range) Location() types.Span { return v.Pos }

type Tuple struct {
	Elems []Expression
	Pos   types.Span
}

func (v *Tuple) is_Expression() {}
func (v *Tuple) Location() types.Span { return v.Pos }

type ArrayLit struct {
	Elems []Expression
	Pos   types.Span
}

func (v *ArrayLit) is_Expression() {}
func (v *ArrayLit) Location() types.Span { return v.Pos }

// ArrayRepeat is `[value; count]`.
type ArrayRepeat struct {
	Value Expression
	Count Expression
	Pos   types.Span
}

func (v *ArrayRepeat) is_Expression() {}
func (v *ArrayRepeat) Location() types.Span { return v.Pos }

type FieldInit struct {
	Ident Identifier
	Value Expression
}

type StructLit struct {
	Path   []string
	Fields []FieldInit
	Pos    types.Span
}

func (v *StructLit) is_Expression() {}
func (v *StructLit) Location() types.Span { return v.Pos }

type Block struct {
	Stmts []Stmt
	Tail  Expression
	Pos   types.Span
}

func (v *Block) is_Expression() {}
func (v *Block) Location() types.Span { return v.Pos }

// If has an Else that is nil, a *Block or another *If.
type If struct {
	Cond Expression
	Then *Block
	Else Expression
	Pos  types.Span
}

func (v *If) is_Expression() {}
func (v *If) Location() types.Span { return v.Pos }

// LetCond is the `let PAT = EXPR` condition of `if let` and `while let`.
type LetCond struct {
	Pat   Pattern
	Value Expression
	Pos   types.Span
}

func (v *LetCond) is_Expression() {}
func (v *LetCond) Location() types.Span { return v.Pos }

type While struct {
	Label string
	Cond  Expression
	Body  *Block
	Pos   types.Span
}

func (v *While) is_Expression() {}
func (v *While) Location() types.Span { return v.Pos }

type Loop struct {
	Label string
	Body  *Block
	Pos   types.Span
}

func (v *Loop) is_Expression() {}
func (v *Loop) Location() types.Span { return v.Pos }

type For struct {
	Label string
	Pat   Pattern
	Iter  Expression
	Body  *Block
	Pos   types.Span
}

func (v *For) is_Expression() {}
func (v *For) Location() types.Span { return v.Pos }

type Break struct {
	Label string
	Value Expression
	Pos   types.Span
}

func (v *Break) is_Expression() {}
func (v *Break) Location() types.Span { return v.Pos }

type Continue struct {
	Label string
	Pos   types.Span
}

func (v *Continue) is_Expression() {}
func (v *Continue) Location() types.Span { return v.Pos }

type Return struct {
	Value Expression
	Pos   types.Span
}

func (v *Return) is_Expression() {}
func (v *Return) Location() types.Span { return v.Pos }

type Arm struct {
	Pat   Pattern
	Guard Expression
	Body  Expression
	Pos   types.Span
}

type Match struct {
	Scrutinee Expression
	Arms      []Arm
	Pos       types.Span
}

func (v *Match) is_Expression() {}
func (v *Match) Location() types.Span { return v.Pos }

// FormatPiece is literal text or a hole referring to Args[Arg].
type FormatPiece struct {
	Text  string
	Hole  bool
	Arg   int
	Debug bool
}

type Format struct {
	Pieces []FormatPiece
	Args   []Expression
}

// MacroCall is one of the built-in macros. Format is set for the
// printing and formatting family and for the message of panics and
// assertions; Args holds the remaining operands. Text is the source of
// the first operand, quoted by assertion failures.
type MacroCall struct {
	Name   string
	Args   []Expression
	Format *Format
	Text   string
	Pos    types.Span
}

func (v *MacroCall) is_Expression() {}
func (v *MacroCall) Location() types.Span { return v.Pos }

type Pattern interface {
	is_Pattern()
	Location() types.Span
}

type WildcardPat struct {
	Pos types.Span
}

func (v *WildcardPat) is_Pattern() {}
func (v *WildcardPat) Location() types.Span { return v.Pos }

// BindPat binds a name, or names a unit variant such as `None`; lowering
// decides which. Sub is the pattern after `@`.
type BindPat struct {
	Ident Identifier
	Mut   bool
	Sub   Pattern
}

func (v *BindPat) is_Pattern() {}
func (v *BindPat) Location() types.Span { return v.Ident.Pos }

// LitPat holds an *IntLit, *BoolLit, *CharLit or *StrLit. Neg marks a
// leading minus.
type LitPat struct {
	Value Expression
	Neg   bool
	Pos   types.Span
}

func (v *LitPat) is_Pattern() {}
func (v *LitPat) Location() types.Span { return v.Pos }

type RangePat struct {
	From      *LitPat
	To        *LitPat
	Inclusive bool
	Pos       types.Span
}

func (v *RangePat) is_Pattern() {}
func (v *RangePat) Location() types.Span { return v.Pos }

type OrPat struct {
	Alts []Pattern
	Pos  types.Span
}

func (v *OrPat) is_Pattern() {}
func (v *OrPat) Location() types.Span { return v.Pos }

type TuplePat struct {
	Elems []Pattern
	Pos   types.Span
}

func (v *TuplePat) is_Pattern() {}
func (v *TuplePat) Location() types.Span { return v.Pos }

type FieldPat struct {
	Ident Identifier
	Pat   Pattern
}

type StructPat struct {
	Path   []string
	Fields []FieldPat
	Rest   bool
	Pos    types.Span
}

func (v *StructPat) is_Pattern() {}
func (v *StructPat) Location() types.Span { return v.Pos }

// VariantPat is `Path(args)` or a multi-segment unit path like
// `Color::Red`.
type VariantPat struct {
	Path []string
	Args []Pattern
	Pos  types.Span
}

func (v *VariantPat) is_Pattern() {}
func (v *VariantPat) Location() types.Span { return v.Pos }

// Package ast defines the immutable tree the OOP lowering driver consumes.
// Per the core's scope, the BASIC lexer, parser, and surface AST are external
// collaborators: this package declares only the node shapes semantic analysis
// is expected to hand the driver. There is no lexer or parser here.
package ast

import "github.com/splanck/viper-sub011/internal/source"

// Node is any AST node carrying a source span.
type Node interface {
	Span() source.Span
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// base embeds a span in every concrete node so Span() is free.
type base struct {
	span source.Span
}

// Span returns the node's source span.
func (b base) Span() source.Span { return b.span }

// Program is a whole compilation unit's worth of class and interface
// declarations, plus the main statement list used by the module
// initialiser's entry contract.
type Program struct {
	base
	Classes    []*ClassDecl
	Interfaces []*InterfaceDecl
	Main       []Stmt
}

// NewProgram constructs a program node.
func NewProgram(span source.Span) *Program { return &Program{base: base{span}} }

// FieldDecl describes one instance or static field of a class.
type FieldDecl struct {
	base
	Name        string
	Type        Kind
	ObjectClass string // qualified element/object class name; empty for primitives
	IsArray     bool
	Extents     []int64 // inclusive upper bounds, e.g. DIM a(7) -> Extents=[7]
}

// ParamDecl describes one method, constructor, or accessor parameter.
type ParamDecl struct {
	base
	Name        string
	Type        Kind
	ObjectClass string
	IsArray     bool
	// Owning marks a parameter that semantic analysis has flagged as taking
	// ownership of its argument. Ordinary parameters are borrowed.
	Owning bool
}

// MethodDecl describes a method, constructor, destructor, static
// constructor, or synthesised property accessor.
type MethodDecl struct {
	base
	Name               string
	Params             []*ParamDecl
	ReturnType         Kind
	ReturnObjectClass  string
	IsStatic           bool
	IsVirtual          bool
	IsAbstract         bool
	IsFinal            bool
	Slot               int // >=0 for virtual methods, -1 otherwise
	IsPropertyAccessor bool
	IsGetter           bool
	Body               *BlockStmt // nil for abstract methods
}

// PropertyDecl describes a PROPERTY declaration to be synthesised into a
// get_<Name>/set_<Name> method pair.
type PropertyDecl struct {
	base
	Name        string
	Type        Kind
	ObjectClass string
	Getter      *BlockStmt
	SetterParam string
	Setter      *BlockStmt
}

// ClassDecl is a fully-resolved CLASS declaration.
type ClassDecl struct {
	base
	Name            string
	Qualified       string
	BaseQualified   string
	Abstract        bool
	Final           bool
	Fields          []*FieldDecl
	StaticFields    []*FieldDecl
	Methods         []*MethodDecl
	Properties      []*PropertyDecl
	Ctor            *MethodDecl // nil when absent
	HasSynthCtor    bool
	Dtor            *MethodDecl // user-authored body; always nil is valid
	HasDestructor   bool
	StaticCtor      *MethodDecl
	HasStaticCtor   bool
	Implements      []string // qualified interface names
}

// InterfaceMethodSig is one slot of an interface's method table.
type InterfaceMethodSig struct {
	Name       string
	Params     []*ParamDecl
	ReturnType Kind
}

// InterfaceDecl is a fully-resolved INTERFACE declaration.
type InterfaceDecl struct {
	base
	Name  string
	Slots []InterfaceMethodSig
}

// BlockStmt is a sequence of statements.
type BlockStmt struct {
	base
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// AssignStmt assigns Value into the storage denoted by Target.
type AssignStmt struct {
	base
	Target Expr
	Value  Expr
}

func (*AssignStmt) stmtNode() {}

// ReturnStmt returns Value (nil for a void return).
type ReturnStmt struct {
	base
	Value Expr
}

func (*ReturnStmt) stmtNode() {}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	base
	Cond Expr
	Then *BlockStmt
	Else *BlockStmt
}

func (*IfStmt) stmtNode() {}

// DeleteStmt lowers to the reference-counted conditional destroy sequence.
type DeleteStmt struct {
	base
	Target Expr
}

func (*DeleteStmt) stmtNode() {}

// DimStmt declares a local array with fixed extents.
type DimStmt struct {
	base
	Name        string
	Type        Kind
	ObjectClass string
	Extents     []int64
}

func (*DimStmt) stmtNode() {}

// OnErrorGotoStmt establishes (or clears, when Line == 0) an error handler
// for the remainder of the enclosing procedure.
type OnErrorGotoStmt struct {
	base
	Line int
}

func (*OnErrorGotoStmt) stmtNode() {}

// Ident is a bare identifier reference (variable, field via field scope, or
// a module-level symbol).
type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

// MeExpr is the implicit receiver of an instance member.
type MeExpr struct{ base }

func (*MeExpr) exprNode() {}

// IntLit is an integer literal.
type IntLit struct {
	base
	Value int64
}

func (*IntLit) exprNode() {}

// FloatLit is a floating point literal.
type FloatLit struct {
	base
	Value float64
}

func (*FloatLit) exprNode() {}

// BoolLit is a boolean literal.
type BoolLit struct {
	base
	Value bool
}

func (*BoolLit) exprNode() {}

// StringLit is a string literal.
type StringLit struct {
	base
	Value string
}

func (*StringLit) exprNode() {}

// NilLit is the null/nothing literal.
type NilLit struct{ base }

func (*NilLit) exprNode() {}

// NewExpr constructs a new instance of ClassName.
type NewExpr struct {
	base
	ClassName string
	Args      []Expr
}

func (*NewExpr) exprNode() {}

// FieldExpr accesses Field on Base.
type FieldExpr struct {
	base
	Base  Expr
	Field string
}

func (*FieldExpr) exprNode() {}

// CallExpr calls Method on Base with Args. Base is nil only for calls that
// semantic analysis has already resolved as bare identifiers (never emitted
// by this core without a resolvable receiver type).
type CallExpr struct {
	base
	Base   Expr
	Method string
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// IndexExpr indexes Base at Index (array element access).
type IndexExpr struct {
	base
	Base  Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

// BinaryExpr is a two-operand arithmetic/relational/logical expression.
type BinaryExpr struct {
	base
	Op       string
	LHS, RHS Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a single-operand expression.
type UnaryExpr struct {
	base
	Op string
	X  Expr
}

func (*UnaryExpr) exprNode() {}

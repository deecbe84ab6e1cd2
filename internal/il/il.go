// Package il is the low-level typed emission primitives the OOP lowering
// driver targets. It owns the module/function/block
// representation and a small typed instruction algebra; it has no notion of
// classes, fields, or vtables — those are the driver's concern.
package il

import "fmt"

// Type is one of the IL's primitive value types.
type Type int

const (
	Void Type = iota
	I1
	I16
	I32
	I64
	F64
	Ptr
	Str
	Error
	ResumeTok
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F64:
		return "f64"
	case Ptr:
		return "ptr"
	case Str:
		return "str"
	case Error:
		return "error"
	case ResumeTok:
		return "resumetok"
	default:
		return "?"
	}
}

// valueKind tags which field of Value is meaningful.
type valueKind int

const (
	vkInt valueKind = iota
	vkFloat
	vkNull
	vkTemp
	vkGlobal
)

// Value is a typed IL value: an integer or float constant, null, an SSA
// temp-id, or a reference to a global symbol.
type Value struct {
	kind   valueKind
	Type   Type
	Int    int64
	Float  float64
	Temp   int
	Global string
}

// ConstInt builds an integer constant of the given width.
func ConstInt(ty Type, v int64) Value { return Value{kind: vkInt, Type: ty, Int: v} }

// ConstBool builds an i1 constant.
func ConstBool(v bool) Value {
	i := int64(0)
	if v {
		i = 1
	}
	return Value{kind: vkInt, Type: I1, Int: i}
}

// ConstFloat builds an f64 constant.
func ConstFloat(v float64) Value { return Value{kind: vkFloat, Type: F64, Float: v} }

// NullValue builds the null value of a pointer-shaped type.
func NullValue(ty Type) Value { return Value{kind: vkNull, Type: ty} }

// TempValue references an existing SSA temp by id.
func TempValue(id int, ty Type) Value { return Value{kind: vkTemp, Type: ty, Temp: id} }

// GlobalValue references a named global symbol (a function, constant, or
// data global) as a value.
func GlobalValue(name string, ty Type) Value { return Value{kind: vkGlobal, Type: ty, Global: name} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == vkNull }

func (v Value) String() string {
	switch v.kind {
	case vkInt:
		return fmt.Sprintf("%s %d", v.Type, v.Int)
	case vkFloat:
		return fmt.Sprintf("%s %g", v.Type, v.Float)
	case vkNull:
		return fmt.Sprintf("%s null", v.Type)
	case vkTemp:
		return fmt.Sprintf("%s %%t%d", v.Type, v.Temp)
	case vkGlobal:
		return fmt.Sprintf("%s @%s", v.Type, v.Global)
	default:
		return "?"
	}
}

// Param is one formal parameter of a Function.
type Param struct {
	Name string
	Type Type
}

// Global is a module-scope zero-initialised data global.
type Global struct {
	Name string
	Type Type
}

// Module is the append-only sink the driver builds into.
type Module struct {
	Functions []*Function
	Globals   []Global
}

// AddGlobal appends a zero-initialised global and returns it as a value.
func (m *Module) AddGlobal(name string, ty Type) Value {
	m.Globals = append(m.Globals, Global{Name: name, Type: ty})
	return GlobalValue(name, ty)
}

// NewFunction appends and returns a new, empty function. The caller drives
// it through a Builder.
func (m *Module) NewFunction(name string, params []Param, ret Type) *Function {
	// Parameters are pre-bound to temps 0..len(params)-1 in declaration
	// order; nextTemp starts past them so instruction-allocated temps never
	// collide with a parameter reference.
	fn := &Function{Name: name, Params: params, ReturnType: ret, nextTemp: len(params)}
	m.Functions = append(m.Functions, fn)
	return fn
}

// Param returns the value referencing the i-th parameter as bound at
// function entry.
func (f *Function) Param(i int) Value {
	return TempValue(i, f.Params[i].Type)
}

// Function is one emitted routine: a constructor, destructor, method,
// property accessor, static constructor, interface thunk, or the module
// initialiser.
type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	Blocks     []*Block

	nextTemp     int
	labelCounter int
}

// Block returns the function's block at index i. Callers must re-resolve
// indices after any AddBlock call rather than caching *Block across it.
func (f *Function) Block(i int) *Block { return f.Blocks[i] }

// BlockIndex returns the index of b within f, or -1.
func (f *Function) BlockIndex(b *Block) int {
	for i, blk := range f.Blocks {
		if blk == b {
			return i
		}
	}
	return -1
}

// AddBlock appends a new block with a namer-supplied label and returns it.
// This may reallocate f.Blocks; see Block's doc comment.
func (f *Function) AddBlock(base string) *Block {
	f.labelCounter++
	name := fmt.Sprintf("%s.%d", base, f.labelCounter)
	b := &Block{Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

// nextTempID returns a fresh per-function temp id.
func (f *Function) nextTempID() int {
	id := f.nextTemp
	f.nextTemp++
	return id
}

// resetLabelNamer resets the per-function label counter.
func (f *Function) resetLabelNamer() { f.labelCounter = 0 }

// Block is a basic block: a named sequence of non-terminating instructions
// ending in exactly one Terminator (or none, if unreachable and never
// sealed — an emission bug the Builder asserts against).
type Block struct {
	Name   string
	Params []Param // non-empty only for error-handler blocks (err, tok)
	Instrs []Instr
	Term   Terminator
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool { return b.Term != nil }

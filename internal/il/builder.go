package il

import "fmt"

// Builder is the ambient emission context: the currently open function and
// block. Exactly one Builder is live per procedure being
// lowered; the driver resets it between procedures rather than allocating a
// fresh one, so per-function counters survive a Reset only via SetFunction.
type Builder struct {
	Module *Module

	fn  *Function
	blk *Block

	// errHandlers caches ensureErrorHandlerBlock results per source line for
	// the function currently open.
	errHandlers map[int]*Block
	// ehDepth tracks how many handlers are currently pushed, so Ret/RetVoid
	// can balance them without leaking.
	ehDepth int
}

// NewBuilder creates a builder over m. The caller must call SetFunction
// before emitting.
func NewBuilder(m *Module) *Builder { return &Builder{Module: m} }

// SetFunction opens fn for emission and resets per-function caches. entry is
// the block emission should resume from.
func (b *Builder) SetFunction(fn *Function, entry *Block) {
	b.fn = fn
	b.blk = entry
	b.errHandlers = make(map[int]*Block)
	b.ehDepth = 0
}

// Func returns the function currently open.
func (b *Builder) Func() *Function { return b.fn }

// CurrentBlock returns the block currently open for emission.
func (b *Builder) CurrentBlock() *Block { return b.blk }

// SetBlock moves emission to blk, re-fetched by the caller after any
// AddBlock call.
func (b *Builder) SetBlock(blk *Block) { b.blk = blk }

// NewBlock creates and returns a new block in the current function without
// switching emission to it.
func (b *Builder) NewBlock(base string) *Block { return b.fn.AddBlock(base) }

// ResetLabelNamer resets the per-function label counter.
func (b *Builder) ResetLabelNamer() { b.fn.resetLabelNamer() }

// assertOpen panics if the current block is already terminated: emitting
// into a terminated block is a programmer error, never expected in a sound
// driver.
func (b *Builder) assertOpen() {
	if b.blk == nil {
		panic("il: builder has no current block")
	}
	if b.blk.Terminated() {
		panic(fmt.Sprintf("il: emission into terminated block %q", b.blk.Name))
	}
}

func (b *Builder) newTemp(ty Type) Value {
	return TempValue(b.fn.nextTempID(), ty)
}

func (b *Builder) append(i Instr) { b.blk.Instrs = append(b.blk.Instrs, i) }

// Alloca reserves bytes on the frame, yielding a Ptr temp.
func (b *Builder) Alloca(bytes int) Value {
	b.assertOpen()
	res := b.newTemp(Ptr)
	b.append(&Alloca{Result: res, Bytes: bytes})
	return res
}

// Load reads ty from ptr.
func (b *Builder) Load(ty Type, ptr Value) Value {
	b.assertOpen()
	res := b.newTemp(ty)
	b.append(&Load{Result: res, Type: ty, Ptr: ptr})
	return res
}

// Store writes val to ptr.
func (b *Builder) Store(ty Type, ptr, val Value) {
	b.assertOpen()
	b.append(&Store{Type: ty, Ptr: ptr, Val: val})
}

// Binary computes lhs op rhs.
func (b *Builder) Binary(op string, ty Type, lhs, rhs Value) Value {
	b.assertOpen()
	res := b.newTemp(ty)
	b.append(&Binary{Result: res, Op: op, Type: ty, LHS: lhs, RHS: rhs})
	return res
}

// Unary computes op x.
func (b *Builder) Unary(op string, ty Type, x Value) Value {
	b.assertOpen()
	res := b.newTemp(ty)
	b.append(&Unary{Result: res, Op: op, Type: ty, X: x})
	return res
}

// GEP computes a byte-offset pointer from base.
func (b *Builder) GEP(base Value, offset int) Value {
	b.assertOpen()
	res := b.newTemp(Ptr)
	b.append(&GEP{Result: res, Base: base, Offset: offset})
	return res
}

// Call emits a void call for side effects only.
func (b *Builder) Call(callee string, args ...Value) {
	b.assertOpen()
	b.append(&Call{Callee: callee, Args: args})
}

// CallRet emits a call and captures its typed result.
func (b *Builder) CallRet(ty Type, callee string, args ...Value) Value {
	b.assertOpen()
	res := b.newTemp(ty)
	b.append(&CallRet{Result: res, Type: ty, Callee: callee, Args: args})
	return res
}

// CallIndirect emits an indirect call through a function-pointer value
// (vtable/itable dispatch).
func (b *Builder) CallIndirect(ty Type, target Value, args ...Value) Value {
	b.assertOpen()
	res := b.newTemp(ty)
	b.append(&CallIndirect{Result: res, Type: ty, Target: target, Args: args})
	return res
}

// ConstStr materialises a reference to a string constant global.
func (b *Builder) ConstStr(global string) Value {
	b.assertOpen()
	res := b.newTemp(Str)
	b.append(&ConstStr{Result: res, Global: global})
	return res
}

// EhPush installs handler as the active error target.
func (b *Builder) EhPush(handler *Block) {
	b.assertOpen()
	b.append(&EhPush{Handler: handler})
	b.ehDepth++
}

// EhPop removes the most recently pushed handler.
func (b *Builder) EhPop() {
	b.assertOpen()
	b.append(&EhPop{})
	if b.ehDepth > 0 {
		b.ehDepth--
	}
}

// Trap aborts execution with a descriptive message and terminates the
// block.
func (b *Builder) Trap(message string) {
	b.assertOpen()
	b.append(&Trap{Message: message})
	b.blk.Term = &RetVoid{}
}

// TrapFromErr aborts execution surfacing a runtime error value.
func (b *Builder) TrapFromErr(err Value) {
	b.assertOpen()
	b.append(&TrapFromErr{Err: err})
	b.blk.Term = &RetVoid{}
}

// Br emits an unconditional jump. A jump to the current block is a no-op
// to keep self-loop noise out of the output; otherwise it terminates the
// block.
func (b *Builder) Br(target *Block) {
	if target == b.blk {
		return
	}
	b.assertOpen()
	b.blk.Term = &Br{Target: target}
}

// CBr emits a conditional jump, terminating the current block.
func (b *Builder) CBr(cond Value, then, els *Block) {
	b.assertOpen()
	b.blk.Term = &CBr{Cond: cond, Then: then, Else: els}
}

// Ret returns val, first popping any still-pushed exception handlers so a
// return never leaks a handler scope.
func (b *Builder) Ret(val Value) {
	b.assertOpen()
	b.drainHandlers()
	b.blk.Term = &Ret{Val: val}
}

// RetVoid returns with no value, with the same handler-draining discipline
// as Ret.
func (b *Builder) RetVoid() {
	b.assertOpen()
	b.drainHandlers()
	b.blk.Term = &RetVoid{}
}

func (b *Builder) drainHandlers() {
	for b.ehDepth > 0 {
		b.append(&EhPop{})
		b.ehDepth--
	}
}

// EnsureErrorHandlerBlock returns the cached handler block for line,
// creating one with (err: Error, tok: ResumeTok) parameters and an initial
// EhEntry marker on first request.
func (b *Builder) EnsureErrorHandlerBlock(line int) *Block {
	if blk, ok := b.errHandlers[line]; ok {
		return blk
	}
	blk := b.fn.AddBlock(fmt.Sprintf("onerror_%d", line))
	blk.Params = []Param{{Name: "err", Type: Error}, {Name: "tok", Type: ResumeTok}}
	blk.Instrs = append(blk.Instrs, &EhEntry{})
	b.errHandlers[line] = blk
	return blk
}

// EmitBoolFromBranches allocates a 1-byte slot, creates then/else/merge
// blocks, branches on cond, runs thenCb/elseCb (each of which must Store a
// bool into the slot via the supplied pointer), and reloads the slot to
// yield an SSA i1.
func (b *Builder) EmitBoolFromBranches(cond Value, thenCb, elseCb func(slot Value)) Value {
	slot := b.Alloca(1)
	thenBlk := b.NewBlock("bool_then")
	elseBlk := b.NewBlock("bool_else")
	mergeBlk := b.NewBlock("bool_merge")

	b.CBr(cond, thenBlk, elseBlk)

	b.SetBlock(thenBlk)
	thenCb(slot)
	b.Br(mergeBlk)

	b.SetBlock(elseBlk)
	elseCb(slot)
	b.Br(mergeBlk)

	b.SetBlock(mergeBlk)
	return b.Load(I1, slot)
}

// BasicMask zero-extends a boolean to i64 and negates it, producing BASIC's
// logical mask convention (-1 for true, 0 for false).
func (b *Builder) BasicMask(boolVal Value) Value {
	ext := b.Unary("zext", I64, boolVal)
	return b.Binary("sub", I64, ConstInt(I64, 0), ext)
}

// ArrayStore implements the array store protocol:
// retain the new handle, load the old one, release the old one, then store
// the new handle into the slot. retainHelper/releaseHelper name the
// element-kind-appropriate runtime functions (e.g. rt_arr_i64_retain /
// rt_arr_i64_release).
func (b *Builder) ArrayStore(ptr, newVal Value, retainHelper, releaseHelper string) {
	b.Call(retainHelper, newVal)
	old := b.Load(Ptr, ptr)
	b.Call(releaseHelper, old)
	b.Store(Ptr, ptr, newVal)
}

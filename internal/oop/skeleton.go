package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
	"github.com/splanck/viper-sub011/internal/symbols"
)

// procKind distinguishes which shared-skeleton specifics apply to a
// procedure being lowered.
type procKind int

const (
	procMethod procKind = iota
	procCtor
	procDtor
	procStaticCtor
	procAccessor
	procMain
)

// procSpec fully describes one procedure for the shared lowering skeleton:
// what class it belongs to, what AST body (if any) it lowers, its mangled
// name, and its calling shape.
type procSpec struct {
	Kind    procKind
	Class   *classindex.ClassRecord
	Layout  *layout.Layout
	Mangled string

	// Instance is true for constructors, destructors, instance methods, and
	// property accessors; false for static methods and the static
	// constructor.
	Instance bool

	Params            []*ast.ParamDecl
	ReturnType        ast.Kind
	ReturnObjectClass string
	MethodName        string // the declared name, for VB-style return-by-name
	Body              *ast.BlockStmt
}

// lowerProcedure drives the shared per-procedure skeleton end to end,
// honouring the extra constructor/destructor specifics, and returns the
// emitted function.
func (d *Driver) lowerProcedure(spec procSpec) (*il.Function, error) {
	d.resetProcedure()

	d.registerParameters(spec)
	d.advance(stateParametersRegistered)

	d.pushClassScope(spec.Class, spec.Layout)
	d.advance(stateScopesPushed)

	if spec.Body != nil {
		collectVars(spec.Body, d.syms)
	}
	d.advance(stateVariablesCollected)

	fn, entry := d.startFunction(spec)
	d.advance(stateFunctionStarted)
	d.b.SetFunction(fn, entry)

	exitIdx := d.buildSkeleton(fn)
	d.advance(stateSkeletonBuilt)
	d.curReturnName = ""
	if spec.MethodName != "" && (spec.ReturnType != ast.KindVoid || spec.ReturnObjectClass != "") {
		d.curReturnName = spec.MethodName
	}
	d.curExitBlock = fn.Block(exitIdx)

	var meSlot il.Value
	if spec.Instance {
		meSlot = d.materialiseME(spec.Class.Qualified)
	}

	d.initialiseParameters(spec, meSlot)
	d.advance(stateParametersInitialised)

	d.allocateLocals(spec)
	d.advance(stateLocalsAllocated)

	// Only constructors have an array-field initialisation step; for every
	// other procedure kind the state is trivially complete.
	if spec.Kind == procCtor {
		d.installVptr(meSlot, spec.Class)
		d.initialiseArrayFields(meSlot, spec.Layout)
	}
	d.advance(stateArrayFieldsInitialised)

	if spec.Kind == procMain {
		// The module initialiser runs before any user code.
		d.b.Call(mangle.ModuleInit)
	}

	if spec.Body != nil {
		if err := d.lowerStmtList(spec.Body.Stmts); err != nil {
			return nil, err
		}
	}
	d.advance(stateBodyLowered)

	if !d.b.CurrentBlock().Terminated() {
		exit := fn.Block(exitIdx)
		d.b.Br(exit)
	}
	d.b.SetBlock(fn.Block(exitIdx))
	d.advance(stateAtExit)

	// The destructor's field-release sequence lives at the top of the exit
	// block so an early RETURN in a user dtor body cannot skip it, and no
	// path runs it twice.
	if spec.Kind == procDtor {
		d.emitDestructorFieldRelease(meSlot, spec.Layout)
	}

	d.emitEpilogue(spec)
	d.advance(stateEpilogueReleased)

	d.advance(stateReturned)
	d.sealHandlerBlocks(fn)
	d.b.ResetLabelNamer()
	d.advance(stateDone)
	d.popClassScope()

	return fn, nil
}

// sealHandlerBlocks terminates any still-open error-handler block with a
// trap: an ON ERROR path that reaches an unhandled error aborts. Handler
// bodies themselves are owned by the non-OOP statement lowering; this only
// guarantees no block is left mid-emitted.
func (d *Driver) sealHandlerBlocks(fn *il.Function) {
	for _, blk := range fn.Blocks {
		if len(blk.Params) == 0 || blk.Terminated() {
			continue
		}
		d.b.SetBlock(blk)
		d.b.Trap("unhandled error")
	}
}

// resetProcedure gives each procedure a fresh symbol table, field scope,
// and deferred-release list. Temp and label counters live on il.Function
// and reset once that function is allocated.
func (d *Driver) resetProcedure() {
	d.syms = symbols.New()
	d.fields = symbols.FieldScope{}
	d.deferredTemps = nil
	d.curReturnName = ""
	d.curExitBlock = nil
	d.state = stateReset
}

// registerParameters records every parameter's name and type before the
// body is walked, so a same-named module-level symbol never shadows the
// parameter's inferred type.
func (d *Driver) registerParameters(spec procSpec) {
	for _, p := range spec.Params {
		s := d.syms.Declare(p.Name)
		s.Type = p.Type
		s.IsArray = p.IsArray
		s.IsObject = p.Type == ast.KindObj
		s.ObjectClass = p.ObjectClass
		s.SubKind = symbols.SubKindParameter
		s.Owning = p.Owning
	}
}

// pushClassScope makes unqualified identifiers inside the body resolve to
// instance fields of cls when no local shadows them.
func (d *Driver) pushClassScope(cls *classindex.ClassRecord, lay *layout.Layout) {
	if cls == nil {
		return
	}
	d.curClass = cls.Qualified
	d.fields.Push(cls.Qualified, lay)
}

// popClassScope is the mirror of pushClassScope, called once a procedure is
// fully lowered.
func (d *Driver) popClassScope() {
	d.fields.Pop()
	d.curClass = ""
}

// startFunction allocates the il.Function with its mangled name, return
// type, and parameter list (prepending ME for instance members), and the
// entry block.
func (d *Driver) startFunction(spec procSpec) (*il.Function, *il.Block) {
	var params []il.Param
	if spec.Instance {
		params = append(params, il.Param{Name: "ME", Type: il.Ptr})
	}
	for _, p := range spec.Params {
		params = append(params, il.Param{Name: p.Name, Type: ilType(p.Type)})
	}

	retType := ilType(spec.ReturnType)
	if spec.ReturnObjectClass != "" {
		retType = il.Ptr
	}

	fn := d.module.NewFunction(spec.Mangled, params, retType)

	if spec.MethodName != "" && (spec.ReturnType != ast.KindVoid || spec.ReturnObjectClass != "") {
		s := d.syms.Declare(spec.MethodName)
		s.Type = spec.ReturnType
		if spec.ReturnObjectClass != "" {
			s.IsObject = true
			s.ObjectClass = spec.ReturnObjectClass
		}
	}

	entry := fn.AddBlock("entry")
	return fn, entry
}

// buildSkeleton adds the exit block and returns its index so callers
// re-fetch it after further AddBlock calls rather than caching the pointer.
func (d *Driver) buildSkeleton(fn *il.Function) int {
	exit := fn.AddBlock("exit")
	return fn.BlockIndex(exit)
}

// materialiseME stores the incoming receiver into a dedicated slot; ME is
// always parameter 0 of an instance procedure.
func (d *Driver) materialiseME(class string) il.Value {
	slot := d.b.Alloca(8)
	d.b.Store(il.Ptr, slot, d.b.Func().Param(0))
	s := d.syms.Declare("ME")
	s.Slot = slot
	s.HasSlot = true
	s.IsObject = true
	s.ObjectClass = class
	s.SubKind = symbols.SubKindReceiver
	return slot
}

// initialiseParameters allocates each parameter's slot and stores the
// incoming value, honouring the array-store and object-as-Ptr rules.
func (d *Driver) initialiseParameters(spec procSpec, meSlot il.Value) {
	base := 0
	if spec.Instance {
		base = 1
	}
	for i, p := range spec.Params {
		sym := d.syms.Lookup(p.Name)
		bytes := slotBytes(p.Type)
		slot := d.b.Alloca(bytes)
		sym.Slot = slot
		sym.HasSlot = true

		incoming := d.b.Func().Param(base + i)
		if p.IsArray {
			retain, release := arrayRetainRelease(p.Type)
			d.b.ArrayStore(slot, incoming, retain, release)
		} else {
			d.b.Store(ilType(p.Type), slot, incoming)
		}
	}
}

// allocateLocals gives a slot to every referenced symbol not already
// allocated (parameters and ME already have theirs). Names that carry no
// type facts of their own and resolve as instance fields get no local slot
// at all — the field scope claims them, so expression and assignment
// lowering reach the field instead of a shadowing local.
func (d *Driver) allocateLocals(spec procSpec) {
	for _, sym := range d.syms.Symbols() {
		if sym.HasSlot {
			continue
		}
		if sym.Type == ast.KindVoid && !sym.IsObject && !sym.IsArray {
			if f, _ := d.fields.ResolveField(sym.Name); f != nil {
				continue
			}
			// An untyped, non-field local defaults to I64, BASIC's
			// implicit numeric kind.
			sym.Type = ast.KindI64
		}
		// The method-name symbol stands in for the return value; it gets a
		// slot like any owned local so RETURN can assign it, but is
		// excluded from the release set in the epilogue when it carries an
		// object.
		bytes := slotBytes(sym.Type)
		if sym.IsObject || sym.IsArray {
			bytes = 8
		}
		slot := d.b.Alloca(bytes)
		if sym.IsObject || sym.IsArray {
			// Owned handle slots start null so the release-old half of the
			// first store, and the epilogue of a never-assigned local, see
			// a well-defined value.
			d.b.Store(il.Ptr, slot, il.NullValue(il.Ptr))
		}
		sym.Slot = slot
		sym.HasSlot = true
		sym.SubKind = symbols.SubKindLocal
	}
}

// emitEpilogue releases deferred temporaries, then object/array locals
// (excluding borrowed parameters and, for object-returning procedures, the
// method-name symbol — the returned object must not be destroyed before
// the return), then emits the return itself.
func (d *Driver) emitEpilogue(spec procSpec) {
	d.releaseDeferredTemps()

	excluded := map[string]bool{}
	var owningParamNames []string
	for _, p := range spec.Params {
		if p.Owning {
			owningParamNames = append(owningParamNames, p.Name)
		} else {
			excluded[canon(p.Name)] = true
		}
	}
	if spec.Instance {
		excluded[canon("ME")] = true
	}
	returnsObject := spec.ReturnObjectClass != "" && spec.MethodName != ""
	if returnsObject {
		excluded[canon(spec.MethodName)] = true
	}

	d.releaseObjectLocals(excluded)
	d.releaseObjectParams(owningParamNames)
	d.releaseArrayLocals(excluded)
	d.releaseArrayParams(owningParamNames)

	if spec.ReturnType == ast.KindVoid && spec.ReturnObjectClass == "" {
		d.b.RetVoid()
		return
	}

	if spec.MethodName == "" {
		d.b.RetVoid()
		return
	}
	retSym := d.syms.Lookup(spec.MethodName)
	retType := ilType(spec.ReturnType)
	if spec.ReturnObjectClass != "" {
		retType = il.Ptr
	}
	val := d.b.Load(retType, retSym.Slot)
	d.b.Ret(val)
}

func (d *Driver) releaseDeferredTemps() {
	for _, p := range d.deferredTemps {
		d.b.Call(p.release, p.ptr)
	}
	d.deferredTemps = nil
}

// releaseObjectLocals emits, for each tracked object local (excluding ME
// and the supplied exclusion set), the destroy-then-free conditional, then
// nulls the slot.
func (d *Driver) releaseObjectLocals(excluded map[string]bool) {
	for _, sym := range d.syms.Symbols() {
		if !sym.IsObject || sym.IsArray || !sym.HasSlot || sym.SubKind == symbols.SubKindParameter {
			continue
		}
		if excluded[canon(sym.Name)] {
			continue
		}
		d.releaseOwnedObjectSlot(sym.Slot, sym.ObjectClass)
		d.b.Store(il.Ptr, sym.Slot, il.NullValue(il.Ptr))
	}
}

// releaseObjectParams releases only the parameters named in paramNames
// (those flagged by semantic analysis as taking ownership); ordinary
// parameters are borrowed and excluded.
func (d *Driver) releaseObjectParams(paramNames []string) {
	for _, name := range paramNames {
		sym := d.syms.Lookup(name)
		if sym == nil || !sym.IsObject || sym.IsArray {
			continue
		}
		d.releaseOwnedObjectSlot(sym.Slot, sym.ObjectClass)
		d.b.Store(il.Ptr, sym.Slot, il.NullValue(il.Ptr))
	}
}

// releaseArrayLocals mirrors releaseObjectLocals for array-typed locals.
func (d *Driver) releaseArrayLocals(excluded map[string]bool) {
	for _, sym := range d.syms.Symbols() {
		if !sym.IsArray || !sym.HasSlot || sym.SubKind == symbols.SubKindParameter {
			continue
		}
		if excluded[canon(sym.Name)] {
			continue
		}
		_, release := arrayRetainRelease(sym.Type)
		handle := d.b.Load(il.Ptr, sym.Slot)
		d.b.Call(release, handle)
		d.b.Store(il.Ptr, sym.Slot, il.NullValue(il.Ptr))
	}
}

// releaseArrayParams mirrors releaseObjectParams for array-typed owning
// parameters.
func (d *Driver) releaseArrayParams(paramNames []string) {
	for _, name := range paramNames {
		sym := d.syms.Lookup(name)
		if sym == nil || !sym.IsArray {
			continue
		}
		_, release := arrayRetainRelease(sym.Type)
		handle := d.b.Load(il.Ptr, sym.Slot)
		d.b.Call(release, handle)
		d.b.Store(il.Ptr, sym.Slot, il.NullValue(il.Ptr))
	}
}

// releaseOwnedObjectSlot loads the pointer held in slot and runs the
// reference-count-check-and-release protocol. The destructor chain is
// invoked only when the count reaches zero, matching DELETE's destroy
// branch.
func (d *Driver) releaseOwnedObjectSlot(slot il.Value, class string) {
	ptr := d.b.Load(il.Ptr, slot)
	cond := d.b.CallRet(il.I1, rtObjReleaseCheck0, ptr)
	destroyBlk := d.b.NewBlock("release_dtor")
	contBlk := d.b.NewBlock("release_cont")
	d.b.CBr(cond, destroyBlk, contBlk)

	d.b.SetBlock(destroyBlk)
	if class != "" {
		d.b.Call(mangle.Dtor(class), ptr)
	}
	d.b.Call(rtObjFree, ptr)
	d.b.Br(contBlk)

	d.b.SetBlock(contBlk)
}

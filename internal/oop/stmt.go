package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// lowerStmtList lowers a statement sequence, stopping early once the
// current block is terminated: anything after is unreachable and must not
// be emitted into a sealed block.
func (d *Driver) lowerStmtList(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if d.b.CurrentBlock().Terminated() {
			return nil
		}
		if err := d.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		v, err := d.lowerExpr(st.X)
		if err != nil {
			return err
		}
		d.deferDiscardedObject(st.X, v)
		return nil

	case *ast.AssignStmt:
		return d.lowerAssign(st)

	case *ast.ReturnStmt:
		return d.lowerReturn(st)

	case *ast.IfStmt:
		return d.lowerIf(st)

	case *ast.DeleteStmt:
		return d.lowerDelete(st)

	case *ast.DimStmt:
		// Dynamic sizing is left to user code via runtime helpers; the
		// slot already exists from variable collection, so there is
		// nothing further to emit here unless fixed extents are declared.
		if len(st.Extents) > 0 {
			return d.lowerDimWithExtents(st)
		}
		return nil

	case *ast.OnErrorGotoStmt:
		return d.lowerOnErrorGoto(st)

	default:
		return nil
	}
}

// deferDiscardedObject tracks an object produced by a discarded expression
// statement (a bare NEW, or a call whose object result nobody stores): the
// temporary holds the only reference, so the epilogue must release it.
func (d *Driver) deferDiscardedObject(e ast.Expr, v il.Value) {
	switch e.(type) {
	case *ast.NewExpr, *ast.CallExpr:
	default:
		return
	}
	if v.Type != il.Ptr || d.resolveObjectClass(e) == "" {
		return
	}
	d.deferredTemps = append(d.deferredTemps, pendingRelease{ptr: v, release: rtObjReleaseCheck0})
}

func (d *Driver) lowerDimWithExtents(st *ast.DimStmt) error {
	sym := d.syms.Lookup(st.Name)
	if sym == nil || !sym.HasSlot {
		return nil
	}
	n := arrayLen(st.Extents)
	helper := arrayAllocHelper(st.Type)
	handle := d.b.CallRet(il.Ptr, helper, il.ConstInt(il.I64, n))
	d.b.Store(il.Ptr, sym.Slot, handle)
	return nil
}

// lowerAssign lowers target = value, routing through the array-store
// protocol for array targets and the owned-slot release-then-store pattern
// for object targets.
func (d *Driver) lowerAssign(st *ast.AssignStmt) error {
	val, err := d.lowerExpr(st.Value)
	if err != nil {
		return err
	}

	switch target := st.Target.(type) {
	case *ast.Ident:
		sym := d.syms.Lookup(target.Name)
		if sym != nil && sym.HasSlot {
			if sym.IsArray {
				retain, release := arrayRetainRelease(sym.Type)
				d.b.ArrayStore(sym.Slot, val, retain, release)
				return nil
			}
			if sym.IsObject {
				d.releaseOwnedObjectSlot(sym.Slot, sym.ObjectClass)
			}
			d.b.Store(ilType(sym.Type), sym.Slot, val)
			return nil
		}
		if f, _ := d.fields.ResolveField(target.Name); f != nil {
			return d.storeField(f, val)
		}
		return nil

	case *ast.FieldExpr:
		base, err := d.lowerExpr(target.Base)
		if err != nil {
			return err
		}
		class := d.resolveObjectClass(target.Base)
		if class == "" {
			return nil
		}
		_, _, lay := d.lookupLayout(class)
		if lay == nil {
			return nil
		}
		lf := lay.FindField(target.Field)
		if lf == nil {
			return nil
		}
		addr := d.b.GEP(base, lf.Offset)
		return d.storeFieldAddr(lf.Type, lf.ObjectClass, lf.IsArray, addr, val)

	default:
		return nil
	}
}

func (d *Driver) storeField(f *layout.Field, val il.Value) error {
	me := d.syms.Lookup("ME")
	if me == nil || !me.HasSlot {
		return nil
	}
	instance := d.b.Load(il.Ptr, me.Slot)
	addr := d.b.GEP(instance, f.Offset)
	return d.storeFieldAddr(f.Type, f.ObjectClass, f.IsArray, addr, val)
}

func (d *Driver) storeFieldAddr(ty ast.Kind, objClass string, isArray bool, addr, val il.Value) error {
	switch {
	case isArray:
		retain, release := arrayRetainRelease(ty)
		d.b.ArrayStore(addr, val, retain, release)
	case objClass != "":
		old := d.b.Load(il.Ptr, addr)
		cond := d.b.CallRet(il.I1, rtObjReleaseCheck0, old)
		destroyBlk := d.b.NewBlock("fieldstore_dtor")
		contBlk := d.b.NewBlock("fieldstore_cont")
		d.b.CBr(cond, destroyBlk, contBlk)
		d.b.SetBlock(destroyBlk)
		d.b.Call(mangle.Dtor(objClass), old)
		d.b.Call(rtObjFree, old)
		d.b.Br(contBlk)
		d.b.SetBlock(contBlk)
		d.b.Store(il.Ptr, addr, val)
	case ty == ast.KindStr:
		old := d.b.Load(il.Str, addr)
		d.b.Call(rtStrReleaseMaybe, old)
		d.b.Store(il.Str, addr, val)
	default:
		d.b.Store(ilType(ty), addr, val)
	}
	return nil
}

// lowerReturn implements an early RETURN by storing any value into the
// method-name slot and branching to the shared exit block, rather than
// emitting a bare Ret here: every return path — early or by fallthrough —
// must run the epilogue's release sequence exactly once.
func (d *Driver) lowerReturn(st *ast.ReturnStmt) error {
	if st.Value != nil {
		val, err := d.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		if d.curReturnName != "" {
			if sym := d.syms.Lookup(d.curReturnName); sym != nil && sym.HasSlot {
				d.b.Store(ilType(sym.Type), sym.Slot, val)
			}
		}
	}
	d.b.Br(d.curExitBlock)
	return nil
}

func (d *Driver) lowerIf(st *ast.IfStmt) error {
	cond, err := d.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	thenBlk := d.b.NewBlock("if_then")
	var elseBlk *il.Block
	mergeBlk := d.b.NewBlock("if_merge")
	if st.Else != nil {
		elseBlk = d.b.NewBlock("if_else")
	} else {
		elseBlk = mergeBlk
	}
	d.b.CBr(cond, thenBlk, elseBlk)

	d.b.SetBlock(thenBlk)
	if err := d.lowerStmtList(st.Then.Stmts); err != nil {
		return err
	}
	if !d.b.CurrentBlock().Terminated() {
		d.b.Br(mergeBlk)
	}

	if st.Else != nil {
		d.b.SetBlock(elseBlk)
		if err := d.lowerStmtList(st.Else.Stmts); err != nil {
			return err
		}
		if !d.b.CurrentBlock().Terminated() {
			d.b.Br(mergeBlk)
		}
	}

	d.b.SetBlock(mergeBlk)
	return nil
}

// lowerDelete emits the conditional destroy sequence. The target
// expression is evaluated exactly once into a cached value, so neither the
// release-check nor the destructor call can observe two different
// evaluations.
func (d *Driver) lowerDelete(st *ast.DeleteStmt) error {
	ptr, err := d.lowerExpr(st.Target)
	if err != nil {
		return err
	}
	cond := d.b.CallRet(il.I1, rtObjReleaseCheck0, ptr)

	destroyBlk := d.b.NewBlock("delete_dtor")
	contBlk := d.b.NewBlock("delete_cont")
	d.b.CBr(cond, destroyBlk, contBlk)

	d.b.SetBlock(destroyBlk)
	if class := d.resolveObjectClass(st.Target); class != "" {
		d.b.Call(mangle.Dtor(class), ptr)
	}
	d.b.Call(rtObjFree, ptr)
	d.b.Br(contBlk)

	d.b.SetBlock(contBlk)
	return nil
}

func (d *Driver) lowerOnErrorGoto(st *ast.OnErrorGotoStmt) error {
	if st.Line == 0 {
		d.b.EhPop()
		return nil
	}
	handler := d.b.EnsureErrorHandlerBlock(st.Line)
	d.b.EhPush(handler)
	return nil
}

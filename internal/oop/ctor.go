package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// installVptrAt fetches the class's canonical vtable pointer from the
// runtime and stores it at offset 0 of instance. Called both at NEW's
// allocation site and at constructor entry, so that any virtual dispatch
// inside the constructor body already resolves correctly.
func (d *Driver) installVptrAt(instance il.Value, classID int64) {
	vtable := d.b.CallRet(il.Ptr, rtGetClassVtable, il.ConstInt(il.I64, classID))
	d.b.Store(il.Ptr, instance, vtable)
}

// installVptr resolves cls's layout to find its class id and installs the
// vptr into the materialised ME slot's pointee (ME itself holds the
// instance pointer, not the instance; the pointer must be loaded first).
func (d *Driver) installVptr(meSlot il.Value, cls *classindex.ClassRecord) {
	lay := d.layouts.Get(cls.Name)
	classID := int64(0)
	if lay != nil {
		classID = lay.ClassID
	}
	instance := d.b.Load(il.Ptr, meSlot)
	d.installVptrAt(instance, classID)
}

// initialiseArrayFields allocates every field declared with fixed extents
// via the element-kind-appropriate runtime helper and stores the handle
// into the field (ME is already installed by this point, so field offsets
// resolve through the layout).
func (d *Driver) initialiseArrayFields(meSlot il.Value, lay *layout.Layout) {
	if lay == nil {
		return
	}
	instance := d.b.Load(il.Ptr, meSlot)
	for _, f := range lay.Fields {
		if !f.IsArray {
			continue
		}
		extents := fieldExtents(d, f)
		n := arrayLen(extents)
		helper := arrayAllocHelper(f.Type)
		handle := d.b.CallRet(il.Ptr, helper, il.ConstInt(il.I64, n))
		addr := d.b.GEP(instance, f.Offset)
		d.b.Store(il.Ptr, addr, handle)
	}
}

// fieldExtents recovers a field's declared extents from the owning class
// record (layout.Field does not itself carry extents — only the semantic
// field descriptor does).
func fieldExtents(d *Driver, f layout.Field) []int64 {
	cls := d.idx.FindClass(d.curClass)
	if cls == nil {
		return nil
	}
	fd := d.idx.FindField(cls.Qualified, f.Name)
	if fd == nil {
		return nil
	}
	return fd.Extents
}

// emitDefaultCtorIfNeeded emits an empty-bodied constructor when the class
// has no user-defined one but semantic analysis set HasSynthCtor.
func (d *Driver) emitDefaultCtorIfNeeded(cls *classindex.ClassRecord, lay *layout.Layout) (*il.Function, error) {
	if cls.HasCtor || !cls.HasSynthCtor {
		return nil, nil
	}
	return d.emitCtor(cls, lay, &ast.MethodDecl{Name: "New", Body: &ast.BlockStmt{}})
}

// emitCtor lowers one constructor through the shared skeleton.
func (d *Driver) emitCtor(cls *classindex.ClassRecord, lay *layout.Layout, m *ast.MethodDecl) (*il.Function, error) {
	spec := procSpec{
		Kind:       procCtor,
		Class:      cls,
		Layout:     lay,
		Mangled:    mangle.Ctor(cls.Qualified),
		Instance:   true,
		Params:     m.Params,
		ReturnType: ast.KindVoid,
		Body:       m.Body,
	}
	return d.lowerProcedure(spec)
}

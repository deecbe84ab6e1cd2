package oop

import (
	"sort"

	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// emitModuleInit synthesises the module initialiser: it
// backs every static field with a global, registers each class's vtable
// with the runtime in base-before-derived order, registers every interface
// before any class binds to it, runs static constructors in declaration
// order, then returns. LowerProgram calls it after every class is lowered
// and before it emits the main entry.
func (d *Driver) emitModuleInit(prog *ast.Program) error {
	d.emitStaticFieldGlobals(prog)

	order := classTopoOrder(prog.Classes)

	ifaces := append([]*classindex.InterfaceRecord(nil), d.idx.Interfaces()...)
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].ID < ifaces[j].ID })
	for _, iface := range ifaces {
		d.emitInterfaceRegisterThunk(iface)
	}

	type bindPair struct {
		class *classindex.ClassRecord
		iface string
	}
	var binds []bindPair
	for _, cls := range order {
		rec := d.idx.FindClass(cls.Qualified)
		if rec == nil {
			continue
		}
		for _, ifaceName := range rec.Interfaces {
			d.emitInterfaceBindThunk(rec, ifaceName)
			binds = append(binds, bindPair{rec, ifaceName})
		}
	}

	fn := d.module.NewFunction(mangle.ModuleInit, nil, il.Void)
	entry := fn.AddBlock("entry")
	d.b.SetFunction(fn, entry)

	for _, cls := range order {
		rec := d.idx.FindClass(cls.Qualified)
		if rec == nil {
			continue
		}
		d.emitClassRegistration(rec)
	}

	for _, iface := range ifaces {
		d.b.Call(mangle.InterfaceRegisterThunk(iface.Qualified))
	}

	for _, bp := range binds {
		d.b.Call(mangle.InterfaceBindThunk(bp.class.Qualified, bp.iface))
	}

	// Static constructors run last, in class-declaration order. Only
	// classes whose $static function was actually emitted are called —
	// the aliases table records exactly those.
	for _, cls := range prog.Classes {
		if !d.staticCtorEmitted[canon(cls.Qualified)] {
			continue
		}
		d.b.Call(mangle.StaticCtor(cls.Qualified))
	}

	d.b.RetVoid()
	return nil
}

// emitStaticFieldGlobals backs every static field of every class with a
// zero-initialised module global.
func (d *Driver) emitStaticFieldGlobals(prog *ast.Program) {
	for _, cls := range prog.Classes {
		rec := d.idx.FindClass(cls.Qualified)
		if rec == nil {
			continue
		}
		for _, f := range rec.StaticFields {
			ty := ilType(f.Type)
			if f.IsArray {
				ty = il.Ptr
			}
			d.module.AddGlobal(mangle.StaticField(rec.Qualified, f.Name), ty)
		}
	}
}

// classTopoOrder returns classes ordered so that every base class precedes
// its derived classes, which rtRegisterClass's base-pointer argument
// requires.
func classTopoOrder(classes []*ast.ClassDecl) []*ast.ClassDecl {
	byQName := make(map[string]*ast.ClassDecl, len(classes))
	for _, c := range classes {
		byQName[canon(c.Qualified)] = c
	}
	out := make([]*ast.ClassDecl, 0, len(classes))
	visited := make(map[string]bool, len(classes))
	var visit func(c *ast.ClassDecl)
	visit = func(c *ast.ClassDecl) {
		key := canon(c.Qualified)
		if visited[key] {
			return
		}
		visited[key] = true
		if c.BaseQualified != "" {
			if base, ok := byQName[canon(c.BaseQualified)]; ok {
				visit(base)
			}
		}
		out = append(out, c)
	}
	for _, c := range classes {
		visit(c)
	}
	return out
}

// vtableMethodNameAtSlot walks from cls toward the root until it finds
// the nearest class whose VTablePlan names slot (an override or the
// introducing class), returning that name. A derived class's VTablePlan
// carries an empty entry for any slot it inherits without overriding.
func vtableMethodNameAtSlot(idx *classindex.Index, cls *classindex.ClassRecord, slot int) string {
	cur := cls
	for cur != nil {
		if slot < len(cur.VTablePlan) && cur.VTablePlan[slot] != "" {
			return cur.VTablePlan[slot]
		}
		if cur.BaseQualified == "" {
			return ""
		}
		cur = idx.FindClass(cur.BaseQualified)
	}
	return ""
}

// vtableSlotCount computes a class's vtable slot count by walking rec plus
// every ancestor and taking the highest slot assigned to any virtual method
// anywhere in the chain. A derived class's own
// VTablePlan only lists slots it introduces or overrides, so the count
// cannot be read off len(rec.VTablePlan) alone: a class that overrides
// nothing still needs a vtable sized to its inherited slots.
func vtableSlotCount(idx *classindex.Index, rec *classindex.ClassRecord) int {
	maxSlot := -1
	cur := rec
	visited := make(map[string]bool, 8)
	for cur != nil {
		key := canon(cur.Qualified)
		if visited[key] {
			break
		}
		visited[key] = true
		for _, m := range cur.Methods {
			if m.IsVirtual && m.Slot > maxSlot {
				maxSlot = m.Slot
			}
		}
		if cur.BaseQualified == "" {
			break
		}
		cur = idx.FindClass(cur.BaseQualified)
	}
	if maxSlot < 0 {
		return 0
	}
	return maxSlot + 1
}

// emitClassRegistration allocates and fills rec's vtable (if it has virtual
// slots) and registers the class with the runtime.
func (d *Driver) emitClassRegistration(rec *classindex.ClassRecord) {
	slotCount := vtableSlotCount(d.idx, rec)

	vtablePtr := il.NullValue(il.Ptr)
	if slotCount > 0 {
		bytes := slotCount * 8
		vtablePtr = d.b.CallRet(il.Ptr, rtAlloc, il.ConstInt(il.I64, int64(bytes)))
		for slot := 0; slot < slotCount; slot++ {
			name := vtableMethodNameAtSlot(d.idx, rec, slot)
			if name == "" {
				continue
			}
			impl := d.idx.ImplementingClass(rec.Qualified, name)
			fnVal := il.GlobalValue(mangle.Method(impl, name), il.Ptr)
			slotAddr := d.b.GEP(vtablePtr, slot*8)
			d.b.Store(il.Ptr, slotAddr, fnVal)
		}
	}

	baseClassID := int64(-1)
	if rec.BaseQualified != "" {
		if baseRec := d.idx.FindClass(rec.BaseQualified); baseRec != nil {
			_, bid, _ := d.lookupLayout(baseRec.Qualified)
			baseClassID = bid
		}
	}
	_, classID, _ := d.lookupLayout(rec.Qualified)
	qnameHandle := d.b.ConstStr(rec.Qualified)

	d.b.Call(rtRegisterClass,
		il.ConstInt(il.I64, classID),
		vtablePtr,
		qnameHandle,
		il.ConstInt(il.I64, int64(slotCount)),
		il.ConstInt(il.I64, baseClassID),
	)
}

// emitInterfaceRegisterThunk emits a standalone function that registers one
// interface's identity and slot count with the runtime.
func (d *Driver) emitInterfaceRegisterThunk(iface *classindex.InterfaceRecord) {
	fn := d.module.NewFunction(mangle.InterfaceRegisterThunk(iface.Qualified), nil, il.Void)
	entry := fn.AddBlock("entry")
	d.b.SetFunction(fn, entry)

	nameHandle := d.b.ConstStr(iface.Qualified)
	d.b.Call(rtRegisterIface,
		il.ConstInt(il.I64, int64(iface.ID)),
		nameHandle,
		il.ConstInt(il.I64, int64(len(iface.Slots))),
	)
	d.b.RetVoid()
}

// emitInterfaceBindThunk emits a standalone function that allocates and
// fills one class's itable for one interface it implements, then binds it
// with the runtime.
func (d *Driver) emitInterfaceBindThunk(rec *classindex.ClassRecord, ifaceQname string) {
	iface := d.idx.FindInterface(ifaceQname)
	fn := d.module.NewFunction(mangle.InterfaceBindThunk(rec.Qualified, ifaceQname), nil, il.Void)
	entry := fn.AddBlock("entry")
	d.b.SetFunction(fn, entry)

	slotNames := rec.ITablePlan[ifaceQname]
	slotCount := len(slotNames)
	if iface != nil && len(iface.Slots) > slotCount {
		slotCount = len(iface.Slots)
	}

	itablePtr := il.NullValue(il.Ptr)
	if slotCount > 0 {
		bytes := slotCount * 8
		itablePtr = d.b.CallRet(il.Ptr, rtAlloc, il.ConstInt(il.I64, int64(bytes)))
		for slot := 0; slot < slotCount; slot++ {
			if slot >= len(slotNames) || slotNames[slot] == "" {
				continue
			}
			methodName := slotNames[slot]
			impl := d.idx.ImplementingClass(rec.Qualified, methodName)
			fnVal := il.GlobalValue(mangle.Method(impl, methodName), il.Ptr)
			slotAddr := d.b.GEP(itablePtr, slot*8)
			d.b.Store(il.Ptr, slotAddr, fnVal)
		}
	}

	ifaceID := int64(-1)
	if iface != nil {
		ifaceID = int64(iface.ID)
	}
	_, classID, _ := d.lookupLayout(rec.Qualified)

	d.b.Call(rtBindInterface,
		il.ConstInt(il.I64, classID),
		il.ConstInt(il.I64, ifaceID),
		itablePtr,
	)
	d.b.RetVoid()
}

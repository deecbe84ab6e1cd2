package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
	"go.uber.org/zap"
)

// lookupLayout resolves a qualified class name to its layout-cache entry,
// keyed internally by the class's unqualified name.
func (d *Driver) lookupLayout(qname string) (size int, classID int64, lay *layout.Layout) {
	key := qname
	if cls := d.idx.FindClass(qname); cls != nil {
		key = cls.Name
	}
	size, classID = d.layouts.Lookup(key)
	lay = d.layouts.Get(key)
	return
}

// lowerExpr lowers an expression to a typed IL value.
func (d *Driver) lowerExpr(e ast.Expr) (il.Value, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return il.ConstInt(il.I64, x.Value), nil
	case *ast.FloatLit:
		return il.ConstFloat(x.Value), nil
	case *ast.BoolLit:
		return il.ConstBool(x.Value), nil
	case *ast.StringLit:
		return d.b.ConstStr(x.Value), nil
	case *ast.NilLit:
		return il.NullValue(il.Ptr), nil

	case *ast.Ident:
		return d.lowerIdent(x)
	case *ast.MeExpr:
		if sym := d.syms.Lookup("ME"); sym != nil && sym.HasSlot {
			return d.b.Load(il.Ptr, sym.Slot), nil
		}
		return d.missingMetadata("ME outside an instance member"), nil

	case *ast.NewExpr:
		return d.lowerNew(x)
	case *ast.FieldExpr:
		return d.lowerFieldAccess(x)
	case *ast.CallExpr:
		return d.lowerCall(x)
	case *ast.IndexExpr:
		return d.lowerIndex(x)
	case *ast.BinaryExpr:
		return d.lowerBinary(x)
	case *ast.UnaryExpr:
		return d.lowerUnary(x)

	default:
		return il.ConstInt(il.I64, 0), nil
	}
}

// lowerIdent resolves a bare identifier: a local/parameter slot if one
// exists, otherwise a field of the enclosing instance.
func (d *Driver) lowerIdent(x *ast.Ident) (il.Value, error) {
	if sym := d.syms.Lookup(x.Name); sym != nil && sym.HasSlot {
		return d.b.Load(ilType(sym.Type), sym.Slot), nil
	}
	if f, _ := d.fields.ResolveField(x.Name); f != nil {
		// Instance fields need a receiver; a static member naming one is a
		// semantic error the driver lowers conservatively.
		if me := d.syms.Lookup("ME"); me != nil && me.HasSlot {
			instance := d.b.Load(il.Ptr, me.Slot)
			addr := d.b.GEP(instance, f.Offset)
			return d.b.Load(ilType(f.Type), addr), nil
		}
	}
	return d.missingMetadata("unresolved identifier", zap.String("name", x.Name)), nil
}

// missingMetadata is the conservative-emission path for absent metadata:
// log a warning and yield an i64 zero placeholder. With
// TrapOnMissingMetadata set the placeholder is preceded by a trap, so a
// lowering gap is loud during development instead of silently producing
// zeroes.
func (d *Driver) missingMetadata(what string, fields ...zap.Field) il.Value {
	d.log.Warn(what+", emitting zero placeholder", fields...)
	if d.cfg.TrapOnMissingMetadata {
		d.b.Trap(what)
		d.b.SetBlock(d.b.NewBlock("unreachable"))
	}
	return il.ConstInt(il.I64, 0)
}

// lowerNew allocates an instance, installs its vptr, and calls the
// constructor with the fresh pointer first.
func (d *Driver) lowerNew(x *ast.NewExpr) (il.Value, error) {
	qname := d.qualifyName(x.ClassName)

	if d.cfg.RuntimeClassBridge {
		if entry, ok := d.runtimeClasses[canon(qname)]; ok {
			args := make([]il.Value, 0, len(x.Args))
			for _, a := range x.Args {
				v, err := d.lowerExpr(a)
				if err != nil {
					return il.Value{}, err
				}
				args = append(args, v)
			}
			return d.b.CallRet(entry.ReturnType, entry.CtorSymbol, args...), nil
		}
	}

	size, classID := 8, int64(0)
	_, _, lay := d.lookupLayout(qname)
	if lay != nil {
		size, classID = lay.Size, lay.ClassID
	}
	if size < 8 {
		size = 8
	}

	instance := d.b.CallRet(il.Ptr, rtObjNew, il.ConstInt(il.I64, classID), il.ConstInt(il.I64, int64(size)))
	if lay != nil {
		d.installVptrAt(instance, classID)
	} else {
		// Unresolved class: conservative emission with a null vptr;
		// semantic analysis owns the diagnostic.
		d.log.Warn("NEW of unresolved class, installing null vptr", zap.String("class", qname))
		d.b.Store(il.Ptr, instance, il.NullValue(il.Ptr))
	}

	args := make([]il.Value, 0, len(x.Args)+1)
	args = append(args, instance)
	for _, a := range x.Args {
		v, err := d.lowerExpr(a)
		if err != nil {
			return il.Value{}, err
		}
		args = append(args, v)
	}
	d.b.Call(mangle.Ctor(qname), args...)
	return instance, nil
}

// lowerFieldAccess lowers expr.field to a GEP plus typed load.
func (d *Driver) lowerFieldAccess(x *ast.FieldExpr) (il.Value, error) {
	base, err := d.lowerExpr(x.Base)
	if err != nil {
		return il.Value{}, err
	}
	class := d.resolveObjectClass(x.Base)
	if class == "" {
		return d.missingMetadata("unresolved field base class", zap.String("field", x.Field)), nil
	}
	fd := d.idx.FindFieldInHierarchy(class, x.Field)
	if fd == nil {
		return d.missingMetadata("unresolved field metadata", zap.String("class", class), zap.String("field", x.Field)), nil
	}
	_, _, lay := d.lookupLayout(class)
	if lay == nil {
		return d.missingMetadata("missing layout", zap.String("class", class)), nil
	}
	lf := lay.FindField(x.Field)
	if lf == nil {
		return d.missingMetadata("field absent from layout", zap.String("class", class), zap.String("field", x.Field)), nil
	}
	addr := d.b.GEP(base, lf.Offset)
	return d.b.Load(ilType(lf.Type), addr), nil
}

// lowerIndex lowers a(i) array element access. Index arithmetic and bounds
// checking belong to the runtime helper; this only resolves the element
// type so the load is correctly typed.
func (d *Driver) lowerIndex(x *ast.IndexExpr) (il.Value, error) {
	base, err := d.lowerExpr(x.Base)
	if err != nil {
		return il.Value{}, err
	}
	idx, err := d.lowerExpr(x.Index)
	if err != nil {
		return il.Value{}, err
	}
	elemTy := il.I64
	if id, ok := x.Base.(*ast.Ident); ok {
		if sym := d.syms.Lookup(id.Name); sym != nil {
			elemTy = ilType(sym.Type)
		}
	}
	addr := d.b.CallRet(il.Ptr, "rt_arr_elem_addr", base, idx)
	return d.b.Load(elemTy, addr), nil
}

// lowerBinary lowers a two-operand expression.
func (d *Driver) lowerBinary(x *ast.BinaryExpr) (il.Value, error) {
	lhs, err := d.lowerExpr(x.LHS)
	if err != nil {
		return il.Value{}, err
	}
	rhs, err := d.lowerExpr(x.RHS)
	if err != nil {
		return il.Value{}, err
	}
	ty := lhs.Type
	if ty == il.Void {
		ty = rhs.Type
	}
	return d.b.Binary(x.Op, ty, lhs, rhs), nil
}

// lowerUnary lowers a single-operand expression.
func (d *Driver) lowerUnary(x *ast.UnaryExpr) (il.Value, error) {
	v, err := d.lowerExpr(x.X)
	if err != nil {
		return il.Value{}, err
	}
	return d.b.Unary(x.Op, v.Type, v), nil
}

package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// lowerCall lowers a method call, choosing direct or vtable dispatch from
// the resolved receiver class.
func (d *Driver) lowerCall(x *ast.CallExpr) (il.Value, error) {
	class := d.resolveObjectClass(x.Base)
	if class == "" {
		// Semantic analysis is expected to have rejected this; emit a
		// conservative bare-name call and a zero result.
		args, err := d.lowerArgs(x.Args)
		if err != nil {
			return il.Value{}, err
		}
		d.b.Call(x.Method, args...)
		return il.ConstInt(il.I64, 0), nil
	}

	m := d.idx.FindMethodInHierarchy(class, x.Method)

	baseVal, err := d.lowerExpr(x.Base)
	if err != nil {
		return il.Value{}, err
	}
	argVals, err := d.lowerArgs(x.Args)
	if err != nil {
		return il.Value{}, err
	}
	callArgs := append([]il.Value{baseVal}, argVals...)

	retType := il.I64
	if m != nil {
		retType = ilType(m.ReturnType)
		if m.ReturnObjectClass != "" {
			retType = il.Ptr
		}
		if m.ReturnType == ast.KindVoid && m.ReturnObjectClass == "" {
			retType = il.Void
		}
	}

	if m == nil || !m.IsVirtual {
		impl := class
		if m != nil {
			impl = d.idx.ImplementingClass(class, x.Method)
		}
		callee := mangle.Method(impl, x.Method)
		if retType == il.Void {
			d.b.Call(callee, callArgs...)
			return il.ConstInt(il.I64, 0), nil
		}
		return d.b.CallRet(retType, callee, callArgs...), nil
	}

	// Virtual dispatch: load the vptr, index by slot*8, load the function
	// pointer, call indirectly.
	vptr := d.b.Load(il.Ptr, baseVal)
	slotAddr := d.b.GEP(vptr, m.Slot*8)
	fnPtr := d.b.Load(il.Ptr, slotAddr)
	if retType == il.Void {
		d.b.CallIndirect(il.Void, fnPtr, callArgs...)
		return il.ConstInt(il.I64, 0), nil
	}
	return d.b.CallIndirect(retType, fnPtr, callArgs...), nil
}

func (d *Driver) lowerArgs(args []ast.Expr) ([]il.Value, error) {
	out := make([]il.Value, 0, len(args))
	for _, a := range args {
		v, err := d.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

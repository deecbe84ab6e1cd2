package oop

import "github.com/splanck/viper-sub011/internal/ast"

// resolveObjectClass recovers the best static class an expression's value
// carries, falling back to empty when nothing matches (the caller emits a
// conservative null/zero result).
func (d *Driver) resolveObjectClass(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Ident:
		if sym := d.syms.Lookup(x.Name); sym != nil && sym.IsObject {
			return sym.ObjectClass
		}
		if f, _ := d.fields.ResolveField(x.Name); f != nil && f.ObjectClass != "" {
			return f.ObjectClass
		}
		if cls, ok := d.moduleObjects[canon(x.Name)]; ok {
			return cls
		}
		return ""

	case *ast.MeExpr:
		if sym := d.syms.Lookup("ME"); sym != nil {
			return sym.ObjectClass
		}
		return ""

	case *ast.NewExpr:
		return d.qualifyName(x.ClassName)

	case *ast.FieldExpr:
		// A dotted variable (base.field) resolves through the current
		// field scope when base is itself an unqualified reference to the
		// enclosing instance's fields; otherwise recurse through base's
		// resolved class and look the field up there.
		baseClass := d.resolveObjectClass(x.Base)
		if baseClass == "" {
			if f, _ := d.fields.ResolveField(x.Field); f != nil && f.ObjectClass != "" {
				return f.ObjectClass
			}
			return ""
		}
		fd := d.idx.FindFieldInHierarchy(baseClass, x.Field)
		if fd != nil && fd.ObjectClass != "" {
			return fd.ObjectClass
		}
		return ""

	case *ast.CallExpr:
		baseClass := d.resolveObjectClass(x.Base)
		if baseClass == "" {
			return ""
		}
		// BASIC uses parens for both indexing and calls: an array-valued
		// field accessed with an index looks syntactically identical to a
		// method call.
		if fd := d.idx.FindFieldInHierarchy(baseClass, x.Method); fd != nil && fd.IsArray {
			return fd.ObjectClass
		}
		if m := d.idx.FindMethodInHierarchy(baseClass, x.Method); m != nil {
			return m.ReturnObjectClass
		}
		return ""

	case *ast.IndexExpr:
		// a(i) where a is an object array at module scope, method scope
		// (field), or a dotted field: resolve the array itself, then return
		// its element class.
		if id, ok := x.Base.(*ast.Ident); ok {
			if sym := d.syms.Lookup(id.Name); sym != nil && sym.IsArray {
				return sym.ObjectClass
			}
			if cls, ok := d.moduleObjects[canon(id.Name)]; ok {
				return cls
			}
			if f, _ := d.fields.ResolveField(id.Name); f != nil && f.IsArray {
				return f.ObjectClass
			}
			return ""
		}
		// base is itself a dotted field or call already resolving to the
		// array's element class.
		return d.resolveObjectClass(x.Base)

	default:
		return ""
	}
}

package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// emitDtor lowers a class's destructor through the shared skeleton. A
// destructor is always emitted, even when the class declares no user
// body.
func (d *Driver) emitDtor(cls *classindex.ClassRecord, lay *layout.Layout, userBody *ast.BlockStmt) (*il.Function, error) {
	body := userBody
	if body == nil {
		body = &ast.BlockStmt{}
	}
	spec := procSpec{
		Kind:       procDtor,
		Class:      cls,
		Layout:     lay,
		Mangled:    mangle.Dtor(cls.Qualified),
		Instance:   true,
		ReturnType: ast.KindVoid,
		Body:       body,
	}
	return d.lowerProcedure(spec)
}

// emitDestructorFieldRelease emits the destructor's release loop: for each
// field in layout order, release strings and single objects (discarding the
// reference-count-zero flag — the caller's DELETE invokes the destructor
// chain, not this loop) and release arrays through the element-kind release
// helper; non-array primitive fields are a no-op.
func (d *Driver) emitDestructorFieldRelease(meSlot il.Value, lay *layout.Layout) {
	if lay == nil {
		return
	}
	instance := d.b.Load(il.Ptr, meSlot)
	for _, f := range lay.Fields {
		addr := d.b.GEP(instance, f.Offset)
		switch {
		case f.ObjectClass != "" && f.IsArray:
			_, release := arrayRetainRelease(ast.KindObj)
			handle := d.b.Load(il.Ptr, addr)
			d.b.Call(release, handle)
		case f.ObjectClass != "":
			ptr := d.b.Load(il.Ptr, addr)
			d.b.Call(rtObjReleaseCheck0, ptr)
		case f.IsArray:
			_, release := arrayRetainRelease(f.Type)
			handle := d.b.Load(il.Ptr, addr)
			d.b.Call(release, handle)
		case f.Type == ast.KindStr:
			handle := d.b.Load(il.Str, addr)
			d.b.Call(rtStrReleaseMaybe, handle)
		default:
			// primitive field, nothing to release.
		}
	}
}

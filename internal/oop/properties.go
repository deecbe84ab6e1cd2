package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// emitProperty synthesises a property's getter and setter as ordinary
// methods and lowers each through the shared procedure skeleton, so their
// epilogue semantics are identical to a hand-written method.
func (d *Driver) emitProperty(cls *classindex.ClassRecord, lay *layout.Layout, p *ast.PropertyDecl) ([]*il.Function, error) {
	var out []*il.Function

	getterSpec := procSpec{
		Kind:       procAccessor,
		Class:      cls,
		Layout:     lay,
		Mangled:    mangle.Getter(cls.Qualified, p.Name),
		Instance:   true,
		ReturnType: p.Type,
		MethodName: "get_" + p.Name,
		Body:       p.Getter,
	}
	if p.Type == ast.KindObj {
		getterSpec.ReturnObjectClass = p.ObjectClass
	}
	getFn, err := d.lowerProcedure(getterSpec)
	if err != nil {
		return nil, err
	}
	out = append(out, getFn)

	setterSpec := procSpec{
		Kind:     procAccessor,
		Class:    cls,
		Layout:   lay,
		Mangled:  mangle.Setter(cls.Qualified, p.Name),
		Instance: true,
		Params: []*ast.ParamDecl{{
			Name:        p.SetterParam,
			Type:        p.Type,
			ObjectClass: p.ObjectClass,
		}},
		ReturnType: ast.KindVoid,
		Body:       p.Setter,
	}
	setFn, err := d.lowerProcedure(setterSpec)
	if err != nil {
		return nil, err
	}
	out = append(out, setFn)

	return out, nil
}

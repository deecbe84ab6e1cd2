package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// emitStaticCtor lowers a class's static constructor: a void, no-argument
// function with no ME parameter, run exactly once by the module initialiser
// before any instance of the class exists.
func (d *Driver) emitStaticCtor(cls *classindex.ClassRecord, lay *layout.Layout, m *ast.MethodDecl) (*il.Function, error) {
	body := m.Body
	if body == nil {
		body = &ast.BlockStmt{}
	}
	spec := procSpec{
		Kind:       procStaticCtor,
		Class:      cls,
		Layout:     lay,
		Mangled:    mangle.StaticCtor(cls.Qualified),
		Instance:   false,
		ReturnType: ast.KindVoid,
		Body:       body,
	}
	fn, err := d.lowerProcedure(spec)
	if err != nil {
		return nil, err
	}
	d.staticCtorEmitted[canon(cls.Qualified)] = true
	return fn, nil
}

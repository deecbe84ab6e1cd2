package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

// emitMethod lowers one concrete method through the shared skeleton.
// Abstract methods have no body and are not emitted here — their vtable
// slot is simply left null by the module initialiser.
func (d *Driver) emitMethod(cls *classindex.ClassRecord, lay *layout.Layout, m *ast.MethodDecl) (*il.Function, error) {
	if m.IsAbstract || m.Body == nil {
		return nil, nil
	}
	spec := procSpec{
		Kind:              procMethod,
		Class:             cls,
		Layout:            lay,
		Mangled:           mangle.Method(cls.Qualified, m.Name),
		Instance:          !m.IsStatic,
		Params:            m.Params,
		ReturnType:        m.ReturnType,
		ReturnObjectClass: m.ReturnObjectClass,
		MethodName:        m.Name,
		Body:              m.Body,
	}
	return d.lowerProcedure(spec)
}

package main

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/buildlog"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/config"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/oop"
)

// runDemo lowers a tiny hand-built Counter class — one field, a
// constructor, an instance method, and an accessor — to exercise the
// skeleton, field access, and module initialiser end to end, and returns
// the resulting module's pretty-printed IL.
func runDemo(cfg config.Driver, logger *buildlog.Logger) (string, error) {
	const className = "Counter"
	const classID = int64(1)

	countField := &ast.FieldDecl{Name: "Count", Type: ast.KindI64}

	ctor := &ast.MethodDecl{
		Name: "__ctor",
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.AssignStmt{
				Target: &ast.Ident{Name: "Count"},
				Value:  &ast.IntLit{Value: 0},
			},
		}},
	}

	increment := &ast.MethodDecl{
		Name:       "Increment",
		ReturnType: ast.KindVoid,
		Slot:       -1,
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.AssignStmt{
				Target: &ast.Ident{Name: "Count"},
				Value: &ast.BinaryExpr{
					Op:  "+",
					LHS: &ast.Ident{Name: "Count"},
					RHS: &ast.IntLit{Value: 1},
				},
			},
		}},
	}

	get := &ast.MethodDecl{
		Name:       "Get",
		ReturnType: ast.KindI64,
		Slot:       -1,
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Ident{Name: "Count"}},
		}},
	}

	cls := &ast.ClassDecl{
		Name:         className,
		Qualified:    className,
		Fields:       []*ast.FieldDecl{countField},
		Methods:      []*ast.MethodDecl{increment, get},
		Ctor:         ctor,
		HasSynthCtor: false,
	}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{
		Name:      className,
		Qualified: className,
		HasCtor:   true,
		Fields: []classindex.FieldDescriptor{
			{Name: countField.Name, Type: countField.Type},
		},
		Methods: map[string]*classindex.MethodDescriptor{
			"increment": {Name: "Increment", ReturnType: ast.KindVoid, Slot: -1},
			"get":       {Name: "Get", ReturnType: ast.KindI64, Slot: -1},
		},
	})

	layouts := layout.NewCache()
	layouts.Put(className, layout.Build(classID, cls.Fields))

	d := oop.New(idx, layouts, cfg)
	d.SetLogger(logger)

	program := &ast.Program{Classes: []*ast.ClassDecl{cls}}
	if err := d.LowerProgram(program); err != nil {
		return "", err
	}
	return d.Module().PrettyPrint(), nil
}

package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/symbols"
)

// collectVars walks a procedure body and
// populate the symbol table with every name it declares or assigns, so slot
// allocation (step 9) has a complete, deterministic picture before any IL is
// emitted. Object/array facts are seeded from DIM statements and from
// assigning a NEW expression to a bare identifier; anything else keeps
// whatever registerParameters already established.
func collectVars(body *ast.BlockStmt, syms *symbols.Table) {
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		switch x := e.(type) {
		case nil:
			return
		case *ast.Ident:
			syms.MarkReferenced(x.Name)
		case *ast.NewExpr:
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *ast.FieldExpr:
			walkExpr(x.Base)
		case *ast.CallExpr:
			walkExpr(x.Base)
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *ast.IndexExpr:
			walkExpr(x.Base)
			walkExpr(x.Index)
		case *ast.BinaryExpr:
			walkExpr(x.LHS)
			walkExpr(x.RHS)
		case *ast.UnaryExpr:
			walkExpr(x.X)
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.ExprStmt:
			walkExpr(st.X)
		case *ast.AssignStmt:
			walkExpr(st.Value)
			if id, ok := st.Target.(*ast.Ident); ok {
				sym := syms.MarkReferenced(id.Name)
				if n, ok := st.Value.(*ast.NewExpr); ok {
					sym.IsObject = true
					sym.Type = ast.KindObj
					sym.ObjectClass = n.ClassName
				}
			} else {
				walkExpr(st.Target)
			}
		case *ast.ReturnStmt:
			walkExpr(st.Value)
		case *ast.IfStmt:
			walkExpr(st.Cond)
			if st.Then != nil {
				for _, inner := range st.Then.Stmts {
					walkStmt(inner)
				}
			}
			if st.Else != nil {
				for _, inner := range st.Else.Stmts {
					walkStmt(inner)
				}
			}
		case *ast.DeleteStmt:
			walkExpr(st.Target)
		case *ast.DimStmt:
			sym := syms.Declare(st.Name)
			sym.Type = st.Type
			sym.IsArray = len(st.Extents) > 0
			sym.IsObject = st.Type == ast.KindObj
			sym.ObjectClass = st.ObjectClass
		case *ast.OnErrorGotoStmt:
			// no variable references
		}
	}

	for _, s := range body.Stmts {
		walkStmt(s)
	}
}

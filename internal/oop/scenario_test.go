package oop

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/config"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/mangle"
)

func findFunction(t *testing.T, m *il.Module, name string) *il.Function {
	t.Helper()
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %s not emitted", name)
	return nil
}

func countCalls(fn *il.Function, callee string) int {
	n := 0
	for _, blk := range fn.Blocks {
		for _, ins := range blk.Instrs {
			switch c := ins.(type) {
			case *il.Call:
				if c.Callee == callee {
					n++
				}
			case *il.CallRet:
				if c.Callee == callee {
					n++
				}
			}
		}
	}
	return n
}

// Simple class with a string field: the constructor installs the vptr and
// never releases its borrowed parameter; the destructor releases the field.
func TestCtorInstallsVptrAndDtorReleasesStringField(t *testing.T) {
	sField := &ast.FieldDecl{Name: "s", Type: ast.KindStr}
	ctor := &ast.MethodDecl{
		Name:   "New",
		Params: []*ast.ParamDecl{{Name: "x", Type: ast.KindStr}},
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.AssignStmt{
				Target: &ast.FieldExpr{Base: &ast.MeExpr{}, Field: "s"},
				Value:  &ast.Ident{Name: "x"},
			},
		}},
	}
	foo := &ast.ClassDecl{Name: "Foo", Qualified: "Foo", Fields: []*ast.FieldDecl{sField}, Ctor: ctor}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{
		Name: "Foo", Qualified: "Foo", HasCtor: true,
		Fields: []classindex.FieldDescriptor{{Name: "s", Type: ast.KindStr}},
	})
	layouts := layout.NewCache()
	layouts.Put("Foo", layout.Build(7, foo.Fields))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{foo}}))

	ctorFn := findFunction(t, d.Module(), mangle.Ctor("Foo"))
	require.Equal(t, []il.Param{{Name: "ME", Type: il.Ptr}, {Name: "x", Type: il.Str}}, ctorFn.Params)
	require.Equal(t, 1, countCalls(ctorFn, rtGetClassVtable), "constructor must install the vptr")
	require.Zero(t, countCalls(ctorFn, rtObjReleaseCheck0), "borrowed parameter must not be released")

	dtorFn := findFunction(t, d.Module(), mangle.Dtor("Foo"))
	require.Equal(t, 1, countCalls(dtorFn, rtStrReleaseMaybe), "destructor must release the string field once")
}

// Virtual dispatch goes through the vptr at offset 0, never a direct call.
func TestVirtualCallSiteDispatchesThroughVtable(t *testing.T) {
	use := &ast.MethodDecl{
		Name:   "Use",
		Params: []*ast.ParamDecl{{Name: "a", Type: ast.KindObj, ObjectClass: "Animal"}},
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Base: &ast.Ident{Name: "a"}, Method: "Speak"}},
		}},
	}
	user := &ast.ClassDecl{Name: "User", Qualified: "User", Methods: []*ast.MethodDecl{use}}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "User", Qualified: "User"})
	idx.AddClass(&classindex.ClassRecord{
		Name: "Animal", Qualified: "Animal",
		VTablePlan: []string{"Speak"},
		Methods: map[string]*classindex.MethodDescriptor{
			"speak": {Name: "Speak", ReturnType: ast.KindVoid, IsVirtual: true, Slot: 0},
		},
	})
	layouts := layout.NewCache()
	layouts.Put("User", layout.Build(1, nil))
	layouts.Put("Animal", layout.Build(2, nil))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{user}}))

	useFn := findFunction(t, d.Module(), mangle.Method("User", "Use"))
	indirect := 0
	for _, blk := range useFn.Blocks {
		for _, ins := range blk.Instrs {
			if _, ok := ins.(*il.CallIndirect); ok {
				indirect++
			}
		}
	}
	require.Equal(t, 1, indirect, "virtual call must dispatch indirectly")
	require.Zero(t, countCalls(useFn, mangle.Method("Animal", "Speak")), "virtual call must not be direct")
}

// NEW allocates (size >= 8) with the constructor receiving the fresh
// instance as its first argument; DELETE evaluates the target once and
// threads the same cached pointer through the release check, the
// destructor call, and the free.
func TestNewAndDeleteProtocol(t *testing.T) {
	run := &ast.MethodDecl{
		Name: "Run",
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.AssignStmt{
				Target: &ast.Ident{Name: "p"},
				Value:  &ast.NewExpr{ClassName: "Point", Args: []ast.Expr{&ast.IntLit{Value: 1}, &ast.IntLit{Value: 2}}},
			},
			&ast.DeleteStmt{Target: &ast.Ident{Name: "p"}},
		}},
	}
	runner := &ast.ClassDecl{Name: "Runner", Qualified: "Runner", Methods: []*ast.MethodDecl{run}}

	pointFields := []*ast.FieldDecl{
		{Name: "X", Type: ast.KindI64},
		{Name: "Y", Type: ast.KindI64},
	}
	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "Runner", Qualified: "Runner"})
	idx.AddClass(&classindex.ClassRecord{
		Name: "Point", Qualified: "Point", HasCtor: true,
		Fields: []classindex.FieldDescriptor{
			{Name: "X", Type: ast.KindI64},
			{Name: "Y", Type: ast.KindI64},
		},
	})
	layouts := layout.NewCache()
	layouts.Put("Runner", layout.Build(1, nil))
	layouts.Put("Point", layout.Build(9, pointFields))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{runner}}))

	runFn := findFunction(t, d.Module(), mangle.Method("Runner", "Run"))

	var newResult il.Value
	var ctorFirstArg il.Value
	sawNew := false
	for _, blk := range runFn.Blocks {
		for _, ins := range blk.Instrs {
			switch c := ins.(type) {
			case *il.CallRet:
				if c.Callee == rtObjNew {
					sawNew = true
					newResult = c.Result
					require.Equal(t, il.ConstInt(il.I64, 9).String(), c.Args[0].String())
					require.Equal(t, il.ConstInt(il.I64, 24).String(), c.Args[1].String(), "size = 8-byte header + two 8-byte fields")
				}
			case *il.Call:
				if c.Callee == mangle.Ctor("Point") {
					require.Len(t, c.Args, 3)
					ctorFirstArg = c.Args[0]
				}
			}
		}
	}
	require.True(t, sawNew)
	require.Equal(t, newResult.String(), ctorFirstArg.String(), "constructor's first argument must be the fresh instance")

	// DELETE: the destructor's argument must be the same cached temp that
	// fed the release check whose flag the destroy branch tests.
	var deleteBlk *il.Block
	for _, blk := range runFn.Blocks {
		if strings.HasPrefix(blk.Name, "delete_dtor") {
			deleteBlk = blk
		}
	}
	require.NotNil(t, deleteBlk, "DELETE must emit a destroy branch")

	var dtorArg string
	sawFree := false
	for _, ins := range deleteBlk.Instrs {
		if c, ok := ins.(*il.Call); ok {
			switch c.Callee {
			case mangle.Dtor("Point"):
				dtorArg = c.Args[0].String()
			case rtObjFree:
				sawFree = true
			}
		}
	}
	require.NotEmpty(t, dtorArg, "destroy branch must call the destructor")
	require.True(t, sawFree, "destroy branch must free the storage")

	var condTemp string
	for _, blk := range runFn.Blocks {
		if cbr, ok := blk.Term.(*il.CBr); ok && cbr.Then == deleteBlk {
			condTemp = cbr.Cond.String()
		}
	}
	require.NotEmpty(t, condTemp)

	matched := false
	for _, blk := range runFn.Blocks {
		for _, ins := range blk.Instrs {
			if c, ok := ins.(*il.CallRet); ok && c.Callee == rtObjReleaseCheck0 && c.Result.String() == condTemp {
				require.Equal(t, dtorArg, c.Args[0].String(), "DELETE must not re-evaluate its target")
				matched = true
			}
		}
	}
	require.True(t, matched, "the destroy branch's condition must come from the release check")
}

// A method returning an object must not release its own return value in the
// epilogue.
func TestObjectReturningMethodExcludedFromRelease(t *testing.T) {
	makeM := &ast.MethodDecl{
		Name:              "Make",
		ReturnType:        ast.KindObj,
		ReturnObjectClass: "Widget",
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.NewExpr{ClassName: "Widget"}},
		}},
	}
	factory := &ast.ClassDecl{Name: "Factory", Qualified: "Factory", Methods: []*ast.MethodDecl{makeM}}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "Factory", Qualified: "Factory"})
	idx.AddClass(&classindex.ClassRecord{Name: "Widget", Qualified: "Widget"})
	layouts := layout.NewCache()
	layouts.Put("Factory", layout.Build(1, nil))
	layouts.Put("Widget", layout.Build(2, nil))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{factory}}))

	makeFn := findFunction(t, d.Module(), mangle.Method("Factory", "Make"))
	require.Equal(t, il.Ptr, makeFn.ReturnType)
	require.Zero(t, countCalls(makeFn, rtObjReleaseCheck0), "the returned object must survive the epilogue")

	var ret *il.Ret
	for _, blk := range makeFn.Blocks {
		if r, ok := blk.Term.(*il.Ret); ok {
			ret = r
		}
	}
	require.NotNil(t, ret)
	require.Equal(t, il.Ptr, ret.Val.Type)
}

// Property accessors are synthesised as ordinary methods with the shared
// skeleton's calling shape.
func TestPropertyAccessorSynthesis(t *testing.T) {
	box := &ast.ClassDecl{
		Name: "Box", Qualified: "Box",
		Fields: []*ast.FieldDecl{{Name: "w", Type: ast.KindI64}},
		Properties: []*ast.PropertyDecl{{
			Name: "Width", Type: ast.KindI64,
			Getter: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Value: &ast.Ident{Name: "w"}},
			}},
			SetterParam: "value",
			Setter: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.AssignStmt{Target: &ast.Ident{Name: "w"}, Value: &ast.Ident{Name: "value"}},
			}},
		}},
	}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{
		Name: "Box", Qualified: "Box",
		Fields: []classindex.FieldDescriptor{{Name: "w", Type: ast.KindI64}},
	})
	layouts := layout.NewCache()
	layouts.Put("Box", layout.Build(3, box.Fields))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{box}}))

	getFn := findFunction(t, d.Module(), mangle.Getter("Box", "Width"))
	require.Equal(t, []il.Param{{Name: "ME", Type: il.Ptr}}, getFn.Params)
	require.Equal(t, il.I64, getFn.ReturnType)

	setFn := findFunction(t, d.Module(), mangle.Setter("Box", "Width"))
	require.Equal(t, []il.Param{{Name: "ME", Type: il.Ptr}, {Name: "value", Type: il.I64}}, setFn.Params)
	require.Equal(t, il.Void, setFn.ReturnType)

	// The setter must store through a GEP into the instance, not into a
	// local that shadows the field.
	sawFieldStore := false
	for _, blk := range setFn.Blocks {
		for _, ins := range blk.Instrs {
			if _, ok := ins.(*il.GEP); ok {
				sawFieldStore = true
			}
		}
	}
	require.True(t, sawFieldStore)
}

// Lowering the same program twice from fresh drivers yields byte-identical
// IL.
func TestLoweringIsIdempotent(t *testing.T) {
	lowerOnce := func() string {
		prog, idx, layouts := buildShapeHierarchy()
		d := New(idx, layouts, config.Default())
		require.NoError(t, d.LowerProgram(prog))
		return d.Module().PrettyPrint()
	}
	require.Equal(t, lowerOnce(), lowerOnce())
}

// NEW of a catalogued built-in routes straight to the runtime constructor
// when the bridge is enabled, and through the ordinary allocation path when
// it is not.
func TestRuntimeClassBridge(t *testing.T) {
	build := func(cfg config.Driver) *il.Function {
		run := &ast.MethodDecl{
			Name: "Run",
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.NewExpr{ClassName: "System.Text.StringBuilder"}},
			}},
		}
		host := &ast.ClassDecl{Name: "Host", Qualified: "Host", Methods: []*ast.MethodDecl{run}}
		idx := classindex.New()
		idx.AddClass(&classindex.ClassRecord{Name: "Host", Qualified: "Host"})
		layouts := layout.NewCache()
		layouts.Put("Host", layout.Build(1, nil))
		d := New(idx, layouts, cfg)
		require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{host}}))
		return findFunction(t, d.Module(), mangle.Method("Host", "Run"))
	}

	bridged := build(config.Default())
	require.Equal(t, 1, countCalls(bridged, "rt_strbuilder_new"))
	require.Zero(t, countCalls(bridged, rtObjNew))

	// The text builder's constructor yields a Str handle, not a generic
	// object pointer.
	for _, blk := range bridged.Blocks {
		for _, ins := range blk.Instrs {
			if c, ok := ins.(*il.CallRet); ok && c.Callee == "rt_strbuilder_new" {
				require.Equal(t, il.Str, c.Type)
				require.Equal(t, il.Str, c.Result.Type)
			}
		}
	}

	unbridged := build(config.Driver{RuntimeClassBridge: false})
	require.Zero(t, countCalls(unbridged, "rt_strbuilder_new"))
	require.Equal(t, 1, countCalls(unbridged, rtObjNew))
}

// The program entry calls __mod_init$oop before any user statement.
func TestMainEntryCallsModuleInitFirst(t *testing.T) {
	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "Point", Qualified: "Point"})
	layouts := layout.NewCache()
	layouts.Put("Point", layout.Build(1, nil))

	prog := &ast.Program{
		Classes: []*ast.ClassDecl{{Name: "Point", Qualified: "Point"}},
		Main: []ast.Stmt{
			&ast.AssignStmt{Target: &ast.Ident{Name: "p"}, Value: &ast.NewExpr{ClassName: "Point"}},
		},
	}

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(prog))

	mainFn := findFunction(t, d.Module(), "main")
	var calls []string
	for _, blk := range mainFn.Blocks {
		for _, ins := range blk.Instrs {
			switch c := ins.(type) {
			case *il.Call:
				calls = append(calls, c.Callee)
			case *il.CallRet:
				calls = append(calls, c.Callee)
			}
		}
	}
	require.NotEmpty(t, calls)
	require.Equal(t, mangle.ModuleInit, calls[0], "module init must run before any user code")
}

// Static constructors are called by the module initialiser in declaration
// order, and only for classes whose $static function was emitted.
func TestStaticCtorsCalledInDeclarationOrder(t *testing.T) {
	mkClass := func(name string) *ast.ClassDecl {
		return &ast.ClassDecl{
			Name: name, Qualified: name,
			HasStaticCtor: true,
			StaticCtor:    &ast.MethodDecl{Name: name + "$static", Body: &ast.BlockStmt{}},
		}
	}
	b := mkClass("B")
	a := mkClass("A")

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "B", Qualified: "B", HasStaticCtor: true})
	idx.AddClass(&classindex.ClassRecord{Name: "A", Qualified: "A", HasStaticCtor: true})
	layouts := layout.NewCache()
	layouts.Put("B", layout.Build(1, nil))
	layouts.Put("A", layout.Build(2, nil))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{b, a}}))

	modInit := findFunction(t, d.Module(), mangle.ModuleInit)
	var order []string
	for _, blk := range modInit.Blocks {
		for _, ins := range blk.Instrs {
			if c, ok := ins.(*il.Call); ok && strings.HasSuffix(c.Callee, "$static") {
				order = append(order, c.Callee)
			}
		}
	}
	require.Equal(t, []string{mangle.StaticCtor("B"), mangle.StaticCtor("A")}, order)
}

// ON ERROR GOTO pushes a cached per-line handler; returning drains the
// handler stack, and the handler block itself is sealed, never left open.
func TestOnErrorHandlerPushedDrainedAndSealed(t *testing.T) {
	run := &ast.MethodDecl{
		Name: "Run",
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.OnErrorGotoStmt{Line: 100},
		}},
	}
	cls := &ast.ClassDecl{Name: "Job", Qualified: "Job", Methods: []*ast.MethodDecl{run}}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "Job", Qualified: "Job"})
	layouts := layout.NewCache()
	layouts.Put("Job", layout.Build(1, nil))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{cls}}))

	runFn := findFunction(t, d.Module(), mangle.Method("Job", "Run"))

	var handler *il.Block
	pushes, pops := 0, 0
	for _, blk := range runFn.Blocks {
		if len(blk.Params) == 2 {
			handler = blk
		}
		for _, ins := range blk.Instrs {
			switch ins.(type) {
			case *il.EhPush:
				pushes++
			case *il.EhPop:
				pops++
			}
		}
	}
	require.NotNil(t, handler, "handler block must exist with (err, tok) params")
	require.True(t, handler.Terminated(), "handler block must be sealed")
	require.Equal(t, 1, pushes)
	require.Equal(t, 1, pops, "return must drain the pushed handler")
}

// A NEW whose result is discarded is a deferred temporary, released in the
// epilogue before locals.
func TestDiscardedNewReleasedInEpilogue(t *testing.T) {
	run := &ast.MethodDecl{
		Name: "Run",
		Body: &ast.BlockStmt{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.NewExpr{ClassName: "Scratch"}},
		}},
	}
	cls := &ast.ClassDecl{Name: "Job", Qualified: "Job", Methods: []*ast.MethodDecl{run}}

	idx := classindex.New()
	idx.AddClass(&classindex.ClassRecord{Name: "Job", Qualified: "Job"})
	idx.AddClass(&classindex.ClassRecord{Name: "Scratch", Qualified: "Scratch"})
	layouts := layout.NewCache()
	layouts.Put("Job", layout.Build(1, nil))
	layouts.Put("Scratch", layout.Build(2, nil))

	d := New(idx, layouts, config.Default())
	require.NoError(t, d.LowerProgram(&ast.Program{Classes: []*ast.ClassDecl{cls}}))

	runFn := findFunction(t, d.Module(), mangle.Method("Job", "Run"))
	require.Equal(t, 1, countCalls(runFn, rtObjReleaseCheck0), "the discarded instance must be released exactly once")
}

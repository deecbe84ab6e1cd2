// Package oop is the OOP lowering driver: the orchestrator that walks a
// parsed program's class declarations and object-oriented
// statements/expressions and emits IL for every constructor, destructor,
// method, property accessor, static constructor, interface thunk, and the
// module initialiser.
//
// It is the only component with write access to the il.Module being built;
// the class metadata index, layout cache, and name mangler it depends on
// are all read-only or pure.
package oop

import (
	"fmt"

	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/buildlog"
	"github.com/splanck/viper-sub011/internal/classindex"
	"github.com/splanck/viper-sub011/internal/config"
	"github.com/splanck/viper-sub011/internal/diag"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/runtimeabi"
	"github.com/splanck/viper-sub011/internal/symbols"
)

// RuntimeClassEntry describes one built-in class whose construction
// bypasses user-defined constructor lowering and calls straight into the
// runtime.
type RuntimeClassEntry struct {
	// CtorSymbol is the runtime function called in place of a mangled
	// user constructor.
	CtorSymbol string
	// ReturnType is Str for built-in string/text types, Ptr otherwise.
	ReturnType il.Type
}

// Driver is the OOP lowering driver. One Driver lowers exactly one program
// into one il.Module; construct a fresh Driver per program.
type Driver struct {
	idx     *classindex.Index
	layouts *layout.Cache
	cfg     config.Driver

	module *il.Module
	b      *il.Builder
	log    *buildlog.Logger

	// runtimeClasses is the built-in-class catalog consulted by NEW when
	// cfg.RuntimeClassBridge is set.
	runtimeClasses map[string]RuntimeClassEntry

	// moduleObjects is semantic analysis's module-level object cache: the
	// declared object class of each top-level (Main-scope) variable, used
	// as the second-tier fallback in resolveObjectClass.
	moduleObjects map[string]string

	// qualify maps an unqualified class name to its qualified form using
	// the namespace stack semantic analysis resolved. Nil means
	// names arrive already qualified.
	qualify func(name string) string

	// per-procedure state, reset by resetProcedure at the top of the
	// skeleton.
	syms   *symbols.Table
	fields symbols.FieldScope
	state  procState

	// curClass is the class the procedure currently being lowered belongs
	// to, set by pushClassScope and read by field resolution helpers. The
	// matching layout lives on the field-scope stack.
	curClass string

	// curReturnName/curExitBlock let lowerReturn (an early RETURN
	// statement) share the same epilogue release sequence as the
	// fallthrough path.
	curReturnName string
	curExitBlock  *il.Block

	// deferredTemps holds temporaries created mid-body that must be
	// released in the epilogue before ordinary locals.
	deferredTemps []pendingRelease

	// staticCtorEmitted is the aliases table: keyed by a class's lower-cased
	// qualified name, it records whether that class's static constructor
	// was actually emitted, so the module initialiser knows which classes
	// to call into.
	staticCtorEmitted map[string]bool
}

type pendingRelease struct {
	ptr     il.Value
	release string
}

// New creates a driver over idx/layouts with the given options. A fresh
// il.Module is allocated to receive the lowering.
func New(idx *classindex.Index, layouts *layout.Cache, cfg config.Driver) *Driver {
	d := &Driver{
		idx:               idx,
		layouts:           layouts,
		cfg:               cfg,
		module:            &il.Module{},
		runtimeClasses:    make(map[string]RuntimeClassEntry),
		moduleObjects:     make(map[string]string),
		staticCtorEmitted: make(map[string]bool),
	}
	d.b = il.NewBuilder(d.module)
	for qname, entry := range runtimeabi.Catalog {
		ret := il.Ptr
		if entry.ReturnsStr {
			ret = il.Str
		}
		d.RegisterRuntimeClass(qname, RuntimeClassEntry{CtorSymbol: entry.CtorSymbol, ReturnType: ret})
	}
	return d
}

// SetLogger installs the logger the driver reports per-class lowering
// progress and conservative-fallback warnings to. A driver with
// no logger installed discards these silently.
func (d *Driver) SetLogger(l *buildlog.Logger) { d.log = l }

// RegisterRuntimeClass adds name to the runtime-class bridge catalog.
// Call before LowerProgram.
func (d *Driver) RegisterRuntimeClass(qname string, entry RuntimeClassEntry) {
	d.runtimeClasses[canon(qname)] = entry
}

// RegisterModuleObject records the declared object class of a module-level
// variable, the second-tier fallback resolveObjectClass consults for bare
// identifiers with no procedure-local symbol. Call before
// LowerProgram.
func (d *Driver) RegisterModuleObject(name, classQname string) {
	d.moduleObjects[canon(name)] = classQname
}

// SetQualify installs semantic analysis's qualify function.
// Without one, class names in NEW expressions are taken as already
// qualified.
func (d *Driver) SetQualify(fn func(name string) string) { d.qualify = fn }

// qualifyName applies the installed qualify function, or returns name
// unchanged when none is installed.
func (d *Driver) qualifyName(name string) string {
	if d.qualify == nil {
		return name
	}
	return d.qualify(name)
}

// Module returns the il.Module being built. Safe to call at any point;
// lowering appends to it in place.
func (d *Driver) Module() *il.Module { return d.module }

// procState is the linear state machine each procedure's emission
// progresses through. States are asserted in order; a driver
// bug that skips a transition panics rather than silently emitting
// malformed IL.
type procState int

const (
	stateReset procState = iota
	stateParametersRegistered
	stateScopesPushed
	stateVariablesCollected
	stateFunctionStarted
	stateSkeletonBuilt
	stateParametersInitialised
	stateLocalsAllocated
	stateArrayFieldsInitialised
	stateBodyLowered
	stateAtExit
	stateEpilogueReleased
	stateReturned
	stateDone
)

// advance transitions the procedure state machine to next, panicking if
// next does not immediately follow the current state. Transitions are
// linear and must not be skipped; states without work for a given
// procedure kind (array-field init outside constructors) are advanced
// through with nothing emitted.
func (d *Driver) advance(next procState) {
	diag.Assertf(next == d.state+1, diag.CodeInvalidStateTransition,
		fmt.Sprintf("invalid procedure state transition %d -> %d", d.state, next))
	d.state = next
}

func canon(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// LowerProgram lowers every class in prog, then emits the module
// initialiser (with thunks for every interface in the metadata index), then,
// when prog has top-level statements, the main entry. It is the driver's
// single public entry point.
func (d *Driver) LowerProgram(prog *ast.Program) error {
	for _, cls := range prog.Classes {
		if err := d.lowerClass(cls); err != nil {
			return fmt.Errorf("lowering class %s: %w", cls.Qualified, err)
		}
	}
	if err := d.emitModuleInit(prog); err != nil {
		return fmt.Errorf("emitting module initialiser: %w", err)
	}
	if len(prog.Main) > 0 {
		if err := d.emitMain(prog); err != nil {
			return fmt.Errorf("emitting main entry: %w", err)
		}
	}
	return nil
}

// mainEntryName is the symbol the program's entry point is emitted under.
const mainEntryName = "main"

// emitMain lowers the program's top-level statements as the entry point.
// Its first call, emitted after the local slots are allocated and before any
// user statement, is to the module initialiser, satisfying the contract
// that __mod_init$oop runs before any user code.
func (d *Driver) emitMain(prog *ast.Program) error {
	spec := procSpec{
		Kind:       procMain,
		Mangled:    mainEntryName,
		ReturnType: ast.KindVoid,
		Body:       &ast.BlockStmt{Stmts: prog.Main},
	}
	_, err := d.lowerProcedure(spec)
	return err
}

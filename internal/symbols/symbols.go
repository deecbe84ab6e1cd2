// Package symbols is the per-procedure symbol table and field-scope stack
// the OOP lowering driver consults while lowering one constructor,
// destructor, method, property accessor, or static constructor body.
package symbols

import (
	"strings"

	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/il"
	"github.com/splanck/viper-sub011/internal/layout"
)

// SubKind distinguishes why a symbol entered the table.
type SubKind int

const (
	SubKindNone SubKind = iota
	SubKindParameter
	SubKindLocal
	SubKindReceiver
)

// Symbol is one procedure-local name's resolved storage and type facts.
type Symbol struct {
	Name        string
	Slot        il.Value // zero value until slot allocation runs
	HasSlot     bool
	Type        ast.Kind
	Referenced  bool
	IsArray     bool
	IsObject    bool
	ObjectClass string
	SubKind     SubKind
	// Owning is set on parameters explicitly flagged as taking ownership.
	// Locals are released at scope exit without consulting it.
	Owning bool
}

// Table is the per-procedure symbol table. It is reset (via New) before
// each procedure is lowered and discarded once that procedure's emission
// ends — it never outlives one skeleton pass.
type Table struct {
	byName map[string]*Symbol
	order  []string // declaration order, for deterministic local allocation
}

// New creates an empty table, ready for one procedure's lowering pass.
func New() *Table {
	return &Table{byName: make(map[string]*Symbol)}
}

// Declare registers name on first occurrence and returns its Symbol
// (creating it with zero facts if new). Re-declaring an existing name
// returns the existing entry unchanged, matching the "created when a name
// first appears" lifecycle.
func (t *Table) Declare(name string) *Symbol {
	key := canon(name)
	if s, ok := t.byName[key]; ok {
		return s
	}
	s := &Symbol{Name: name}
	t.byName[key] = s
	t.order = append(t.order, name)
	return s
}

// Lookup finds an existing symbol by name (case-insensitive), or nil.
func (t *Table) Lookup(name string) *Symbol { return t.byName[canon(name)] }

// MarkReferenced flags name as referenced, declaring it if necessary.
func (t *Table) MarkReferenced(name string) *Symbol {
	s := t.Declare(name)
	s.Referenced = true
	return s
}

// Names returns all declared symbol names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Symbols returns all declared symbols in declaration order.
func (t *Table) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.byName[canon(n)])
	}
	return out
}

// FieldScopeEntry is one stack frame of the field-scope stack: the
// enclosing class and its layout, used to resolve unqualified identifiers
// inside method bodies as field accesses.
type FieldScopeEntry struct {
	Class  string
	Layout *layout.Layout
}

// FieldScope is a stack of enclosing-class scopes. The driver pushes one
// entry per method/constructor/destructor/accessor before collecting
// variables, and pops it once that procedure is fully lowered.
type FieldScope struct {
	stack []FieldScopeEntry
}

// Push enters a new class scope.
func (fs *FieldScope) Push(class string, lay *layout.Layout) {
	fs.stack = append(fs.stack, FieldScopeEntry{Class: class, Layout: lay})
}

// Pop leaves the innermost class scope.
func (fs *FieldScope) Pop() {
	if len(fs.stack) > 0 {
		fs.stack = fs.stack[:len(fs.stack)-1]
	}
}

// Current returns the innermost scope, or the zero entry when empty.
func (fs *FieldScope) Current() (FieldScopeEntry, bool) {
	if len(fs.stack) == 0 {
		return FieldScopeEntry{}, false
	}
	return fs.stack[len(fs.stack)-1], true
}

// ResolveField looks up name as a field of the innermost scope, or nil.
func (fs *FieldScope) ResolveField(name string) (*layout.Field, string) {
	cur, ok := fs.Current()
	if !ok || cur.Layout == nil {
		return nil, ""
	}
	f := cur.Layout.FindField(name)
	if f == nil {
		return nil, ""
	}
	return f, cur.Class
}

func canon(s string) string { return strings.ToLower(s) }

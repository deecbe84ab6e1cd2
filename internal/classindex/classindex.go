// Package classindex is the authoritative, read-mostly store of class and
// interface facts (component A). It is populated by semantic analysis and
// consumed read-only by the OOP lowering driver.
package classindex

import (
	"strings"

	"github.com/splanck/viper-sub011/internal/ast"
)

// MethodDescriptor is the per-method fact set semantic analysis records.
type MethodDescriptor struct {
	Name               string
	Params             []*ast.ParamDecl
	ReturnType         ast.Kind
	ReturnObjectClass  string
	IsStatic           bool
	IsVirtual          bool
	IsAbstract         bool
	IsFinal            bool
	// Slot is >=0 for virtual methods (the slot it occupies in the
	// most-derived ancestor that first introduced it), -1 otherwise.
	Slot               int
	IsPropertyAccessor bool
	IsGetter           bool
}

// FieldDescriptor is the per-field fact set semantic analysis records.
type FieldDescriptor struct {
	Name        string
	Type        ast.Kind
	ObjectClass string
	IsArray     bool
	Extents     []int64
}

// ClassRecord is the per-class fact set semantic analysis records.
type ClassRecord struct {
	Name          string // unqualified
	Qualified     string
	BaseQualified string // empty when no base

	Abstract      bool
	Final         bool
	HasCtor       bool
	HasSynthCtor  bool
	HasDtor       bool
	HasStaticCtor bool

	Fields       []FieldDescriptor
	StaticFields []FieldDescriptor

	// Methods is keyed case-insensitively by method name.
	Methods map[string]*MethodDescriptor

	// VTablePlan lists virtual method names in declaration order by slot;
	// VTablePlan[i] is the method introduced at slot i by this class (or
	// empty if slot i was introduced by an ancestor and not overridden
	// here — lookups still resolve through findMethodInHierarchy).
	VTablePlan []string

	// Interfaces lists qualified interface names this class implements.
	Interfaces []string

	// ITablePlan maps interface qualified name to the ordered list of
	// implementing method names per slot (empty string = abstract/missing).
	ITablePlan map[string][]string
}

func canon(name string) string { return strings.ToLower(name) }

// InterfaceRecord is the per-interface fact set semantic analysis records.
type InterfaceRecord struct {
	ID        int
	Qualified string
	Slots     []ast.InterfaceMethodSig
}

// Index is the class metadata index. Create one with New: the zero value's
// maps are nil, so AddClass and AddInterface on it panic.
type Index struct {
	classes     map[string]*ClassRecord // canon(qualified) -> record
	interfaces  map[string]*InterfaceRecord
	nextIfaceID int
}

// New creates an empty index.
func New() *Index {
	return &Index{
		classes:    make(map[string]*ClassRecord),
		interfaces: make(map[string]*InterfaceRecord),
	}
}

// AddClass registers a class record, keyed case-insensitively by its
// qualified name. A later call with the same qualified name overwrites the
// earlier one (semantic analysis is expected to call this exactly once per
// class).
func (idx *Index) AddClass(rec *ClassRecord) {
	if rec.Methods == nil {
		rec.Methods = make(map[string]*MethodDescriptor)
	}
	if rec.ITablePlan == nil {
		rec.ITablePlan = make(map[string][]string)
	}
	idx.classes[canon(rec.Qualified)] = rec
}

// AddInterface registers an interface record under its qualified name.
func (idx *Index) AddInterface(rec *InterfaceRecord) {
	idx.interfaces[canon(rec.Qualified)] = rec
}

// Interfaces returns all registered interfaces. Order is unspecified; callers
// that need a deterministic order (the module initialiser) sort by ID.
func (idx *Index) Interfaces() []*InterfaceRecord {
	out := make([]*InterfaceRecord, 0, len(idx.interfaces))
	for _, v := range idx.interfaces {
		out = append(out, v)
	}
	return out
}

// Classes returns all registered classes. Order is unspecified; callers that
// need declaration order should retain their own slice from semantic
// analysis and use FindClass for lookups.
func (idx *Index) Classes() []*ClassRecord {
	out := make([]*ClassRecord, 0, len(idx.classes))
	for _, v := range idx.classes {
		out = append(out, v)
	}
	return out
}

// FindClass performs a case-insensitive lookup by qualified name.
func (idx *Index) FindClass(qname string) *ClassRecord {
	return idx.classes[canon(qname)]
}

// FindInterface performs a case-insensitive lookup by qualified name.
func (idx *Index) FindInterface(qname string) *InterfaceRecord {
	return idx.interfaces[canon(qname)]
}

// FindInterfaceByID finds the interface with the given stable ID, or nil.
func (idx *Index) FindInterfaceByID(id int) *InterfaceRecord {
	for _, v := range idx.interfaces {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// FindField finds a field declared directly on qname (not its ancestors).
func (idx *Index) FindField(qname, name string) *FieldDescriptor {
	c := idx.FindClass(qname)
	if c == nil {
		return nil
	}
	lname := canon(name)
	for i := range c.Fields {
		if canon(c.Fields[i].Name) == lname {
			return &c.Fields[i]
		}
	}
	for i := range c.StaticFields {
		if canon(c.StaticFields[i].Name) == lname {
			return &c.StaticFields[i]
		}
	}
	return nil
}

// maxHierarchyDepth bounds base-chain walks defensively: semantic
// analysis is expected to reject real inheritance cycles, but a malformed
// index must not hang the lowerer.
const maxHierarchyDepth = 1024

// FindFieldInHierarchy walks the base chain starting at qname until the
// field is found or the chain is exhausted.
func (idx *Index) FindFieldInHierarchy(qname, name string) *FieldDescriptor {
	cur := qname
	visited := make(map[string]bool, 8)
	for i := 0; i < maxHierarchyDepth && cur != ""; i++ {
		if visited[canon(cur)] {
			return nil
		}
		visited[canon(cur)] = true
		if f := idx.FindField(cur, name); f != nil {
			return f
		}
		c := idx.FindClass(cur)
		if c == nil {
			return nil
		}
		cur = c.BaseQualified
	}
	return nil
}

// FindMethod finds a method declared directly on qname (not its ancestors).
func (idx *Index) FindMethod(qname, name string) *MethodDescriptor {
	c := idx.FindClass(qname)
	if c == nil {
		return nil
	}
	return c.Methods[canon(name)]
}

// FindMethodInHierarchy walks the base chain starting at qname until the
// method is found or the chain is exhausted.
func (idx *Index) FindMethodInHierarchy(qname, name string) *MethodDescriptor {
	cur := qname
	visited := make(map[string]bool, 8)
	for i := 0; i < maxHierarchyDepth && cur != ""; i++ {
		if visited[canon(cur)] {
			return nil
		}
		visited[canon(cur)] = true
		c := idx.FindClass(cur)
		if c == nil {
			return nil
		}
		if m, ok := c.Methods[canon(name)]; ok {
			return m
		}
		cur = c.BaseQualified
	}
	return nil
}

// AllocateInterfaceId returns the next monotonic, session-stable interface
// identifier.
func (idx *Index) AllocateInterfaceId() int {
	id := idx.nextIfaceID
	idx.nextIfaceID++
	return id
}

// VirtualSlotOf returns the virtual slot of methodName, resolving the method
// through FindMethodInHierarchy (qname first, then its ancestors). It
// returns -1 when the method is not found or is not virtual.
func (idx *Index) VirtualSlotOf(qname, methodName string) int {
	m := idx.FindMethodInHierarchy(qname, methodName)
	if m == nil || !m.IsVirtual {
		return -1
	}
	return m.Slot
}

// ImplementingClass walks the base chain from qname toward the root and
// returns the nearest class whose own method record for methodName is
// present and non-abstract. Falls back to qname itself when no concrete
// implementation is found anywhere in the chain.
func (idx *Index) ImplementingClass(qname, methodName string) string {
	cur := qname
	visited := make(map[string]bool, 8)
	for i := 0; i < maxHierarchyDepth && cur != ""; i++ {
		if visited[canon(cur)] {
			break
		}
		visited[canon(cur)] = true
		c := idx.FindClass(cur)
		if c == nil {
			break
		}
		if m, ok := c.Methods[canon(methodName)]; ok && !m.IsAbstract {
			return c.Qualified
		}
		cur = c.BaseQualified
	}
	return qname
}

// Package layout is the per-class byte-offset map (component B): instance
// size, stable class id, and field offsets. Semantic analysis produces one
// Layout per class; the driver consumes it read-only when generating GEPs
// for field access, NEW allocations, and destructor field-release
// sequences.
package layout

import (
	"strings"

	"github.com/splanck/viper-sub011/internal/ast"
)

// headerBytes is the size of the vptr every instance carries at offset 0.
const headerBytes = 8

// boolFieldBytes / wideFieldBytes are the only two field sizes the layout
// algorithm produces: Bool packs into a single byte, everything
// else (I64, F64, Str, Obj, Array handles) is pointer/word sized.
const (
	boolFieldBytes = 1
	wideFieldBytes = 8
)

// Field is one instance field's resolved storage location.
type Field struct {
	Name        string
	Type        ast.Kind
	ObjectClass string
	IsArray     bool
	Offset      int
}

// Layout is the resolved, read-only shape of one class's instances.
type Layout struct {
	ClassID int64
	Size    int
	Fields  []Field
}

// FindField returns the field named name, or nil. Lookup is
// case-insensitive; the declared casing is preserved on the returned
// field.
func (l *Layout) FindField(name string) *Field {
	for i := range l.Fields {
		if strings.EqualFold(l.Fields[i].Name, name) {
			return &l.Fields[i]
		}
	}
	return nil
}

// fieldSize returns the storage size in bytes for a field descriptor,
// applying the Bool=1/else=8 sizing rule.
func fieldSize(f *ast.FieldDecl) int {
	if !f.IsArray && f.Type == ast.KindBool {
		return boolFieldBytes
	}
	return wideFieldBytes
}

// Build computes a class layout from its ordered instance fields,
// assigning byte offsets starting at headerBytes (post-vptr), and enforcing
// the minimum-size rule size = max(8, header + sum(fieldSize)).
func Build(classID int64, fields []*ast.FieldDecl) *Layout {
	out := &Layout{ClassID: classID}
	offset := headerBytes
	for _, f := range fields {
		sz := fieldSize(f)
		out.Fields = append(out.Fields, Field{
			Name:        f.Name,
			Type:        f.Type,
			ObjectClass: f.ObjectClass,
			IsArray:     f.IsArray,
			Offset:      offset,
		})
		offset += sz
	}
	if offset < headerBytes {
		offset = headerBytes
	}
	out.Size = offset
	return out
}

// Cache is a byte-offset map keyed by unqualified class name, as produced by
// semantic analysis and consumed read-only thereafter.
type Cache struct {
	byName map[string]*Layout
}

// NewCache creates an empty layout cache.
func NewCache() *Cache {
	return &Cache{byName: make(map[string]*Layout)}
}

// Put records the layout for a class.
func (c *Cache) Put(className string, l *Layout) {
	c.byName[className] = l
}

// Lookup returns (size, classId) for className, defaulting to (8, 0) when
// absent — this permits lowering of forward references while semantic
// analysis reports the underlying diagnostic elsewhere.
func (c *Cache) Lookup(className string) (size int, classID int64) {
	l, ok := c.byName[className]
	if !ok {
		return 8, 0
	}
	return l.Size, l.ClassID
}

// Get returns the full layout for className, or nil if absent.
func (c *Cache) Get(className string) *Layout {
	return c.byName[className]
}

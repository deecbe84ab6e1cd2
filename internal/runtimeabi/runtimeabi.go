// Package runtimeabi names the fixed contract between the OOP lowering
// driver and the runtime support library: every symbol the
// driver ever calls into without having mangled it itself lives here as a
// named constant, plus the built-in runtime-class catalog.
package runtimeabi

// Object lifecycle.
const (
	ObjNewI64        = "rt_obj_new_i64"
	ObjReleaseCheck0 = "rt_obj_release_check0"
	ObjFree          = "rt_obj_free"
	GetClassVtable   = "rt_get_class_vtable"
)

// Class and interface registration.
const (
	RegisterClassWithBase = "rt_register_class_with_base_rs"
	RegisterInterface     = "rt_register_interface_direct"
	BindInterface         = "rt_bind_interface"
	Alloc                 = "rt_alloc"
)

// Array allocation.
const (
	ArrI64New = "rt_arr_i64_new"
	ArrStrNew = "rt_arr_str_alloc"
	ArrObjNew = "rt_arr_obj_new"
)

// Array retain/release, keyed by element kind.
const (
	ArrI64Retain  = "rt_arr_i64_retain"
	ArrI64Release = "rt_arr_i64_release"
	ArrStrRetain  = "rt_arr_str_retain"
	ArrStrRelease = "rt_arr_str_release"
	ArrObjRetain  = "rt_arr_obj_retain"
	ArrObjRelease = "rt_arr_obj_release"
)

// StrReleaseMaybe releases a string handle only if it is refcounted (as
// opposed to an interned/static string).
const StrReleaseMaybe = "rt_str_release_maybe"

// CatalogEntry describes one built-in class whose construction bypasses
// synthesised user-class IL and calls straight into the runtime.
type CatalogEntry struct {
	// CtorSymbol is the runtime function called in place of a mangled
	// user constructor.
	CtorSymbol string
	// ReturnsStr is true when the constructor yields a Str-typed handle
	// rather than a generic Ptr (e.g. a text builder).
	ReturnsStr bool
}

// Catalog maps a qualified built-in class name to its native constructor
// descriptor. Seeded with the runtime's text builder. Each driver copies it
// at construction; hosts add entries to one driver through its
// RegisterRuntimeClass hook, which leaves this map unchanged.
var Catalog = map[string]CatalogEntry{
	"system.text.stringbuilder": {CtorSymbol: "rt_strbuilder_new", ReturnsStr: true},
}

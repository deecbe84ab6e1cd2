// Package mangle is the deterministic symbol namer. Every function here
// is pure: identical inputs produce
// byte-identical outputs across runs, which is what lets the module
// initialiser and every call site agree on a symbol without consulting a
// shared table.
package mangle

import "fmt"

// Ctor names a class's constructor.
func Ctor(qname string) string { return qname + ".__ctor" }

// StaticCtor names a class's static constructor.
func StaticCtor(qname string) string { return qname + ".__ctor$static" }

// Dtor names a class's destructor.
func Dtor(qname string) string { return qname + ".__dtor" }

// Method names an instance or static method.
func Method(qname, methodName string) string { return qname + "." + methodName }

// Getter names a property's synthesised getter.
func Getter(qname, propName string) string { return qname + ".get_" + propName }

// Setter names a property's synthesised setter.
func Setter(qname, propName string) string { return qname + ".set_" + propName }

// InterfaceRegisterThunk names the function that registers one interface
// with the runtime.
func InterfaceRegisterThunk(ifaceQname string) string { return "__iface_reg$" + ifaceQname }

// InterfaceBindThunk names the function that binds one (class, interface)
// pair's itable with the runtime.
func InterfaceBindThunk(classQname, ifaceQname string) string {
	return fmt.Sprintf("__iface_bind$%s$%s", classQname, ifaceQname)
}

// ModuleInit names the synthesised module initialiser.
const ModuleInit = "__mod_init$oop"

// StaticField names the module-scope global backing a static field.
func StaticField(qname, fieldName string) string { return qname + "::" + fieldName }

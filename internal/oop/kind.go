package oop

import (
	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/il"
)

// ilType maps a semantic type tag to its IL storage type. Object and array
// handles are both opaque pointers at this level; the element/class
// distinction only matters for choosing which runtime retain/release
// helper applies.
func ilType(k ast.Kind) il.Type {
	switch k {
	case ast.KindI64:
		return il.I64
	case ast.KindF64:
		return il.F64
	case ast.KindBool:
		return il.I1
	case ast.KindStr:
		return il.Str
	case ast.KindObj, ast.KindArray:
		return il.Ptr
	default:
		return il.Void
	}
}

// slotBytes returns the frame-slot size for a field/parameter/local of the
// given kind: Bool packs into one byte, everything else is pointer/word
// sized.
func slotBytes(k ast.Kind) int {
	if k == ast.KindBool {
		return 1
	}
	return 8
}

// arrayRetainRelease returns the element-kind-appropriate retain/release
// helper pair for an array field or parameter.
func arrayRetainRelease(elemKind ast.Kind) (retain, release string) {
	switch elemKind {
	case ast.KindStr:
		return rtArrStrRetain, rtArrStrRelease
	case ast.KindObj:
		return rtArrObjRetain, rtArrObjRelease
	default:
		return rtArrI64Retain, rtArrI64Release
	}
}

// arrayAllocHelper returns the element-kind-appropriate allocation helper
// for a fixed-extent array field initialised in a constructor.
func arrayAllocHelper(elemKind ast.Kind) string {
	switch elemKind {
	case ast.KindStr:
		return rtArrStrNew
	case ast.KindObj:
		return rtArrObjNew
	default:
		return rtArrI64New
	}
}

// arrayLen multiplies out a field's declared extents into an element count
// (BASIC DIM a(7) means 8 elements per extent).
func arrayLen(extents []int64) int64 {
	n := int64(1)
	for _, e := range extents {
		n *= e + 1
	}
	return n
}

package oop

import "github.com/splanck/viper-sub011/internal/runtimeabi"

// These are local aliases onto internal/runtimeabi's named constants:
// every call site in this package spells a short, unexported name, but the
// string literals themselves live in exactly one place.
const (
	rtObjNew           = runtimeabi.ObjNewI64
	rtObjReleaseCheck0 = runtimeabi.ObjReleaseCheck0
	rtObjFree          = runtimeabi.ObjFree
	rtGetClassVtable   = runtimeabi.GetClassVtable
	rtRegisterClass    = runtimeabi.RegisterClassWithBase
	rtRegisterIface    = runtimeabi.RegisterInterface
	rtBindInterface    = runtimeabi.BindInterface
	rtAlloc            = runtimeabi.Alloc

	rtArrI64New = runtimeabi.ArrI64New
	rtArrStrNew = runtimeabi.ArrStrNew
	rtArrObjNew = runtimeabi.ArrObjNew

	rtArrI64Retain  = runtimeabi.ArrI64Retain
	rtArrI64Release = runtimeabi.ArrI64Release
	rtArrStrRetain  = runtimeabi.ArrStrRetain
	rtArrStrRelease = runtimeabi.ArrStrRelease
	rtArrObjRetain  = runtimeabi.ArrObjRetain
	rtArrObjRelease = runtimeabi.ArrObjRelease

	rtStrReleaseMaybe = runtimeabi.StrReleaseMaybe
)

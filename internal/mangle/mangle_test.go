package mangle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub011/internal/mangle"
)

func TestSchemesAreStable(t *testing.T) {
	require.Equal(t, "A.B.Person.__ctor", mangle.Ctor("A.B.Person"))
	require.Equal(t, "A.B.Person.__ctor$static", mangle.StaticCtor("A.B.Person"))
	require.Equal(t, "A.B.Person.__dtor", mangle.Dtor("A.B.Person"))
	require.Equal(t, "A.B.Person.Speak", mangle.Method("A.B.Person", "Speak"))
	require.Equal(t, "A.B.Person.get_Width", mangle.Getter("A.B.Person", "Width"))
	require.Equal(t, "A.B.Person.set_Width", mangle.Setter("A.B.Person", "Width"))
	require.Equal(t, "__iface_reg$Printable", mangle.InterfaceRegisterThunk("Printable"))
	require.Equal(t, "__iface_bind$Receipt$Printable", mangle.InterfaceBindThunk("Receipt", "Printable"))
	require.Equal(t, "__mod_init$oop", mangle.ModuleInit)
	require.Equal(t, "A.B.Person::count", mangle.StaticField("A.B.Person", "count"))
}

func TestDeterministicAcrossCalls(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.Equal(t, mangle.Ctor("Foo"), mangle.Ctor("Foo"))
	}
}

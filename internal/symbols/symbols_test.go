package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub011/internal/ast"
	"github.com/splanck/viper-sub011/internal/layout"
	"github.com/splanck/viper-sub011/internal/symbols"
)

func TestDeclareIsCaseInsensitiveAndIdempotent(t *testing.T) {
	tbl := symbols.New()
	s1 := tbl.Declare("Count")
	s2 := tbl.Declare("count")
	require.Same(t, s1, s2)
	require.Equal(t, []string{"Count"}, tbl.Names())
}

func TestMarkReferenced(t *testing.T) {
	tbl := symbols.New()
	s := tbl.MarkReferenced("x")
	require.True(t, s.Referenced)
	require.True(t, tbl.Lookup("X").Referenced)
}

func TestFieldScopeResolvesInnermost(t *testing.T) {
	lay := &layout.Layout{Fields: []layout.Field{{Name: "w", Type: ast.KindI64, Offset: 8}}}
	var fs symbols.FieldScope
	fs.Push("Box", lay)

	f, cls := fs.ResolveField("w")
	require.NotNil(t, f)
	require.Equal(t, "Box", cls)

	fs.Pop()
	f, _ = fs.ResolveField("w")
	require.Nil(t, f)
}

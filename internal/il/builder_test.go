package il_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub011/internal/il"
)

func TestBuilderEmitsTerminatedBlocks(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("Foo.__ctor", []il.Param{{Name: "ME", Type: il.Ptr}}, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	slot := b.Alloca(8)
	b.Store(il.Ptr, slot, il.NullValue(il.Ptr))
	b.RetVoid()

	require.True(t, entry.Terminated())
	require.Len(t, entry.Instrs, 2)
}

func TestBrToCurrentBlockIsNoOp(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	b.Br(entry)
	require.False(t, entry.Terminated(), "branch to the current block must not terminate it")
}

func TestEmittingIntoTerminatedBlockPanics(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)
	b.RetVoid()

	require.Panics(t, func() { b.Alloca(8) })
}

func TestRetDrainsPushedHandlers(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	handler := b.EnsureErrorHandlerBlock(10)
	b.EhPush(handler)
	b.RetVoid()

	// The last instruction before the terminator must be the drained EhPop
	// (ehDepth reaches zero).
	require.IsType(t, &il.EhPop{}, entry.Instrs[len(entry.Instrs)-1])
}

func TestEnsureErrorHandlerBlockCaches(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	h1 := b.EnsureErrorHandlerBlock(42)
	h2 := b.EnsureErrorHandlerBlock(42)
	require.Same(t, h1, h2)
	require.Len(t, h1.Params, 2)
}

func TestEmitBoolFromBranches(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	cond := il.ConstBool(true)
	result := b.EmitBoolFromBranches(cond,
		func(slot il.Value) { b.Store(il.I1, slot, il.ConstBool(true)) },
		func(slot il.Value) { b.Store(il.I1, slot, il.ConstBool(false)) },
	)
	require.Equal(t, il.I1, result.Type)
}

func TestArrayStoreRetainsThenReleases(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	slot := b.Alloca(8)
	b.ArrayStore(slot, il.NullValue(il.Ptr), "rt_arr_i64_retain", "rt_arr_i64_release")

	var sawRetain, sawRelease bool
	for _, instr := range entry.Instrs {
		if c, ok := instr.(*il.Call); ok {
			switch c.Callee {
			case "rt_arr_i64_retain":
				sawRetain = true
				require.False(t, sawRelease, "retain must precede release")
			case "rt_arr_i64_release":
				sawRelease = true
			}
		}
	}
	require.True(t, sawRetain)
	require.True(t, sawRelease)
}

func TestBasicMaskZeroExtendsAndNegates(t *testing.T) {
	m := &il.Module{}
	fn := m.NewFunction("f", nil, il.Void)
	entry := fn.AddBlock("entry")
	b := il.NewBuilder(m)
	b.SetFunction(fn, entry)

	mask := b.BasicMask(il.ConstBool(true))
	require.Equal(t, il.I64, mask.Type)
	require.Len(t, entry.Instrs, 2)

	ext, ok := entry.Instrs[0].(*il.Unary)
	require.True(t, ok)
	require.Equal(t, "zext", ext.Op)

	sub, ok := entry.Instrs[1].(*il.Binary)
	require.True(t, ok)
	require.Equal(t, "sub", sub.Op)
	require.Equal(t, il.ConstInt(il.I64, 0).String(), sub.LHS.String())
}

func TestPrettyPrintIsDeterministic(t *testing.T) {
	build := func() *il.Module {
		m := &il.Module{}
		fn := m.NewFunction("Foo.__dtor", []il.Param{{Name: "ME", Type: il.Ptr}}, il.Void)
		entry := fn.AddBlock("entry")
		b := il.NewBuilder(m)
		b.SetFunction(fn, entry)
		b.RetVoid()
		return m
	}
	require.Equal(t, build().PrettyPrint(), build().PrettyPrint())
}

package ember

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFunction(ret Type, params ...*FuncParam) (*Module, *Function, *FuncBuilder) {
	mod := NewModule("testing")
	fn := mod.NewFunction("f", ret, params...)
	fn.Defined = true

	return mod, fn, NewFuncBuilder(fn)
}

func TestVerify(t *testing.T) {
	mod, fn, b := newTestFunction(Long, &FuncParam{Name: "a", Type: Int})

	slot := b.Alloca(Int)
	b.Store(b.Param(0), slot)
	x := b.Load(slot)
	wide := b.Convert(CastSExt, x, Long)
	sum := b.Arith(OpAdd, wide, &IntConst{Typ: Long, Value: 1})
	buf := b.Call(mod.NewFunction("malloc", PointerTo(Void), &FuncParam{Name: "size", Type: Long}), sum)
	p := b.Convert(CastBitcast, buf, PointerTo(Long))
	q := b.Offset(p, &IntConst{Typ: Long, Value: 2})
	b.Store(sum, q)
	b.Ret(b.Load(q))

	assert.NoError(t, Verify(mod, fn))
}

func TestVerifyErrors(t *testing.T) {
	cases := []struct {
		name   string
		build  func(mod *Module, b *FuncBuilder)
		expect string
	}{
		{
			"empty",
			func(*Module, *FuncBuilder) {},
			"empty body",
		},
		{
			"no terminator",
			func(_ *Module, b *FuncBuilder) {
				b.Alloca(Int)
			},
			"body does not end in a terminator",
		},
		{
			"early terminator",
			func(_ *Module, b *FuncBuilder) {
				b.Ret(&IntConst{Typ: Int})
				b.Ret(&IntConst{Typ: Int})
			},
			"terminator \"ret int 0\" before the end of the body",
		},
		{
			"undefined temp",
			func(_ *Module, b *FuncBuilder) {
				b.Ret(&Temp{ID: 7, Typ: Int})
			},
			"int %t7 used before it is defined",
		},
		{
			"unallocated slot",
			func(_ *Module, b *FuncBuilder) {
				b.Store(&IntConst{Typ: Int}, &Slot{ID: 3, Elem: Int})
				b.Ret(&IntConst{Typ: Int})
			},
			"int* %s3 used before it is allocated",
		},
		{
			"store mismatch",
			func(_ *Module, b *FuncBuilder) {
				b.Store(&IntConst{Typ: Long}, b.Alloca(Int))
				b.Ret(&IntConst{Typ: Int})
			},
			"store of long into int*",
		},
		{
			"arith mismatch",
			func(_ *Module, b *FuncBuilder) {
				b.Ret(b.Arith(OpAdd, &IntConst{Typ: Int}, &IntConst{Typ: Long}))
			},
			"add of int and long yielding int",
		},
		{
			"wrong cast",
			func(_ *Module, b *FuncBuilder) {
				b.Convert(CastZExt, &IntConst{Typ: Char}, Int)
				b.Ret(&IntConst{Typ: Int})
			},
			"zext from char to int",
		},
		{
			"offset scale",
			func(_ *Module, b *FuncBuilder) {
				b.fn.Body = append(b.fn.Body, &Offset{
					Result: &Temp{ID: 1, Typ: PointerTo(Int)},
					Base:   &NullConst{Typ: PointerTo(Int)},
					Index:  &IntConst{Typ: Long},
					Scale:  8,
				})
				b.Ret(&IntConst{Typ: Int})
			},
			"offset of int* scaled by 8",
		},
		{
			"offset index",
			func(_ *Module, b *FuncBuilder) {
				b.Offset(&NullConst{Typ: PointerTo(Int)}, &IntConst{Typ: Int})
				b.Ret(&IntConst{Typ: Int})
			},
			"offset of int* by int",
		},
		{
			"unknown callee",
			func(_ *Module, b *FuncBuilder) {
				b.Call(&Function{Name: "ghost", Return: Int})
				b.Ret(&IntConst{Typ: Int})
			},
			"call to unknown function ghost",
		},
		{
			"argument type",
			func(mod *Module, b *FuncBuilder) {
				g := mod.NewFunction("g", Void, &FuncParam{Name: "x", Type: Long})
				b.Call(g, &IntConst{Typ: Int})
				b.Ret(&IntConst{Typ: Int})
			},
			"argument 0 of g is int, want long",
		},
		{
			"return type",
			func(_ *Module, b *FuncBuilder) {
				b.Ret(&FloatConst{Typ: Double})
			},
			"ret double in function returning int",
		},
		{
			"missing return value",
			func(_ *Module, b *FuncBuilder) {
				b.Ret(nil)
			},
			"ret void in function returning int",
		},
	}

	for _, c := range cases {
		mod, fn, b := newTestFunction(Int)
		c.build(mod, b)

		err := Verify(mod, fn)

		var internal *InternalError
		require.True(t, errors.As(err, &internal), c.name)
		assert.Equal(t, "in f: "+c.expect, internal.Msg, c.name)
	}
}

func TestVerifyDeclaration(t *testing.T) {
	mod := NewModule("testing")
	fn := mod.NewFunction("f", Void)

	assert.EqualError(t, Verify(mod, fn), "0:0: internal compiler error: in f: function has no body")
}

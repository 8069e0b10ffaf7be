package ember

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindQuad
	KindPointer

	// KindArray only appears as the storage type of string literals.
	KindArray
)

var kindNames = map[Kind]string{
	KindVoid:   "void",
	KindBool:   "bool",
	KindChar:   "char",
	KindShort:  "short",
	KindInt:    "int",
	KindLong:   "long",
	KindFloat:  "float",
	KindDouble: "double",
	KindQuad:   "quad",
}

// Type is a primitive type, a pointer to another type, or a fixed length
// array. Types are values and compare structurally with Equals.
type Type struct {
	Kind Kind
	Elem *Type
	Len  int
}

var (
	Void   = Type{Kind: KindVoid}
	Bool   = Type{Kind: KindBool}
	Char   = Type{Kind: KindChar}
	Short  = Type{Kind: KindShort}
	Int    = Type{Kind: KindInt}
	Long   = Type{Kind: KindLong}
	Float  = Type{Kind: KindFloat}
	Double = Type{Kind: KindDouble}
	Quad   = Type{Kind: KindQuad}
)

func PointerTo(elem Type) Type {
	return Type{Kind: KindPointer, Elem: &elem}
}

func ArrayOf(elem Type, n int) Type {
	return Type{Kind: KindArray, Elem: &elem, Len: n}
}

// LookupType resolves a type name and pointer depth as written in source.
func LookupType(name string, pointers int) (Type, bool) {
	var t Type
	found := false
	for kind, kindName := range kindNames {
		if kindName == name {
			t, found = Type{Kind: kind}, true
			break
		}
	}

	if !found {
		return Type{}, false
	}

	for i := 0; i < pointers; i++ {
		t = PointerTo(t)
	}

	return t, true
}

func (t Type) String() string {
	switch t.Kind {
	case KindPointer:
		return t.Elem.String() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	}

	if name, ok := kindNames[t.Kind]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(t.Kind))
}

func (t Type) Equals(t2 Type) bool {
	if t.Kind != t2.Kind {
		return false
	}

	switch t.Kind {
	case KindPointer:
		return t.Elem.Equals(*t2.Elem)
	case KindArray:
		return t.Len == t2.Len && t.Elem.Equals(*t2.Elem)
	}

	return true
}

// Size is the storage size in bytes. Void has no size.
func (t Type) Size() int {
	switch t.Kind {
	case KindBool, KindChar:
		return 1
	case KindShort:
		return 2
	case KindInt, KindFloat:
		return 4
	case KindLong, KindDouble, KindPointer:
		return 8
	case KindQuad:
		return 16
	case KindArray:
		return t.Len * t.Elem.Size()
	}

	return 0
}

func (t Type) IsVoid() bool {
	return t.Kind == KindVoid
}

func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindBool, KindChar, KindShort, KindInt, KindLong:
		return true
	}

	return false
}

func (t Type) IsFloat() bool {
	switch t.Kind {
	case KindFloat, KindDouble, KindQuad:
		return true
	}

	return false
}

func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

func (t Type) IsPointer() bool {
	return t.Kind == KindPointer
}

// Precedence is the rank of a numeric kind in the promotion order. Pointer,
// void and array types have no rank.
func Precedence(t Type) int {
	switch t.Kind {
	case KindBool:
		return 1
	case KindChar:
		return 2
	case KindShort:
		return 3
	case KindInt:
		return 4
	case KindLong:
		return 5
	case KindFloat:
		return 10
	case KindDouble:
		return 11
	case KindQuad:
		return 12
	}

	return 0
}

// FuncSignature is the type of a function.
type FuncSignature struct {
	Params []Type
	Return Type
}

func (s FuncSignature) String() string {
	var str strings.Builder
	str.WriteString("fn(")

	for i, param := range s.Params {
		str.WriteString(param.String())

		if i != len(s.Params)-1 {
			str.WriteString(", ")
		}
	}

	str.WriteString(") -> ")
	str.WriteString(s.Return.String())

	return str.String()
}

func (s FuncSignature) Equals(s2 FuncSignature) bool {
	if len(s.Params) != len(s2.Params) || !s.Return.Equals(s2.Return) {
		return false
	}

	for i, param := range s.Params {
		if !param.Equals(s2.Params[i]) {
			return false
		}
	}

	return true
}

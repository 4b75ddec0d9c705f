// Package value implements Troll's tagged Value union (integer, real,
// heap object) and the heap object kinds referenced from it, in the style
// of the teacher's runtime.RuntimeVal family — but as a closed tagged
// struct rather than an interface, since §3 of the spec calls for a sum
// type with numeric equality and no dynamic dispatch surface.
package value

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Kind discriminates the Value union.
type Kind byte

const (
	KindInt Kind = iota
	KindReal
	KindObject
)

// Value is a tagged union over Integer(i32), Real(f64) and Object(handle).
type Value struct {
	Kind Kind
	Int  int32
	Real float64
	Obj  *Object
}

func Int(i int32) Value        { return Value{Kind: KindInt, Int: i} }
func Real(r float64) Value     { return Value{Kind: KindReal, Real: r} }
func FromObject(o *Object) Value { return Value{Kind: KindObject, Obj: o} }

func (v Value) IsInt() bool    { return v.Kind == KindInt }
func (v Value) IsReal() bool   { return v.Kind == KindReal }
func (v Value) IsObject() bool { return v.Kind == KindObject }

func (v Value) IsCollection() bool { return v.Kind == KindObject && v.Obj.Kind == ObjCollection }
func (v Value) IsPair() bool       { return v.Kind == KindObject && v.Obj.Kind == ObjPair }
func (v Value) IsString() bool     { return v.Kind == KindObject && v.Obj.Kind == ObjString }

// Truthy implements the "empty = false" convention (§9 GLOSSARY): any
// Integer value is truthy, a Collection is truthy iff non-empty. Other
// kinds have no truthiness and should not reach this call in a correct
// compile.
func (v Value) Truthy() bool {
	switch {
	case v.IsInt():
		return true
	case v.IsCollection():
		return len(v.Obj.Elems) > 0
	default:
		return true
	}
}

// Equal implements numeric/byte/structural equality for OP_EQ and OP_NEQ.
// Real values have no defined equality (§3); comparing one always yields
// false, matching Real's sole use as a transient probability operand.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindReal:
		return false
	case KindObject:
		return objectsEqual(a.Obj, b.Obj)
	}
	return false
}

func objectsEqual(a, b *Object) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ObjString:
		return string(a.Bytes) == string(b.Bytes)
	case ObjCollection:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		as, bs := sortedCopy(a.Elems), sortedCopy(b.Elems)
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	case ObjPair:
		return Equal(a.First, b.First) && Equal(a.Second, b.Second)
	}
	return false
}

func sortedCopy(xs []int32) []int32 {
	out := slices.Clone(xs)
	slices.Sort(out)
	return out
}

// String renders a Value the way the VM prints an OP_RETURN result, or an
// OP_CONSTANT operand in the disassembler (§6): collections print their
// elements in ascending order (§3 invariant 5) regardless of insertion
// order, pairs print as "(a, b)", strings print their raw bytes.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindObject:
		return v.Obj.String()
	}
	return "<invalid>"
}

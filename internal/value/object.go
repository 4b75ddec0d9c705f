package value

import (
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/exp/slices"
)

// ObjKind discriminates the heap Object union (§3: Collection, Pair, String).
type ObjKind byte

const (
	ObjCollection ObjKind = iota
	ObjPair
	ObjString
)

// Object is a heap-allocated value referenced by handle from a Value.
// Objects are ordinary Go heap allocations reclaimed by the garbage
// collector; Collections are the only variant ever mutated in place (by
// OP_ADD2CLLCTN), so they alone need an addressable pointer identity —
// Pairs and Strings could be embedded by value but are kept as *Object
// uniformly for a single, simple handle representation.
type Object struct {
	Kind ObjKind

	// Collection: an insertion-ordered multiset of integers.
	Elems []int32

	// Pair: an ordered 2-tuple; either side may be any Value variant.
	First, Second Value

	// String: an immutable byte sequence with a precomputed 32-bit hash.
	Bytes []byte
	Hash  uint32
}

// NewCollection builds a Collection object from the given elements, copying
// them so the caller's slice may be reused.
func NewCollection(elems ...int32) *Object {
	cp := make([]int32, len(elems))
	copy(cp, elems)
	return &Object{Kind: ObjCollection, Elems: cp}
}

// NewPair builds an ordered Pair object.
func NewPair(first, second Value) *Object {
	return &Object{Kind: ObjPair, First: first, Second: second}
}

// NewString builds a String object, precomputing its 32-bit FNV-1a hash.
func NewString(s string) *Object {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return &Object{Kind: ObjString, Bytes: []byte(s), Hash: h.Sum32()}
}

// Append adds n to the end of the collection, mutating it in place — the
// operation backing OP_ADD2CLLCTN, where the collection sits under the
// newly-pushed elements on the stack and must be mutated through its
// handle rather than replaced.
func (o *Object) Append(n int32) {
	o.Elems = append(o.Elems, n)
}

func (o *Object) String() string {
	switch o.Kind {
	case ObjCollection:
		return collectionString(o.Elems)
	case ObjPair:
		return fmt.Sprintf("(%s, %s)", o.First.String(), o.Second.String())
	case ObjString:
		return string(o.Bytes)
	}
	return "<invalid object>"
}

// Quoted renders the object the way the disassembler quotes a constant
// pool entry (§6): strings in double quotes, everything else unquoted.
func (o *Object) Quoted() string {
	if o.Kind == ObjString {
		return fmt.Sprintf("%q", string(o.Bytes))
	}
	return o.String()
}

// collectionString prints a multiset's elements in ascending order
// (§3 invariant 5), regardless of the slice's internal insertion order.
func collectionString(elems []int32) string {
	sorted := slices.Clone(elems)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, e := range sorted {
		parts[i] = fmt.Sprintf("%d", e)
	}
	return strings.Join(parts, ", ")
}

// Package symtab implements the VM's global variable table: an
// open-addressed hash map keyed by interned-string value.Object, as
// specified in §4.4. It generalizes the teacher's runtime.Environment
// (a parent-chained map[string]RuntimeVal) down to the spec's flat,
// single-scope, tombstone-aware table — there are no nested scopes or
// locals in Troll (§1 Non-goals: "variables beyond a global name table").
package symtab

import (
	"troll/internal/value"
)

const maxLoad = 0.75

type entry struct {
	key *value.Object // nil key marks empty or tombstone
	val value.Value
}

// isTombstone distinguishes a tombstone slot (key=nil, val=Integer(1))
// from a genuinely empty slot (key=nil, val=Integer(0)), per §4.4.
func (e entry) isTombstone() bool {
	return e.key == nil && e.val.IsInt() && e.val.Int == 1
}

func emptyEntry() entry { return entry{key: nil, val: value.Int(0)} }
func tombstone() entry  { return entry{key: nil, val: value.Int(1)} }

// Table is a power-of-two-capacity open-addressed hash map from
// interned-string keys to Values, used for the VM's global variables.
type Table struct {
	entries []entry
	count   int // live entries + tombstones, for load-factor accounting
}

// New returns an empty Table. Capacity grows lazily on first insert.
func New() *Table {
	return &Table{}
}

func keysEqual(a, b *value.Object) bool {
	if a == b {
		return true
	}
	if a.Hash != b.Hash || len(a.Bytes) != len(b.Bytes) {
		return false
	}
	return string(a.Bytes) == string(b.Bytes)
}

// findEntry locates the slot for key, following linear probing, treating
// a tombstone found along the way as the insertion point only if no live
// match turns up afterward.
func findEntry(entries []entry, key *value.Object) int {
	capacity := len(entries)
	index := int(key.Hash) & (capacity - 1)
	var tombstoneIdx = -1
	for {
		e := entries[index]
		switch {
		case e.key == nil:
			if e.isTombstone() {
				if tombstoneIdx == -1 {
					tombstoneIdx = index
				}
			} else {
				if tombstoneIdx != -1 {
					return tombstoneIdx
				}
				return index
			}
		case keysEqual(e.key, key):
			return index
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) grow(newCapacity int) {
	newEntries := make([]entry, newCapacity)
	for i := range newEntries {
		newEntries[i] = emptyEntry()
	}
	liveCount := 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		idx := findEntry(newEntries, e.key)
		newEntries[idx] = e
		liveCount++
	}
	t.entries = newEntries
	t.count = liveCount
}

func nextPow2(n int) int {
	cap := 8
	for cap < n {
		cap *= 2
	}
	return cap
}

// Define sets globals[name] := val, growing the table first if the load
// factor would exceed 0.75 (§4.4). Returns true if this created a new
// key, false if it overwrote an existing one.
func (t *Table) Define(name *value.Object, val value.Value) bool {
	if len(t.entries) == 0 || float64(t.count+1) > float64(len(t.entries))*maxLoad {
		newCap := nextPow2(len(t.entries) * 2)
		if len(t.entries) == 0 {
			newCap = 8
		}
		t.grow(newCap)
	}
	idx := findEntry(t.entries, name)
	e := t.entries[idx]
	isNew := e.key == nil
	if isNew && !e.isTombstone() {
		t.count++
	}
	t.entries[idx] = entry{key: name, val: val}
	return isNew
}

// Get looks up name, returning (value, true) if defined.
func (t *Table) Get(name *value.Object) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Value{}, false
	}
	idx := findEntry(t.entries, name)
	e := t.entries[idx]
	if e.key == nil {
		return value.Value{}, false
	}
	return e.val, true
}

// delete tombstones name's slot. Unexported: §3's lifecycle note limits
// the table's public surface to lookup and insertion; the tombstoning
// machinery exists to keep probe sequences correct, not to expose a
// delete operation the VM's opcode set never calls.
func (t *Table) delete(name *value.Object) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := findEntry(t.entries, name)
	if t.entries[idx].key == nil {
		return false
	}
	t.entries[idx] = tombstone()
	return true
}

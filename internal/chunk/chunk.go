// Package chunk implements Troll's append-only bytecode buffer: a dense
// byte code array, a parallel per-byte line table, and a constant pool —
// adapted from the teacher's runtime.Chunk/OpCode (runtime/bytecode.go),
// generalized from that language's ~20-opcode instruction set to Troll's
// dice/collection/pair opcode set (§4.1, §4.3).
package chunk

import (
	"fmt"

	"troll/internal/value"
)

// OpCode identifies a single VM instruction. Operand-carrying opcodes are
// documented with their operand width; all operands in this instruction
// set are a single byte (§3 invariant 2, §4.1).
type OpCode byte

const (
	OP_CONSTANT OpCode = iota // [const_index]
	OP_POP                    // discard top of stack (top-level ';' sequencing)
	OP_NEGATE

	// Unary collection/integer aggregators (§4.2 prefix unary rule).
	OP_SUM
	OP_SGN
	OP_MIN
	OP_MAX
	OP_MINIMAL
	OP_MAXIMAL
	OP_MEDIAN
	OP_CHOOSE
	OP_DIFFERENT
	OP_NOT
	OP_COUNT

	// Dice primitives (§4.3).
	OP_DIE      // [n] on stack -> uniform(1..=n)
	OP_ZERO_DIE // [n] on stack -> uniform(0..=n)
	OP_MDIE     // [k][n] on stack -> k draws of uniform(1..=n)
	OP_MZDIE    // [k][n] on stack -> k draws of uniform(0..=n)

	OP_QUESTION // [p] (a Real) on stack -> Integer(1) or empty collection

	OP_MKPAIR
	OP_FIRST
	OP_SECOND

	OP_MKCOLLECTION
	OP_ADD2CLLCTN // [count]

	// Binary integer arithmetic (§4.3 "Generic binary integer op").
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MOD

	// Collection algebra (§4.3).
	OP_UNION
	OP_AND
	OP_SETMINUS
	OP_DROP
	OP_KEEP
	OP_PICK
	OP_LARGEST
	OP_LEAST
	OP_RANGE

	// String concatenation (§4.3); all four are byte concatenation, the
	// distinct opcodes only carry a layout hint for an out-of-scope renderer.
	OP_HCONC
	OP_VCONCL
	OP_VCONCR
	OP_VCONCC

	// Relational, "Boolean-as-collection" ops (§4.3).
	OP_EQ
	OP_NEQ
	OP_LT
	OP_GT
	OP_LE
	OP_GE

	// Globals (§4.3).
	OP_DEFINE_GLOBAL // [const_index of name]
	OP_GET_GLOBAL    // [const_index of name]

	OP_RETURN
)

var opNames = map[OpCode]string{
	OP_CONSTANT: "OP_CONSTANT", OP_POP: "OP_POP", OP_NEGATE: "OP_NEGATE",
	OP_SUM: "OP_SUM", OP_SGN: "OP_SGN", OP_MIN: "OP_MIN", OP_MAX: "OP_MAX",
	OP_MINIMAL: "OP_MINIMAL", OP_MAXIMAL: "OP_MAXIMAL", OP_MEDIAN: "OP_MEDIAN",
	OP_CHOOSE: "OP_CHOOSE", OP_DIFFERENT: "OP_DIFFERENT", OP_NOT: "OP_NOT",
	OP_COUNT: "OP_COUNT",
	OP_DIE:   "OP_DIE", OP_ZERO_DIE: "OP_ZERO_DIE", OP_MDIE: "OP_MDIE", OP_MZDIE: "OP_MZDIE",
	OP_QUESTION:     "OP_QUESTION",
	OP_MKPAIR:       "OP_MKPAIR",
	OP_FIRST:        "OP_FIRST",
	OP_SECOND:       "OP_SECOND",
	OP_MKCOLLECTION: "OP_MKCOLLECTION",
	OP_ADD2CLLCTN:   "OP_ADD2CLLCTN",
	OP_ADD:          "OP_ADD", OP_SUBTRACT: "OP_SUBTRACT", OP_MULTIPLY: "OP_MULTIPLY",
	OP_DIVIDE: "OP_DIVIDE", OP_MOD: "OP_MOD",
	OP_UNION: "OP_UNION", OP_AND: "OP_AND", OP_SETMINUS: "OP_SETMINUS",
	OP_DROP: "OP_DROP", OP_KEEP: "OP_KEEP", OP_PICK: "OP_PICK",
	OP_LARGEST: "OP_LARGEST", OP_LEAST: "OP_LEAST", OP_RANGE: "OP_RANGE",
	OP_HCONC: "OP_HCONC", OP_VCONCL: "OP_VCONCL", OP_VCONCR: "OP_VCONCR", OP_VCONCC: "OP_VCONCC",
	OP_EQ: "OP_EQ", OP_NEQ: "OP_NEQ", OP_LT: "OP_LT", OP_GT: "OP_GT", OP_LE: "OP_LE", OP_GE: "OP_GE",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL", OP_GET_GLOBAL: "OP_GET_GLOBAL",
	OP_RETURN: "OP_RETURN",
}

func (op OpCode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Chunk is an append-only bytecode buffer with a parallel per-byte line
// table and a constant pool addressed by a single byte (max 256 entries,
// §3 invariant 2 / §4.1).
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New returns an empty Chunk. Capacity starts small and grows
// geometrically as the teacher's Chunk.write does (runtime/bytecode.go).
func New() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 8),
		Lines:     make([]int, 0, 8),
		Constants: make([]value.Value, 0, 8),
	}
}

// Write appends one byte (an opcode or an inline operand) and its source
// line to the chunk (§3 invariant 1, §4.1).
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) int {
	c.Write(byte(op), line)
	return len(c.Code) - 1
}

// AddConstant appends v to the constant pool and returns its index, or
// false if the pool is already at capacity (256 entries, one byte's
// worth of addressing) — a compile-time failure per §4.1, not a panic.
func (c *Chunk) AddConstant(v value.Value) (int, bool) {
	if len(c.Constants) >= 256 {
		return 0, false
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, true
}

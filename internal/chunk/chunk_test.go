package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"troll/internal/value"
)

func TestWriteKeepsLinesParallel(t *testing.T) {
	c := New()
	c.WriteOp(OP_CONSTANT, 1)
	c.Write(0, 1)
	c.WriteOp(OP_RETURN, 2)
	require.Equal(t, len(c.Code), len(c.Lines), "§3 invariant 1: lines.len == code.len")
	assert.Equal(t, []int{1, 1, 2}, c.Lines)
}

func TestAddConstantCapacity(t *testing.T) {
	c := New()
	for i := 0; i < 256; i++ {
		_, ok := c.AddConstant(value.Int(int32(i)))
		require.True(t, ok)
	}
	_, ok := c.AddConstant(value.Int(256))
	assert.False(t, ok, "a 257th constant must fail rather than wrap (§4.1)")
}

func TestDisassembleConstant(t *testing.T) {
	c := New()
	idx, _ := c.AddConstant(value.Int(14))
	c.WriteOp(OP_CONSTANT, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OP_RETURN, 1)

	out := Disassemble(c, "test")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "14")
	assert.Contains(t, out, "OP_RETURN")
}

func TestDisassembleRepeatedLineOmitsNumber(t *testing.T) {
	c := New()
	c.WriteOp(OP_MKCOLLECTION, 5)
	c.WriteOp(OP_RETURN, 5)

	out := Disassemble(c, "test")
	assert.Contains(t, out, "   | ")
}

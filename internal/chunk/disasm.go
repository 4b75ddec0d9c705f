package chunk

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in the chunk in the
// "%04d %4d OP_NAME operand 'constant'" form specified by §6, one line
// per instruction, prefixed by a "== name ==" banner — the same shape as
// the teacher's (and golox's / noxy's) Chunk.Disassemble.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		line, next := DisassembleInstruction(c, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// DisassembleInstruction renders the single instruction at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(c *Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL:
		return constantInstruction(&b, c, op, offset)
	case OP_ADD2CLLCTN:
		return byteInstruction(&b, c, op, offset)
	default:
		return simpleInstruction(&b, op, offset)
	}
}

func simpleInstruction(b *strings.Builder, op OpCode, offset int) (string, int) {
	b.WriteString(op.String())
	return b.String(), offset + 1
}

func byteInstruction(b *strings.Builder, c *Chunk, op OpCode, offset int) (string, int) {
	operand := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", op.String(), operand)
	return b.String(), offset + 2
}

// constantInstruction renders an opcode whose operand indexes the
// constant pool. OP_DEFINE_GLOBAL/OP_GET_GLOBAL address a String constant
// holding the global's name, so this already resolves their operand to
// the name, not just the raw index (SPEC_FULL.md §4).
func constantInstruction(b *strings.Builder, c *Chunk, op OpCode, offset int) (string, int) {
	idx := c.Code[offset+1]
	rendered := quotedConstant(c, idx)
	fmt.Fprintf(b, "%-16s %4d '%s'", op.String(), idx, rendered)
	return b.String(), offset + 2
}

func quotedConstant(c *Chunk, idx byte) string {
	if int(idx) >= len(c.Constants) {
		return "?"
	}
	v := c.Constants[idx]
	if v.IsString() {
		return v.Obj.Quoted()
	}
	return v.String()
}

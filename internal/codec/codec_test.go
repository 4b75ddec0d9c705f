package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"troll/internal/chunk"
	"troll/internal/value"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c := chunk.New()
	intIdx, _ := c.AddConstant(value.Int(42))
	strIdx, _ := c.AddConstant(value.FromObject(value.NewString("hello")))
	realIdx, _ := c.AddConstant(value.Real(0.5))

	c.WriteOp(chunk.OP_CONSTANT, 1)
	c.Write(byte(intIdx), 1)
	c.WriteOp(chunk.OP_CONSTANT, 2)
	c.Write(byte(strIdx), 2)
	c.WriteOp(chunk.OP_CONSTANT, 3)
	c.Write(byte(realIdx), 3)
	c.WriteOp(chunk.OP_RETURN, 3)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, c))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	require.Equal(t, c.Code, loaded.Code)
	require.Equal(t, c.Lines, loaded.Lines)
	require.Len(t, loaded.Constants, 3)

	require.True(t, loaded.Constants[0].IsInt())
	require.EqualValues(t, 42, loaded.Constants[0].Int)

	require.True(t, loaded.Constants[1].IsString())
	require.Equal(t, "hello", string(loaded.Constants[1].Obj.Bytes))

	require.True(t, loaded.Constants[2].IsReal())
	require.Equal(t, 0.5, loaded.Constants[2].Real)
}

func TestLoadRoundTripDisassemblesIdentically(t *testing.T) {
	c := chunk.New()
	idx, _ := c.AddConstant(value.FromObject(value.NewString("greeting")))
	c.WriteOp(chunk.OP_CONSTANT, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(chunk.OP_RETURN, 1)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, c))
	loaded, err := Load(&buf)
	require.NoError(t, err)

	require.Equal(t, chunk.Disassemble(c, "x"), chunk.Disassemble(loaded, "x"))
}

func TestLoadTruncatedHeaderErrors(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

// Package codec implements the binary chunk format of §6: a fixed-width,
// little-endian encoding of a *chunk.Chunk that can be written to and
// read back from disk by the three CLI tools. Every field width is
// pinned explicitly with encoding/binary rather than relying on a raw
// struct dump, per §6's portability note ("a portable codec must
// explicitly tag each constant as integer/real/string-placeholder").
package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"troll/internal/chunk"
	"troll/internal/value"
)

// Constant tags distinguish the three Value kinds in the constant
// section; a saved chunk's constant pool holds no heap object other
// than String (§3 invariant 6), so Collection/Pair never need a tag.
const (
	tagInt byte = iota
	tagReal
	tagString
)

// Save writes c to w in the §6 format: header, code section, line
// section, constant section, string section.
func Save(w io.Writer, c *chunk.Chunk) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, int32(len(c.Code))); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(c.Constants))); err != nil {
		return err
	}

	if _, err := bw.Write(c.Code); err != nil {
		return err
	}

	for _, line := range c.Lines {
		if err := binary.Write(bw, binary.LittleEndian, int32(line)); err != nil {
			return err
		}
	}

	type stringSlot struct {
		index int32
		bytes []byte
	}
	var strings []stringSlot

	for i, v := range c.Constants {
		switch {
		case v.IsInt():
			if err := bw.WriteByte(tagInt); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, v.Int); err != nil {
				return err
			}
		case v.IsReal():
			if err := bw.WriteByte(tagReal); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, v.Real); err != nil {
				return err
			}
		case v.IsString():
			if err := bw.WriteByte(tagString); err != nil {
				return err
			}
			strings = append(strings, stringSlot{index: int32(i), bytes: v.Obj.Bytes})
		default:
			return fmt.Errorf("codec: constant %d is not a savable kind (must be integer, real, or string)", i)
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, int32(len(strings))); err != nil {
		return err
	}
	for _, s := range strings {
		if err := binary.Write(bw, binary.LittleEndian, s.index); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(len(s.bytes))); err != nil {
			return err
		}
		if _, err := bw.Write(s.bytes); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load reads a chunk previously written by Save, reattaching string
// bytes to their constant-pool slots out-of-band as §6 specifies.
func Load(r io.Reader) (*chunk.Chunk, error) {
	br := bufio.NewReader(r)

	var nOps, nConstants int32
	if err := binary.Read(br, binary.LittleEndian, &nOps); err != nil {
		return nil, fmt.Errorf("codec: reading header: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &nConstants); err != nil {
		return nil, fmt.Errorf("codec: reading header: %w", err)
	}

	c := chunk.New()

	code := make([]byte, nOps)
	if _, err := io.ReadFull(br, code); err != nil {
		return nil, fmt.Errorf("codec: reading code section: %w", err)
	}
	c.Code = code

	lines := make([]int, nOps)
	for i := range lines {
		var l int32
		if err := binary.Read(br, binary.LittleEndian, &l); err != nil {
			return nil, fmt.Errorf("codec: reading line section: %w", err)
		}
		lines[i] = int(l)
	}
	c.Lines = lines

	constants := make([]value.Value, nConstants)
	for i := range constants {
		tag, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("codec: reading constant %d tag: %w", i, err)
		}
		switch tag {
		case tagInt:
			var n int32
			if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
				return nil, fmt.Errorf("codec: reading constant %d: %w", i, err)
			}
			constants[i] = value.Int(n)
		case tagReal:
			var f float64
			if err := binary.Read(br, binary.LittleEndian, &f); err != nil {
				return nil, fmt.Errorf("codec: reading constant %d: %w", i, err)
			}
			constants[i] = value.Real(f)
		case tagString:
			// placeholder; bytes are reattached from the string section below
			constants[i] = value.FromObject(value.NewString(""))
		default:
			return nil, fmt.Errorf("codec: constant %d has unknown tag %d", i, tag)
		}
	}

	var nStrings int32
	if err := binary.Read(br, binary.LittleEndian, &nStrings); err != nil {
		return nil, fmt.Errorf("codec: reading string section header: %w", err)
	}
	for i := int32(0); i < nStrings; i++ {
		var idx, length int32
		if err := binary.Read(br, binary.LittleEndian, &idx); err != nil {
			return nil, fmt.Errorf("codec: reading string record %d: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("codec: reading string record %d: %w", i, err)
		}
		bytes := make([]byte, length)
		if _, err := io.ReadFull(br, bytes); err != nil {
			return nil, fmt.Errorf("codec: reading string record %d bytes: %w", i, err)
		}
		if int(idx) < 0 || int(idx) >= len(constants) {
			return nil, fmt.Errorf("codec: string record %d references out-of-range constant %d", i, idx)
		}
		constants[idx] = value.FromObject(value.NewString(string(bytes)))
	}

	c.Constants = constants
	return c, nil
}

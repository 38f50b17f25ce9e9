package loader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Program represents a loaded program image ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Target receives program images. Executable segments go to instruction
// memory and the rest to data memory.
type Target interface {
	LoadProgram(addr uint32, program []byte)
	LoadData(addr uint32, data []byte)
}

// LoadInto copies every segment into t. BSS tails are zero-filled.
func (p *Program) LoadInto(t Target) {
	for _, seg := range p.Segments {
		data := seg.Data
		if seg.MemSize > uint32(len(data)) {
			data = append(append([]byte(nil), data...), make([]byte, seg.MemSize-uint32(len(data)))...)
		}

		if seg.Executable() {
			t.LoadProgram(seg.Addr, data)
		} else {
			t.LoadData(seg.Addr, data)
		}
	}
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// LoadFile loads a program, picking the format from the file contents
// and extension: ELF by magic, $readmemh text for .hex/.mem, anything
// else as a flat binary placed at address 0.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read program")
	}

	if bytes.HasPrefix(data, elfMagic) {
		return ReadELF(bytes.NewReader(data))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".mem":
		return ReadHex(bytes.NewReader(data))
	}

	return FromBinary(data), nil
}

// FromBinary wraps a flat little-endian image loaded at address 0.
func FromBinary(data []byte) *Program {
	return &Program{
		Segments: []Segment{{
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   SegmentFlagExecute | SegmentFlagRead,
		}},
	}
}

// ReadHex parses a $readmemh-style dump of 32-bit words. Tokens are hex
// words separated by whitespace; "@addr" moves to a word address; "//"
// starts a comment. The result is one executable segment starting at the
// lowest address written.
func ReadHex(r io.Reader) (*Program, error) {
	return readHex(r, MaxHexImageSize)
}

// Hex image address limits.
const (
	// MaxHexWordAddr is the highest word address whose byte address fits in
	// 32 bits.
	MaxHexWordAddr = 0x3FFFFFFF
	// MaxHexImageSize caps the span between the lowest and highest word of a
	// hex image.
	MaxHexImageSize = 16 << 20
)

func readHex(r io.Reader, maxSize uint64) (*Program, error) {
	words := map[uint32]uint32{}
	var (
		addr   uint32
		lo, hi uint32
		seen   bool
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}

		for _, tok := range strings.Fields(text) {
			if strings.HasPrefix(tok, "@") {
				v, err := strconv.ParseUint(tok[1:], 16, 32)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: bad address %q", line, tok)
				}
				addr = uint32(v)
				continue
			}

			v, err := strconv.ParseUint(strings.ReplaceAll(tok, "_", ""), 16, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: bad word %q", line, tok)
			}

			if addr > MaxHexWordAddr {
				return nil, errors.Errorf("line %d: word address %#x out of range", line, addr)
			}
			words[addr] = uint32(v)
			if !seen || addr < lo {
				lo = addr
			}
			if !seen || addr > hi {
				hi = addr
			}
			seen = true
			addr++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read hex image")
	}
	if !seen {
		return nil, errors.New("empty hex image")
	}

	span := (uint64(hi) - uint64(lo) + 1) * 4
	if span > maxSize {
		return nil, errors.Errorf("hex image spans %d bytes, limit is %d", span, maxSize)
	}

	image := make([]byte, span)
	for a, w := range words {
		binary.LittleEndian.PutUint32(image[uint64(a-lo)*4:], w)
	}

	return &Program{
		EntryPoint: lo * 4,
		Segments: []Segment{{
			Addr:    lo * 4,
			Data:    image,
			MemSize: uint32(len(image)),
			Flags:   SegmentFlagExecute | SegmentFlagRead,
		}},
	}, nil
}

// Package loader reads RV32 program images: ELF executables, flat
// binaries and $readmemh hex dumps.
package loader

import (
	"debug/elf"
	"io"

	"github.com/pkg/errors"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment.
type Segment struct {
	// Addr is the address where this segment should be loaded.
	Addr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Executable reports whether the segment belongs in instruction memory.
func (s Segment) Executable() bool {
	return s.Flags&SegmentFlagExecute != 0
}

// ErrNotRV32 is returned for ELF files that are not 32-bit little-endian
// RISC-V.
var ErrNotRV32 = errors.New("not an RV32 little-endian ELF file")

// LoadELF parses an RV32 ELF executable.
func LoadELF(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ELF file")
	}
	defer func() { _ = f.Close() }()

	return readELF(f)
}

// ReadELF parses an RV32 ELF executable from r.
func ReadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ELF file")
	}

	return readELF(f)
}

func readELF(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS32 || f.Data != elf.ELFDATA2LSB {
		return nil, errors.WithStack(ErrNotRV32)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, errors.Wrapf(ErrNotRV32, "machine type %v", f.Machine)
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, errors.Wrapf(err, "failed to read segment at 0x%x", phdr.Vaddr)
			}
			if uint64(n) != phdr.Filesz {
				return nil, errors.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Vaddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	if len(prog.Segments) == 0 {
		return nil, errors.New("no loadable segments")
	}

	return prog, nil
}

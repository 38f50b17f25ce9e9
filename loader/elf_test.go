package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/loader"
)

const (
	emRISCV   = 243
	emARM     = 40
	pfX       = 0x1
	pfW       = 0x2
	pfR       = 0x4
	ehdr32Len = 52
	phdr32Len = 32
)

type testSegment struct {
	addr    uint32
	flags   uint32
	data    []byte
	memSize uint32
}

// writeELF32 writes a minimal little-endian ELF32 executable with one
// PT_LOAD program header per segment and no sections.
func writeELF32(path string, machine uint16, entry uint32, segs ...testSegment) {
	header := make([]byte, ehdr32Len)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1 // ELFCLASS32
	header[5] = 1 // little endian
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], entry)
	binary.LittleEndian.PutUint32(header[28:32], ehdr32Len)
	binary.LittleEndian.PutUint16(header[40:42], ehdr32Len)
	binary.LittleEndian.PutUint16(header[42:44], phdr32Len)
	binary.LittleEndian.PutUint16(header[44:46], uint16(len(segs)))
	binary.LittleEndian.PutUint16(header[46:48], 40)

	offset := uint32(ehdr32Len + phdr32Len*len(segs))
	var phdrs, body []byte
	for _, s := range segs {
		ph := make([]byte, phdr32Len)
		memSize := s.memSize
		if memSize == 0 {
			memSize = uint32(len(s.data))
		}
		binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.addr)
		binary.LittleEndian.PutUint32(ph[12:16], s.addr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], memSize)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)
		phdrs = append(phdrs, ph...)
		body = append(body, s.data...)
		offset += uint32(len(s.data))
	}

	out := append(append(header, phdrs...), body...)
	Expect(os.WriteFile(path, out, 0644)).To(Succeed())
}

// writeELF64 writes just enough of an ELF64 header for debug/elf to parse.
func writeELF64(path string) {
	header := make([]byte, 64)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2
	header[5] = 1
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2)
	binary.LittleEndian.PutUint16(header[18:20], emRISCV)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint16(header[52:54], 64)
	Expect(os.WriteFile(path, header, 0644)).To(Succeed())
}

type recordingTarget struct {
	text map[uint32][]byte
	data map[uint32][]byte
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{text: map[uint32][]byte{}, data: map[uint32][]byte{}}
}

func (t *recordingTarget) LoadProgram(addr uint32, program []byte) { t.text[addr] = program }
func (t *recordingTarget) LoadData(addr uint32, data []byte)       { t.data[addr] = data }

var _ = Describe("ELF Loader", func() {
	var dir string

	code := insts.BuildProgram(insts.ADDI(1, 0, 42), insts.Halt())

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Context("with a valid RV32 executable", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(dir, "prog.elf")
			writeELF32(path, emRISCV, 0x80,
				testSegment{addr: 0x80, flags: pfR | pfX, data: code},
				testSegment{addr: 0x200, flags: pfR | pfW, data: []byte{1, 2, 3, 4}, memSize: 8},
			)
		})

		It("should extract the entry point", func() {
			prog, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint32(0x80)))
		})

		It("should load every PT_LOAD segment", func() {
			prog, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))

			text := prog.Segments[0]
			Expect(text.Addr).To(Equal(uint32(0x80)))
			Expect(text.Data).To(Equal(code))
			Expect(text.Executable()).To(BeTrue())
			Expect(text.Flags & loader.SegmentFlagRead).NotTo(BeZero())

			data := prog.Segments[1]
			Expect(data.Executable()).To(BeFalse())
			Expect(data.Flags & loader.SegmentFlagWrite).NotTo(BeZero())
			Expect(data.MemSize).To(Equal(uint32(8)))
		})

		It("should split text and data when loading", func() {
			prog, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())

			target := newRecordingTarget()
			prog.LoadInto(target)

			Expect(target.text).To(HaveKeyWithValue(uint32(0x80), code))
			Expect(target.data).To(HaveKeyWithValue(uint32(0x200), []byte{1, 2, 3, 4, 0, 0, 0, 0}))
		})

		It("should be detected by LoadFile", func() {
			prog, err := loader.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint32(0x80)))
		})
	})

	It("should reject other machines", func() {
		path := filepath.Join(dir, "arm.elf")
		writeELF32(path, emARM, 0, testSegment{flags: pfX, data: code})

		_, err := loader.LoadELF(path)
		Expect(err).To(MatchError(loader.ErrNotRV32))
	})

	It("should reject 64-bit files", func() {
		path := filepath.Join(dir, "rv64.elf")
		writeELF64(path)

		_, err := loader.LoadELF(path)
		Expect(err).To(MatchError(loader.ErrNotRV32))
	})

	It("should reject files without loadable segments", func() {
		path := filepath.Join(dir, "empty.elf")
		writeELF32(path, emRISCV, 0)

		_, err := loader.LoadELF(path)
		Expect(err).To(MatchError(ContainSubstring("no loadable segments")))
	})

	It("should report a missing file", func() {
		_, err := loader.LoadELF(filepath.Join(dir, "missing.elf"))
		Expect(err).To(MatchError(ContainSubstring("failed to open ELF file")))
	})
})

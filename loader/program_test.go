package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/loader"
)

var _ = Describe("Raw images", func() {
	Describe("ReadHex", func() {
		It("should parse one word per token", func() {
			prog, err := loader.ReadHex(strings.NewReader("00500093 // addi x1, x0, 5\n0000006f\n"))
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.EntryPoint).To(BeZero())
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].Data).To(Equal(
				insts.BuildProgram(insts.ADDI(1, 0, 5), insts.Halt())))
			Expect(prog.Segments[0].Executable()).To(BeTrue())
		})

		It("should honour address directives", func() {
			prog, err := loader.ReadHex(strings.NewReader("@4\n00000013\n@2 0000_0093"))
			Expect(err).NotTo(HaveOccurred())

			seg := prog.Segments[0]
			Expect(seg.Addr).To(Equal(uint32(8)))
			Expect(seg.Data).To(Equal([]byte{
				0x93, 0, 0, 0,
				0, 0, 0, 0,
				0x13, 0, 0, 0,
			}))
		})

		It("should reject bad tokens", func() {
			_, err := loader.ReadHex(strings.NewReader("00000013\nxyz\n"))
			Expect(err).To(MatchError(ContainSubstring("line 2")))
		})

		It("should reject word addresses past the 32-bit byte range", func() {
			_, err := loader.ReadHex(strings.NewReader("@40000000 00000013"))
			Expect(err).To(MatchError(ContainSubstring("out of range")))
		})

		It("should accept the highest word address", func() {
			prog, err := loader.ReadHex(strings.NewReader("@3fffffff 0000006f"))
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint32(0xFFFFFFFC)))
			Expect(prog.Segments[0].Data).To(HaveLen(4))
		})

		It("should reject images spanning too much memory", func() {
			_, err := loader.ReadHex(strings.NewReader("00000013\n@3fffffff 00000013"))
			Expect(err).To(MatchError(ContainSubstring("limit is")))
		})

		It("should reject an empty image", func() {
			_, err := loader.ReadHex(strings.NewReader("// nothing\n"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadFile", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should read .hex files as $readmemh text", func() {
			path := filepath.Join(dir, "prog.hex")
			Expect(os.WriteFile(path, []byte("00500093\n"), 0644)).To(Succeed())

			prog, err := loader.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(Equal(insts.BuildProgram(insts.ADDI(1, 0, 5))))
		})

		It("should read anything else as a flat binary", func() {
			image := insts.BuildProgram(insts.ADDI(1, 0, 5), insts.Halt())
			path := filepath.Join(dir, "prog.bin")
			Expect(os.WriteFile(path, image, 0644)).To(Succeed())

			prog, err := loader.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(BeZero())
			Expect(prog.Segments[0].Addr).To(BeZero())
			Expect(prog.Segments[0].Data).To(Equal(image))
		})

		It("should wrap read errors", func() {
			_, err := loader.LoadFile(filepath.Join(dir, "missing.bin"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})
})

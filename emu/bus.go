package emu

import "github.com/sarchlab/rv32sim/insts"

// Memory-mapped peripheral addresses.
const (
	// KeyboardAddr reads the most recent validated keystroke code.
	KeyboardAddr uint32 = 0xFFFF0000
	// ColorAddr receives the low 8 bits of a write as the output colour.
	ColorAddr uint32 = 0xFFFF0004
)

// IsMMIO reports whether addr is one of the peripheral registers.
func IsMMIO(addr uint32) bool {
	return addr == KeyboardAddr || addr == ColorAddr
}

// Keyboard is the keystroke receiver as seen by the core.
type Keyboard interface {
	// Keycode returns the latest validated scan code. Reading has no
	// side effect on the receiver.
	Keycode() uint8
}

// Display is the colour register consumer as seen by the core.
type Display interface {
	SetColor(color uint8)
}

// Bus routes memory-stage accesses. The two peripheral addresses are
// intercepted by exact comparison; everything else goes to the data port.
type Bus struct {
	mem      DataPort
	keyboard Keyboard
	display  Display

	color uint8
}

// BusOption is a functional option for configuring the Bus.
type BusOption func(*Bus)

// WithKeyboard attaches the keystroke source.
func WithKeyboard(k Keyboard) BusOption {
	return func(b *Bus) {
		b.keyboard = k
	}
}

// WithDisplay attaches the colour register consumer.
func WithDisplay(d Display) BusOption {
	return func(b *Bus) {
		b.display = d
	}
}

// NewBus creates a bus in front of mem.
func NewBus(mem DataPort, opts ...BusOption) *Bus {
	b := &Bus{mem: mem}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load performs a memory-stage read.
func (b *Bus) Load(kind insts.MemAccessKind, addr uint32) uint32 {
	switch addr {
	case KeyboardAddr:
		if b.keyboard == nil {
			return 0
		}
		return uint32(b.keyboard.Keycode())
	case ColorAddr:
		// Write-only register.
		return 0
	}

	return b.mem.Load(kind, addr)
}

// Store performs a memory-stage write.
func (b *Bus) Store(kind insts.MemAccessKind, addr uint32, value uint32) {
	switch addr {
	case ColorAddr:
		b.color = uint8(value)
		if b.display != nil {
			b.display.SetColor(b.color)
		}
		return
	case KeyboardAddr:
		// Read-only register.
		return
	}

	b.mem.Store(kind, addr, value)
}

// Color returns the current colour register value.
func (b *Bus) Color() uint8 {
	return b.color
}

// Reset clears the colour register.
func (b *Bus) Reset() {
	b.color = 0
}

// KeyLatch is a Keyboard that holds whatever code was last pressed. It
// stands in for the PS/2 receiver.
type KeyLatch struct {
	code uint8
}

// Press latches a new validated keystroke code.
func (k *KeyLatch) Press(code uint8) {
	k.code = code
}

// Keycode implements Keyboard.
func (k *KeyLatch) Keycode() uint8 {
	return k.code
}

// ColorLatch is a Display that records every colour written. It stands in
// for the video timing generator.
type ColorLatch struct {
	current uint8
	history []uint8
}

// SetColor implements Display.
func (c *ColorLatch) SetColor(color uint8) {
	c.current = color
	c.history = append(c.history, color)
}

// Current returns the last colour written.
func (c *ColorLatch) Current() uint8 {
	return c.current
}

// History returns every colour written, oldest first.
func (c *ColorLatch) History() []uint8 {
	return append([]uint8(nil), c.history...)
}

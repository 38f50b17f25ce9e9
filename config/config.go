// Package config holds the machine configuration used to build a core.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/cache"
)

// MachineConfig describes one core and its memories.
type MachineConfig struct {
	// ResetPC is the address fetched after reset. Default: 0.
	ResetPC uint32 `json:"reset_pc" yaml:"reset_pc"`

	// StackPointer is the value x2 holds after reset. Default: 0x3FC.
	StackPointer uint32 `json:"stack_pointer" yaml:"stack_pointer"`

	// InstructionMemorySize is in bytes. Default: 4 KiB.
	InstructionMemorySize int `json:"instruction_memory_size" yaml:"instruction_memory_size"`

	// DataMemorySize is in bytes. Default: 1 KiB.
	DataMemorySize int `json:"data_memory_size" yaml:"data_memory_size"`

	// MaxCycles bounds a run. 0 means no limit.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	// HaltOnSpin stops the core when a jump to itself retires.
	HaltOnSpin bool `json:"halt_on_spin" yaml:"halt_on_spin"`

	// ClockMHz is the core clock used to convert cycles into simulated
	// time. 0 disables the conversion.
	ClockMHz float64 `json:"clock_mhz" yaml:"clock_mhz"`

	// DCache configures the optional data cache model.
	DCache DCacheConfig `json:"dcache" yaml:"dcache"`
}

// DCacheConfig enables and shapes the data cache model.
type DCacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	cache.Config `yaml:",inline"`
}

// DefaultConfig returns the power-on machine.
func DefaultConfig() *MachineConfig {
	return &MachineConfig{
		ResetPC:               0,
		StackPointer:          emu.DefaultStackPointer,
		InstructionMemorySize: emu.DefaultInstructionMemorySize,
		DataMemorySize:        emu.DefaultDataMemorySize,
		MaxCycles:             1_000_000,
		HaltOnSpin:            true,
		ClockMHz:              25,
		DCache: DCacheConfig{
			Enabled: false,
			Config:  cache.DefaultConfig(),
		},
	}
}

// LoadConfig loads a MachineConfig from a JSON or YAML file. The format is
// chosen by extension (.yaml/.yml, anything else is JSON). Fields absent
// from the file keep their default values.
func LoadConfig(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a MachineConfig to a JSON or YAML file.
func (c *MachineConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks that the machine can be built.
func (c *MachineConfig) Validate() error {
	if c.InstructionMemorySize <= 0 || c.InstructionMemorySize%4 != 0 {
		return fmt.Errorf("instruction_memory_size must be a positive multiple of 4, got %d",
			c.InstructionMemorySize)
	}
	if c.DataMemorySize <= 0 || c.DataMemorySize%4 != 0 {
		return fmt.Errorf("data_memory_size must be a positive multiple of 4, got %d",
			c.DataMemorySize)
	}
	if c.ResetPC%4 != 0 {
		return fmt.Errorf("reset_pc must be word aligned, got 0x%x", c.ResetPC)
	}
	if c.ClockMHz < 0 {
		return fmt.Errorf("clock_mhz must not be negative, got %g", c.ClockMHz)
	}
	if c.DCache.Enabled {
		if err := c.DCache.Validate(); err != nil {
			return fmt.Errorf("dcache: %w", err)
		}
		if c.DataMemorySize%c.DCache.BlockSize != 0 {
			return fmt.Errorf("data_memory_size %d is not a multiple of dcache block_size %d",
				c.DataMemorySize, c.DCache.BlockSize)
		}
	}
	return nil
}

// Clone returns a deep copy of the MachineConfig.
func (c *MachineConfig) Clone() *MachineConfig {
	clone := *c
	return &clone
}

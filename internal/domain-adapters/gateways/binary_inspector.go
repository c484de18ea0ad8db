package gateways

import (
	"context"
	"debug/elf"
	"debug/macho"
	"fmt"
	"os"

	"github.com/ochairo/keg/internal/domain/entities"
)

// BinaryInspector identifies the executable format of a file using
// debug/elf and debug/macho
type BinaryInspector struct{}

// NewBinaryInspector creates a new binary inspector
func NewBinaryInspector() *BinaryInspector {
	return &BinaryInspector{}
}

// Inspect reports the format and architecture of the file at path
func (b *BinaryInspector) Inspect(_ context.Context, path string) (*entities.BinaryInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat binary: %w", err)
	}

	info := &entities.BinaryInfo{
		Executable: stat.Mode().Perm()&0111 != 0,
		Size:       stat.Size(),
	}

	if f, err := elf.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		info.Format = "elf"
		info.Arch = elfArch(f.Machine)
		return info, nil
	}

	if f, err := macho.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		info.Format = "macho"
		info.Arch = machoArch(f.Cpu)
		return info, nil
	}

	return nil, fmt.Errorf("%s is neither an ELF nor a Mach-O executable", path)
}

func elfArch(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_386:
		return "386"
	case elf.EM_ARM:
		return "arm"
	default:
		return m.String()
	}
}

func machoArch(c macho.Cpu) string {
	switch c {
	case macho.CpuAmd64:
		return "amd64"
	case macho.CpuArm64:
		return "arm64"
	case macho.Cpu386:
		return "386"
	default:
		return c.String()
	}
}

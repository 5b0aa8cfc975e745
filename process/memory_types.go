package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// addRange returns addr+size and false when the sum wraps around.
func addRange(addr ProcessMemoryAddress, size ProcessMemorySize) (ProcessMemoryAddress, bool) {
	end := addr + ProcessMemoryAddress(size)
	if end < addr {
		return 0, false
	}
	return end, true
}

// MemoryRegion is a contiguous address range sharing one set of permissions.
// End is exclusive.
type MemoryRegion struct {
	Start      ProcessMemoryAddress
	End        ProcessMemoryAddress
	Readable   bool
	Writable   bool
	Executable bool
}

// Size returns End-Start, or 0 for a malformed region where End < Start.
func (r MemoryRegion) Size() ProcessMemorySize {
	if r.End < r.Start {
		return 0
	}
	return ProcessMemorySize(r.End - r.Start)
}

// Contains reports whether Start <= addr < End.
func (r MemoryRegion) Contains(addr ProcessMemoryAddress) bool {
	return addr >= r.Start && addr < r.End
}

// Perms renders the region flags the way /proc/<pid>/maps does, without the
// sharing column.
func (r MemoryRegion) Perms() string {
	perms := []byte("---")
	if r.Readable {
		perms[0] = 'r'
	}
	if r.Writable {
		perms[1] = 'w'
	}
	if r.Executable {
		perms[2] = 'x'
	}
	return string(perms)
}

func (r MemoryRegion) String() string {
	return fmt.Sprintf("%016x-%016x %s %d", uint64(r.Start), uint64(r.End), r.Perms(), r.Size())
}

// ModuleInfo describes one loaded image (main binary or shared library).
type ModuleInfo struct {
	BaseAddress ProcessMemoryAddress
	Size        ProcessMemorySize
	Name        string
	Path        string
}

// End returns the first address past the module image.
func (m ModuleInfo) End() ProcessMemoryAddress {
	return m.BaseAddress + ProcessMemoryAddress(m.Size)
}

// Contains reports whether addr lies inside the module image.
func (m ModuleInfo) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.BaseAddress && addr < m.End()
}

func (m ModuleInfo) String() string {
	return fmt.Sprintf("%s @ 0x%X (%d bytes) %s", m.Name, uint64(m.BaseAddress), uint(m.Size), m.Path)
}

// PatternMatch is one hit of a pattern scan. Offset is relative to the
// start address the scan was issued with.
type PatternMatch struct {
	Address ProcessMemoryAddress
	Offset  ProcessMemorySize
}

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    string // 'x' means exact match, any other character is a wildcard
}

// IsValid checks if the AOB pattern is valid
func (aob AOB) IsValid() bool {
	return len(aob.Pattern) > 0 && len(aob.Pattern) == len(aob.Mask)
}

func (aob AOB) String() string {
	return FormatAOB(aob.Pattern, aob.Mask)
}

func NewAOB(pattern []byte, mask string) (AOB, error) {
	if err := CheckPattern(pattern, mask); err != nil {
		return AOB{}, err
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

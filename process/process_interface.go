package process

import (
	"io"
)

// Reader is the byte-level read surface every backend provides.
type Reader interface {
	// ReadBytes returns exactly size bytes starting at addr, or an error.
	// A size of zero returns an empty slice and no error.
	ReadBytes(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// IsValidAddress reports whether addr is readable. It never fails and
	// is always false for address 0.
	IsValidAddress(addr ProcessMemoryAddress) bool

	// IsValidRange reports whether [addr, addr+size) looks readable. Ranges
	// that overflow are invalid. Small ranges are approximated by their
	// endpoints, see IsValidRange.
	IsValidRange(addr ProcessMemoryAddress, size ProcessMemorySize) bool
}

// Platform extends Reader with module and region enumeration and pattern
// scanning.
type Platform interface {
	Reader
	io.Closer

	// GetModules lists every loaded image
	GetModules() ([]ModuleInfo, error)

	// GetModule returns the module whose name matches case-insensitively
	GetModule(name string) (ModuleInfo, error)

	// GetMemoryRegions returns a copy of the current region snapshot
	GetMemoryRegions() ([]MemoryRegion, error)

	// GetExecutableRegions returns the executable subset of GetMemoryRegions
	GetExecutableRegions() ([]MemoryRegion, error)

	// FindPattern returns every match of pattern/mask fully inside [start, end)
	FindPattern(pattern []byte, mask string, start, end ProcessMemoryAddress) ([]PatternMatch, error)

	// FindPatternFirst returns the first match, ok is false when there is none
	FindPatternFirst(pattern []byte, mask string, start, end ProcessMemoryAddress) (match PatternMatch, ok bool, err error)

	// ScanPattern runs FindPattern over every executable region
	ScanPattern(pattern []byte, mask string) ([]PatternMatch, error)
}

// RegionRefresher is implemented by backends whose region snapshot can be
// dropped on demand.
type RegionRefresher interface {
	RefreshMemoryRegions()
}

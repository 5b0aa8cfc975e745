package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset into the backing file
	Dev     string // Device as major:minor
	Inode   uint64 // Inode of the backing file, 0 when anonymous
	Path    string // Backing path or pseudo name such as [heap], may be empty
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

// End returns the exclusive end address of the region
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return IsReadablePerms(mmItem.Perms)
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return IsWritablePerms(mmItem.Perms)
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return IsExecutablePerms(mmItem.Perms)
}

// IsFileBacked reports whether the mapping comes from a real file rather than
// an anonymous or pseudo mapping like [stack] or [vdso].
func (mmItem MemoryMapItem) IsFileBacked() bool {
	return mmItem.Path != "" && !strings.HasPrefix(mmItem.Path, "[")
}

func IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}

// ParseLine parses one line in the "address-range perms offset dev inode path"
// form. The path may contain spaces and may be absent.
func ParseLine(line string) (MemoryMapItem, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return MemoryMapItem{}, fmt.Errorf("malformed maps line %q", line)
	}

	addrRange := strings.SplitN(fields[0], "-", 2)
	if len(addrRange) != 2 {
		return MemoryMapItem{}, fmt.Errorf("malformed address range %q", fields[0])
	}

	startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return MemoryMapItem{}, fmt.Errorf("invalid start address %q: %w", addrRange[0], err)
	}

	endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil {
		return MemoryMapItem{}, fmt.Errorf("invalid end address %q: %w", addrRange[1], err)
	}

	if endAddr < startAddr {
		return MemoryMapItem{}, fmt.Errorf("address range %q ends before it starts", fields[0])
	}

	item := MemoryMapItem{
		Address: startAddr,
		Size:    uint(endAddr - startAddr),
		Perms:   fields[1],
	}

	if len(fields) > 2 {
		if item.Offset, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
			return MemoryMapItem{}, fmt.Errorf("invalid offset %q: %w", fields[2], err)
		}
	}
	if len(fields) > 3 {
		item.Dev = fields[3]
	}
	if len(fields) > 4 {
		if item.Inode, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
			return MemoryMapItem{}, fmt.Errorf("invalid inode %q: %w", fields[4], err)
		}
	}
	if len(fields) > 5 {
		// keep interior spacing of the path intact
		item.Path = pathColumn(line, 5)
	}

	return item, nil
}

// pathColumn returns the text of line starting at the n-th whitespace
// separated field.
func pathColumn(line string, n int) string {
	rest := strings.TrimLeft(line, " \t")
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[idx:], " \t")
	}
	return strings.TrimRight(rest, " \t\r")
}

// ParseMemoryMap parses a whole mapping table. Blank lines are skipped, any
// other malformed line fails the parse.
func ParseMemoryMap(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		item, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return memoryMap, nil
}

// SortByAddress orders items by start address, as GetMemoryRegionForAddress
// expects.
func SortByAddress(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// GetMemoryRegionForAddress returns the region containing addr in a map
// sorted by address, or nil.
func GetMemoryRegionForAddress(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

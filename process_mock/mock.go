// Package process_mock is an in-memory process.Platform for tests and for
// replaying saved snapshots. Memory is a set of blobs keyed by address;
// regions and modules are side tables filled in by the caller or by
// LoadSnapshot.
//
// Reads look for a blob at the exact address first and then scan every blob,
// so each read is linear in the number of blobs. That is fine for fixtures and
// nothing else.
package process_mock

import (
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"dumper7/process"
)

// MockPlatform implements process.Platform over in-memory blobs.
type MockPlatform struct {
	memMu sync.RWMutex
	blobs map[uint64][]byte // Address -> Data

	tableMu sync.RWMutex
	modules []process.ModuleInfo
	regions []process.MemoryRegion

	reads atomic.Int64
}

var _ process.Platform = (*MockPlatform)(nil)

// New creates an empty MockPlatform.
func New() *MockPlatform {
	return &MockPlatform{
		blobs: make(map[uint64][]byte),
	}
}

// WriteMemory stores a copy of data at addr, replacing any blob that starts
// at the same address. A readable, writable region is registered for the
// blob unless it overlaps a region that is already known.
func (m *MockPlatform) WriteMemory(addr process.ProcessMemoryAddress, data []byte) {
	blob := make([]byte, len(data))
	copy(blob, data)

	m.memMu.Lock()
	m.blobs[uint64(addr)] = blob
	m.memMu.Unlock()

	region := process.MemoryRegion{
		Start:    addr,
		End:      addr + process.ProcessMemoryAddress(len(data)),
		Readable: true,
		Writable: true,
	}

	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	for _, r := range m.regions {
		if overlaps(r, region) {
			return
		}
	}
	m.regions = append(m.regions, region)
}

func overlaps(a, b process.MemoryRegion) bool {
	return a.Start < b.End && b.Start < a.End
}

// WriteValue stores the in-memory bytes of a POD value at addr.
func WriteValue[T any](m *MockPlatform, addr process.ProcessMemoryAddress, v T) {
	size := int(unsafe.Sizeof(v))
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	m.WriteMemory(addr, src)
}

// AddModule registers a module for GetModules.
func (m *MockPlatform) AddModule(module process.ModuleInfo) {
	m.tableMu.Lock()
	m.modules = append(m.modules, module)
	m.tableMu.Unlock()
}

// AddRegion registers a region for GetMemoryRegions.
func (m *MockPlatform) AddRegion(region process.MemoryRegion) {
	m.tableMu.Lock()
	m.regions = append(m.regions, region)
	m.tableMu.Unlock()
}

// ReadCount is the number of ReadBytes calls served so far.
func (m *MockPlatform) ReadCount() int64 {
	return m.reads.Load()
}

func (m *MockPlatform) Close() error {
	return nil
}

func (m *MockPlatform) read(addr, size uint64) ([]byte, bool) {
	m.memMu.RLock()
	defer m.memMu.RUnlock()

	if data, ok := m.blobs[addr]; ok && uint64(len(data)) >= size {
		return data[:size], true
	}

	for base, data := range m.blobs {
		if addr < base || addr-base >= uint64(len(data)) {
			continue
		}
		offset := addr - base
		if uint64(len(data))-offset >= size {
			return data[offset : offset+size], true
		}
	}
	return nil, false
}

func (m *MockPlatform) ReadBytes(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	m.reads.Add(1)
	if size == 0 {
		return []byte{}, nil
	}

	data, ok := m.read(uint64(addr), uint64(size))
	if !ok {
		return nil, process.MemoryReadFailed(addr, size, "address not found in mock memory", nil)
	}

	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

func (m *MockPlatform) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	if addr == 0 {
		return false
	}

	m.memMu.RLock()
	defer m.memMu.RUnlock()
	for base, data := range m.blobs {
		if uint64(addr) >= base && uint64(addr)-base < uint64(len(data)) {
			return true
		}
	}
	return false
}

func (m *MockPlatform) IsValidRange(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	return process.IsValidRange(m, addr, size)
}

func (m *MockPlatform) GetModules() ([]process.ModuleInfo, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()
	result := make([]process.ModuleInfo, len(m.modules))
	copy(result, m.modules)
	return result, nil
}

func (m *MockPlatform) GetModule(name string) (process.ModuleInfo, error) {
	modules, err := m.GetModules()
	if err != nil {
		return process.ModuleInfo{}, err
	}
	return process.FindModule(modules, name)
}

func (m *MockPlatform) GetMemoryRegions() ([]process.MemoryRegion, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()
	result := make([]process.MemoryRegion, len(m.regions))
	copy(result, m.regions)
	return result, nil
}

func (m *MockPlatform) GetExecutableRegions() ([]process.MemoryRegion, error) {
	regions, err := m.GetMemoryRegions()
	if err != nil {
		return nil, err
	}
	return process.ExecutableRegions(regions), nil
}

// FindPattern walks the blobs overlapping [start, end) directly instead of
// reading in chunks, so fixtures smaller than a chunk can be searched. A
// match must fit inside both its blob and the range. Results are ordered by
// address.
func (m *MockPlatform) FindPattern(pattern []byte, mask string, start, end process.ProcessMemoryAddress) ([]process.PatternMatch, error) {
	if err := process.CheckPattern(pattern, mask); err != nil {
		return nil, err
	}

	results := []process.PatternMatch{}
	if start >= end {
		return results, nil
	}

	m.memMu.RLock()
	for base, data := range m.blobs {
		blobEnd := base + uint64(len(data))
		if blobEnd <= uint64(start) || base >= uint64(end) {
			continue
		}

		searchStart := uint64(0)
		if base < uint64(start) {
			searchStart = uint64(start) - base
		}
		searchEnd := uint64(len(data))
		if blobEnd > uint64(end) {
			searchEnd = uint64(end) - base
		}

		for _, i := range process.FindPatternMatches(data[searchStart:searchEnd], pattern, mask) {
			addr := process.ProcessMemoryAddress(base + searchStart + uint64(i))
			results = append(results, process.PatternMatch{
				Address: addr,
				Offset:  process.ProcessMemorySize(addr - start),
			})
		}
	}
	m.memMu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Address < results[j].Address
	})
	return results, nil
}

func (m *MockPlatform) FindPatternFirst(pattern []byte, mask string, start, end process.ProcessMemoryAddress) (process.PatternMatch, bool, error) {
	return process.FindPatternFirst(m, pattern, mask, start, end)
}

func (m *MockPlatform) ScanPattern(pattern []byte, mask string) ([]process.PatternMatch, error) {
	return process.ScanPattern(m, pattern, mask)
}

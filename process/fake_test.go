package process

import (
	"sync"
)

type fakeSegment struct {
	start ProcessMemoryAddress
	data  []byte
	exec  bool
}

func (s fakeSegment) end() ProcessMemoryAddress {
	return s.start + ProcessMemoryAddress(len(s.data))
}

// fakePlatform serves reads from a few segments and uses the shared chunked
// scanner, so tests can count reads and inject failures.
type fakePlatform struct {
	segments []fakeSegment

	// failReads fails any read starting at one of these addresses
	failReads map[ProcessMemoryAddress]bool
	// failFind fails FindPattern for a range starting at one of these addresses
	failFind map[ProcessMemoryAddress]bool

	mu    sync.Mutex
	reads []ProcessMemoryAddress
}

var _ Platform = (*fakePlatform)(nil)

func newFakePlatform(segments ...fakeSegment) *fakePlatform {
	return &fakePlatform{
		segments:  segments,
		failReads: map[ProcessMemoryAddress]bool{},
		failFind:  map[ProcessMemoryAddress]bool{},
	}
}

func (f *fakePlatform) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

func (f *fakePlatform) ReadBytes(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	f.mu.Lock()
	f.reads = append(f.reads, addr)
	f.mu.Unlock()

	if f.failReads[addr] {
		return nil, MemoryReadFailed(addr, size, "injected failure", nil)
	}

	end := addr + ProcessMemoryAddress(size)
	for _, s := range f.segments {
		if addr >= s.start && end <= s.end() {
			out := make([]byte, size)
			copy(out, s.data[addr-s.start:end-s.start])
			return out, nil
		}
	}
	return nil, MemoryReadFailed(addr, size, "unmapped", nil)
}

func (f *fakePlatform) IsValidAddress(addr ProcessMemoryAddress) bool {
	for _, s := range f.segments {
		if addr >= s.start && addr < s.end() {
			return true
		}
	}
	return false
}

func (f *fakePlatform) IsValidRange(addr ProcessMemoryAddress, size ProcessMemorySize) bool {
	return IsValidRange(f, addr, size)
}

func (f *fakePlatform) Close() error {
	return nil
}

func (f *fakePlatform) GetModules() ([]ModuleInfo, error) {
	return nil, nil
}

func (f *fakePlatform) GetModule(name string) (ModuleInfo, error) {
	return FindModule(nil, name)
}

func (f *fakePlatform) GetMemoryRegions() ([]MemoryRegion, error) {
	regions := make([]MemoryRegion, 0, len(f.segments))
	for _, s := range f.segments {
		regions = append(regions, MemoryRegion{Start: s.start, End: s.end(), Readable: true, Executable: s.exec})
	}
	return regions, nil
}

func (f *fakePlatform) GetExecutableRegions() ([]MemoryRegion, error) {
	regions, err := f.GetMemoryRegions()
	if err != nil {
		return nil, err
	}
	return ExecutableRegions(regions), nil
}

func (f *fakePlatform) FindPattern(pattern []byte, mask string, start, end ProcessMemoryAddress) ([]PatternMatch, error) {
	if f.failFind[start] {
		return nil, Other("injected failure", nil)
	}
	return FindPatternChunked(f, pattern, mask, start, end)
}

func (f *fakePlatform) FindPatternFirst(pattern []byte, mask string, start, end ProcessMemoryAddress) (PatternMatch, bool, error) {
	return FindPatternFirst(f, pattern, mask, start, end)
}

func (f *fakePlatform) ScanPattern(pattern []byte, mask string) ([]PatternMatch, error) {
	return ScanPattern(f, pattern, mask)
}

// Package search walks pointer graphs in a target process looking for
// values, returning the offset paths that lead to them.
package search

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"dumper7/process"
)

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	SearchFor     func([]byte) bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithValue searches for the in-memory bytes of a POD value.
func WithValue[T any](val T) Option {
	size := int(unsafe.Sizeof(val))
	want := make([]byte, size)
	copy(want, unsafe.Slice((*byte)(unsafe.Pointer(&val)), size))
	return WithPattern(want, exactMask(size))
}

// WithPattern searches for a masked byte pattern, using the same mask rules
// as process.FindPattern.
func WithPattern(pattern []byte, mask string) Option {
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			return process.PatternMatches(data, pattern, mask)
		}
	}
}

func exactMask(n int) string {
	mask := make([]byte, n)
	for i := range mask {
		mask[i] = process.MaskExact
	}
	return string(mask)
}

// SearchResult is one offset path from the base to a match. The last offset
// is the position of the value inside the final struct; every earlier offset
// is a pointer field that was followed.
type SearchResult struct {
	Path    []process.ProcessMemorySize
	Address process.ProcessMemoryAddress
}

func (r SearchResult) String() string {
	s := ""
	for i, off := range r.Path {
		if i > 0 {
			s += " -> "
		}
		s += fmt.Sprintf("+0x%X", uint64(off))
	}
	return fmt.Sprintf("%s @ %s", s, r.Address.ToString())
}

// Search reads MaxStructSize bytes at base, records every aligned offset
// where the target matches, and follows every 8-byte aligned field that
// looks like a valid pointer, up to MaxDepth levels. Each address is
// visited once.
func Search(r process.Reader, base process.ProcessMemoryAddress, options ...Option) ([]SearchResult, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.SearchFor == nil {
		return nil, fmt.Errorf("no search target specified")
	}
	if s.MinAlignment == 0 {
		return nil, fmt.Errorf("alignment must be at least 1")
	}

	var results []SearchResult
	visited := make(map[process.ProcessMemoryAddress]bool)

	var searchRecursive func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize)
	searchRecursive = func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize) {
		if depth > s.MaxDepth || visited[addr] {
			return
		}
		visited[addr] = true

		data, err := r.ReadBytes(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			return
		}

		for offset := uint(0); offset < s.MaxStructSize; offset += s.MinAlignment {
			if offset+s.MinAlignment > uint(len(data)) {
				break
			}

			if s.SearchFor(data[offset:]) {
				results = append(results, SearchResult{
					Path:    appendPath(path, offset),
					Address: addr + process.ProcessMemoryAddress(offset),
				})
			}

			if offset%process.PointerSize != 0 || depth >= s.MaxDepth || offset+process.PointerSize > uint(len(data)) {
				continue
			}

			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[offset:]))
			if ptr != 0 && r.IsValidAddress(ptr) {
				searchRecursive(ptr, depth+1, appendPath(path, offset))
			}
		}
	}

	searchRecursive(base, 0, []process.ProcessMemorySize{})

	return results, nil
}

func appendPath(path []process.ProcessMemorySize, offset uint) []process.ProcessMemorySize {
	newPath := make([]process.ProcessMemorySize, len(path), len(path)+1)
	copy(newPath, path)
	return append(newPath, process.ProcessMemorySize(offset))
}

package process

import (
	"fmt"
)

// ScanChunkSize is the stride of the chunked scanner.
const ScanChunkSize = 0x10000

// MaskExact is the only mask character that constrains a byte.
const MaskExact = 'x'

// CheckPattern rejects a pattern whose mask differs in length, and an empty
// pattern.
func CheckPattern(pattern []byte, mask string) error {
	if len(pattern) != len(mask) {
		return Other(fmt.Sprintf("pattern is %d bytes, mask is %d", len(pattern), len(mask)), ErrPatternMaskMismatch)
	}
	if len(pattern) == 0 {
		return Other("", ErrEmptyPattern)
	}
	return nil
}

// PatternMatches reports whether data starts with pattern under mask. Only
// positions whose mask byte is 'x' are compared; every other mask byte is a
// wildcard whatever its value.
func PatternMatches(data, pattern []byte, mask string) bool {
	if len(data) < len(pattern) || len(mask) != len(pattern) {
		return false
	}

	for i := range pattern {
		if mask[i] == MaskExact && data[i] != pattern[i] {
			return false
		}
	}
	return true
}

// FindPatternMatches returns the offsets in data where pattern matches.
func FindPatternMatches(data, pattern []byte, mask string) []int {
	if len(data) < len(pattern) {
		return nil
	}

	var matches []int
	for i := 0; i <= len(data)-len(pattern); i++ {
		if PatternMatches(data[i:], pattern, mask) {
			matches = append(matches, i)
		}
	}
	return matches
}

// FindPatternChunked scans [start, end) through r in ScanChunkSize strides.
// Each read overlaps the next chunk by len(pattern)-1 bytes so matches that
// straddle a boundary are still seen. A chunk that cannot be read is skipped
// whole: a match starting inside it is missed even if a later chunk could
// complete it.
func FindPatternChunked(r Reader, pattern []byte, mask string, start, end ProcessMemoryAddress) ([]PatternMatch, error) {
	if err := CheckPattern(pattern, mask); err != nil {
		return nil, err
	}

	if start >= end {
		return []PatternMatch{}, nil
	}

	results := []PatternMatch{}
	overlap := ProcessMemoryAddress(len(pattern) - 1)

	for current := start; current < end; {
		remaining := end - current
		readSize := min(remaining, ScanChunkSize+overlap)

		chunk, err := r.ReadBytes(current, ProcessMemorySize(readSize))
		if err == nil {
			for _, i := range FindPatternMatches(chunk, pattern, mask) {
				addr := current + ProcessMemoryAddress(i)
				results = append(results, PatternMatch{
					Address: addr,
					Offset:  ProcessMemorySize(addr - start),
				})
			}
		}

		next := current + ScanChunkSize
		if next < current {
			break
		}
		current = next
	}

	return results, nil
}

package process

import (
	"runtime"
	"strings"
	"sync"
)

// FindModule returns the module whose Name equals name case-insensitively.
func FindModule(modules []ModuleInfo, name string) (ModuleInfo, error) {
	for _, m := range modules {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return ModuleInfo{}, ModuleNotFound(name)
}

// ExecutableRegions filters regions down to the executable ones.
func ExecutableRegions(regions []MemoryRegion) []MemoryRegion {
	result := make([]MemoryRegion, 0, len(regions))
	for _, r := range regions {
		if r.Executable {
			result = append(result, r)
		}
	}
	return result
}

// FindPatternFirst returns the first element of p.FindPattern.
func FindPatternFirst(p Platform, pattern []byte, mask string, start, end ProcessMemoryAddress) (PatternMatch, bool, error) {
	matches, err := p.FindPattern(pattern, mask, start, end)
	if err != nil {
		return PatternMatch{}, false, err
	}
	if len(matches) == 0 {
		return PatternMatch{}, false, nil
	}
	return matches[0], true, nil
}

// ScanPattern runs p.FindPattern over every executable region and
// concatenates the results in region order. A region whose scan fails is
// skipped. A pattern/mask length mismatch is reported before any region is
// touched.
func ScanPattern(p Platform, pattern []byte, mask string) ([]PatternMatch, error) {
	if err := CheckPattern(pattern, mask); err != nil {
		return nil, err
	}

	regions, err := p.GetExecutableRegions()
	if err != nil {
		return nil, err
	}

	results := []PatternMatch{}
	for _, region := range regions {
		matches, err := p.FindPattern(pattern, mask, region.Start, region.End)
		if err != nil {
			continue
		}
		results = append(results, matches...)
	}
	return results, nil
}

// ScanPatternParallel is ScanPattern with up to maxdop regions scanned at
// once. Results keep region order, so they equal ScanPattern's for the same
// memory. Offsets stay relative to the start of each region.
func ScanPatternParallel(p Platform, pattern []byte, mask string, maxdop uint) ([]PatternMatch, error) {
	if maxdop <= 1 {
		return ScanPattern(p, pattern, mask)
	}

	if err := CheckPattern(pattern, mask); err != nil {
		return nil, err
	}

	regions, err := p.GetExecutableRegions()
	if err != nil {
		return nil, err
	}

	if numCPU := uint(runtime.NumCPU()); maxdop > numCPU {
		maxdop = numCPU
	}

	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup

	// one slot per region; each goroutine writes only its own
	perRegion := make([][]PatternMatch, len(regions))

	for i, region := range regions {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, region MemoryRegion) {
			defer func() {
				<-sem
				wg.Done()
			}()

			matches, err := p.FindPattern(pattern, mask, region.Start, region.End)
			if err != nil {
				return
			}
			perRegion[i] = matches
		}(i, region)
	}

	wg.Wait()

	results := []PatternMatch{}
	for _, matches := range perRegion {
		results = append(results, matches...)
	}
	return results, nil
}

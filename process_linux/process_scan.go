//go:build linux

package process_linux

import (
	"fmt"
	"path/filepath"

	"dumper7/process"
	"dumper7/process/memory_map"
)

// FindPattern searches [start, end) with the shared chunked scanner.
func (p *LinuxPlatform) FindPattern(pattern []byte, mask string, start, end process.ProcessMemoryAddress) ([]process.PatternMatch, error) {
	return process.FindPatternChunked(p, pattern, mask, start, end)
}

// FindPatternFirst returns the first match in [start, end).
func (p *LinuxPlatform) FindPatternFirst(pattern []byte, mask string, start, end process.ProcessMemoryAddress) (process.PatternMatch, bool, error) {
	return process.FindPatternFirst(p, pattern, mask, start, end)
}

// ScanPattern searches every executable region.
func (p *LinuxPlatform) ScanPattern(pattern []byte, mask string) ([]process.PatternMatch, error) {
	p.log.Infoln("Starting memory scan for pattern", process.FormatAOB(pattern, mask))

	results, err := process.ScanPattern(p, pattern, mask)
	if err != nil {
		return nil, err
	}

	p.log.Infoln("Scan complete, found", len(results), "matches")
	return results, nil
}

// GetModules lists file-backed images with at least one executable mapping.
// The mapping table is read fresh on every call.
func (p *LinuxPlatform) GetModules() ([]process.ModuleInfo, error) {
	mm, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return nil, process.Other(fmt.Sprintf("failed to read memory map of process %d", p.pid), err)
	}
	return modulesFromMap(mm), nil
}

// GetModule finds a module by case-insensitive name.
func (p *LinuxPlatform) GetModule(name string) (process.ModuleInfo, error) {
	modules, err := p.GetModules()
	if err != nil {
		return process.ModuleInfo{}, err
	}
	return process.FindModule(modules, name)
}

type moduleSpan struct {
	start, end uint64
	executable bool
}

// modulesFromMap groups mappings by path, in order of first appearance. A
// module spans from its lowest mapping to the end of its highest one, so
// images mapped as separate text and data segments are sized as a whole.
func modulesFromMap(mm []memory_map.MemoryMapItem) []process.ModuleInfo {
	var order []string
	spans := make(map[string]*moduleSpan)

	for _, item := range mm {
		if !item.IsFileBacked() {
			continue
		}

		span, ok := spans[item.Path]
		if !ok {
			span = &moduleSpan{start: item.Address, end: item.End()}
			spans[item.Path] = span
			order = append(order, item.Path)
		}
		span.start = min(span.start, item.Address)
		span.end = max(span.end, item.End())
		span.executable = span.executable || item.IsExecutable()
	}

	modules := make([]process.ModuleInfo, 0, len(order))
	for _, path := range order {
		span := spans[path]
		if !span.executable {
			continue
		}
		modules = append(modules, process.ModuleInfo{
			BaseAddress: process.ProcessMemoryAddress(span.start),
			Size:        process.ProcessMemorySize(span.end - span.start),
			Name:        filepath.Base(path),
			Path:        path,
		})
	}
	return modules
}

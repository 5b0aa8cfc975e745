//go:build windows

package process_windows

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"dumper7/process"

	"golang.org/x/sys/windows"
)

const maxModulePath = 260

// ModuleQueryError records one module that could not be described.
type ModuleQueryError struct {
	Handle windows.Handle
	Err    error
}

func (e ModuleQueryError) Error() string {
	return fmt.Sprintf("module 0x%X: %v", uintptr(e.Handle), e.Err)
}

func (e ModuleQueryError) Unwrap() error {
	return e.Err
}

func (p *WindowsPlatform) FindPattern(pattern []byte, mask string, start, end process.ProcessMemoryAddress) ([]process.PatternMatch, error) {
	return process.FindPatternChunked(p, pattern, mask, start, end)
}

func (p *WindowsPlatform) FindPatternFirst(pattern []byte, mask string, start, end process.ProcessMemoryAddress) (process.PatternMatch, bool, error) {
	return process.FindPatternFirst(p, pattern, mask, start, end)
}

func (p *WindowsPlatform) ScanPattern(pattern []byte, mask string) ([]process.PatternMatch, error) {
	p.log.Infoln("Starting memory scan for pattern", process.FormatAOB(pattern, mask))

	results, err := process.ScanPattern(p, pattern, mask)
	if err != nil {
		return nil, err
	}

	p.log.Infoln("Scan complete, found", len(results), "matches")
	return results, nil
}

// GetModules lists every loaded image. The first module that cannot be
// queried fails the whole listing; GetModulesPartial keeps going instead.
func (p *WindowsPlatform) GetModules() ([]process.ModuleInfo, error) {
	handles, err := p.enumModules()
	if err != nil {
		return nil, err
	}

	modules := make([]process.ModuleInfo, 0, len(handles))
	for _, h := range handles {
		module, err := p.queryModule(h)
		if err != nil {
			return nil, process.Other("GetModules", ModuleQueryError{Handle: h, Err: err})
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// GetModulesPartial returns every module that could be described together
// with the failures for the ones that could not.
func (p *WindowsPlatform) GetModulesPartial() ([]process.ModuleInfo, []ModuleQueryError, error) {
	handles, err := p.enumModules()
	if err != nil {
		return nil, nil, err
	}

	var failures []ModuleQueryError
	modules := make([]process.ModuleInfo, 0, len(handles))
	for _, h := range handles {
		module, err := p.queryModule(h)
		if err != nil {
			failures = append(failures, ModuleQueryError{Handle: h, Err: err})
			continue
		}
		modules = append(modules, module)
	}

	if len(failures) > 0 {
		p.log.Warn("Failed to query ", len(failures), " modules")
	}
	return modules, failures, nil
}

func (p *WindowsPlatform) GetModule(name string) (process.ModuleInfo, error) {
	modules, err := p.GetModules()
	if err != nil {
		return process.ModuleInfo{}, err
	}
	return process.FindModule(modules, name)
}

// enumModules returns all module handles, growing the buffer until
// EnumProcessModules reports it fits.
func (p *WindowsPlatform) enumModules() ([]windows.Handle, error) {
	handleSize := uint32(unsafe.Sizeof(windows.Handle(0)))
	handles := make([]windows.Handle, 1024)

	for {
		var needed uint32
		err := windows.EnumProcessModules(p.handle, &handles[0], uint32(len(handles))*handleSize, &needed)
		if err != nil {
			return nil, process.Other("EnumProcessModules failed", err)
		}

		count := int(needed / handleSize)
		if count <= len(handles) {
			return handles[:count], nil
		}
		handles = make([]windows.Handle, count)
	}
}

func (p *WindowsPlatform) queryModule(h windows.Handle) (process.ModuleInfo, error) {
	var info windows.ModuleInfo
	if err := windows.GetModuleInformation(p.handle, h, &info, uint32(unsafe.Sizeof(info))); err != nil {
		return process.ModuleInfo{}, fmt.Errorf("GetModuleInformation failed: %w", err)
	}

	var buf [maxModulePath]uint16
	if err := windows.GetModuleFileNameEx(p.handle, h, &buf[0], uint32(len(buf))); err != nil {
		return process.ModuleInfo{}, fmt.Errorf("GetModuleFileNameEx failed: %w", err)
	}
	path := windows.UTF16ToString(buf[:])

	return process.ModuleInfo{
		BaseAddress: process.ProcessMemoryAddress(info.BaseOfDll),
		Size:        process.ProcessMemorySize(info.SizeOfImage),
		Name:        filepath.Base(path),
		Path:        path,
	}, nil
}

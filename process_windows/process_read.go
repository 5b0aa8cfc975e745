//go:build windows

package process_windows

import (
	"fmt"

	"dumper7/process"

	"golang.org/x/sys/windows"
)

// IsValidAddress probes one byte at addr instead of walking the region list.
// Addresses below 0x10000 are rejected outright.
func (p *WindowsPlatform) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	if addr < minValidAddress {
		return false
	}

	var b byte
	var bytesRead uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &b, 1, &bytesRead)
	return err == nil && bytesRead == 1
}

// IsValidRange checks both endpoints of small ranges; ranges over one page
// also probe the second page.
func (p *WindowsPlatform) IsValidRange(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	end := addr + process.ProcessMemoryAddress(size)
	if end < addr {
		return false
	}
	if size <= 0x1000 {
		return process.IsValidRange(p, addr, size)
	}

	return p.IsValidAddress(addr) &&
		p.IsValidAddress(addr+0x1000) &&
		p.IsValidAddress(end-1)
}

func (p *WindowsPlatform) ReadBytes(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	if !p.IsValidAddress(addr) {
		return nil, process.InvalidAddress(addr)
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)
	if err != nil {
		return nil, process.MemoryReadFailed(addr, size, "ReadProcessMemory failed", err)
	}

	if bytesRead != uintptr(size) {
		return nil, process.MemoryReadFailed(addr, size, fmt.Sprintf("expected to read %d bytes, got %d", size, bytesRead), nil)
	}

	return buf, nil
}

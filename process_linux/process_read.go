//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime/debug"
	"unsafe"

	"dumper7/process"
)

// ReadBytes reads size bytes at addr.
//
// For the calling process the whole range is first checked against the
// region snapshot for containment and read permission, then copied. A
// mapping that disappears between the check and the copy surfaces as
// MemoryReadFailed instead of a crash. Foreign processes are read directly;
// the target may change between any two calls.
func (p *LinuxPlatform) ReadBytes(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	end := addr + process.ProcessMemoryAddress(size)
	if end < addr {
		return nil, process.InvalidAddress(addr)
	}

	if p.self {
		return p.readSelf(addr, end, size)
	}

	switch p.readMethod {
	case ReadMethodVMReadv:
		data, err := process_vm_readv(p.pid, addr, size)
		if err != nil {
			return nil, process.MemoryReadFailed(addr, size, "process_vm_readv", err)
		}
		return data, nil
	default:
		return p.readProcMem(addr, size)
	}
}

func (p *LinuxPlatform) readSelf(addr, end process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if addr == 0 {
		return nil, process.InvalidAddress(addr)
	}

	regions, err := p.regions()
	if err != nil {
		return nil, err
	}
	if !process.RangeReadable(regions, addr, end) {
		return nil, process.InvalidAddress(addr)
	}

	buf := make([]byte, size)
	if err := copyFromSelf(buf, addr); err != nil {
		return nil, process.MemoryReadFailed(addr, size, "in-process copy", err)
	}
	return buf, nil
}

// copyFromSelf copies len(dst) bytes of our own address space starting at
// addr. Faults are turned into errors.
func copyFromSelf(dst []byte, addr process.ProcessMemoryAddress) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("fault while copying: %v", r)
		}
	}()

	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(dst))
	copy(dst, src)
	return nil
}

func (p *LinuxPlatform) readProcMem(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if p.mem == nil {
		return nil, process.MemoryReadFailed(addr, size, "memory file is closed", nil)
	}
	if uint64(addr) > math.MaxInt64 {
		return nil, process.MemoryReadFailed(addr, size, "address beyond file offset range", nil)
	}

	buf := make([]byte, size)
	n, err := p.mem.ReadAt(buf, int64(addr))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, process.MemoryReadFailed(addr, size, fmt.Sprintf("read %d of %d bytes", n, size), err)
}

//go:build linux

package process_linux

import (
	"fmt"

	"dumper7/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	localBuf := make([]byte, bytesToRead)

	localIov := []unix.Iovec{{Base: &localBuf[0]}}
	localIov[0].SetLen(int(bytesToRead))

	remoteIov := []unix.RemoteIovec{{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}}

	n, err := unix.ProcessVMReadv(int(pid), localIov, remoteIov, 0)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv failed: %w", err)
	}

	// no short reads
	if n != int(bytesToRead) {
		return nil, fmt.Errorf("partial read: %d of %d bytes", n, bytesToRead)
	}

	return localBuf, nil
}

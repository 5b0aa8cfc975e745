//go:build windows

package process_windows

import (
	"fmt"
	"time"
	"unsafe"

	"dumper7/process"
	"dumper7/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const (
	PROCESS_ALL_ACCESS = 0x1F0FFF

	// DefaultCacheTTL bounds how stale the region snapshot may get.
	DefaultCacheTTL = time.Second

	// minValidAddress rejects null-adjacent addresses without a syscall.
	minValidAddress = 0x10000
)

// Option configures a WindowsPlatform.
type Option func(*WindowsPlatform)

// WithCachePolicy overrides the region cache policy (default ExpireAfter(DefaultCacheTTL)).
func WithCachePolicy(policy process.CachePolicy) Option {
	return func(p *WindowsPlatform) {
		p.cache = process.NewRegionCache(policy)
	}
}

// WindowsPlatform implements process.Platform with VirtualQueryEx,
// ReadProcessMemory and the PSAPI module functions.
//
// Walking the address space is expensive, so the region snapshot is cached
// for DefaultCacheTTL. IsValidAddress does not use the snapshot at all; it
// probes one byte instead.
type WindowsPlatform struct {
	pid    process.ProcessID
	handle windows.Handle
	owned  bool
	log    *logger.Logger
	cache  *process.RegionCache
}

var _ process.Platform = (*WindowsPlatform)(nil)
var _ process.RegionRefresher = (*WindowsPlatform)(nil)

func newPlatform(pid process.ProcessID, handle windows.Handle, owned bool, name string, opts []Option) *WindowsPlatform {
	p := &WindowsPlatform{
		pid:    pid,
		handle: handle,
		owned:  owned,
		cache:  process.NewRegionCache(process.ExpireAfter(DefaultCacheTTL)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, name))
	return p
}

// New returns a platform reading the calling process.
func New(opts ...Option) (*WindowsPlatform, error) {
	pid := process.ProcessID(windows.GetCurrentProcessId())
	p := newPlatform(pid, windows.CurrentProcess(), false, "windows-self", opts)
	p.log.Infoln("Opened self, region cache policy", p.cache.Policy().String())
	return p, nil
}

// Attach opens pid with full access rights. A failure is returned here and
// nothing is retried.
func Attach(pid process.ProcessID, opts ...Option) (*WindowsPlatform, error) {
	if pid <= 0 {
		return nil, process.Other(fmt.Sprintf("invalid pid %d", pid), nil)
	}

	handle, err := windows.OpenProcess(PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return nil, process.AccessDenied(fmt.Sprintf("failed to open process %d", pid), err)
	}

	p := newPlatform(pid, handle, true, fmt.Sprintf("windows-%d", pid), opts)
	p.log.Infoln("Process opened, region cache policy", p.cache.Policy().String())
	return p, nil
}

func (p *WindowsPlatform) Close() error {
	if !p.owned || p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	p.log.Infoln("Process closed")
	return nil
}

func (p *WindowsPlatform) GetPID() process.ProcessID {
	return p.pid
}

// queryRegions walks the address space from 0 until VirtualQueryEx fails or
// the next address wraps around. Only committed memory is kept.
func (p *WindowsPlatform) queryRegions() ([]process.MemoryRegion, error) {
	var regions []process.MemoryRegion
	var mbi windows.MemoryBasicInformation
	address := uintptr(0)

	for {
		if err := windows.VirtualQueryEx(p.handle, address, &mbi, unsafe.Sizeof(mbi)); err != nil {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			perms := memory_map.ProtectionPerms(mbi.Protect)
			regions = append(regions, process.MemoryRegion{
				Start:      process.ProcessMemoryAddress(mbi.BaseAddress),
				End:        process.ProcessMemoryAddress(mbi.BaseAddress + mbi.RegionSize),
				Readable:   memory_map.IsReadablePerms(perms),
				Writable:   memory_map.IsWritablePerms(perms),
				Executable: memory_map.IsExecutablePerms(perms),
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next == 0 || next <= address {
			break
		}
		address = next
	}

	p.log.Debugln("Queried", len(regions), "committed memory regions")
	return regions, nil
}

// RefreshMemoryRegions drops the cached snapshot.
func (p *WindowsPlatform) RefreshMemoryRegions() {
	p.cache.Invalidate()
}

func (p *WindowsPlatform) GetMemoryRegions() ([]process.MemoryRegion, error) {
	return p.cache.Get(p.queryRegions)
}

func (p *WindowsPlatform) GetExecutableRegions() ([]process.MemoryRegion, error) {
	regions, err := p.cache.Snapshot(p.queryRegions)
	if err != nil {
		return nil, err
	}
	return process.ExecutableRegions(regions), nil
}

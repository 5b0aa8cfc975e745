//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"dumper7/process"
	"dumper7/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// ReadMethod selects how memory of a foreign process is read.
type ReadMethod string

const (
	// ReadMethodProcMem reads through /proc/<pid>/mem.
	ReadMethodProcMem ReadMethod = "procmem"
	// ReadMethodVMReadv reads with the process_vm_readv syscall.
	ReadMethodVMReadv ReadMethod = "vm_readv"
)

// Option configures a LinuxPlatform.
type Option func(*LinuxPlatform)

// WithCachePolicy overrides the region cache policy (default NeverExpire).
func WithCachePolicy(policy process.CachePolicy) Option {
	return func(p *LinuxPlatform) {
		p.cache = process.NewRegionCache(policy)
	}
}

// WithReadMethod selects the remote read primitive (default ReadMethodProcMem).
func WithReadMethod(method ReadMethod) Option {
	return func(p *LinuxPlatform) {
		p.readMethod = method
	}
}

// WithPtrace controls whether Attach issues PTRACE_ATTACH (default true).
func WithPtrace(enabled bool) Option {
	return func(p *LinuxPlatform) {
		p.ptrace = enabled
	}
}

// LinuxPlatform implements process.Platform on top of procfs and ptrace.
//
// The region cache never expires by default: once populated, the snapshot
// is only replaced by RefreshMemoryRegions. Self-process layouts rarely change
// in ways that matter to a scan, and a foreign target can be given a TTL
// through WithCachePolicy.
type LinuxPlatform struct {
	pid        process.ProcessID
	self       bool
	ptrace     bool
	readMethod ReadMethod
	log        *logger.Logger
	cache      *process.RegionCache
	mem        *os.File
}

var _ process.Platform = (*LinuxPlatform)(nil)
var _ process.RegionRefresher = (*LinuxPlatform)(nil)

func newPlatform(pid process.ProcessID, self bool, opts []Option) *LinuxPlatform {
	p := &LinuxPlatform{
		pid:        pid,
		self:       self,
		ptrace:     true,
		readMethod: ReadMethodProcMem,
		cache:      process.NewRegionCache(process.NeverExpire()),
	}
	for _, opt := range opts {
		opt(p)
	}

	name := fmt.Sprintf("linux-%d", pid)
	if self {
		name = "linux-self"
	}
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, name))
	return p
}

// New returns a platform reading the calling process.
func New(opts ...Option) (*LinuxPlatform, error) {
	p := newPlatform(process.ProcessID(os.Getpid()), true, opts)
	p.log.Infoln("Opened self, region cache policy", p.cache.Policy().String())
	return p, nil
}

// Attach returns a platform reading the process pid. Attaching is a one-time
// step: a failure is returned here and nothing is retried.
func Attach(pid process.ProcessID, opts ...Option) (*LinuxPlatform, error) {
	if pid <= 0 {
		return nil, process.Other(fmt.Sprintf("invalid pid %d", pid), nil)
	}
	if int(pid) == os.Getpid() {
		return New(opts...)
	}

	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); err != nil {
		return nil, process.Other(fmt.Sprintf("process with PID %d does not exist", pid), err)
	}

	p := newPlatform(pid, false, opts)

	switch p.readMethod {
	case ReadMethodProcMem, ReadMethodVMReadv:
	default:
		return nil, process.Other(fmt.Sprintf("unknown read method %q", p.readMethod), nil)
	}

	if p.ptrace {
		// ptrace requests are bound to the thread that attached
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := unix.PtraceAttach(int(pid)); err != nil {
			return nil, process.AccessDenied(fmt.Sprintf("failed to attach to process %d", pid), err)
		}
	}

	if p.readMethod == ReadMethodProcMem {
		mem, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
		if err != nil {
			p.detach()
			if errors.Is(err, fs.ErrPermission) {
				return nil, process.AccessDenied(fmt.Sprintf("failed to open memory of process %d", pid), err)
			}
			return nil, process.Other(fmt.Sprintf("failed to open memory of process %d", pid), err)
		}
		p.mem = mem
	}

	p.log.Infoln("Process attached, read method", string(p.readMethod), "region cache policy", p.cache.Policy().String())
	return p, nil
}

// detach undoes PTRACE_ATTACH on a failed Attach. The tracee must reach its
// attach stop before PTRACE_DETACH is accepted.
func (p *LinuxPlatform) detach() {
	if !p.ptrace {
		return
	}

	var status unix.WaitStatus
	if _, err := unix.Wait4(int(p.pid), &status, unix.WALL, nil); err != nil {
		p.log.Warn("Wait for attach stop failed: ", err)
	}
	if err := unix.PtraceDetach(int(p.pid)); err != nil {
		p.log.Warn("Detach after failed attach failed: ", err)
	}
}

// Close releases the memory file. The ptrace attachment ends with the
// tracing thread; no explicit detach is issued.
func (p *LinuxPlatform) Close() error {
	if p.mem == nil {
		return nil
	}
	err := p.mem.Close()
	p.mem = nil
	p.log.Infoln("Process closed")
	return err
}

// GetPID returns the process ID
func (p *LinuxPlatform) GetPID() process.ProcessID {
	return p.pid
}

func (p *LinuxPlatform) loadRegions() ([]process.MemoryRegion, error) {
	mm, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return nil, process.Other(fmt.Sprintf("failed to read memory map of process %d", p.pid), err)
	}

	regions := make([]process.MemoryRegion, 0, len(mm))
	for _, item := range mm {
		regions = append(regions, process.MemoryRegion{
			Start:      process.ProcessMemoryAddress(item.Address),
			End:        process.ProcessMemoryAddress(item.End()),
			Readable:   item.IsReadable(),
			Writable:   item.IsWritable(),
			Executable: item.IsExecutable(),
		})
	}

	// FindRegion requires the snapshot to be sorted by address
	process.SortRegions(regions)

	p.log.Debugln("Loaded", len(regions), "memory regions")
	return regions, nil
}

func (p *LinuxPlatform) regions() ([]process.MemoryRegion, error) {
	return p.cache.Snapshot(p.loadRegions)
}

// RefreshMemoryRegions drops the cached snapshot.
func (p *LinuxPlatform) RefreshMemoryRegions() {
	p.cache.Invalidate()
}

func (p *LinuxPlatform) GetMemoryRegions() ([]process.MemoryRegion, error) {
	return p.cache.Get(p.loadRegions)
}

func (p *LinuxPlatform) GetExecutableRegions() ([]process.MemoryRegion, error) {
	regions, err := p.regions()
	if err != nil {
		return nil, err
	}
	return process.ExecutableRegions(regions), nil
}

func (p *LinuxPlatform) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	if addr == 0 {
		return false
	}

	regions, err := p.regions()
	if err != nil {
		return false
	}

	region, ok := process.FindRegion(regions, addr)
	return ok && region.Readable
}

func (p *LinuxPlatform) IsValidRange(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	return process.IsValidRange(p, addr, size)
}

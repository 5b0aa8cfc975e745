// Package process_finder resolves target processes by name before a backend
// attaches to them.
package process_finder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dumper7/process"

	gops "github.com/shirou/gopsutil/v4/process"
)

// ListByName returns every process whose name or executable basename equals
// name, sorted by PID. The comparison ignores case and a trailing ".exe" so
// the same name works on both platforms. The calling process is skipped.
func ListByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	procs, err := gops.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	selfPID := int32(os.Getpid())
	want := normalizeName(name)
	var out []process.ProcessInfo

	for _, p := range procs {
		if p.Pid == selfPID {
			continue
		}

		// Either lookup may fail for zombies or processes we cannot inspect.
		pname, _ := p.Name()
		exe, _ := p.Exe()

		if normalizeName(pname) == want || (exe != "" && normalizeName(filepath.Base(exe)) == want) {
			out = append(out, process.ProcessInfo{
				PID:  process.ProcessID(p.Pid),
				Name: pname,
				Exe:  exe,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PID < out[j].PID
	})
	return out, nil
}

// OneByName returns the lowest-PID match for name, or os.ErrNotExist.
func OneByName(name string) (process.ProcessInfo, error) {
	ps, err := ListByName(name)
	if err != nil {
		return process.ProcessInfo{}, err
	}
	if len(ps) == 0 {
		return process.ProcessInfo{}, fmt.Errorf("process %q: %w", name, os.ErrNotExist)
	}
	return ps[0], nil
}

// Exists reports whether pid names a live process.
func Exists(pid process.ProcessID) bool {
	ok, err := gops.PidExists(int32(pid))
	return err == nil && ok
}

// Describe looks up name and executable path for pid.
func Describe(pid process.ProcessID) (process.ProcessInfo, error) {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return process.ProcessInfo{}, fmt.Errorf("process %d: %w", pid, err)
	}

	name, _ := p.Name()
	exe, _ := p.Exe()
	return process.ProcessInfo{PID: pid, Name: name, Exe: exe}, nil
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

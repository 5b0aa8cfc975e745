package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"dumper7/config"
	"dumper7/process"
	"dumper7/process_finder"
	"dumper7/process_mock"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	pid        int
	name       string
	configPath string
	snapshot   string

	// target is the PID open attached to, or 0 for a snapshot
	target process.ProcessID
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dumper",
		Short: "Inspect the memory of a running process",
		Long: `Read, list and pattern-scan the memory of a process.

The target is chosen with --pid or --name, or replayed from a directory
written by "dumper dump" with --snapshot. With none of these, the dumper
inspects itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().IntVar(&opts.pid, "pid", 0, "Process ID to attach to")
	cmd.PersistentFlags().StringVar(&opts.name, "name", "", "Process name to attach to (lowest PID wins)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.snapshot, "snapshot", "", "Read from a saved snapshot directory instead of a live process")

	cmd.AddCommand(newRegionsCmd(opts))
	cmd.AddCommand(newModulesCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newReadCmd(opts))
	cmd.AddCommand(newPointersCmd(opts))
	cmd.AddCommand(newDumpCmd(opts))

	return cmd
}

// open resolves the target and attaches the platform backend to it.
func (o *rootOptions) open() (process.Platform, *config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o.pid != 0 && o.name != "" {
		return nil, nil, errors.New("--pid and --name are mutually exclusive")
	}

	if o.snapshot != "" {
		if o.pid != 0 || o.name != "" {
			return nil, nil, errors.New("--snapshot cannot be combined with --pid or --name")
		}
		m, _, err := process_mock.LoadSnapshot(o.snapshot)
		if err != nil {
			return nil, nil, err
		}
		return m, cfg, nil
	}

	pid := process.ProcessID(o.pid)
	if o.name != "" {
		info, err := process_finder.OneByName(o.name)
		if err != nil {
			return nil, nil, err
		}
		pid = info.PID
	} else if pid != 0 && !process_finder.Exists(pid) {
		return nil, nil, fmt.Errorf("no process with pid %d", pid)
	}

	p, err := openPlatform(pid, cfg)
	if err != nil {
		return nil, nil, err
	}

	o.target = pid
	if pid == 0 {
		o.target = process.ProcessID(os.Getpid())
	}
	return p, cfg, nil
}

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

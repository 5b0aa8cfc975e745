//go:build linux

package main

import (
	"dumper7/config"
	"dumper7/process"
	"dumper7/process_linux"
)

func openPlatform(pid process.ProcessID, cfg *config.Config) (process.Platform, error) {
	policy := process.NeverExpire()
	if cfg.Linux.CacheTTL > 0 {
		policy = process.ExpireAfter(cfg.Linux.CacheTTL)
	}

	opts := []process_linux.Option{
		process_linux.WithCachePolicy(policy),
		process_linux.WithReadMethod(process_linux.ReadMethod(cfg.Linux.ReadMethod)),
		process_linux.WithPtrace(cfg.Linux.Ptrace),
	}

	if pid == 0 {
		return process_linux.New(opts...)
	}
	return process_linux.Attach(pid, opts...)
}

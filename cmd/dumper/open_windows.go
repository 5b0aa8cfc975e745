//go:build windows

package main

import (
	"dumper7/config"
	"dumper7/process"
	"dumper7/process_windows"
)

func openPlatform(pid process.ProcessID, cfg *config.Config) (process.Platform, error) {
	policy := process.NeverExpire()
	if cfg.Windows.CacheTTL > 0 {
		policy = process.ExpireAfter(cfg.Windows.CacheTTL)
	}

	if pid == 0 {
		return process_windows.New(process_windows.WithCachePolicy(policy))
	}
	return process_windows.Attach(pid, process_windows.WithCachePolicy(policy))
}

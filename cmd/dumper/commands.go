package main

import (
	"fmt"
	"strconv"

	"dumper7/hexdump"
	"dumper7/process"
	"dumper7/process_finder"
	"dumper7/process_mock"
	"dumper7/search"

	"github.com/spf13/cobra"
)

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	var execOnly bool

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List memory regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			var regions []process.MemoryRegion
			if execOnly {
				regions, err = p.GetExecutableRegions()
			} else {
				regions, err = p.GetMemoryRegions()
			}
			if err != nil {
				return fmt.Errorf("failed to list regions: %w", err)
			}

			for _, r := range regions {
				cmd.Println(r.String())
			}
			cmd.Printf("%d regions\n", len(regions))
			return nil
		},
	}

	cmd.Flags().BoolVar(&execOnly, "exec", false, "Only list executable regions")
	return cmd
}

func newModulesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List loaded modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			modules, err := p.GetModules()
			if err != nil {
				return fmt.Errorf("failed to list modules: %w", err)
			}

			for _, m := range modules {
				cmd.Println(m.String())
			}
			return nil
		},
	}
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		module   string
		parallel bool
	)

	cmd := &cobra.Command{
		Use:   "scan <aob>",
		Short: "Scan for a byte pattern such as \"48 8B 05 ?? ?? ?? ??\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aob, err := process.ParseAOB(args[0])
			if err != nil {
				return err
			}

			p, cfg, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			cmd.Printf("Scanning for pattern: %s\n", aob.String())

			var matches []process.PatternMatch
			switch {
			case module != "":
				m, err := p.GetModule(module)
				if err != nil {
					return err
				}
				matches, err = p.FindPattern(aob.Pattern, aob.Mask, m.BaseAddress, m.End())
				if err != nil {
					return err
				}
			case parallel && cfg.Scan.Parallelism > 1:
				matches, err = process.ScanPatternParallel(p, aob.Pattern, aob.Mask, cfg.Scan.Parallelism)
			default:
				matches, err = p.ScanPattern(aob.Pattern, aob.Mask)
			}
			if err != nil {
				return err
			}

			cmd.Printf("Found %d matches:\n", len(matches))
			context := process.ProcessMemoryAddress(cfg.Scan.ContextBytes)
			for _, match := range matches {
				cmd.Printf("Match at %s:\n", match.Address.ToString())
				if context == 0 {
					continue
				}

				start := match.Address - min(context, match.Address)
				size := process.ProcessMemorySize(match.Address-start) + process.ProcessMemorySize(len(aob.Pattern)) + process.ProcessMemorySize(context)
				data, err := p.ReadBytes(start, size)
				if err != nil {
					continue
				}

				options := hexdump.DefaultOptions()
				options.StartOffset = uint64(start)
				options.OffsetWidth = 16
				options.HighlightPattern = aob.Pattern
				options.HighlightMask = aob.Mask
				options.Pointers = p
				cmd.Print(hexdump.Dump(data, options))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Restrict the scan to one module")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Scan regions concurrently (scan.parallelism in config)")
	return cmd
}

func newReadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr> <size>",
		Short: "Hex dump memory at an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			size, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid size %q: %w", args[1], err)
			}

			p, _, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			data, err := p.ReadBytes(addr, process.ProcessMemorySize(size))
			if err != nil {
				return err
			}
			cmd.Print(hexdump.DumpAt(p, addr, data))
			return nil
		},
	}
}

func newPointersCmd(opts *rootOptions) *cobra.Command {
	var (
		depth      int
		structSize uint
	)

	cmd := &cobra.Command{
		Use:   "pointers <base> <u32 value>",
		Short: "Find pointer paths from base to a 32-bit value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}

			p, _, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			results, err := search.Search(p, base,
				search.WithValue(uint32(value)),
				search.WithMaxDepth(depth),
				search.WithMaxStructSize(structSize),
			)
			if err != nil {
				return err
			}

			for _, r := range results {
				cmd.Println(r.String())
			}
			cmd.Printf("%d paths\n", len(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "Maximum pointer depth")
	cmd.Flags().UintVar(&structSize, "struct-size", 256, "Bytes read at every level")
	return cmd
}

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var maxRegion uint

	cmd := &cobra.Command{
		Use:   "dump <dir>",
		Short: "Save regions, modules and readable memory to a snapshot directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.open()
			if err != nil {
				return err
			}
			defer p.Close()

			meta := process_mock.SnapshotMetadata{PID: opts.target}
			if meta.PID != 0 {
				if info, err := process_finder.Describe(meta.PID); err == nil {
					meta.Name = info.Name
				}
			}

			stats, err := process_mock.SaveSnapshot(p, meta, args[0], process.ProcessMemorySize(maxRegion))
			if err != nil {
				return err
			}

			cmd.Printf("Saved %d regions (%d bytes) to %s\n", stats.Saved, stats.BytesWritten, args[0])
			cmd.Printf("Skipped: %d unreadable, %d too large, %d read errors\n", stats.Unreadable, stats.TooLarge, stats.ReadErrors)
			return nil
		},
	}

	cmd.Flags().UintVar(&maxRegion, "max-region", process_mock.DefaultMaxRegionSize, "Largest region to save, in bytes")
	return cmd
}

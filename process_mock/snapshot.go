package process_mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dumper7/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	snapshotMetadataFile = "metadata.json"
	snapshotRegionsFile  = "regions.json"
	snapshotModulesFile  = "modules.json"

	// DefaultMaxRegionSize is the largest region SaveSnapshot writes out.
	DefaultMaxRegionSize = 100 * 1024 * 1024
)

// SnapshotMetadata identifies the process a snapshot was taken from.
type SnapshotMetadata struct {
	PID  process.ProcessID `json:"pid"`
	Name string            `json:"name"`
}

// SnapshotStats counts what SaveSnapshot did with each region.
type SnapshotStats struct {
	Saved        int
	Unreadable   int
	TooLarge     int
	ReadErrors   int
	BytesWritten int64
}

type snapshotRegion struct {
	Start      uint64 `json:"start"`
	End        uint64 `json:"end"`
	Readable   bool   `json:"readable"`
	Writable   bool   `json:"writable"`
	Executable bool   `json:"executable"`
}

func blobName(start uint64, size process.ProcessMemorySize) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", start, uint(size))
}

var snapshotLog = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "snapshot"))

// SaveSnapshot writes the regions, modules and readable memory of p to dir.
// Regions larger than maxRegionSize, unreadable regions and regions that
// fail to read are listed but get no blob; LoadSnapshot leaves them
// unbacked.
func SaveSnapshot(p process.Platform, meta SnapshotMetadata, dir string, maxRegionSize process.ProcessMemorySize) (SnapshotStats, error) {
	var stats SnapshotStats

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, fmt.Errorf("failed to create directory: %w", err)
	}

	regions, err := p.GetMemoryRegions()
	if err != nil {
		return stats, err
	}
	modules, err := p.GetModules()
	if err != nil {
		return stats, err
	}

	saved := make([]snapshotRegion, 0, len(regions))
	for _, r := range regions {
		saved = append(saved, snapshotRegion{
			Start:      uint64(r.Start),
			End:        uint64(r.End),
			Readable:   r.Readable,
			Writable:   r.Writable,
			Executable: r.Executable,
		})
	}

	if err := writeJSON(filepath.Join(dir, snapshotMetadataFile), meta); err != nil {
		return stats, err
	}
	if err := writeJSON(filepath.Join(dir, snapshotRegionsFile), saved); err != nil {
		return stats, err
	}
	if err := writeJSON(filepath.Join(dir, snapshotModulesFile), modules); err != nil {
		return stats, err
	}

	for _, r := range regions {
		switch {
		case !r.Readable:
			stats.Unreadable++
			continue
		case r.Size() > maxRegionSize:
			snapshotLog.Debugln("Skipping large region at", r.Start.ToString(), "size", r.Size().ToString())
			stats.TooLarge++
			continue
		}

		data, err := p.ReadBytes(r.Start, r.Size())
		if err != nil {
			stats.ReadErrors++
			continue
		}

		if err := os.WriteFile(filepath.Join(dir, blobName(uint64(r.Start), r.Size())), data, 0o644); err != nil {
			return stats, fmt.Errorf("failed to write region %s: %w", r.Start.ToString(), err)
		}
		stats.Saved++
		stats.BytesWritten += int64(len(data))
	}

	snapshotLog.Infoln("Snapshot saved to", dir, ":", stats.Saved, "regions,", stats.ReadErrors, "read errors")
	return stats, nil
}

// LoadSnapshot rebuilds a MockPlatform from a directory written by
// SaveSnapshot. Regions and modules are restored exactly; regions without a
// blob are listed but cannot be read.
func LoadSnapshot(dir string) (*MockPlatform, SnapshotMetadata, error) {
	var meta SnapshotMetadata
	if err := readJSON(filepath.Join(dir, snapshotMetadataFile), &meta); err != nil {
		return nil, meta, err
	}

	var regions []snapshotRegion
	if err := readJSON(filepath.Join(dir, snapshotRegionsFile), &regions); err != nil {
		return nil, meta, err
	}

	var modules []process.ModuleInfo
	if err := readJSON(filepath.Join(dir, snapshotModulesFile), &modules); err != nil {
		return nil, meta, err
	}

	m := New()
	for _, r := range regions {
		m.AddRegion(process.MemoryRegion{
			Start:      process.ProcessMemoryAddress(r.Start),
			End:        process.ProcessMemoryAddress(r.End),
			Readable:   r.Readable,
			Writable:   r.Writable,
			Executable: r.Executable,
		})
	}
	for _, module := range modules {
		m.AddModule(module)
	}

	for _, r := range regions {
		if r.End < r.Start {
			return nil, meta, fmt.Errorf("region 0x%x ends before it starts", r.Start)
		}

		size := process.ProcessMemorySize(r.End - r.Start)
		data, err := os.ReadFile(filepath.Join(dir, blobName(r.Start, size)))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, meta, fmt.Errorf("failed to read blob for 0x%x: %w", r.Start, err)
		}
		m.WriteMemory(process.ProcessMemoryAddress(r.Start), data)
	}

	return m, meta, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

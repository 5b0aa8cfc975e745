package main

import (
	"bytes"
	"testing"

	"dumper7/process"
	"dumper7/process_mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotDir(t *testing.T) string {
	t.Helper()

	m := process_mock.NewWithSampleObject()
	m.AddRegion(process.MemoryRegion{Start: 0x400000, End: 0x400010, Readable: true, Executable: true})
	m.WriteMemory(0x400000, []byte{0x90, 0x48, 0x8B, 0x05, 0x11, 0x22, 0x33, 0x44, 0xC3, 0, 0, 0, 0, 0, 0, 0})
	m.AddModule(process.ModuleInfo{BaseAddress: 0x400000, Size: 0x10, Name: "app", Path: "/opt/app"})

	dir := t.TempDir()
	_, err := process_mock.SaveSnapshot(m, process_mock.SnapshotMetadata{Name: "app"}, dir, process_mock.DefaultMaxRegionSize)
	require.NoError(t, err)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScanSnapshot(t *testing.T) {
	dir := snapshotDir(t)

	out, err := run(t, "--snapshot", dir, "scan", "48 8B 05 ?? ?? ?? ?? C3")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 matches")
	assert.Contains(t, out, "Match at 0x400001")

	out, err = run(t, "--snapshot", dir, "scan", "--module", "APP", "C3")
	require.NoError(t, err)
	assert.Contains(t, out, "Match at 0x400008")
}

func TestModulesAndRegionsSnapshot(t *testing.T) {
	dir := snapshotDir(t)

	out, err := run(t, "--snapshot", dir, "modules")
	require.NoError(t, err)
	assert.Contains(t, out, "app @ 0x400000")

	out, err = run(t, "--snapshot", dir, "regions", "--exec")
	require.NoError(t, err)
	assert.Contains(t, out, "0000000000400000-0000000000400010 r-x 16\n")
	assert.Contains(t, out, "1 regions")
}

func TestReadAndPointersSnapshot(t *testing.T) {
	dir := snapshotDir(t)

	out, err := run(t, "--snapshot", dir, "read", "0x1000000", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "0000000001000000")

	out, err = run(t, "--snapshot", dir, "pointers", "0x1000000", "0x1234", "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "+0xC @ 0x100000C")
}

func TestArgumentErrors(t *testing.T) {
	dir := snapshotDir(t)

	_, err := run(t, "--snapshot", dir, "scan", "ZZ")
	assert.Error(t, err)

	_, err = run(t, "--snapshot", dir, "--pid", "1", "modules")
	assert.Error(t, err)

	_, err = run(t, "--snapshot", dir, "read", "nothex", "4")
	assert.Error(t, err)
}

package process_mock

import (
	"encoding/binary"
	"errors"
	"testing"

	"dumper7/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = []byte{0x00, 0x11, 0x22, 0x33, 0xAA, 0xBB, 0xCC, 0xDD, 0x44, 0x55, 0x66, 0x77}

func TestFindPattern_Exact(t *testing.T) {
	m := New()
	m.WriteMemory(0x1000, fixture)

	matches, err := m.FindPattern([]byte{0xAA, 0xBB, 0xCC, 0xDD}, "xxxx", 0x1000, 0x1100)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x1004), matches[0].Address)
	assert.Equal(t, process.ProcessMemorySize(4), matches[0].Offset)
}

func TestFindPattern_Wildcard(t *testing.T) {
	m := New()
	m.WriteMemory(0x1000, fixture)

	matches, err := m.FindPattern([]byte{0xAA, 0x00, 0xCC, 0xDD}, "x?xx", 0x1000, 0x1100)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x1004), matches[0].Address)
}

func TestRead_UnalignedU64(t *testing.T) {
	m := New()
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[3:], 0x1234567890ABCDEF)
	m.WriteMemory(0x2000, buf)

	v, err := process.Read[uint64](m, 0x2003)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234567890ABCDEF), v)
}

func TestFindPattern_MismatchPerformsNoReads(t *testing.T) {
	m := New()
	m.WriteMemory(0x1000, fixture)

	_, err := m.FindPattern([]byte{0xAA, 0xBB}, "xxx", 0x1000, 0x1100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, process.ErrPatternMaskMismatch))
	assert.Equal(t, int64(0), m.ReadCount())

	_, err = m.ScanPattern([]byte{0xAA, 0xBB}, "xxx")
	assert.True(t, errors.Is(err, process.ErrPatternMaskMismatch))
	assert.Equal(t, int64(0), m.ReadCount())
}

func TestFindPattern_EmptyRange(t *testing.T) {
	m := New()
	m.WriteMemory(0x1000, fixture)

	matches, err := m.FindPattern([]byte{0xAA}, "x", 0x1100, 0x1000)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindPattern_RangeClipsBlobs(t *testing.T) {
	m := New()
	m.WriteMemory(0x3000, []byte{0xAA, 0xBB, 0x00, 0x00})
	m.WriteMemory(0x1000, fixture)

	// The match at 0x1004 ends at 0x1008, past the range.
	matches, err := m.FindPattern([]byte{0xAA, 0xBB, 0xCC, 0xDD}, "xxxx", 0x1000, 0x1006)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = m.FindPattern([]byte{0xAA, 0xBB}, "xx", 0x0, 0x4000)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, process.ProcessMemoryAddress(0x1004), matches[0].Address)
	assert.Equal(t, process.ProcessMemoryAddress(0x3000), matches[1].Address)
	assert.Equal(t, process.ProcessMemorySize(0x3000), matches[1].Offset)
}

func TestReadBytes(t *testing.T) {
	m := New()
	m.WriteMemory(0x1000, fixture)

	data, err := m.ReadBytes(0x1000, process.ProcessMemorySize(len(fixture)))
	require.NoError(t, err)
	assert.Equal(t, fixture, data)

	// Interior read served by the linear scan.
	data, err = m.ReadBytes(0x1004, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, data)

	// Callers get a copy.
	data[0] = 0
	again, err := m.ReadBytes(0x1004, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), again[0])

	_, err = m.ReadBytes(0x1008, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, process.ErrMemoryReadFailed))

	data, err = m.ReadBytes(0xDEAD, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteValueRoundTrip(t *testing.T) {
	m := New()
	WriteValue(m, 0x5000, uint32(0xCAFEBABE))
	WriteValue(m, 0x6000, 3.5)

	u, err := process.Read[uint32](m, 0x5000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), u)

	f, err := process.Read[float64](m, 0x6000)
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
}

func TestIsValidAddress(t *testing.T) {
	m := New()
	m.WriteMemory(0, []byte{1, 2, 3, 4})
	m.WriteMemory(0x1000, fixture)

	assert.False(t, m.IsValidAddress(0), "address zero is never valid")
	assert.True(t, m.IsValidAddress(1))
	assert.True(t, m.IsValidAddress(0x100B))
	assert.False(t, m.IsValidAddress(0x100C))

	assert.True(t, m.IsValidRange(0x1000, 12))
	assert.False(t, m.IsValidRange(0x1000, 13))
}

func TestRegionsAndModules(t *testing.T) {
	m := New()
	m.AddRegion(process.MemoryRegion{Start: 0x400000, End: 0x401000, Readable: true, Executable: true})
	m.WriteMemory(0x400100, []byte{0x90, 0x90})
	m.WriteMemory(0x1000, fixture)
	m.AddModule(process.ModuleInfo{BaseAddress: 0x400000, Size: 0x1000, Name: "Target.exe"})

	regions, err := m.GetMemoryRegions()
	require.NoError(t, err)
	require.Len(t, regions, 2, "overlapping write registers no region")
	assert.Equal(t, process.MemoryRegion{Start: 0x1000, End: 0x100C, Readable: true, Writable: true}, regions[1])

	exec, err := m.GetExecutableRegions()
	require.NoError(t, err)
	require.Len(t, exec, 1)

	module, err := m.GetModule("target.EXE")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x400000), module.BaseAddress)

	_, err = m.GetModule("other.dll")
	assert.True(t, errors.Is(err, process.ErrModuleNotFound))

	matches, err := m.ScanPattern([]byte{0x90, 0x90}, "xx")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x400100), matches[0].Address)
	assert.Equal(t, process.ProcessMemorySize(0x100), matches[0].Offset)

	first, found, err := m.FindPatternFirst([]byte{0x90}, "x", 0x400000, 0x401000)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, process.ProcessMemoryAddress(0x400100), first.Address)

	assert.NoError(t, m.Close())
}

func TestSampleObject(t *testing.T) {
	m := NewWithSampleObject()

	type objectHeader struct {
		VTable        uint64
		ObjectFlags   uint32
		InternalIndex uint32
		Class         uint64
		Name          uint64
		Outer         uint64
	}

	h, err := process.Read[objectHeader](m, SampleObjectAddress)
	require.NoError(t, err)
	assert.Equal(t, SampleVTable, h.VTable)
	assert.Equal(t, SampleObjectFlags, h.ObjectFlags)
	assert.Equal(t, SampleInternalIndex, h.InternalIndex)
	assert.Equal(t, SampleClass, h.Class)
	assert.Equal(t, SampleName, h.Name)
	assert.Equal(t, SampleOuter, h.Outer)

	index, err := process.Read[uint32](m, SampleObjectAddress+SampleInternalIndexOffset)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), index)

	assert.True(t, m.IsValidRange(SampleObjectAddress, SampleObjectSize))
	assert.False(t, m.IsValidAddress(process.ProcessMemoryAddress(SampleClass)), "class pointer dangles")
}

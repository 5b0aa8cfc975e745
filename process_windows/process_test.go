//go:build windows

package process_windows

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"dumper7/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSelf(t *testing.T) *WindowsPlatform {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestSelf_ReadAndFind(t *testing.T) {
	buf := make([]byte, 128)
	copy(buf[40:], []byte{0xCA, 0xFE, 0xBA, 0xBE})
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&buf[0])))

	p := newSelf(t)

	data, err := p.ReadBytes(addr, process.ProcessMemorySize(len(buf)))
	require.NoError(t, err)
	assert.Equal(t, buf, data)

	matches, err := p.FindPattern([]byte{0xCA, 0x00, 0xBA, 0xBE}, "x?xx", addr, addr+process.ProcessMemoryAddress(len(buf)))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, addr+40, matches[0].Address)

	runtime.KeepAlive(buf)
}

func TestSelf_InvalidAddresses(t *testing.T) {
	p := newSelf(t)

	assert.False(t, p.IsValidAddress(0))
	assert.False(t, p.IsValidAddress(0xFFFF))
	assert.False(t, p.IsValidRange(^process.ProcessMemoryAddress(0), 2))

	_, err := p.ReadBytes(0x1000, 4)
	assert.True(t, errors.Is(err, process.ErrInvalidAddress))
}

func TestSelf_RegionsAndModules(t *testing.T) {
	p := newSelf(t)

	regions, err := p.GetMemoryRegions()
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	exec, err := p.GetExecutableRegions()
	require.NoError(t, err)
	require.NotEmpty(t, exec)

	exe, err := os.Executable()
	require.NoError(t, err)

	module, err := p.GetModule(strings.ToUpper(filepath.Base(exe)))
	require.NoError(t, err)
	assert.NotZero(t, module.Size)

	modules, failures, err := p.GetModulesPartial()
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.NotEmpty(t, modules)
}

func TestAttach_InvalidPID(t *testing.T) {
	_, err := Attach(0)
	assert.True(t, errors.Is(err, process.ErrOther))
}

package process_finder

import (
	"errors"
	"os"
	"testing"

	"dumper7/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExistsAndDescribe(t *testing.T) {
	self := process.ProcessID(os.Getpid())
	assert.True(t, Exists(self))

	info, err := Describe(self)
	require.NoError(t, err)
	assert.Equal(t, self, info.PID)
	assert.NotEmpty(t, info.Name)
}

func TestOneByName_NotFound(t *testing.T) {
	_, err := OneByName("no-such-process-4f1c9e")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = ListByName("")
	assert.Error(t, err)
}

func TestListByName_SkipsSelf(t *testing.T) {
	info, err := Describe(process.ProcessID(os.Getpid()))
	require.NoError(t, err)

	ps, err := ListByName(info.Name)
	require.NoError(t, err)
	for _, p := range ps {
		assert.NotEqual(t, process.ProcessID(os.Getpid()), p.PID)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "notepad", normalizeName("Notepad.EXE"))
	assert.Equal(t, "bash", normalizeName("bash"))
}

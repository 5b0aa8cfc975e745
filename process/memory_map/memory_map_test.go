package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `55d0c0a00000-55d0c0a02000 r--p 00000000 08:01 1311    /usr/bin/cat
55d0c0a02000-55d0c0a07000 r-xp 00002000 08:01 1311    /usr/bin/cat

55d0c1f4a000-55d0c1f6b000 rw-p 00000000 00:00 0       [heap]
7f1e2c000000-7f1e2c021000 rw-p 00000000 00:00 0
7f1e2c200000-7f1e2c201000 r--p 00000000 08:01 4242    /opt/my app/lib thing.so
`

func TestParseMemoryMap(t *testing.T) {
	items, err := ParseMemoryMap(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, items, 5)

	cat := items[1]
	assert.Equal(t, uint64(0x55d0c0a02000), cat.Address)
	assert.Equal(t, uint(0x5000), cat.Size)
	assert.Equal(t, "r-xp", cat.Perms)
	assert.Equal(t, uint64(0x2000), cat.Offset)
	assert.Equal(t, "08:01", cat.Dev)
	assert.Equal(t, uint64(1311), cat.Inode)
	assert.Equal(t, "/usr/bin/cat", cat.Path)
	assert.True(t, cat.IsReadable())
	assert.False(t, cat.IsWritable())
	assert.True(t, cat.IsExecutable())
	assert.True(t, cat.IsFileBacked())

	assert.Equal(t, "[heap]", items[2].Path)
	assert.False(t, items[2].IsFileBacked())
	assert.Equal(t, "", items[3].Path)
	assert.False(t, items[3].IsFileBacked())
	assert.Equal(t, "/opt/my app/lib thing.so", items[4].Path)
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{
		"garbage",
		"1000 r--p",
		"zzzz-2000 r--p 00000000 00:00 0",
		"2000-1000 r--p 00000000 00:00 0",
		"1000-2000 r--p 00000000 00:00 notanumber",
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}

	_, err := ParseMemoryMap(strings.NewReader("1000-2000 r--p 0 00:00 0\nbroken\n"))
	assert.Error(t, err)
}

func TestGetMemoryRegionForAddress(t *testing.T) {
	items := []MemoryMapItem{
		{Address: 0x3000, Size: 0x1000},
		{Address: 0x1000, Size: 0x1000},
	}
	SortByAddress(items)

	item := GetMemoryRegionForAddress(0x1FFF, items)
	require.NotNil(t, item)
	assert.Equal(t, uint64(0x1000), item.Address)

	assert.Nil(t, GetMemoryRegionForAddress(0x2000, items))
	assert.Nil(t, GetMemoryRegionForAddress(0x4000, items))
}

func TestProtectionPerms(t *testing.T) {
	tests := []struct {
		protect uint32
		want    string
	}{
		{PageNoAccess, "---p"},
		{PageReadOnly, "r--p"},
		{PageReadWrite, "rw-p"},
		{PageWriteCopy, "rw-p"},
		{PageExecute, "--xp"},
		{PageExecuteRead, "r-xp"},
		{PageExecuteReadWrite, "rwxp"},
		{PageExecuteWriteCopy, "rwxp"},
		{PageReadWrite | PageNoCache, "rw-p"},
		{PageReadWrite | PageGuard, "---p"},
		{0, "---p"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProtectionPerms(tt.protect), "protect 0x%X", tt.protect)
	}
}

package process

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_UnalignedU64(t *testing.T) {
	data := make([]byte, 32)
	binary.LittleEndian.PutUint64(data[0:], 0x1234567890ABCDEF)
	binary.LittleEndian.PutUint64(data[13:], 0x1234567890ABCDEF)
	f := newFakePlatform(fakeSegment{start: 0x1000, data: data})

	for _, addr := range []ProcessMemoryAddress{0x1000, 0x100D} {
		v, err := Read[uint64](f, addr)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x1234567890ABCDEF), v)
	}
}

func TestRead_Struct(t *testing.T) {
	type header struct {
		Flags uint32
		Index uint32
		Outer uint64
	}

	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], 5)
	binary.LittleEndian.PutUint32(data[4:], 0x1234)
	binary.LittleEndian.PutUint64(data[8:], 0xCAFE)
	f := newFakePlatform(fakeSegment{start: 0x1000, data: data})

	h, err := Read[header](f, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, header{Flags: 5, Index: 0x1234, Outer: 0xCAFE}, h)
}

func TestRead_RejectsNonPOD(t *testing.T) {
	f := newFakePlatform(fakeSegment{start: 0x1000, data: make([]byte, 64)})

	_, err := Read[string](f, 0x1000)
	assert.True(t, errors.Is(err, ErrNotPOD))

	type withSlice struct {
		A uint32
		B []byte
	}
	_, err = Read[withSlice](f, 0x1000)
	assert.True(t, errors.Is(err, ErrNotPOD))

	assert.Equal(t, 0, f.readCount())
}

func TestRead_PropagatesReadError(t *testing.T) {
	f := newFakePlatform()

	_, err := Read[uint32](f, 0xDEAD0000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMemoryReadFailed))
}

func TestReadSlice(t *testing.T) {
	data := make([]byte, 12)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i+1)*10)
	}
	f := newFakePlatform(fakeSegment{start: 0x1000, data: data})

	values, err := ReadSlice[uint32](f, 0x1000, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 20, 30}, values)
	assert.Equal(t, 1, f.readCount())

	values, err = ReadSlice[uint32](f, 0x1000, 0)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ReadSlice[uint32](f, 0x1000, -1)
	assert.Error(t, err)
}

func TestReadSlice_CountOverflow(t *testing.T) {
	f := newFakePlatform(fakeSegment{start: 0x1000, data: make([]byte, 16)})

	_, err := ReadSlice[uint64](f, 0x1000, math.MaxInt/4)
	assert.True(t, errors.Is(err, ErrOther))
	assert.Equal(t, 0, f.readCount())
}

func TestReadPath(t *testing.T) {
	// 0x1000+0x08 -> 0x2000; 0x2000+0x10 -> 0x3000; value at 0x3000+0x04.
	root := make([]byte, 0x20)
	binary.LittleEndian.PutUint64(root[0x08:], 0x2000)
	mid := make([]byte, 0x20)
	binary.LittleEndian.PutUint64(mid[0x10:], 0x3000)
	leaf := make([]byte, 0x10)
	binary.LittleEndian.PutUint32(leaf[0x04:], 0xBEEF)

	f := newFakePlatform(
		fakeSegment{start: 0x1000, data: root},
		fakeSegment{start: 0x2000, data: mid},
		fakeSegment{start: 0x3000, data: leaf},
	)

	v, err := ReadPath[uint32](f, 0x1000, 0x08, 0x10, 0x04)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBEEF), v)

	v, err = ReadPath[uint32](f, 0x3004)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBEEF), v)

	// A null link stops the walk.
	_, err = ReadPath[uint32](f, 0x1000, 0x00, 0x04)
	assert.True(t, errors.Is(err, ErrInvalidPointer))
}

package process_mock

import (
	"encoding/binary"

	"dumper7/process"
)

// Layout of the fabricated object header seeded by NewWithSampleObject.
const (
	SampleObjectAddress process.ProcessMemoryAddress = 0x1000000
	SampleObjectSize                                 = 0x100

	SampleVTableOffset        = 0x00 // uint64
	SampleObjectFlagsOffset   = 0x08 // uint32
	SampleInternalIndexOffset = 0x0C // uint32
	SampleClassOffset         = 0x10 // uint64 pointer
	SampleNameOffset          = 0x18 // uint64 name index
	SampleOuterOffset         = 0x20 // uint64 pointer

	SampleVTable        uint64 = 0x7FFFFFFF00000000
	SampleObjectFlags   uint32 = 0x00000005
	SampleInternalIndex uint32 = 0x00001234
	SampleClass         uint64 = 0x2000000
	SampleName          uint64 = 0x00000042
	SampleOuter         uint64 = 0
)

// NewWithSampleObject returns a MockPlatform holding one fabricated object
// header at SampleObjectAddress, for exercising object-walking code without
// a real process.
func NewWithSampleObject() *MockPlatform {
	m := New()

	data := make([]byte, SampleObjectSize)
	binary.LittleEndian.PutUint64(data[SampleVTableOffset:], SampleVTable)
	binary.LittleEndian.PutUint32(data[SampleObjectFlagsOffset:], SampleObjectFlags)
	binary.LittleEndian.PutUint32(data[SampleInternalIndexOffset:], SampleInternalIndex)
	binary.LittleEndian.PutUint64(data[SampleClassOffset:], SampleClass)
	binary.LittleEndian.PutUint64(data[SampleNameOffset:], SampleName)
	binary.LittleEndian.PutUint64(data[SampleOuterOffset:], SampleOuter)

	m.WriteMemory(SampleObjectAddress, data)
	return m
}

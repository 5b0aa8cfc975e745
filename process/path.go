package process

import (
	"fmt"
	"math"
	"reflect"
	"sync"
	"unsafe"
)

// PointerSize is the width of a pointer in the targets this package reads.
const PointerSize = 8

// Read reads a single value of type T from memory. T must be POD: its layout
// may not contain pointers, slices, maps, strings, interfaces, channels or
// funcs. addr does not need to be aligned for T.
func Read[T any](r Reader, addr ProcessMemoryAddress) (T, error) {
	var t T
	if err := checkPOD[T](); err != nil {
		return t, err
	}

	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := r.ReadBytes(addr, size)
	if err != nil {
		return t, err
	}
	if ProcessMemorySize(len(data)) != size {
		return t, MemoryReadFailed(addr, size, fmt.Sprintf("expected %d bytes, got %d", size, len(data)), nil)
	}

	copyTo(&t, data)
	return t, nil
}

// ReadSlice reads count contiguous values of type T with a single read.
func ReadSlice[T any](r Reader, addr ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, Other(fmt.Sprintf("negative element count %d", count), nil)
	}
	if err := checkPOD[T](); err != nil {
		return nil, err
	}

	var zero T
	elem := int(unsafe.Sizeof(zero))
	if elem > 0 && count > math.MaxInt/elem {
		return nil, Other(fmt.Sprintf("%d elements of %d bytes overflow the read size", count, elem), nil)
	}

	result := make([]T, count)
	if elem == 0 || count == 0 {
		return result, nil
	}

	total := ProcessMemorySize(elem * count)
	data, err := r.ReadBytes(addr, total)
	if err != nil {
		return nil, err
	}
	if ProcessMemorySize(len(data)) != total {
		return nil, MemoryReadFailed(addr, total, fmt.Sprintf("expected %d bytes, got %d", total, len(data)), nil)
	}

	for i := range result {
		copyTo(&result[i], data[i*elem:(i+1)*elem])
	}
	return result, nil
}

// ReadPointer reads a little-endian 64-bit pointer.
func ReadPointer(r Reader, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	v, err := Read[uint64](r, addr)
	if err != nil {
		return 0, err
	}
	return ProcessMemoryAddress(v), nil
}

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base.
func ReadPath[T any](r Reader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (T, error) {
	var zero T
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr + ProcessMemoryAddress(offsets[i])

		ptrVal, err := ReadPointer(r, ptrAddr)
		if err != nil {
			return zero, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, uint64(ptrAddr), err)
		}

		if ptrVal == 0 {
			return zero, fmt.Errorf("pointer at offset %d (addr 0x%x) is null: %w", i, uint64(ptrAddr), ErrInvalidPointer)
		}

		currentAddr = ptrVal
	}

	finalOffset := ProcessMemorySize(0)
	if len(offsets) > 0 {
		finalOffset = offsets[len(offsets)-1]
	}

	finalAddr := currentAddr + ProcessMemoryAddress(finalOffset)

	val, err := Read[T](r, finalAddr)
	if err != nil {
		return zero, fmt.Errorf("failed to read final value at 0x%x: %w", uint64(finalAddr), err)
	}

	return val, nil
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}

var podTypes sync.Map // reflect.Type -> bool

func checkPOD[T any]() error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if ok, cached := podTypes.Load(t); cached {
		if ok.(bool) {
			return nil
		}
	} else {
		ok := isPOD(t)
		podTypes.Store(t, ok)
		if ok {
			return nil
		}
	}
	return Other(fmt.Sprintf("cannot read %s", t), ErrNotPOD)
}

func isPOD(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return isPOD(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPOD(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

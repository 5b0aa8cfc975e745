package process

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ReadCString reads up to maxLength bytes at addr and returns the text before
// the first NUL (or the whole buffer when there is none). The bytes must be
// valid UTF-8.
func ReadCString(r Reader, addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error) {
	data, err := r.ReadBytes(addr, maxLength)
	if err != nil {
		return "", err
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}

	if !utf8.Valid(data) {
		return "", Other(fmt.Sprintf("string at 0x%X", uint64(addr)), ErrInvalidUTF8)
	}
	return string(data), nil
}

// ReadWString reads up to maxLength UTF-16LE code units at addr, stops at the
// first zero unit and decodes the rest. Unpaired surrogates are an error.
func ReadWString(r Reader, addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error) {
	data, err := r.ReadBytes(addr, maxLength*2)
	if err != nil {
		return "", err
	}

	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}

	s, ok := decodeUTF16(units)
	if !ok {
		return "", Other(fmt.Sprintf("wide string at 0x%X", uint64(addr)), ErrInvalidUTF16)
	}
	return s, nil
}

func decodeUTF16(units []uint16) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			sb.WriteRune(u)
			continue
		}
		if i+1 >= len(units) {
			return "", false
		}
		r := utf16.DecodeRune(u, rune(units[i+1]))
		if r == utf8.RuneError {
			return "", false
		}
		sb.WriteRune(r)
		i++
	}
	return sb.String(), true
}

// IsValidRange is the range check shared by backends. It fails closed on
// overflow. Ranges up to one page are approximated by their first and last
// byte, and larger ranges by their first byte only: an unreadable hole
// strictly inside the range is not detected.
func IsValidRange(r Reader, addr ProcessMemoryAddress, size ProcessMemorySize) bool {
	end, ok := addRange(addr, size)
	if !ok {
		return false
	}
	if size == 0 {
		return r.IsValidAddress(addr)
	}
	if size <= 0x1000 {
		return r.IsValidAddress(addr) && r.IsValidAddress(end-1)
	}
	return r.IsValidAddress(addr)
}

package process

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// ParseAOB parses a signature such as "48 8B 05 ?? ?? ?? ??" into an AOB.
// Bytes are hex, "?" and "??" are wildcards, and spaces or commas separate
// tokens.
func ParseAOB(s string) (AOB, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	pattern := make([]byte, 0, len(parts))
	var mask strings.Builder

	for _, part := range parts {
		if part == "??" || part == "?" {
			pattern = append(pattern, 0)
			mask.WriteByte('?')
			continue
		}

		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid hex byte %q: %w", part, err)
		}
		pattern = append(pattern, byte(val))
		mask.WriteByte(MaskExact)
	}

	return NewAOB(pattern, mask.String())
}

// FormatAOB renders pattern/mask back into ParseAOB's syntax.
func FormatAOB(pattern []byte, mask string) string {
	var sb strings.Builder
	for i, b := range pattern {
		if i > 0 {
			sb.WriteString(" ")
		}
		if i < len(mask) && mask[i] != MaskExact {
			sb.WriteString("??")
		} else {
			sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
		}
	}
	return sb.String()
}

func exactMask(n int) string {
	return strings.Repeat(string(MaskExact), n)
}

// IntegerPattern encodes v little-endian at the width of T.
func IntegerPattern[T constraints.Integer](v T) AOB {
	size := int(unsafe.Sizeof(v))
	u := uint64(v)
	pattern := make([]byte, size)
	for i := range pattern {
		pattern[i] = byte(u >> (8 * i))
	}
	return AOB{Pattern: pattern, Mask: exactMask(size)}
}

// FloatPattern32 encodes v as an IEEE-754 single.
func FloatPattern32(v float32) AOB {
	pattern := binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
	return AOB{Pattern: pattern, Mask: exactMask(len(pattern))}
}

// FloatPattern64 encodes v as an IEEE-754 double.
func FloatPattern64(v float64) AOB {
	pattern := binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
	return AOB{Pattern: pattern, Mask: exactMask(len(pattern))}
}

// StringPattern encodes s as UTF-8, or as UTF-16LE when wide is set. No
// terminator is appended.
func StringPattern(s string, wide bool) AOB {
	if !wide {
		return AOB{Pattern: []byte(s), Mask: exactMask(len(s))}
	}

	units := utf16.Encode([]rune(s))
	pattern := make([]byte, 0, len(units)*2)
	for _, u := range units {
		pattern = binary.LittleEndian.AppendUint16(pattern, u)
	}
	return AOB{Pattern: pattern, Mask: exactMask(len(pattern))}
}

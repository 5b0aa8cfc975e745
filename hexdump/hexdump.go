// Package hexdump renders byte slices read from a process as colored hex
// dumps, with optional highlighting of masked patterns and pointer hints.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"dumper7/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	ShowASCII bool

	// StartOffset is added to every printed offset, usually the address the
	// data was read from
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode
	HighlightColor    coloransi.ColorCode

	// Highlight marks every match of a masked pattern, using the same rules
	// as process.FindPattern
	HighlightPattern []byte
	HighlightMask    string

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Pointers, when set, is asked about the 8-byte values at the start and
	// middle of each line; valid ones are printed after the ASCII column
	Pointers process.Reader
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		GroupSize:         1,
		ShowASCII:         true,
		OffsetWidth:       8,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.Green,
		ASCIIColor:        coloransi.White,
		NonPrintableColor: coloransi.Red,
		ZeroColor:         coloransi.BrightBlack,
		HighlightColor:    coloransi.Yellow,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpAt dumps data with offsets starting at addr and pointer hints
// validated against r.
func DumpAt(r process.Reader, addr process.ProcessMemoryAddress, data []byte) string {
	options := DefaultOptions()
	options.StartOffset = uint64(addr)
	options.OffsetWidth = 16
	options.Pointers = r
	return Dump(data, options)
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	highlighted := highlightMap(data, options.HighlightPattern, options.HighlightMask)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], highlighted[offset:end], uint64(offset)+options.StartOffset, options)
		lineCount++
	}
}

// highlightMap flags every byte covered by a match. Matches are found over
// the whole buffer, so ones that wrap onto the next line are still marked.
func highlightMap(data, pattern []byte, mask string) []bool {
	flags := make([]bool, len(data))
	if process.CheckPattern(pattern, mask) != nil {
		return flags
	}

	for _, i := range process.FindPatternMatches(data, pattern, mask) {
		for j := range pattern {
			flags[i+j] = true
		}
	}
	return flags
}

func formatLine(writer io.Writer, data []byte, highlighted []bool, offset uint64, options HexDumpOptions) {
	offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", offset)
	fmt.Fprint(writer, coloransi.Foreground(options.OffsetColor, offsetStr), "  ")

	var groups []string
	var group strings.Builder
	for i, b := range data {
		group.WriteString(colorByte(fmt.Sprintf("%02x", b), b, highlighted[i], options.HexColor, options))
		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			groups = append(groups, group.String())
			group.Reset()
		}
	}
	fmt.Fprint(writer, strings.Join(groups, " "))

	// Pad short lines so the ASCII column stays aligned.
	if missing := options.BytesPerLine - len(data); missing > 0 {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		curGroups := (len(data) + options.GroupSize - 1) / options.GroupSize
		fmt.Fprint(writer, strings.Repeat(" ", missing*2+fullGroups-curGroups))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")
		for i, b := range data {
			c := "."
			if b != 0 && b < 0x80 && unicode.IsPrint(rune(b)) {
				c = string(rune(b))
			}
			fmt.Fprint(writer, colorByte(c, b, highlighted[i], options.ASCIIColor, options))
		}
	}

	if options.Pointers != nil {
		var hints []string
		for at := 0; at+process.PointerSize <= len(data); at += 8 {
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[at:]))
			if ptr != 0 && options.Pointers.IsValidAddress(ptr) {
				hints = append(hints, coloransi.Foreground(options.HighlightColor, ptr.ToString()))
			}
		}
		if len(hints) > 0 {
			fmt.Fprint(writer, " | ", strings.Join(hints, " "))
		}
	}

	fmt.Fprintln(writer)
}

func colorByte(text string, b byte, highlighted bool, base coloransi.ColorCode, options HexDumpOptions) string {
	switch {
	case highlighted:
		return coloransi.Foreground(options.HighlightColor, text)
	case b == 0:
		return coloransi.Foreground(options.ZeroColor, text)
	case text == ".":
		return coloransi.Foreground(options.NonPrintableColor, text)
	default:
		return coloransi.Foreground(base, text)
	}
}

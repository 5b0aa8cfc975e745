// Package process defines the platform-independent contract for reading and
// scanning the memory of a target process, plus the helpers every backend
// shares: typed and string reads, the pattern matcher, the chunked scanner
// and the region cache.
package process

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories a backend may report.
type ErrorKind int

const (
	KindMemoryReadFailed ErrorKind = iota + 1
	KindInvalidAddress
	KindModuleNotFound
	KindAccessDenied
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindMemoryReadFailed:
		return "memory read failed"
	case KindInvalidAddress:
		return "invalid address"
	case KindModuleNotFound:
		return "module not found"
	case KindAccessDenied:
		return "access denied"
	case KindOther:
		return "platform error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	// Kind sentinels, matched with errors.Is against any *Error of that kind.
	ErrMemoryReadFailed = errors.New(KindMemoryReadFailed.String())
	ErrInvalidAddress   = errors.New(KindInvalidAddress.String())
	ErrModuleNotFound   = errors.New(KindModuleNotFound.String())
	ErrAccessDenied     = errors.New(KindAccessDenied.String())
	ErrOther            = errors.New(KindOther.String())

	// Causes carried inside KindOther errors.
	ErrPatternMaskMismatch = errors.New("pattern and mask length mismatch")
	ErrEmptyPattern        = errors.New("empty pattern")
	ErrInvalidUTF8         = errors.New("invalid UTF-8 string")
	ErrInvalidUTF16        = errors.New("invalid UTF-16 string")
	ErrNotPOD              = errors.New("type has no fixed byte layout")
	ErrInvalidPointer      = errors.New("invalid pointer read")
)

// Error is the single error type returned across the backend boundary.
type Error struct {
	Kind    ErrorKind
	Address ProcessMemoryAddress // KindMemoryReadFailed, KindInvalidAddress
	Size    ProcessMemorySize    // KindMemoryReadFailed
	Name    string               // KindModuleNotFound
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMemoryReadFailed:
		return fmt.Sprintf("memory read failed at 0x%X (size: %d): %s", uint64(e.Address), uint(e.Size), e.reason())
	case KindInvalidAddress:
		return fmt.Sprintf("invalid memory address: 0x%X", uint64(e.Address))
	case KindModuleNotFound:
		return fmt.Sprintf("module not found: %s", e.Name)
	case KindAccessDenied:
		return fmt.Sprintf("access denied: %s", e.reason())
	}
	return fmt.Sprintf("platform error: %s", e.reason())
}

func (e *Error) reason() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return e.Reason + ": " + e.Err.Error()
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrModuleNotFound) works
// without inspecting fields.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMemoryReadFailed:
		return e.Kind == KindMemoryReadFailed
	case ErrInvalidAddress:
		return e.Kind == KindInvalidAddress
	case ErrModuleNotFound:
		return e.Kind == KindModuleNotFound
	case ErrAccessDenied:
		return e.Kind == KindAccessDenied
	case ErrOther:
		return e.Kind == KindOther
	}
	return false
}

func MemoryReadFailed(addr ProcessMemoryAddress, size ProcessMemorySize, reason string, err error) *Error {
	return &Error{Kind: KindMemoryReadFailed, Address: addr, Size: size, Reason: reason, Err: err}
}

func InvalidAddress(addr ProcessMemoryAddress) *Error {
	return &Error{Kind: KindInvalidAddress, Address: addr}
}

func ModuleNotFound(name string) *Error {
	return &Error{Kind: KindModuleNotFound, Name: name}
}

func AccessDenied(reason string, err error) *Error {
	return &Error{Kind: KindAccessDenied, Reason: reason, Err: err}
}

func Other(reason string, err error) *Error {
	return &Error{Kind: KindOther, Reason: reason, Err: err}
}

// KindOf returns the kind of a taxonomy error anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

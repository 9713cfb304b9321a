package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies decoding failures
type ErrorKind int

const (
	KindFormat ErrorKind = iota + 1
	KindChecksum
	KindFraming
	KindReassembly
	KindAlphabet
	KindUnsupportedType
	KindIncomplete
)

var kindNames = map[ErrorKind]string{
	KindFormat:          "format",
	KindChecksum:        "checksum",
	KindFraming:         "framing",
	KindReassembly:      "reassembly",
	KindAlphabet:        "alphabet",
	KindUnsupportedType: "unsupported_type",
	KindIncomplete:      "incomplete",
}

// AllKinds lists every error kind in declaration order
var AllKinds = []ErrorKind{
	KindFormat,
	KindChecksum,
	KindFraming,
	KindReassembly,
	KindAlphabet,
	KindUnsupportedType,
	KindIncomplete,
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels usable with errors.Is
var (
	ErrFormat          = errors.New("format error")
	ErrChecksum        = errors.New("checksum error")
	ErrFraming         = errors.New("framing error")
	ErrReassembly      = errors.New("reassembly error")
	ErrAlphabet        = errors.New("alphabet error")
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrIncomplete      = errors.New("incomplete message")
)

var kindSentinels = map[ErrorKind]error{
	KindFormat:          ErrFormat,
	KindChecksum:        ErrChecksum,
	KindFraming:         ErrFraming,
	KindReassembly:      ErrReassembly,
	KindAlphabet:        ErrAlphabet,
	KindUnsupportedType: ErrUnsupportedType,
	KindIncomplete:      ErrIncomplete,
}

// DecodeError is returned by every stage of the decoding pipeline
type DecodeError struct {
	Kind  ErrorKind
	Field string
	Input string
	Msg   string
	Err   error
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, 3)
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String() + " error"
	}
	return strings.Join(parts, ": ")
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *DecodeError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewError builds a DecodeError with a formatted message
func NewError(kind ErrorKind, field, input, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Kind:  kind,
		Field: field,
		Input: input,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// NewChecksumError reports a checksum mismatch on the given field
func NewChecksumError(field, input string, calculated, declared byte) *DecodeError {
	return &DecodeError{
		Kind:  KindChecksum,
		Field: field,
		Input: input,
		Err:   &ChecksumMismatch{Calculated: calculated, Declared: declared},
	}
}

// KindOf returns the kind of a decoding error, or 0 if err is not one
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// ChecksumMismatch carries the calculated and declared checksum values
type ChecksumMismatch struct {
	Calculated byte
	Declared   byte
}

func (c *ChecksumMismatch) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%02X, expected 0x%02X", c.Calculated, c.Declared)
}

// Package ais expands armored AIS payloads and decodes them into typed
// messages following the ITU-R M.1371-5 bit layouts.
package ais

import (
	"strings"

	"github.com/saviobatista/ais-logger/internal/types"
)

// Bits is an expanded payload, addressable by bit offset. The first
// transmitted bit is offset 0.
type Bits struct {
	data []byte
	n    int
}

// sextets maps every armored character to its 6-bit value, 0xFF if invalid
var sextets = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 0xFF
	}
	for c := '0'; c <= 'W'; c++ {
		t[c] = byte(c - '0')
	}
	for c := '`'; c <= 'w'; c++ {
		t[c] = byte(c - '`' + 40)
	}
	return t
}()

// sixBitASCII is the character set of AIS text fields
const sixBitASCII = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// Sextet returns the 6-bit value of an armored character
func Sextet(c byte) (byte, bool) {
	v := sextets[c]
	return v, v != 0xFF
}

// Expand converts an armored payload into bits, dropping the trailing fill bits
func Expand(payload string, fill int) (*Bits, error) {
	if fill < 0 || fill > 5 {
		return nil, types.NewError(types.KindFormat, "fill_bits", payload, "fill bits %d out of range", fill)
	}
	total := 6*len(payload) - fill
	if total < 0 {
		return nil, types.NewError(types.KindFormat, "fill_bits", payload,
			"%d fill bits exceed a %d character payload", fill, len(payload))
	}

	b := &Bits{data: make([]byte, (6*len(payload)+7)/8), n: total}
	for i := 0; i < len(payload); i++ {
		v, ok := Sextet(payload[i])
		if !ok {
			return nil, types.NewError(types.KindAlphabet, "payload", payload,
				"invalid character %q at position %d", payload[i], i)
		}
		for j := 0; j < 6; j++ {
			if v&(0x20>>j) != 0 {
				pos := 6*i + j
				b.data[pos/8] |= 0x80 >> (pos % 8)
			}
		}
	}
	return b, nil
}

// Len returns the number of payload bits
func (b *Bits) Len() int {
	return b.n
}

func (b *Bits) check(off, width, max int) error {
	if width < 1 || width > max || off < 0 || off+width > b.n {
		return types.NewError(types.KindFormat, "payload", "",
			"cannot read %d bits at offset %d of %d", width, off, b.n)
	}
	return nil
}

// Uint reads an unsigned big-endian field
func (b *Bits) Uint(off, width int) (uint64, error) {
	if err := b.check(off, width, 64); err != nil {
		return 0, err
	}
	var v uint64
	for pos := off; pos < off+width; pos++ {
		v <<= 1
		if b.data[pos/8]&(0x80>>(pos%8)) != 0 {
			v |= 1
		}
	}
	return v, nil
}

// Int reads a two's complement signed field
func (b *Bits) Int(off, width int) (int64, error) {
	u, err := b.Uint(off, width)
	if err != nil {
		return 0, err
	}
	if width < 64 && u&(1<<(width-1)) != 0 {
		return int64(u) - int64(1)<<width, nil
	}
	return int64(u), nil
}

// Bool reads a single flag bit
func (b *Bits) Bool(off int) (bool, error) {
	v, err := b.Uint(off, 1)
	return v == 1, err
}

// Text reads a 6-bit ASCII string of width bits. Fields cut short by the
// transmitter are read as far as the payload goes. Trailing '@' and
// spaces are removed.
func (b *Bits) Text(off, width int) string {
	var sb strings.Builder
	for pos := off; pos+6 <= off+width && pos+6 <= b.n; pos += 6 {
		v, _ := b.Uint(pos, 6)
		sb.WriteByte(sixBitASCII[v])
	}
	return strings.TrimRight(sb.String(), "@ ")
}

// reader reads consecutive fields and remembers the first error
type reader struct {
	bits *Bits
	err  error
}

func (r *reader) uint(off, width int) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.bits.Uint(off, width)
	r.err = err
	return v
}

func (r *reader) int(off, width int) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.bits.Int(off, width)
	r.err = err
	return v
}

func (r *reader) bool(off int) bool {
	return r.uint(off, 1) == 1
}

func (r *reader) text(off, width int) string {
	return r.bits.Text(off, width)
}

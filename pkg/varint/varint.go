// Package varint implements the little-endian base-128 integer encoding
// used throughout BOB files. The decoder consumes one byte per call so
// that callers reading from a block buffer never need look-ahead.
package varint

import "github.com/pkg/errors"

// MaxLen is the maximum encoded length of a uint64. A destination buffer
// of MaxLen bytes always suffices for Encode.
const MaxLen = 10

var (
	// ErrOverflow means the encoding does not fit in 64 bits.
	ErrOverflow = errors.New("varint overflows 64 bits")

	// ErrShortForm means a value was encoded with more bytes than needed.
	ErrShortForm = errors.New("varint invalid short form")
)

// Encode writes n to dst and returns the number of bytes written.
// Each byte carries seven payload bits, least significant group first;
// the high bit marks continuation.
func Encode(dst []byte, n uint64) int {
	i := 0
	for n >= 0x80 {
		dst[i] = 0x80 | byte(n&0x7f)
		n >>= 7
		i++
	}
	dst[i] = byte(n)
	return i + 1
}

// Decoder decodes a varint incrementally, one byte per Feed call.
// The zero value is ready to use.
type Decoder struct {
	n     uint64
	count int
}

// Feed consumes the next byte of the encoding. It returns done == true
// once the value is complete; the value is then available via Value.
// A Decoder must be Reset before decoding another value.
func (d *Decoder) Feed(b byte) (done bool, err error) {
	if d.count == 0 {
		d.n = uint64(b & 0x7f)
		d.count = 1
		return b&0x80 == 0, nil
	}
	if d.count > 9 || (d.count == 9 && b > 1) {
		return false, ErrOverflow
	}
	if b&0x80 != 0 {
		d.n |= uint64(b&0x7f) << (7 * d.count)
		d.count++
		return false, nil
	}
	if b == 0 {
		// a terminator of zero is an over-long encoding of a shorter value
		return false, ErrShortForm
	}
	d.n |= uint64(b) << (7 * d.count)
	return true, nil
}

// Value returns the decoded integer. Only valid after Feed reported done.
func (d *Decoder) Value() uint64 {
	return d.n
}

// Reset prepares the decoder for the next value.
func (d *Decoder) Reset() {
	d.n = 0
	d.count = 0
}

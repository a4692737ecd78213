// Package encoding implements the per-column codecs of the container
// format: varint, zigzag-varint, delta-zigzag-varint, local and global
// dictionary columns, run-length encoding for the template-id stream, and
// length-prefixed raw strings, plus the self-describing column block
// framing they are wrapped in.
//
// All encoders are one-pass writers over pooled buffers; all decoders are
// streaming readers that never require random-access rewriting.
package encoding

import (
	"encoding/binary"

	"github.com/adam-bouafia/logsim/errs"
)

// MaxVarintBytes is the longest legal encoding of a u64 varint.
const MaxVarintBytes = binary.MaxVarintLen64

// AppendUvarint appends the little-endian base-128 encoding of v to dst.
// The encoded form is minimal: no trailing 0x80 continuations are produced.
func AppendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// UvarintLen returns the number of bytes AppendUvarint produces for v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}

// Uvarint decodes a u64 varint from data starting at off.
//
// Returns the value, the number of bytes consumed, and an error:
// errs.ErrVarintOverflow if the encoding exceeds 10 bytes or the value
// overflows 64 bits, errs.ErrTruncatedContainer if data ends before the
// continuation bit clears.
func Uvarint(data []byte, off int) (uint64, int, error) {
	if off >= len(data) {
		return 0, 0, errs.ErrTruncatedContainer
	}

	var v uint64
	var shift uint
	for i := off; i < len(data); i++ {
		if i-off >= MaxVarintBytes {
			return 0, 0, errs.ErrVarintOverflow
		}
		b := data[i]
		if b < 0x80 {
			if i-off == MaxVarintBytes-1 && b > 1 {
				return 0, 0, errs.ErrVarintOverflow
			}

			return v | uint64(b)<<shift, i - off + 1, nil
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
	}

	return 0, 0, errs.ErrTruncatedContainer
}

// Zigzag maps a signed 64-bit integer to an unsigned one so that values of
// small magnitude, positive or negative, share short varint encodings.
func Zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63) //nolint:gosec
}

// Unzigzag is the inverse of Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1) //nolint:gosec
}

// UvarintReader streams u64 varints out of a payload. It keeps the first
// error it hits; callers check Err after the scan loop.
type UvarintReader struct {
	data []byte
	off  int
	err  error
}

// NewUvarintReader creates a reader positioned at the start of data.
func NewUvarintReader(data []byte) *UvarintReader {
	return &UvarintReader{data: data}
}

// Next decodes the next varint. It returns false at end of data or on the
// first malformed encoding; Err distinguishes the two.
func (r *UvarintReader) Next() (uint64, bool) {
	if r.err != nil || r.off >= len(r.data) {
		return 0, false
	}

	v, n, err := Uvarint(r.data, r.off)
	if err != nil {
		r.err = err
		return 0, false
	}
	r.off += n

	return v, true
}

// Err returns the first decode error encountered, or nil.
func (r *UvarintReader) Err() error {
	return r.err
}

// Offset returns the current byte position within the payload.
func (r *UvarintReader) Offset() int {
	return r.off
}

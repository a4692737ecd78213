package encoding

import (
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/pool"
)

// IntColumnEncoder encodes an integer column as a varint stream, either
// plain (CodecVarint, all values non-negative) or zigzag-mapped
// (CodecZigzagVarint, signed values).
type IntColumnEncoder struct {
	buf    *pool.ByteBuffer
	count  int
	zigzag bool
}

// NewVarintColumnEncoder creates an encoder for non-negative integer
// columns. Values ≤ 127 take a single byte.
func NewVarintColumnEncoder() *IntColumnEncoder {
	return &IntColumnEncoder{buf: pool.GetColumnBuffer()}
}

// NewZigzagColumnEncoder creates an encoder for signed integer columns.
func NewZigzagColumnEncoder() *IntColumnEncoder {
	return &IntColumnEncoder{buf: pool.GetColumnBuffer(), zigzag: true}
}

// Tag returns the codec tag this encoder produces.
func (e *IntColumnEncoder) Tag() format.CodecTag {
	if e.zigzag {
		return format.CodecZigzagVarint
	}

	return format.CodecVarint
}

// Write appends a single value to the column.
func (e *IntColumnEncoder) Write(v int64) {
	var u uint64
	if e.zigzag {
		u = Zigzag(v)
	} else {
		u = uint64(v) //nolint:gosec
	}
	e.buf.B = AppendUvarint(e.buf.B, u)
	e.count++
}

// Bytes returns the encoded payload. The slice is valid until Finish.
func (e *IntColumnEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of values written.
func (e *IntColumnEncoder) Len() int {
	return e.count
}

// Finish returns the internal buffer to the pool. The encoder must not be
// used afterwards.
func (e *IntColumnEncoder) Finish() {
	pool.PutColumnBuffer(e.buf)
	e.buf = nil
}

// IntColumnReader streams integer values out of a varint or zigzag-varint
// payload.
type IntColumnReader struct {
	r      *UvarintReader
	zigzag bool
}

// NewIntColumnReader creates a reader for the given payload. The zigzag
// flag must match the codec tag the payload was written with.
func NewIntColumnReader(payload []byte, zigzag bool) *IntColumnReader {
	return &IntColumnReader{r: NewUvarintReader(payload), zigzag: zigzag}
}

// Next returns the next value. False means end of payload or a decode
// error; check Err.
func (r *IntColumnReader) Next() (int64, bool) {
	u, ok := r.r.Next()
	if !ok {
		return 0, false
	}
	if r.zigzag {
		return Unzigzag(u), true
	}

	return int64(u), true //nolint:gosec
}

// Err returns the first decode error encountered, or nil.
func (r *IntColumnReader) Err() error {
	return r.r.Err()
}

// Offset returns the current byte position within the payload.
func (r *IntColumnReader) Offset() int {
	return r.r.Offset()
}

// IntAt returns the value at row index by scanning the payload from the
// start. Varint streams have no random access; indexed reads are linear.
func IntAt(payload []byte, index int, zigzag bool) (int64, error) {
	rd := NewIntColumnReader(payload, zigzag)
	var v int64
	for i := 0; i <= index; i++ {
		var ok bool
		v, ok = rd.Next()
		if !ok {
			if err := rd.Err(); err != nil {
				return 0, err
			}

			return 0, errs.ErrTruncatedContainer
		}
	}

	return v, nil
}

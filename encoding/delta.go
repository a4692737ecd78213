package encoding

import (
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/pool"
)

// DeltaColumnEncoder encodes a timestamp column as successive differences:
// d[0] = v[0], d[k] = v[k] - v[k-1], each zigzag-mapped and varint-encoded.
//
// Log timestamps are near-sorted with small gaps, so deltas are tiny and the
// zigzag varint stream is typically 1-2 bytes per row. The decoder recovers
// values with a streaming prefix sum.
type DeltaColumnEncoder struct {
	buf   *pool.ByteBuffer
	prev  int64
	count int
}

// NewDeltaColumnEncoder creates a delta encoder for epoch-millisecond
// timestamp columns.
func NewDeltaColumnEncoder() *DeltaColumnEncoder {
	return &DeltaColumnEncoder{buf: pool.GetColumnBuffer()}
}

// Tag returns format.CodecDeltaVarint.
func (e *DeltaColumnEncoder) Tag() format.CodecTag {
	return format.CodecDeltaVarint
}

// Write appends a single value to the column.
func (e *DeltaColumnEncoder) Write(v int64) {
	delta := v
	if e.count > 0 {
		delta = v - e.prev
	}
	e.prev = v
	e.buf.B = AppendUvarint(e.buf.B, Zigzag(delta))
	e.count++
}

// Bytes returns the encoded payload. The slice is valid until Finish.
func (e *DeltaColumnEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of values written.
func (e *DeltaColumnEncoder) Len() int {
	return e.count
}

// Finish returns the internal buffer to the pool.
func (e *DeltaColumnEncoder) Finish() {
	pool.PutColumnBuffer(e.buf)
	e.buf = nil
}

// DeltaColumnReader streams absolute values out of a delta-zigzag-varint
// payload via a running prefix sum. No intermediate array is materialized,
// so range predicates can scan and discard in one pass.
type DeltaColumnReader struct {
	r   *UvarintReader
	sum int64
}

// NewDeltaColumnReader creates a reader for the given payload.
func NewDeltaColumnReader(payload []byte) *DeltaColumnReader {
	return &DeltaColumnReader{r: NewUvarintReader(payload)}
}

// Next returns the next absolute value. False means end of payload or a
// decode error; check Err.
func (r *DeltaColumnReader) Next() (int64, bool) {
	u, ok := r.r.Next()
	if !ok {
		return 0, false
	}
	r.sum += Unzigzag(u)

	return r.sum, true
}

// Err returns the first decode error encountered, or nil.
func (r *DeltaColumnReader) Err() error {
	return r.r.Err()
}

// Offset returns the current byte position within the payload.
func (r *DeltaColumnReader) Offset() int {
	return r.r.Offset()
}

// DeltaAt returns the absolute value at row index. Prefix sums force a scan
// from the payload start.
func DeltaAt(payload []byte, index int) (int64, error) {
	rd := NewDeltaColumnReader(payload)
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

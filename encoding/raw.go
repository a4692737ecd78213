package encoding

import (
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/pool"
)

// RawColumnEncoder stores a string column as concatenated length-prefixed
// byte strings. Used when dictionary encoding would lose: cardinality at or
// above half the row count.
type RawColumnEncoder struct {
	buf   *pool.ByteBuffer
	count int
}

// NewRawColumnEncoder creates a raw string column encoder.
func NewRawColumnEncoder() *RawColumnEncoder {
	return &RawColumnEncoder{buf: pool.GetColumnBuffer()}
}

// Tag returns format.CodecRaw.
func (e *RawColumnEncoder) Tag() format.CodecTag {
	return format.CodecRaw
}

// Write appends a single value to the column.
func (e *RawColumnEncoder) Write(s string) {
	e.buf.Grow(UvarintLen(uint64(len(s))) + len(s))
	e.buf.B = AppendUvarint(e.buf.B, uint64(len(s)))
	e.buf.MustWrite([]byte(s))
	e.count++
}

// Bytes returns the encoded payload.
func (e *RawColumnEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of values written.
func (e *RawColumnEncoder) Len() int {
	return e.count
}

// Finish returns the internal buffer to the pool.
func (e *RawColumnEncoder) Finish() {
	pool.PutColumnBuffer(e.buf)
	e.buf = nil
}

// RawColumnReader streams strings out of a raw column payload.
type RawColumnReader struct {
	data []byte
	off  int
	err  error
}

// NewRawColumnReader creates a reader for the given payload.
func NewRawColumnReader(payload []byte) *RawColumnReader {
	return &RawColumnReader{data: payload}
}

// Next returns the next value. False means end of payload or a decode
// error; check Err.
func (r *RawColumnReader) Next() (string, bool) {
	if r.err != nil || r.off >= len(r.data) {
		return "", false
	}

	strLen, n, err := Uvarint(r.data, r.off)
	if err != nil {
		r.err = err
		return "", false
	}
	r.off += n
	end := r.off + int(strLen) //nolint:gosec
	if end > len(r.data) || end < r.off {
		r.err = errs.ErrTruncatedContainer
		return "", false
	}
	s := string(r.data[r.off:end])
	r.off = end

	return s, true
}

// Err returns the first decode error encountered, or nil.
func (r *RawColumnReader) Err() error {
	return r.err
}

// RawAt returns the value at row index.
func RawAt(payload []byte, index int) (string, error) {
	rd := NewRawColumnReader(payload)
	var s string
	for i := 0; i <= index; i++ {
		var ok bool
		s, ok = rd.Next()
		if !ok {
			if err := rd.Err(); err != nil {
				return "", err
			}

			return "", errs.ErrTruncatedContainer
		}
	}

	return s, nil
}

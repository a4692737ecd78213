package encoding

import (
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/pool"
)

// RLEColumnEncoder run-length encodes a stream of unsigned ids as
// (run_length, value) varint pairs. Runs of length 1 are legal, so every
// pair is valid and no escape marker is needed.
//
// The per-line template-id stream uses this codec: adjacent lines very often
// share a template.
type RLEColumnEncoder struct {
	buf     *pool.ByteBuffer
	current uint64
	runLen  uint64
	count   int
}

// NewRLEColumnEncoder creates a run-length encoder.
func NewRLEColumnEncoder() *RLEColumnEncoder {
	return &RLEColumnEncoder{buf: pool.GetColumnBuffer()}
}

// Tag returns format.CodecRLEVarint.
func (e *RLEColumnEncoder) Tag() format.CodecTag {
	return format.CodecRLEVarint
}

// Write appends a single id to the stream.
func (e *RLEColumnEncoder) Write(id uint64) {
	if e.runLen > 0 && id == e.current {
		e.runLen++
		e.count++

		return
	}
	e.flush()
	e.current = id
	e.runLen = 1
	e.count++
}

func (e *RLEColumnEncoder) flush() {
	if e.runLen == 0 {
		return
	}
	e.buf.B = AppendUvarint(e.buf.B, e.runLen)
	e.buf.B = AppendUvarint(e.buf.B, e.current)
	e.runLen = 0
}

// Bytes flushes the pending run and returns the encoded payload.
func (e *RLEColumnEncoder) Bytes() []byte {
	e.flush()
	return e.buf.Bytes()
}

// Len returns the number of ids written.
func (e *RLEColumnEncoder) Len() int {
	return e.count
}

// Finish returns the internal buffer to the pool.
func (e *RLEColumnEncoder) Finish() {
	pool.PutColumnBuffer(e.buf)
	e.buf = nil
}

// RLEColumnReader streams ids out of an RLE payload.
type RLEColumnReader struct {
	r       *UvarintReader
	current uint64
	remain  uint64
}

// NewRLEColumnReader creates a reader for the given payload.
func NewRLEColumnReader(payload []byte) *RLEColumnReader {
	return &RLEColumnReader{r: NewUvarintReader(payload)}
}

// Next returns the next id. False means end of payload or a decode error;
// check Err.
func (r *RLEColumnReader) Next() (uint64, bool) {
	if r.remain == 0 {
		runLen, ok := r.r.Next()
		if !ok {
			return 0, false
		}
		value, ok := r.r.Next()
		if !ok {
			if r.r.Err() == nil {
				r.r.err = errs.ErrTruncatedContainer
			}

			return 0, false
		}
		if runLen == 0 {
			r.r.err = errs.ErrTruncatedContainer

			return 0, false
		}
		r.current = value
		r.remain = runLen
	}
	r.remain--

	return r.current, true
}

// Err returns the first decode error encountered, or nil.
func (r *RLEColumnReader) Err() error {
	return r.r.Err()
}

package encoding

import (
	"fmt"

	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/hash"
	"github.com/adam-bouafia/logsim/internal/pool"
)

// Dictionary is a bijection between byte strings and dense integer ids.
// Ids are assigned in first-appearance order, which keeps serialization
// deterministic for identical input.
//
// Interning is xxHash64-keyed with per-bucket collision lists, so lookups
// never compare more than a handful of strings.
type Dictionary struct {
	entries []string
	index   map[uint64][]uint32
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{index: make(map[uint64][]uint32)}
}

// Intern returns the id for s, assigning the next dense id on first sight.
func (d *Dictionary) Intern(s string) uint32 {
	h := hash.ID(s)
	for _, id := range d.index[h] {
		if d.entries[id] == s {
			return id
		}
	}

	id := uint32(len(d.entries)) //nolint:gosec
	d.entries = append(d.entries, s)
	d.index[h] = append(d.index[h], id)

	return id
}

// Lookup returns the id for s without interning.
func (d *Dictionary) Lookup(s string) (uint32, bool) {
	h := hash.ID(s)
	for _, id := range d.index[h] {
		if d.entries[id] == s {
			return id, true
		}
	}

	return 0, false
}

// Entry returns the string for id.
func (d *Dictionary) Entry(id uint32) (string, error) {
	if int(id) >= len(d.entries) {
		return "", fmt.Errorf("%w: id %d, dictionary size %d", errs.ErrDictionaryIDOutOfRange, id, len(d.entries))
	}

	return d.entries[id], nil
}

// Entries returns the dictionary contents in id order. The returned slice
// is the dictionary's own storage; callers must not modify it.
func (d *Dictionary) Entries() []string {
	return d.entries
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// AppendTo serializes the dictionary as a length-prefixed sequence of
// length-prefixed byte strings: {count varint, (len varint, bytes)*}.
// The implicit id of each entry is its position.
func (d *Dictionary) AppendTo(dst []byte) []byte {
	dst = AppendUvarint(dst, uint64(len(d.entries)))
	for _, s := range d.entries {
		dst = AppendUvarint(dst, uint64(len(s)))
		dst = append(dst, s...)
	}

	return dst
}

// ParseDictionary reads a serialized dictionary from data starting at off
// and returns the dictionary plus the offset just past it.
func ParseDictionary(data []byte, off int) (*Dictionary, int, error) {
	count, n, err := Uvarint(data, off)
	if err != nil {
		return nil, 0, err
	}
	off += n

	d := NewDictionary()
	for i := uint64(0); i < count; i++ {
		strLen, n, err := Uvarint(data, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		if off+int(strLen) > len(data) { //nolint:gosec
			return nil, 0, errs.ErrTruncatedContainer
		}
		d.Intern(string(data[off : off+int(strLen)])) //nolint:gosec
		off += int(strLen)                            //nolint:gosec
	}

	return d, off, nil
}

// DictColumnEncoder encodes a string column as varint ids into a
// dictionary. The dictionary may be local to the column (serialized into
// the block header) or one of the container-global pools (referenced by
// pool id).
type DictColumnEncoder struct {
	dict   *Dictionary
	buf    *pool.ByteBuffer
	count  int
	global bool
	poolID uint8
}

// NewLocalDictColumnEncoder creates an encoder backed by its own local
// dictionary.
func NewLocalDictColumnEncoder() *DictColumnEncoder {
	return &DictColumnEncoder{dict: NewDictionary(), buf: pool.GetColumnBuffer()}
}

// NewGlobalDictColumnEncoder creates an encoder writing ids into a shared
// container-global dictionary identified by poolID.
func NewGlobalDictColumnEncoder(dict *Dictionary, poolID uint8) *DictColumnEncoder {
	return &DictColumnEncoder{dict: dict, buf: pool.GetColumnBuffer(), global: true, poolID: poolID}
}

// Tag returns CodecDictLocal or CodecDictGlobal.
func (e *DictColumnEncoder) Tag() format.CodecTag {
	if e.global {
		return format.CodecDictGlobal
	}

	return format.CodecDictLocal
}

// Write interns s and appends its id to the column.
func (e *DictColumnEncoder) Write(s string) {
	id := e.dict.Intern(s)
	e.buf.B = AppendUvarint(e.buf.B, uint64(id))
	e.count++
}

// Header returns the codec-specific block header: the serialized local
// dictionary, or the single pool-id byte for global columns.
func (e *DictColumnEncoder) Header() []byte {
	if e.global {
		return []byte{e.poolID}
	}

	return e.dict.AppendTo(nil)
}

// Dict returns the backing dictionary.
func (e *DictColumnEncoder) Dict() *Dictionary {
	return e.dict
}

// Bytes returns the encoded id stream.
func (e *DictColumnEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of values written.
func (e *DictColumnEncoder) Len() int {
	return e.count
}

// Cardinality returns the number of distinct values seen so far.
func (e *DictColumnEncoder) Cardinality() int {
	return e.dict.Len()
}

// Finish returns the internal buffer to the pool.
func (e *DictColumnEncoder) Finish() {
	pool.PutColumnBuffer(e.buf)
	e.buf = nil
}

// DictColumnReader streams dictionary ids out of a dict column payload and
// resolves them against the given dictionary.
type DictColumnReader struct {
	r    *UvarintReader
	dict *Dictionary
}

// NewDictColumnReader creates a reader over payload resolving against dict.
func NewDictColumnReader(payload []byte, dict *Dictionary) *DictColumnReader {
	return &DictColumnReader{r: NewUvarintReader(payload), dict: dict}
}

// NextID returns the next raw id without resolving it.
func (r *DictColumnReader) NextID() (uint32, bool) {
	u, ok := r.r.Next()
	if !ok {
		return 0, false
	}
	if u > uint64(^uint32(0)) {
		r.r.err = errs.ErrDictionaryIDOutOfRange
		return 0, false
	}

	return uint32(u), true
}

// Next returns the next value resolved through the dictionary.
func (r *DictColumnReader) Next() (string, bool) {
	id, ok := r.NextID()
	if !ok {
		return "", false
	}
	s, err := r.dict.Entry(id)
	if err != nil {
		r.r.err = err
		return "", false
	}

	return s, true
}

// Err returns the first decode error encountered, or nil.
func (r *DictColumnReader) Err() error {
	return r.r.Err()
}

// Offset returns the current byte position within the payload.
func (r *DictColumnReader) Offset() int {
	return r.r.Offset()
}

// DictAt returns the resolved value at row index.
func DictAt(payload []byte, dict *Dictionary, index int) (string, error) {
	rd := NewDictColumnReader(payload, dict)
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

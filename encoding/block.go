package encoding

import (
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
)

// Block is one self-describing column block:
//
//	codec_tag(1) | header_len(varint) | header | payload_len(varint) | payload
//
// Header and Payload alias the container's decoded body; they are borrowed
// views, never copies.
type Block struct {
	Tag     format.CodecTag
	Header  []byte
	Payload []byte
	// PayloadBase is the absolute decoded-layout offset of Payload[0],
	// used to report fault positions inside the payload.
	PayloadBase int64
}

// AppendBlock frames one column block onto dst.
func AppendBlock(dst []byte, tag format.CodecTag, header, payload []byte) []byte {
	dst = append(dst, byte(tag))
	dst = AppendUvarint(dst, uint64(len(header)))
	dst = append(dst, header...)
	dst = AppendUvarint(dst, uint64(len(payload)))
	dst = append(dst, payload...)

	return dst
}

// ReadBlock parses the column block starting at off within data and returns
// the block plus the offset just past it.
//
// base is the absolute position of data[0] in the decoded layout; fault
// offsets are reported relative to that layout.
func ReadBlock(data []byte, off int, base int64) (Block, int, error) {
	if off >= len(data) {
		return Block{}, 0, errs.Format(errs.ErrTruncatedContainer, "column_block", base+int64(off), "block starts past end of section")
	}

	tag := format.CodecTag(data[off])
	if !tag.IsValid() {
		return Block{}, 0, errs.Format(errs.ErrUnknownCodecTag, "column_block", base+int64(off), "tag 0x%02x", data[off])
	}
	off++

	headerLen, n, err := Uvarint(data, off)
	if err != nil {
		return Block{}, 0, errs.Format(err, "column_block", base+int64(off), "header length")
	}
	off += n
	headerEnd := off + int(headerLen) //nolint:gosec
	if headerEnd > len(data) || headerEnd < off {
		return Block{}, 0, errs.Format(errs.ErrTruncatedContainer, "column_block", base+int64(off), "header of %d bytes exceeds section", headerLen)
	}
	header := data[off:headerEnd]
	off = headerEnd

	payloadLen, n, err := Uvarint(data, off)
	if err != nil {
		return Block{}, 0, errs.Format(err, "column_block", base+int64(off), "payload length")
	}
	off += n
	payloadEnd := off + int(payloadLen) //nolint:gosec
	if payloadEnd > len(data) || payloadEnd < off {
		return Block{}, 0, errs.Format(errs.ErrTruncatedContainer, "column_block", base+int64(off), "payload of %d bytes exceeds section", payloadLen)
	}
	payload := data[off:payloadEnd]

	return Block{Tag: tag, Header: header, Payload: payload, PayloadBase: base + int64(off)}, payloadEnd, nil
}

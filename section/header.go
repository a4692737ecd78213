package section

import (
	"github.com/adam-bouafia/logsim/endian"
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
)

// Header is the fixed-position container prelude. FooterOffset is an
// absolute position in the decoded layout: the prelude followed by the
// decoded body as if it were stored uncompressed, so readers seek to the
// footer in O(1) after the entropy pass.
type Header struct {
	Version      uint16
	Flags        uint16
	FooterOffset uint64
}

// NewHeader creates a version-1 header for the given entropy codec.
func NewHeader(compression format.CompressionType, hasDict bool) *Header {
	h := &Header{Version: Version}
	h.SetCompression(compression)
	h.SetEntropyDict(hasDict)

	return h
}

// Compression returns the entropy codec recorded in the flag bits.
func (h *Header) Compression() format.CompressionType {
	return format.CompressionType((h.Flags & FlagCompressionMask) >> FlagCompressionShift)
}

// SetCompression records the entropy codec in the flag bits.
func (h *Header) SetCompression(ct format.CompressionType) {
	h.Flags = (h.Flags &^ FlagCompressionMask) | (uint16(ct) << FlagCompressionShift & FlagCompressionMask)
}

// HasEntropyDict reports whether a trained entropy dictionary precedes the
// body.
func (h *Header) HasEntropyDict() bool {
	return h.Flags&FlagEntropyDict != 0
}

// SetEntropyDict sets or clears the entropy dictionary bit.
func (h *Header) SetEntropyDict(present bool) {
	if present {
		h.Flags |= FlagEntropyDict
	} else {
		h.Flags &^= FlagEntropyDict
	}
}

// AppendTo serializes the prelude onto dst.
func (h *Header) AppendTo(dst []byte, engine endian.EndianEngine) []byte {
	dst = append(dst, Magic[:]...)
	dst = engine.AppendUint16(dst, h.Version)
	dst = engine.AppendUint16(dst, h.Flags)
	dst = engine.AppendUint64(dst, h.FooterOffset)

	return dst
}

// ParseHeader parses and validates the fixed-size prelude.
func ParseHeader(data []byte, engine endian.EndianEngine) (*Header, error) {
	if len(data) < PreludeSize {
		return nil, errs.Format(errs.ErrTruncatedContainer, "header", 0,
			"container has %d bytes, prelude needs %d", len(data), PreludeSize)
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return nil, errs.Format(errs.ErrInvalidMagic, "header", 0,
			"got % x, want % x", data[:4], Magic[:])
	}

	h := &Header{
		Version:      engine.Uint16(data[4:6]),
		Flags:        engine.Uint16(data[6:8]),
		FooterOffset: engine.Uint64(data[8:16]),
	}
	if h.Version != Version {
		return nil, errs.Format(errs.ErrUnsupportedVersion, "header", 4, "version %d", h.Version)
	}
	if h.Flags&FlagReservedMask != 0 {
		return nil, errs.Format(errs.ErrUnsupportedVersion, "header", 6,
			"reserved flag bits 0x%04x", h.Flags&FlagReservedMask)
	}

	return h, nil
}

// Package section defines the fixed layout of the container: the prelude,
// the footer, the template table, the global dictionary section and the
// column directory. All integers are little-endian.
package section

// Container layout constants.
const (
	// PreludeSize is the fixed-size container prelude:
	// magic(4) | version(2) | flags(2) | footer_offset(8).
	PreludeSize = 16

	// FooterSize is the fixed-size footer:
	// n_lines(8) | n_templates(4) | templates_offset(8) | globals_offset(8) |
	// tidstream_offset(8) | columns_offset(8) | crc32(4).
	FooterSize = 48

	// Version is the current container format version.
	Version uint16 = 1
)

// Magic identifies a log structured container, "LSC1".
var Magic = [4]byte{0x4C, 0x53, 0x43, 0x31}

// Header flag bits. Bits 3-15 are reserved and must be zero; readers reject
// containers with unknown bits set.
const (
	// FlagEntropyDict marks that a trained entropy dictionary precedes the
	// entropy-coded body.
	FlagEntropyDict uint16 = 0x0001

	// FlagCompressionMask covers bits 1-2 holding the entropy codec id.
	FlagCompressionMask  uint16 = 0x0006
	FlagCompressionShift        = 1

	// FlagReservedMask covers the bits that must be zero in version 1.
	FlagReservedMask uint16 = 0xFFF8
)

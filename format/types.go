package format

type (
	// FieldType identifies the semantic class of a token or variable slot.
	FieldType uint8
	// CodecTag identifies the encoding of a column block payload.
	CodecTag uint8
	// CompressionType identifies the entropy codec wrapping the container body.
	CompressionType uint8
	// SlotTag identifies the kind of a template slot on the wire.
	SlotTag uint8
)

// Field types form a closed set. They are carried as a single byte in the
// container; adding a type requires a container version bump.
const (
	FieldInvalid      FieldType = 0x00
	FieldTimestamp    FieldType = 0x01
	FieldSeverity     FieldType = 0x02
	FieldIPv4         FieldType = 0x03
	FieldIPv6         FieldType = 0x04
	FieldInteger      FieldType = 0x05
	FieldHex          FieldType = 0x06
	FieldUUID         FieldType = 0x07
	FieldHost         FieldType = 0x08
	FieldProcessID    FieldType = 0x09
	FieldPath         FieldType = 0x0A
	FieldURL          FieldType = 0x0B
	FieldQuotedString FieldType = 0x0C
	FieldMessage      FieldType = 0x0D
	FieldLiteral      FieldType = 0x0E
	FieldWhitespace   FieldType = 0x0F
)

// Codec tags as written into column blocks.
const (
	CodecRaw          CodecTag = 0x01 // length-prefixed raw bytes
	CodecVarint       CodecTag = 0x02 // unsigned varint stream
	CodecZigzagVarint CodecTag = 0x03 // zigzag + varint stream
	CodecDeltaVarint  CodecTag = 0x04 // delta + zigzag + varint stream
	CodecDictLocal    CodecTag = 0x05 // local dictionary + varint ids
	CodecDictGlobal   CodecTag = 0x06 // global dictionary reference + varint ids
	CodecRLEVarint    CodecTag = 0x07 // (run_length, value) varint pairs
)

// Entropy codecs for the container body, stored in header flag bits 1-2.
const (
	CompressionZstd CompressionType = 0x0
	CompressionS2   CompressionType = 0x1
	CompressionLZ4  CompressionType = 0x2
	CompressionNone CompressionType = 0x3
)

// Template slot tags on the wire.
const (
	SlotLiteral  SlotTag = 0x00 // exact byte string stored in the template shape
	SlotVariable SlotTag = 0x01 // field type + column index
)

// Global dictionary pool ids carried in the CodecDictGlobal block header.
const (
	PoolSeverity uint8 = 0x00
	PoolMessage  uint8 = 0x01
)

func (t FieldType) String() string {
	switch t {
	case FieldTimestamp:
		return "TIMESTAMP"
	case FieldSeverity:
		return "SEVERITY"
	case FieldIPv4:
		return "IPV4"
	case FieldIPv6:
		return "IPV6"
	case FieldInteger:
		return "INTEGER"
	case FieldHex:
		return "HEX"
	case FieldUUID:
		return "UUID"
	case FieldHost:
		return "HOST"
	case FieldProcessID:
		return "PROCESS_ID"
	case FieldPath:
		return "PATH"
	case FieldURL:
		return "URL"
	case FieldQuotedString:
		return "QUOTED_STRING"
	case FieldMessage:
		return "MESSAGE"
	case FieldLiteral:
		return "LITERAL"
	case FieldWhitespace:
		return "WHITESPACE"
	default:
		return "INVALID"
	}
}

// IsVariable reports whether tokens of this type may become variable slots.
// LITERAL and WHITESPACE are frozen into the template shape instead.
func (t FieldType) IsVariable() bool {
	switch t {
	case FieldLiteral, FieldWhitespace, FieldInvalid:
		return false
	default:
		return true
	}
}

// IsValid reports whether the field type is a member of the closed set.
func (t FieldType) IsValid() bool {
	return t >= FieldTimestamp && t <= FieldWhitespace
}

func (c CodecTag) String() string {
	switch c {
	case CodecRaw:
		return "Raw"
	case CodecVarint:
		return "Varint"
	case CodecZigzagVarint:
		return "ZigzagVarint"
	case CodecDeltaVarint:
		return "DeltaVarint"
	case CodecDictLocal:
		return "DictLocal"
	case CodecDictGlobal:
		return "DictGlobal"
	case CodecRLEVarint:
		return "RLEVarint"
	default:
		return "Unknown"
	}
}

// IsValid reports whether the codec tag names a known codec.
func (c CodecTag) IsValid() bool {
	return c >= CodecRaw && c <= CodecRLEVarint
}

func (c CompressionType) String() string {
	switch c {
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionNone:
		return "None"
	default:
		return "Unknown"
	}
}

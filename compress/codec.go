// Package compress provides the entropy pass wrapping the container body.
//
// The body is compressed as a single unit after all column codecs finish.
// Zstd is the default; S2 and LZ4 are selectable through the container flag
// bits for callers that trade ratio for speed, and None disables the pass
// entirely (useful for diagnostics and corruption testing).
package compress

import (
	"fmt"

	"github.com/adam-bouafia/logsim/format"
)

// DefaultLevel is the default zstd compression level for the entropy pass.
const DefaultLevel = 15

// Compressor compresses a complete container body.
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a container body.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original
	// result. Returns an error if the data is corrupted or was produced by
	// an incompatible algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. All implementations in this package are
// safe for concurrent use.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory returning the Codec for the given entropy
// compression type. The level only affects zstd; S2 and LZ4 have a single
// operating point here.
func CreateCodec(compressionType format.CompressionType, level int) (Codec, error) {
	switch compressionType {
	case format.CompressionZstd:
		return NewZstdCompressor(level), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid entropy compression: %s", compressionType)
	}
}

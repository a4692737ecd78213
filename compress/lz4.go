package compress

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains internal state that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// Leading marker byte: lz4 block compression declines incompressible input
// (CompressBlock returns 0), so the stored form records whether the block
// payload is compressed or raw.
const (
	lz4BlockRaw        = 0x00
	lz4BlockCompressed = 0x01
)

// LZ4Compressor provides LZ4 block compression for container bodies.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 codec.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses the input data using LZ4 block compression. Input
// that does not shrink is stored raw behind the marker byte.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, 1+lz4.CompressBlockBound(len(data)))
	dst[0] = lz4BlockCompressed

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[1:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input.
		out := make([]byte, 1+len(data))
		out[0] = lz4BlockRaw
		copy(out[1:], data)

		return out, nil
	}

	return dst[:1+n], nil
}

// Decompress decompresses LZ4 block data produced by Compress.
//
// The decompressed size is not stored in the block, so the buffer starts at
// 4x the compressed size and doubles on lz4.ErrInvalidSourceShortBuffer up
// to a 128MB safety limit.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == lz4BlockRaw {
		return data[1:], nil
	}
	if data[0] != lz4BlockCompressed {
		return nil, errors.New("lz4: unknown block marker")
	}
	data = data[1:]

	bufSize := len(data) * 4
	const maxSize = 128 * 1024 * 1024

	for bufSize <= maxSize {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, buf)
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && bufSize < maxSize {
				bufSize *= 2
				continue
			}

			return nil, err
		}

		return buf[:n], nil
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}

//go:build !cgozstd

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse to eliminate allocation
// overhead. The klauspost/compress/zstd library is explicitly designed for
// decoder reuse after warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// Never happens with valid options.
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

// Compress compresses the input data using Zstandard at the configured level.
func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)),
		zstd.WithEncoderCRC(false),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder init failed: %w", err)
	}
	compressed := encoder.EncodeAll(data, nil)
	_ = encoder.Close()

	return compressed, nil
}

// Decompress decompresses Zstd-compressed data using a pooled decoder.
func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}

// CompressDict compresses data with a trained dictionary.
func (c *ZstdCompressor) CompressDict(data, dict []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)),
		zstd.WithEncoderCRC(false),
		zstd.WithEncoderDict(dict),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder init with dictionary failed: %w", err)
	}
	compressed := encoder.EncodeAll(data, nil)
	_ = encoder.Close()

	return compressed, nil
}

// DecompressDict decompresses data that was compressed with a dictionary.
func (c *ZstdCompressor) DecompressDict(data, dict []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderDicts(dict),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder init with dictionary failed: %w", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}

// TrainDictionary builds an entropy dictionary from sample column payloads.
//
// The pure-Go build has no dictionary trainer; it always returns nil, which
// disables the dictionary bit in the container header. Containers written
// by the cgo build remain readable: DecompressDict handles trained
// dictionaries on both builds.
func TrainDictionary(samples [][]byte, capacity int) []byte {
	return nil
}

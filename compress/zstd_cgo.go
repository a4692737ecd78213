//go:build cgozstd

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// Compress compresses the input data using libzstd at the configured level.
func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, c.level), nil
}

// Decompress decompresses Zstd-compressed data.
func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}

// CompressDict compresses data with a trained dictionary.
func (c *ZstdCompressor) CompressDict(data, dict []byte) ([]byte, error) {
	cd, err := gozstd.NewCDictLevel(dict, c.level)
	if err != nil {
		return nil, fmt.Errorf("zstd dictionary load failed: %w", err)
	}
	defer cd.Release()

	return gozstd.CompressDict(nil, data, cd), nil
}

// DecompressDict decompresses data that was compressed with a dictionary.
func (c *ZstdCompressor) DecompressDict(data, dict []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dd, err := gozstd.NewDDict(dict)
	if err != nil {
		return nil, fmt.Errorf("zstd dictionary load failed: %w", err)
	}
	defer dd.Release()

	return gozstd.DecompressDict(nil, data, dd)
}

// TrainDictionary builds an entropy dictionary from sample column payloads.
// Returns nil when the samples are too few or too small for training, which
// disables the dictionary bit in the container header.
func TrainDictionary(samples [][]byte, capacity int) []byte {
	if len(samples) < 8 {
		return nil
	}

	return gozstd.BuildDict(samples, capacity)
}

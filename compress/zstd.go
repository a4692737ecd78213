package compress

// ZstdCompressor provides Zstandard compression for container bodies.
//
// The zero value is not useful; use NewZstdCompressor, which clamps the
// level into the valid zstd range. Level 15 (the default) favors ratio over
// speed, which fits the write-once read-many lifecycle of log containers.
//
// Two implementations exist behind build tags:
//   - default: pure-Go klauspost/compress/zstd
//   - cgozstd: valyala/gozstd (libzstd), which additionally supports
//     dictionary training
type ZstdCompressor struct {
	level int
}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a Zstd codec at the given level (1-22; values
// outside the range are clamped, 0 selects DefaultLevel).
func NewZstdCompressor(level int) *ZstdCompressor {
	if level == 0 {
		level = DefaultLevel
	}
	if level < 1 {
		level = 1
	}
	if level > 22 {
		level = 22
	}

	return &ZstdCompressor{level: level}
}

// Level returns the configured zstd level.
func (c *ZstdCompressor) Level() int {
	return c.level
}

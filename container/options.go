package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/adam-bouafia/logsim/compress"
	"github.com/adam-bouafia/logsim/endian"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/options"
	"github.com/adam-bouafia/logsim/template"
)

// EncoderConfig holds the write-path configuration. Zero values select the
// documented defaults; use the With* options to change them.
type EncoderConfig struct {
	extraction  template.Config
	compression format.CompressionType
	level       int
	trainDict   bool
	engine      endian.EndianEngine
	logger      *zap.Logger
}

// EncoderOption is a functional option for NewEncoder.
type EncoderOption = options.Option[*EncoderConfig]

func newEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		extraction:  template.DefaultConfig(),
		compression: format.CompressionZstd,
		level:       compress.DefaultLevel,
		trainDict:   true,
		engine:      endian.GetLittleEndianEngine(),
		logger:      zap.NewNop(),
	}
}

// WithMinSupport sets the minimum number of lines that must share a shape
// to form a template directly (default 3).
func WithMinSupport(n int) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		if n < 1 {
			return fmt.Errorf("min support must be at least 1, got %d", n)
		}
		c.extraction.MinSupport = n

		return nil
	})
}

// WithTemplateCeiling bounds the number of templates (default 10000).
// Compression aborts with errs.ErrTemplateBudgetExceeded beyond it; callers
// may retry with a higher min support.
func WithTemplateCeiling(n int) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		if n < 1 {
			return fmt.Errorf("template ceiling must be at least 1, got %d", n)
		}
		c.extraction.TemplateCeiling = n

		return nil
	})
}

// WithCompression selects the entropy codec for the container body
// (default Zstd).
func WithCompression(ct format.CompressionType) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		switch ct {
		case format.CompressionZstd, format.CompressionS2, format.CompressionLZ4, format.CompressionNone:
			c.compression = ct
			return nil
		default:
			return fmt.Errorf("invalid compression type: %d", ct)
		}
	})
}

// WithCompressionLevel sets the zstd level for the entropy pass
// (default 15). Ignored by the other codecs.
func WithCompressionLevel(level int) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		if level < 1 || level > 22 {
			return fmt.Errorf("compression level must be in [1,22], got %d", level)
		}
		c.level = level

		return nil
	})
}

// WithDictionaryTraining enables or disables entropy dictionary training
// (default enabled; only effective on builds with a trainer).
func WithDictionaryTraining(enabled bool) EncoderOption {
	return options.NoError(func(c *EncoderConfig) {
		c.trainDict = enabled
	})
}

// WithLogger attaches a logger for per-stage debug summaries. The core
// never logs above debug level; the default is a no-op logger.
func WithLogger(logger *zap.Logger) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger

		return nil
	})
}

package container

import (
	"time"

	"github.com/goccy/go-json"
)

// Stats summarizes one compression run.
type Stats struct {
	// OriginalSize is the total byte length of the input lines, one
	// newline per line included.
	OriginalSize int64 `json:"original_size"`
	// CompressedSize is the final container blob size.
	CompressedSize int64 `json:"compressed_size"`
	// CompressionRatio is OriginalSize / CompressedSize.
	CompressionRatio float64 `json:"compression_ratio"`
	// LineCount is the number of input lines.
	LineCount int `json:"line_count"`
	// TemplateCount is the number of extracted templates.
	TemplateCount int `json:"template_count"`
	// CoveragePercent is the percentage of lines assigned to templates
	// that hold at least MinSupport lines, absorbed lines included (the
	// rest sit in smaller templates such as singletons).
	CoveragePercent float64 `json:"coverage_percentage"`
	// CompressionTime is the wall-clock duration of the run.
	CompressionTime time.Duration `json:"compression_time_ns"`
}

// JSON renders the stats as a JSON object.
func (s *Stats) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Package logsim compresses semi-structured log lines into a self-describing
// binary container and answers structured queries against it without
// reconstructing the full log stream.
//
// Compression recovers the latent schema of the input: lines are tokenized,
// semantically classified, and grouped into templates of literal and typed
// variable slots. Each variable slot materializes as a column encoded with a
// field-type-appropriate codec (delta varints for timestamps, dictionaries
// for addresses and severities, a shared token pool for message bodies), and
// the assembled container passes through a final zstd-class entropy coder.
//
// Queries decode only the columns a predicate needs: counting lines touches
// just the footer, a severity filter touches severity columns only, and a
// template whose dictionary cannot contain the queried value is skipped
// without visiting a single row.
//
// # Basic Usage
//
// Compressing lines and querying the result:
//
//	blob, stats, err := logsim.Compress(ctx, lines)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("ratio %.1fx, %d templates\n", stats.CompressionRatio, stats.TemplateCount)
//
//	c, err := logsim.Open(blob)
//	if err != nil {
//	    return err
//	}
//	result, err := logsim.Filter(c, query.Predicate{Severities: []string{"error"}}, 100)
//	for _, m := range result.Matches {
//	    fmt.Println(m.Line, m.Text)
//	}
//
// This package provides convenient wrappers around the container and query
// packages; use those directly for fine-grained control.
package logsim

import (
	"context"
	"os"

	"github.com/adam-bouafia/logsim/container"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/query"
	"github.com/adam-bouafia/logsim/template"
)

// Compress compresses lines into a container blob with default options.
func Compress(ctx context.Context, lines []string, opts ...container.EncoderOption) ([]byte, *container.Stats, error) {
	enc, err := container.NewEncoder(opts...)
	if err != nil {
		return nil, nil, err
	}

	return enc.Compress(ctx, lines)
}

// Open parses a container blob for querying.
func Open(blob []byte) (*container.Container, error) {
	return container.Open(blob)
}

// Count returns the number of lines in an opened container. O(1), reads
// only the footer.
func Count(c *container.Container) uint64 {
	return query.Count(c)
}

// Filter evaluates a predicate against an opened container. Matches come
// back in input line order; limit > 0 caps the result.
func Filter(c *container.Container, pred query.Predicate, limit uint32) (*query.Result, error) {
	return query.Filter(c, pred, limit)
}

// CompressFile reads a log file, compresses it, and writes the container
// blob to outPath. The file is split on newlines; a trailing newline does
// not produce an empty final line.
func CompressFile(ctx context.Context, inPath, outPath string, opts ...container.EncoderOption) (*container.Stats, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, err
	}

	blob, stats, err := Compress(ctx, SplitLines(data), opts...)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return nil, err
	}
	stats.CompressedSize = int64(len(blob))

	return stats, nil
}

// OpenFile opens a container file for querying.
func OpenFile(path string) (*container.Container, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Open(blob)
}

// SplitLines splits raw file bytes into lines, dropping the empty tail a
// trailing newline would otherwise produce. Carriage returns are stripped
// by the tokenizer, not here, so line bytes stay untouched.
func SplitLines(data []byte) []string {
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}

	return lines
}

// SchemaInfo describes one extracted template without compressing.
type SchemaInfo struct {
	// Pattern is the human-readable shape, e.g. "[<TIMESTAMP>] [<SEVERITY>] LDAP: <MESSAGE>".
	Pattern string `json:"pattern"`
	// MatchCount is the number of lines assigned to the template.
	MatchCount int `json:"count"`
	// FieldTypes names the variable slot types in column order.
	FieldTypes []string `json:"fields"`
}

// ExtractSchemas runs template extraction only, without building a
// container. Useful for previewing what a compression run would produce.
func ExtractSchemas(lines []string, opts ...container.EncoderOption) ([]SchemaInfo, error) {
	// Options are accepted for parity with Compress; only the extraction
	// settings take effect here.
	enc, err := container.NewEncoder(opts...)
	if err != nil {
		return nil, err
	}

	ex, err := template.Extract(lines, enc.ExtractionConfig())
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(ex.Templates))
	for _, tid := range ex.Assignments {
		counts[tid]++
	}

	infos := make([]SchemaInfo, len(ex.Templates))
	for i, t := range ex.Templates {
		types := t.FieldTypes()
		names := make([]string, len(types))
		for j, ft := range types {
			names[j] = ft.String()
		}
		infos[i] = SchemaInfo{
			Pattern:    t.Pattern(),
			MatchCount: counts[i],
			FieldTypes: names,
		}
	}

	return infos, nil
}

// Convenience re-exports so common calls need only this package.
type (
	// Predicate is re-exported from the query package.
	Predicate = query.Predicate
	// TimeRange is re-exported from the query package.
	TimeRange = query.TimeRange
)

// Compression type re-exports for WithCompression.
const (
	CompressionZstd = format.CompressionZstd
	CompressionS2   = format.CompressionS2
	CompressionLZ4  = format.CompressionLZ4
	CompressionNone = format.CompressionNone
)

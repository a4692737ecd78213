// Package container assembles templates, columns and dictionaries into the
// self-describing binary container and reads them back.
//
// The write path is single-threaded and stage-sequential: every stage
// consumes the previous stage's full output. The read side is an immutable
// view over the entropy-decoded body; any number of concurrent readers may
// share one Container.
package container

import (
	"context"
	"fmt"
	"hash/crc32"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/adam-bouafia/logsim/compress"
	"github.com/adam-bouafia/logsim/encoding"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/options"
	"github.com/adam-bouafia/logsim/internal/pool"
	"github.com/adam-bouafia/logsim/section"
	"github.com/adam-bouafia/logsim/template"
	"github.com/adam-bouafia/logsim/token"
)

// dictTrainSampleLimit bounds the bytes of column payloads fed to entropy
// dictionary training.
const dictTrainSampleLimit = 1 << 20

// dictCapacity is the target size of a trained entropy dictionary.
const dictCapacity = 110 * 1024

// Encoder compresses an ordered sequence of log lines into one container
// blob. An Encoder is reusable but not safe for concurrent use.
type Encoder struct {
	cfg *EncoderConfig
}

// NewEncoder creates an encoder with the given options.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	cfg := newEncoderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Encoder{cfg: cfg}, nil
}

// ExtractionConfig returns the template extraction settings in effect.
func (e *Encoder) ExtractionConfig() template.Config {
	return e.cfg.extraction
}

// Compress runs the full write pipeline: template extraction, column
// building, per-column codecs, section assembly and the entropy pass.
//
// The context is checked at stage boundaries only; there is no finer-grained
// cancellation. On error no partial container is returned.
func (e *Encoder) Compress(ctx context.Context, lines []string) ([]byte, *Stats, error) {
	start := time.Now()
	cfg := e.cfg

	ex, err := template.Extract(lines, cfg.extraction)
	if err != nil {
		return nil, nil, err
	}
	cfg.logger.Debug("templates extracted",
		zap.Int("lines", len(lines)),
		zap.Int("templates", len(ex.Templates)))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rowsByTemplate := make([][]int, len(ex.Templates))
	for i, tid := range ex.Assignments {
		rowsByTemplate[tid] = append(rowsByTemplate[tid], i)
	}

	// Per-template column blocks. Global dictionaries fill up as columns
	// are encoded, so the globals section serializes afterwards.
	globals := section.NewGlobals()
	colBlocks := make([][]byte, len(ex.Templates))
	var samples [][]byte
	sampleBytes := 0
	for tid, t := range ex.Templates {
		nCols := t.VariableCount()
		var blocks []byte
		for col := 0; col < nCols; col++ {
			ft, _ := t.ColumnType(col)
			values := make([]string, len(rowsByTemplate[tid]))
			for r, li := range rowsByTemplate[tid] {
				values[r] = ex.Rows[li][col]
			}

			tag, header, payload := encodeColumn(ft, values, globals)
			blocks = encoding.AppendBlock(blocks, tag, header, payload)
			if sampleBytes < dictTrainSampleLimit && len(payload) > 0 {
				samples = append(samples, payload)
				sampleBytes += len(payload)
			}
		}
		colBlocks[tid] = blocks

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}

	// Template-id stream.
	rle := encoding.NewRLEColumnEncoder()
	for _, tid := range ex.Assignments {
		rle.Write(uint64(tid))
	}
	tidBlock := encoding.AppendBlock(nil, format.CodecRLEVarint, nil, rle.Bytes())
	rle.Finish()

	blob, footerOffset, bodyLen, err := e.assemble(ex.Templates, globals, tidBlock, colBlocks, uint64(len(lines)), samples)
	if err != nil {
		return nil, nil, err
	}

	stats := e.buildStats(lines, ex, rowsByTemplate, blob, start)
	cfg.logger.Debug("container assembled",
		zap.Uint64("footer_offset", footerOffset),
		zap.Int("body_bytes", bodyLen),
		zap.Int("blob_bytes", len(blob)),
		zap.Float64("ratio", stats.CompressionRatio))

	return blob, stats, nil
}

// assemble lays out the decoded body, computes the checksum and footer, and
// runs the entropy pass.
func (e *Encoder) assemble(
	templates []*template.Template,
	globals *section.Globals,
	tidBlock []byte,
	colBlocks [][]byte,
	numLines uint64,
	samples [][]byte,
) (blob []byte, footerOffset uint64, bodyLen int, err error) {
	cfg := e.cfg
	engine := cfg.engine

	tt := section.AppendTemplateTable(nil, templates)
	gl := globals.AppendTo(nil)

	templatesOffset := uint64(section.PreludeSize)
	globalsOffset := templatesOffset + uint64(len(tt))
	tidOffset := globalsOffset + uint64(len(gl))
	columnsOffset := tidOffset + uint64(len(tidBlock))

	// Column directory: one absolute offset per template pointing at its
	// first column block, so queries locate any template's blocks without
	// scanning unrelated data.
	dirSize := uint64(8 * len(templates))
	blockStart := columnsOffset + dirSize
	dir := make([]byte, 0, dirSize)
	for _, blocks := range colBlocks {
		dir = engine.AppendUint64(dir, blockStart)
		blockStart += uint64(len(blocks))
	}

	// The body buffer is pooled; the entropy pass (or the final blob append
	// for CompressionNone) copies out of it before release.
	bodyBuf := pool.GetBodyBuffer()
	defer pool.PutBodyBuffer(bodyBuf)
	bodyBuf.Grow(int(blockStart) - section.PreludeSize + section.FooterSize) //nolint:gosec
	bodyBuf.MustWrite(tt)
	bodyBuf.MustWrite(gl)
	bodyBuf.MustWrite(tidBlock)
	bodyBuf.MustWrite(dir)
	for _, blocks := range colBlocks {
		bodyBuf.MustWrite(blocks)
	}

	footerOffset = uint64(section.PreludeSize + bodyBuf.Len())
	footer := &section.Footer{
		NumLines:        numLines,
		NumTemplates:    uint32(len(templates)), //nolint:gosec
		TemplatesOffset: templatesOffset,
		GlobalsOffset:   globalsOffset,
		TIDStreamOffset: tidOffset,
		ColumnsOffset:   columnsOffset,
		CRC32:           crc32.ChecksumIEEE(bodyBuf.Bytes()),
	}
	bodyBuf.B = footer.AppendTo(bodyBuf.B, engine)
	body := bodyBuf.Bytes()
	bodyLen = len(body)

	// Entropy pass. Dictionary training only applies to zstd; a nil
	// dictionary (training unavailable or insufficient samples) clears the
	// flag and the pass runs without one.
	var dict []byte
	if cfg.trainDict && cfg.compression == format.CompressionZstd {
		dict = compress.TrainDictionary(samples, dictCapacity)
	}

	var compressed []byte
	if dict != nil {
		zc := compress.NewZstdCompressor(cfg.level)
		compressed, err = zc.CompressDict(body, dict)
	} else {
		var codec compress.Codec
		codec, err = compress.CreateCodec(cfg.compression, cfg.level)
		if err == nil {
			compressed, err = codec.Compress(body)
		}
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("entropy pass failed: %w", err)
	}

	header := section.NewHeader(cfg.compression, dict != nil)
	header.FooterOffset = footerOffset

	blob = header.AppendTo(nil, engine)
	if dict != nil {
		blob = engine.AppendUint32(blob, uint32(len(dict))) //nolint:gosec
		blob = append(blob, dict...)
	}
	blob = append(blob, compressed...)

	return blob, footerOffset, bodyLen, nil
}

func (e *Encoder) buildStats(lines []string, ex *template.Extraction, rowsByTemplate [][]int, blob []byte, start time.Time) *Stats {
	var originalSize int64
	for _, line := range lines {
		originalSize += int64(len(line)) + 1
	}

	covered := 0
	for _, rows := range rowsByTemplate {
		if len(rows) >= e.cfg.extraction.MinSupport {
			covered += len(rows)
		}
	}
	coverage := 0.0
	if len(lines) > 0 {
		coverage = float64(covered) / float64(len(lines)) * 100
	}

	ratio := 0.0
	if len(blob) > 0 {
		ratio = float64(originalSize) / float64(len(blob))
	}

	return &Stats{
		OriginalSize:     originalSize,
		CompressedSize:   int64(len(blob)),
		CompressionRatio: ratio,
		LineCount:        len(lines),
		TemplateCount:    len(ex.Templates),
		CoveragePercent:  coverage,
		CompressionTime:  time.Since(start),
	}
}

// encodeColumn picks the codec for one column by field type and encodes the
// values. Numeric and timestamp columns verify that re-rendering the parsed
// value reproduces the original bytes; otherwise the column silently
// downgrades to string storage so reconstruction stays exact.
func encodeColumn(ft format.FieldType, values []string, globals *section.Globals) (format.CodecTag, []byte, []byte) {
	switch ft {
	case format.FieldTimestamp:
		if tag, header, payload, ok := encodeTimestampColumn(values); ok {
			return tag, header, payload
		}

		return encodeStringColumn(values)

	case format.FieldInteger, format.FieldProcessID:
		if tag, payload, ok := encodeIntegerColumn(values); ok {
			return tag, nil, payload
		}

		return encodeStringColumn(values)

	case format.FieldSeverity:
		enc := encoding.NewGlobalDictColumnEncoder(globals.Severity, format.PoolSeverity)
		for _, v := range values {
			enc.Write(v)
		}
		payload := append([]byte(nil), enc.Bytes()...)
		header := enc.Header()
		enc.Finish()

		return format.CodecDictGlobal, header, payload

	case format.FieldMessage, format.FieldQuotedString:
		enc := encoding.NewGlobalDictColumnEncoder(globals.Messages, format.PoolMessage)
		for _, v := range values {
			enc.Write(v)
		}
		payload := append([]byte(nil), enc.Bytes()...)
		header := enc.Header()
		enc.Finish()

		return format.CodecDictGlobal, header, payload

	case format.FieldIPv4:
		enc := encoding.NewLocalDictColumnEncoder()
		for _, v := range values {
			enc.Write(v)
		}
		payload := append([]byte(nil), enc.Bytes()...)
		header := enc.Header()
		enc.Finish()

		return format.CodecDictLocal, header, payload

	default:
		return encodeStringColumn(values)
	}
}

// encodeTimestampColumn stores epoch-milliseconds with delta encoding plus
// the rendering layout in the block header. Every value must parse with the
// layout derived from the first value and re-render byte-exactly from its
// epoch form; otherwise the column is not numeric-encodable.
func encodeTimestampColumn(values []string) (format.CodecTag, []byte, []byte, bool) {
	if len(values) == 0 {
		return 0, nil, nil, false
	}
	_, layout, ok := token.ParseTimestamp(values[0])
	if !ok {
		return 0, nil, nil, false
	}

	epochs := make([]int64, len(values))
	for i, v := range values {
		t, ok := token.ParseWithLayout(layout, v)
		if !ok {
			return 0, nil, nil, false
		}
		ms := t.UnixMilli()
		if time.UnixMilli(ms).UTC().Format(layout) != v {
			return 0, nil, nil, false
		}
		epochs[i] = ms
	}

	enc := encoding.NewDeltaColumnEncoder()
	for _, ms := range epochs {
		enc.Write(ms)
	}
	payload := append([]byte(nil), enc.Bytes()...)
	enc.Finish()

	header := encoding.AppendUvarint(nil, uint64(len(layout)))
	header = append(header, layout...)

	return format.CodecDeltaVarint, header, payload, true
}

// encodeIntegerColumn stores canonical base-10 integers as a varint stream,
// zigzag-mapped when any value is negative. Values with non-canonical
// renderings (leading zeros, explicit plus) are not numeric-encodable.
func encodeIntegerColumn(values []string) (format.CodecTag, []byte, bool) {
	parsed := make([]int64, len(values))
	negative := false
	for i, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || strconv.FormatInt(n, 10) != v {
			return 0, nil, false
		}
		if n < 0 {
			negative = true
		}
		parsed[i] = n
	}

	var enc *encoding.IntColumnEncoder
	if negative {
		enc = encoding.NewZigzagColumnEncoder()
	} else {
		enc = encoding.NewVarintColumnEncoder()
	}
	for _, n := range parsed {
		enc.Write(n)
	}
	payload := append([]byte(nil), enc.Bytes()...)
	tag := enc.Tag()
	enc.Finish()

	return tag, payload, true
}

// encodeStringColumn dictionary-encodes a string column, falling back to
// raw length-prefixed storage when the cardinality reaches half the row
// count and dictionary gains would go negative.
func encodeStringColumn(values []string) (format.CodecTag, []byte, []byte) {
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}

	if len(distinct)*2 >= len(values) && len(values) > 1 {
		enc := encoding.NewRawColumnEncoder()
		for _, v := range values {
			enc.Write(v)
		}
		payload := append([]byte(nil), enc.Bytes()...)
		enc.Finish()

		return format.CodecRaw, nil, payload
	}

	enc := encoding.NewLocalDictColumnEncoder()
	for _, v := range values {
		enc.Write(v)
	}
	payload := append([]byte(nil), enc.Bytes()...)
	header := enc.Header()
	enc.Finish()

	return format.CodecDictLocal, header, payload
}

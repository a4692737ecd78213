package container

import (
	"hash/crc32"
	"sync"
	"sync/atomic"

	"github.com/adam-bouafia/logsim/compress"
	"github.com/adam-bouafia/logsim/encoding"
	"github.com/adam-bouafia/logsim/endian"
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/section"
	"github.com/adam-bouafia/logsim/template"
)

// ReaderState tracks the read-side state machine. Any validation failure is
// terminal and reports the offending section.
type ReaderState uint8

const (
	StateUnopened ReaderState = iota
	StateHeaderParsed
	StateBodyDecoded
	StateFooterRead
	StateReady
)

func (s ReaderState) String() string {
	switch s {
	case StateUnopened:
		return "UNOPENED"
	case StateHeaderParsed:
		return "HEADER_PARSED"
	case StateBodyDecoded:
		return "BODY_DECODED"
	case StateFooterRead:
		return "FOOTER_READ"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Container is an immutable, opened container. It owns the entropy-decoded
// body; decoded columns are views borrowing from it. Safe for concurrent
// readers.
//
// A checksum mismatch does not fail Open: Count only needs the footer and
// survives most body corruption. The mismatch surfaces through Verify and
// through per-template decode faults.
type Container struct {
	engine endian.EndianEngine
	header *section.Header
	footer *section.Footer
	body   []byte // decoded body; position 0 is decoded-layout offset PreludeSize
	state  ReaderState

	checksumErr error

	parseOnce sync.Once
	parseErr  error
	templates []*template.Template
	globals   *section.Globals
	colDir    []uint64 // decoded-layout absolute offset of each template's first block
	rows      [][]uint64

	blocksDecoded atomic.Int64
}

// Open parses a container blob: prelude, optional entropy dictionary,
// entropy-decoded body and footer. Template table, global dictionaries and
// the template-id stream parse lazily on first use.
func Open(blob []byte) (*Container, error) {
	c := &Container{engine: endian.GetLittleEndianEngine(), state: StateUnopened}

	header, err := section.ParseHeader(blob, c.engine)
	if err != nil {
		return nil, err
	}
	c.header = header
	c.state = StateHeaderParsed

	rest := blob[section.PreludeSize:]
	var dict []byte
	if header.HasEntropyDict() {
		if header.Compression() != format.CompressionZstd {
			return nil, errs.Format(errs.ErrUnsupportedVersion, "header", 6,
				"entropy dictionary with %s compression", header.Compression())
		}
		if len(rest) < 4 {
			return nil, errs.Format(errs.ErrTruncatedContainer, "entropy_dictionary", section.PreludeSize,
				"missing dictionary length")
		}
		dictLen := int(c.engine.Uint32(rest[:4]))
		if len(rest) < 4+dictLen {
			return nil, errs.Format(errs.ErrTruncatedContainer, "entropy_dictionary", section.PreludeSize+4,
				"dictionary of %d bytes exceeds blob", dictLen)
		}
		dict = rest[4 : 4+dictLen]
		rest = rest[4+dictLen:]
	}

	body, err := decodeBody(rest, header.Compression(), dict)
	if err != nil {
		return nil, errs.Format(errs.ErrEntropyDecodeFailed, "body", section.PreludeSize, "%v", err)
	}
	c.body = body
	c.state = StateBodyDecoded

	// The footer offset is absolute in the decoded layout; the body slice
	// starts at layout position PreludeSize.
	fo := header.FooterOffset
	if fo < section.PreludeSize || fo+section.FooterSize > uint64(section.PreludeSize+len(body)) {
		return nil, errs.Format(errs.ErrTruncatedContainer, "footer", int64(fo), //nolint:gosec
			"footer offset outside decoded body (%d bytes)", len(body))
	}
	footer, err := section.ParseFooter(body[fo-section.PreludeSize:], int64(fo), c.engine) //nolint:gosec
	if err != nil {
		return nil, err
	}
	if err := validateFooter(footer, fo, uint64(section.PreludeSize+len(body))); err != nil {
		return nil, err
	}
	c.footer = footer
	c.state = StateFooterRead

	crc := crc32.ChecksumIEEE(body[footer.TemplatesOffset-section.PreludeSize : fo-section.PreludeSize])
	if crc != footer.CRC32 {
		c.checksumErr = errs.Format(errs.ErrChecksumMismatch, "body", int64(footer.TemplatesOffset), //nolint:gosec
			"computed %08x, stored %08x", crc, footer.CRC32)
	}
	c.state = StateReady

	return c, nil
}

func decodeBody(data []byte, ct format.CompressionType, dict []byte) ([]byte, error) {
	if dict != nil {
		return compress.NewZstdCompressor(0).DecompressDict(data, dict)
	}
	codec, err := compress.CreateCodec(ct, 0)
	if err != nil {
		return nil, err
	}

	return codec.Decompress(data)
}

func validateFooter(f *section.Footer, footerOffset, layoutEnd uint64) error {
	ok := f.TemplatesOffset == section.PreludeSize &&
		f.TemplatesOffset <= f.GlobalsOffset &&
		f.GlobalsOffset <= f.TIDStreamOffset &&
		f.TIDStreamOffset <= f.ColumnsOffset &&
		f.ColumnsOffset <= footerOffset &&
		footerOffset <= layoutEnd
	if !ok {
		return errs.Format(errs.ErrTruncatedContainer, "footer", int64(footerOffset), //nolint:gosec
			"section offsets out of order")
	}

	return nil
}

// State returns the reader state; READY after a successful Open.
func (c *Container) State() ReaderState {
	return c.state
}

// Count returns the number of lines in the container. It reads only the
// footer: no section parse, no column decode.
func (c *Container) Count() uint64 {
	return c.footer.NumLines
}

// NumTemplates returns the number of templates.
func (c *Container) NumTemplates() int {
	return int(c.footer.NumTemplates)
}

// Verify returns the checksum validation result from Open: nil, or an
// errs.ErrChecksumMismatch fault.
func (c *Container) Verify() error {
	return c.checksumErr
}

// sectionBytes slices the decoded body between two decoded-layout offsets.
func (c *Container) sectionBytes(from, to uint64) []byte {
	return c.body[from-section.PreludeSize : to-section.PreludeSize]
}

// parseSections lazily parses the template table, global dictionaries,
// column directory and template-id stream. Safe under concurrent readers.
func (c *Container) parseSections() error {
	c.parseOnce.Do(func() {
		f := c.footer

		tt := c.sectionBytes(f.TemplatesOffset, f.GlobalsOffset)
		templates, _, err := section.ParseTemplateTable(tt, 0, int(f.NumTemplates), int64(f.TemplatesOffset)) //nolint:gosec
		if err != nil {
			c.parseErr = err
			return
		}
		c.templates = templates

		gl := c.sectionBytes(f.GlobalsOffset, f.TIDStreamOffset)
		globals, _, err := section.ParseGlobals(gl, 0, int64(f.GlobalsOffset)) //nolint:gosec
		if err != nil {
			c.parseErr = err
			return
		}
		c.globals = globals

		// Column directory: n_templates u64 offsets at the head of the
		// columns section.
		cols := c.sectionBytes(f.ColumnsOffset, c.header.FooterOffset)
		dirSize := 8 * int(f.NumTemplates)
		if len(cols) < dirSize {
			c.parseErr = errs.Format(errs.ErrTruncatedContainer, "column_directory", int64(f.ColumnsOffset), //nolint:gosec
				"directory needs %d bytes, section has %d", dirSize, len(cols))
			return
		}
		c.colDir = make([]uint64, f.NumTemplates)
		for i := range c.colDir {
			off := c.engine.Uint64(cols[8*i : 8*i+8])
			if off < f.ColumnsOffset+uint64(dirSize) || off > c.header.FooterOffset { //nolint:gosec
				c.parseErr = errs.Format(errs.ErrTruncatedContainer, "column_directory",
					int64(f.ColumnsOffset)+int64(8*i), "block offset %d outside columns section", off) //nolint:gosec
				return
			}
			c.colDir[i] = off
		}

		c.parseErr = c.decodeTIDStream()
	})

	return c.parseErr
}

// decodeTIDStream decodes the per-line template-id stream into per-template
// row-to-line mappings.
func (c *Container) decodeTIDStream() error {
	f := c.footer
	data := c.sectionBytes(f.TIDStreamOffset, f.ColumnsOffset)
	block, _, err := encoding.ReadBlock(data, 0, int64(f.TIDStreamOffset)) //nolint:gosec
	if err != nil {
		return err
	}
	if block.Tag != format.CodecRLEVarint {
		return errs.Format(errs.ErrUnknownCodecTag, "template_id_stream", int64(f.TIDStreamOffset), //nolint:gosec
			"stream uses %s, want RLEVarint", block.Tag)
	}

	rows := make([][]uint64, f.NumTemplates)
	rd := encoding.NewRLEColumnReader(block.Payload)
	for line := uint64(0); line < f.NumLines; line++ {
		tid, ok := rd.Next()
		if !ok {
			if err := rd.Err(); err != nil {
				return errs.Format(err, "template_id_stream", int64(f.TIDStreamOffset), "line %d", line) //nolint:gosec
			}

			return errs.Format(errs.ErrTruncatedContainer, "template_id_stream", int64(f.TIDStreamOffset), //nolint:gosec
				"stream ends at line %d of %d", line, f.NumLines)
		}
		if tid >= uint64(f.NumTemplates) {
			return errs.Format(errs.ErrDictionaryIDOutOfRange, "template_id_stream", int64(f.TIDStreamOffset), //nolint:gosec
				"template id %d, table has %d", tid, f.NumTemplates)
		}
		rows[tid] = append(rows[tid], line)
	}
	c.rows = rows

	return nil
}

// Templates returns the parsed template table in id order.
func (c *Container) Templates() ([]*template.Template, error) {
	if err := c.parseSections(); err != nil {
		return nil, err
	}

	return c.templates, nil
}

// Globals returns the parsed global dictionaries.
func (c *Container) Globals() (*section.Globals, error) {
	if err := c.parseSections(); err != nil {
		return nil, err
	}

	return c.globals, nil
}

// TemplateRows returns the global line index of each row of a template, in
// row order.
func (c *Container) TemplateRows(tid uint32) ([]uint64, error) {
	if err := c.parseSections(); err != nil {
		return nil, err
	}

	return c.rows[tid], nil
}

// ColumnBlock locates and returns one column block of a template. Only the
// requested block's framing is touched; sibling blocks are skipped by their
// recorded lengths, and nothing outside the template's block range is read.
func (c *Container) ColumnBlock(tid uint32, col int) (encoding.Block, error) {
	if err := c.parseSections(); err != nil {
		return encoding.Block{}, err
	}

	start := c.colDir[tid]
	end := c.header.FooterOffset
	if int(tid)+1 < len(c.colDir) {
		end = c.colDir[tid+1]
	}
	data := c.sectionBytes(start, end)

	off := 0
	for i := 0; ; i++ {
		block, next, err := encoding.ReadBlock(data, off, int64(start)) //nolint:gosec
		if err != nil {
			return encoding.Block{}, err
		}
		if i == col {
			c.blocksDecoded.Add(1)
			return block, nil
		}
		off = next
	}
}

// DecodedColumnBlocks returns how many column blocks have been handed out
// since Open. Diagnostic accessor backing the column pruning guarantees.
func (c *Container) DecodedColumnBlocks() int64 {
	return c.blocksDecoded.Load()
}

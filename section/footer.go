package section

import (
	"github.com/adam-bouafia/logsim/endian"
	"github.com/adam-bouafia/logsim/errs"
)

// Footer is written last within the body and located through the prelude's
// footer offset. Its section offsets are absolute positions in the decoded
// layout and are sufficient to locate any section without scanning
// unrelated data.
type Footer struct {
	NumLines        uint64
	NumTemplates    uint32
	TemplatesOffset uint64
	GlobalsOffset   uint64
	TIDStreamOffset uint64
	ColumnsOffset   uint64
	CRC32           uint32
}

// AppendTo serializes the footer onto dst.
func (f *Footer) AppendTo(dst []byte, engine endian.EndianEngine) []byte {
	dst = engine.AppendUint64(dst, f.NumLines)
	dst = engine.AppendUint32(dst, f.NumTemplates)
	dst = engine.AppendUint64(dst, f.TemplatesOffset)
	dst = engine.AppendUint64(dst, f.GlobalsOffset)
	dst = engine.AppendUint64(dst, f.TIDStreamOffset)
	dst = engine.AppendUint64(dst, f.ColumnsOffset)
	dst = engine.AppendUint32(dst, f.CRC32)

	return dst
}

// ParseFooter parses the fixed-size footer located at base in the decoded
// layout.
func ParseFooter(data []byte, base int64, engine endian.EndianEngine) (*Footer, error) {
	if len(data) < FooterSize {
		return nil, errs.Format(errs.ErrTruncatedContainer, "footer", base,
			"footer has %d bytes, needs %d", len(data), FooterSize)
	}

	return &Footer{
		NumLines:        engine.Uint64(data[0:8]),
		NumTemplates:    engine.Uint32(data[8:12]),
		TemplatesOffset: engine.Uint64(data[12:20]),
		GlobalsOffset:   engine.Uint64(data[20:28]),
		TIDStreamOffset: engine.Uint64(data[28:36]),
		ColumnsOffset:   engine.Uint64(data[36:44]),
		CRC32:           engine.Uint32(data[44:48]),
	}, nil
}

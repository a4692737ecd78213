package section

import (
	"github.com/adam-bouafia/logsim/encoding"
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/template"
)

// AppendTemplateTable serializes the template table: one entry per template
// in id order.
//
// Entry layout:
//
//	template_id(varint) | n_slots(varint) | slots*
//	slot: tag(u8) | literal: len(varint) + bytes
//	               | variable: field_type(u8) + column_index(varint)
func AppendTemplateTable(dst []byte, templates []*template.Template) []byte {
	for _, t := range templates {
		dst = encoding.AppendUvarint(dst, uint64(t.ID))
		dst = encoding.AppendUvarint(dst, uint64(len(t.Slots)))
		for _, s := range t.Slots {
			dst = append(dst, byte(s.Kind))
			if s.IsVariable() {
				dst = append(dst, byte(s.Type))
				dst = encoding.AppendUvarint(dst, uint64(s.Column)) //nolint:gosec
			} else {
				dst = encoding.AppendUvarint(dst, uint64(len(s.Literal)))
				dst = append(dst, s.Literal...)
			}
		}
	}

	return dst
}

// ParseTemplateTable reads count template entries from data starting at
// off. base is the absolute decoded-layout position of data[0].
func ParseTemplateTable(data []byte, off int, count int, base int64) ([]*template.Template, int, error) {
	templates := make([]*template.Template, 0, count)

	for i := 0; i < count; i++ {
		id, n, err := encoding.Uvarint(data, off)
		if err != nil {
			return nil, 0, errs.Format(err, "template_table", base+int64(off), "template id")
		}
		off += n

		nSlots, n, err := encoding.Uvarint(data, off)
		if err != nil {
			return nil, 0, errs.Format(err, "template_table", base+int64(off), "slot count")
		}
		off += n

		t := &template.Template{ID: uint32(id), Slots: make([]template.Slot, 0, nSlots)} //nolint:gosec
		for j := uint64(0); j < nSlots; j++ {
			if off >= len(data) {
				return nil, 0, errs.Format(errs.ErrTruncatedContainer, "template_table", base+int64(off), "slot tag")
			}
			tag := format.SlotTag(data[off])
			off++

			switch tag {
			case format.SlotLiteral:
				litLen, n, err := encoding.Uvarint(data, off)
				if err != nil {
					return nil, 0, errs.Format(err, "template_table", base+int64(off), "literal length")
				}
				off += n
				end := off + int(litLen) //nolint:gosec
				if end > len(data) || end < off {
					return nil, 0, errs.Format(errs.ErrTruncatedContainer, "template_table", base+int64(off),
						"literal of %d bytes exceeds section", litLen)
				}
				t.Slots = append(t.Slots, template.Slot{Kind: format.SlotLiteral, Literal: string(data[off:end])})
				off = end

			case format.SlotVariable:
				if off >= len(data) {
					return nil, 0, errs.Format(errs.ErrTruncatedContainer, "template_table", base+int64(off), "field type")
				}
				ft := format.FieldType(data[off])
				if !ft.IsValid() {
					return nil, 0, errs.Format(errs.ErrMalformedSlot, "template_table", base+int64(off),
						"field type 0x%02x", data[off])
				}
				off++
				col, n, err := encoding.Uvarint(data, off)
				if err != nil {
					return nil, 0, errs.Format(err, "template_table", base+int64(off), "column index")
				}
				off += n
				t.Slots = append(t.Slots, template.Slot{Kind: format.SlotVariable, Type: ft, Column: int(col)}) //nolint:gosec

			default:
				return nil, 0, errs.Format(errs.ErrMalformedSlot, "template_table", base+int64(off)-1,
					"slot tag 0x%02x", byte(tag))
			}
		}

		templates = append(templates, t)
	}

	return templates, off, nil
}

package query

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adam-bouafia/logsim/container"
	"github.com/adam-bouafia/logsim/encoding"
	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/template"
	"github.com/adam-bouafia/logsim/token"
)

// Count returns the container's line count from the footer alone; no
// section or column is decoded.
func Count(c *container.Container) uint64 {
	return c.Count()
}

// Filter evaluates a conjunctive predicate and reconstructs the matching
// lines. Matches come back in input line order; limit > 0 caps the result
// at the first limit matches.
//
// Predicates evaluate most-selective-first within each template: severity
// (a dictionary id lookup) before timestamps (a streaming prefix sum)
// before IPv4. Later filters stream their whole column but keep only rows
// that survived earlier ones.
// A template whose column blocks fail to decode is reported in
// Result.Unreadable while the remaining templates keep answering.
func Filter(c *container.Container, pred Predicate, limit uint32) (*Result, error) {
	return FilterContext(context.Background(), c, pred, limit)
}

// FilterContext is Filter with cancellation at per-template column-scan
// boundaries. There are no internal timeouts; the caller imposes wall-clock
// limits through the context.
func FilterContext(ctx context.Context, c *container.Container, pred Predicate, limit uint32) (*Result, error) {
	templates, err := c.Templates()
	if err != nil {
		return nil, err
	}

	res := &Result{}

	type candidate struct {
		tid  uint32
		row  int
		line uint64
	}
	var cands []candidate

	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := c.TemplateRows(t.ID)
		if err != nil {
			return nil, err
		}
		sel, err := evalTemplate(c, t, len(rows), pred)
		if err != nil {
			res.Unreadable = append(res.Unreadable, TemplateFault{TemplateID: t.ID, Err: err})
			continue
		}
		if sel == nil {
			for r, line := range rows {
				cands = append(cands, candidate{tid: t.ID, row: r, line: line})
			}
		} else {
			for _, r := range sel {
				cands = append(cands, candidate{tid: t.ID, row: int(r), line: rows[r]})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].line < cands[j].line })
	if limit > 0 && uint32(len(cands)) > limit { //nolint:gosec
		cands = cands[:limit]
	}

	// Render grouped per template so each needed column decodes once.
	needed := make(map[uint32][]int)
	for _, cd := range cands {
		needed[cd.tid] = append(needed[cd.tid], cd.row)
	}
	rendered := make(map[uint32]map[int]string, len(needed))
	for tid, rowsNeeded := range needed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sort.Ints(rowsNeeded)
		texts, err := renderRows(c, templates[tid], rowsNeeded)
		if err != nil {
			res.Unreadable = append(res.Unreadable, TemplateFault{TemplateID: tid, Err: err})
			continue
		}
		rendered[tid] = texts
	}

	for _, cd := range cands {
		texts, ok := rendered[cd.tid]
		if !ok {
			continue // template became unreadable during render
		}
		res.Matches = append(res.Matches, Match{Line: cd.line, Text: texts[cd.row]})
	}

	return res, nil
}

// evalTemplate returns the surviving row indexes for one template: nil
// means every row matches, an empty slice means none.
func evalTemplate(c *container.Container, t *template.Template, nRows int, pred Predicate) ([]uint32, error) {
	if nRows == 0 {
		return []uint32{}, nil
	}

	var sel []uint32 // nil = all rows
	var err error

	if len(pred.Severities) > 0 {
		sel, err = filterSeverity(c, t, nRows, sel, pred.Severities)
		if err != nil || len(sel) == 0 && sel != nil {
			return sel, err
		}
	}
	if pred.Time != nil {
		sel, err = filterTime(c, t, nRows, sel, *pred.Time)
		if err != nil || len(sel) == 0 && sel != nil {
			return sel, err
		}
	}
	if pred.IPv4 != "" {
		sel, err = filterIPv4(c, t, nRows, sel, pred.IPv4)
		if err != nil {
			return nil, err
		}
	}

	return sel, nil
}

// selected reports whether row r survives the current selection.
func selected(sel []uint32, r int) bool {
	if sel == nil {
		return true
	}
	i := sort.Search(len(sel), func(i int) bool { return sel[i] >= uint32(r) }) //nolint:gosec

	return i < len(sel) && sel[i] == uint32(r) //nolint:gosec
}

func filterSeverity(c *container.Container, t *template.Template, nRows int, sel []uint32, severities []string) ([]uint32, error) {
	col, ok := t.FindColumn(format.FieldSeverity)
	if !ok {
		// The merge phase freezes a severity shared by every line into a
		// literal slot; it still answers severity predicates as a
		// constant for all rows.
		for _, s := range t.Slots {
			if !s.IsVariable() && token.IsSeverityWord(s.Literal) {
				if matchesAnyFold(s.Literal, severities) {
					return sel, nil
				}

				return []uint32{}, nil
			}
		}

		return []uint32{}, nil
	}

	block, err := c.ColumnBlock(t.ID, col)
	if err != nil {
		return nil, err
	}

	switch block.Tag {
	case format.CodecDictLocal, format.CodecDictGlobal:
		dict, err := resolveDict(c, block)
		if err != nil {
			return nil, err
		}
		targets := make(map[uint32]struct{})
		for i, entry := range dict.Entries() {
			if matchesAnyFold(entry, severities) {
				targets[uint32(i)] = struct{}{} //nolint:gosec
			}
		}
		if len(targets) == 0 {
			return []uint32{}, nil
		}

		out := []uint32{}
		rd := encoding.NewDictColumnReader(block.Payload, dict)
		for r := 0; r < nRows; r++ {
			id, ok := rd.NextID()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			if _, hit := targets[id]; hit && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

		return out, nil

	case format.CodecRaw:
		out := []uint32{}
		rd := encoding.NewRawColumnReader(block.Payload)
		for r := 0; r < nRows; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, 0)
			}
			if matchesAnyFold(v, severities) && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

		return out, nil

	default:
		return nil, errs.Format(errs.ErrUnknownCodecTag, "column_block", block.PayloadBase,
			"severity column uses %s", block.Tag)
	}
}

func filterTime(c *container.Container, t *template.Template, nRows int, sel []uint32, tr TimeRange) ([]uint32, error) {
	col, ok := t.FindColumn(format.FieldTimestamp)
	if !ok {
		for _, s := range t.Slots {
			if s.IsVariable() {
				continue
			}
			if ts, _, ok := token.ParseTimestamp(s.Literal); ok {
				if tr.Contains(ts.UnixMilli()) {
					return sel, nil
				}

				return []uint32{}, nil
			}
		}

		return []uint32{}, nil
	}

	block, err := c.ColumnBlock(t.ID, col)
	if err != nil {
		return nil, err
	}

	out := []uint32{}
	switch block.Tag {
	case format.CodecDeltaVarint:
		// Streaming prefix sum: values are compared as they materialize,
		// no intermediate array.
		rd := encoding.NewDeltaColumnReader(block.Payload)
		for r := 0; r < nRows; r++ {
			ms, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			if tr.Contains(ms) && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

	case format.CodecDictLocal, format.CodecDictGlobal:
		// Downgraded textual timestamps: parse each distinct dictionary
		// entry once, then scan ids.
		dict, err := resolveDict(c, block)
		if err != nil {
			return nil, err
		}
		inRange := make([]bool, dict.Len())
		for i, entry := range dict.Entries() {
			if ts, _, ok := token.ParseTimestamp(entry); ok {
				inRange[i] = tr.Contains(ts.UnixMilli())
			}
		}
		rd := encoding.NewDictColumnReader(block.Payload, dict)
		for r := 0; r < nRows; r++ {
			id, ok := rd.NextID()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			if int(id) < len(inRange) && inRange[id] && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

	case format.CodecRaw:
		rd := encoding.NewRawColumnReader(block.Payload)
		for r := 0; r < nRows; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, 0)
			}
			ts, _, parsed := token.ParseTimestamp(v)
			if parsed && tr.Contains(ts.UnixMilli()) && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

	default:
		return nil, errs.Format(errs.ErrUnknownCodecTag, "column_block", block.PayloadBase,
			"timestamp column uses %s", block.Tag)
	}

	return out, nil
}

func filterIPv4(c *container.Container, t *template.Template, nRows int, sel []uint32, addr string) ([]uint32, error) {
	col, ok := t.FindColumn(format.FieldIPv4)
	if !ok {
		for _, s := range t.Slots {
			if !s.IsVariable() && s.Literal == addr {
				return sel, nil
			}
		}

		return []uint32{}, nil
	}

	block, err := c.ColumnBlock(t.ID, col)
	if err != nil {
		return nil, err
	}

	switch block.Tag {
	case format.CodecDictLocal, format.CodecDictGlobal:
		dict, err := resolveDict(c, block)
		if err != nil {
			return nil, err
		}
		target, found := dict.Lookup(addr)
		if !found {
			// Dictionary miss: the address appears nowhere in this
			// template, skip it without visiting any row.
			return []uint32{}, nil
		}

		out := []uint32{}
		rd := encoding.NewDictColumnReader(block.Payload, dict)
		for r := 0; r < nRows; r++ {
			id, ok := rd.NextID()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			if id == target && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

		return out, nil

	case format.CodecRaw:
		out := []uint32{}
		rd := encoding.NewRawColumnReader(block.Payload)
		for r := 0; r < nRows; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, 0)
			}
			if v == addr && selected(sel, r) {
				out = append(out, uint32(r)) //nolint:gosec
			}
		}

		return out, nil

	default:
		return nil, errs.Format(errs.ErrUnknownCodecTag, "column_block", block.PayloadBase,
			"ipv4 column uses %s", block.Tag)
	}
}

func matchesAnyFold(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}

// resolveDict returns the dictionary of a dict-coded block: the local
// dictionary serialized in the block header, or the referenced global pool.
func resolveDict(c *container.Container, block encoding.Block) (*encoding.Dictionary, error) {
	if block.Tag == format.CodecDictLocal {
		dict, _, err := encoding.ParseDictionary(block.Header, 0)
		if err != nil {
			return nil, errs.Format(err, "column_block", block.PayloadBase, "local dictionary")
		}

		return dict, nil
	}

	if len(block.Header) != 1 {
		return nil, errs.Format(errs.ErrMalformedSlot, "column_block", block.PayloadBase,
			"global dict header has %d bytes", len(block.Header))
	}
	globals, err := c.Globals()
	if err != nil {
		return nil, err
	}
	dict, ok := globals.Pool(block.Header[0])
	if !ok {
		return nil, errs.Format(errs.ErrDictionaryIDOutOfRange, "column_block", block.PayloadBase,
			"unknown global pool %d", block.Header[0])
	}

	return dict, nil
}

// payloadFault wraps a column payload decode error with its absolute
// offset. A clean end-of-payload before the expected row count is a
// truncation.
func payloadFault(err error, block encoding.Block, off int) error {
	if err == nil {
		err = errs.ErrTruncatedContainer
	}

	return errs.Format(err, "column_block", block.PayloadBase+int64(off), "row decode")
}

// renderRows reconstructs the given rows (sorted ascending) of a template.
// Every column decodes exactly once in a single streaming pass.
func renderRows(c *container.Container, t *template.Template, rowsNeeded []int) (map[int]string, error) {
	nCols := t.VariableCount()
	out := make(map[int]string, len(rowsNeeded))
	if nCols == 0 {
		text := t.Render(nil)
		for _, r := range rowsNeeded {
			out[r] = text
		}

		return out, nil
	}

	colVals := make([][]string, nCols)
	for col := 0; col < nCols; col++ {
		block, err := c.ColumnBlock(t.ID, col)
		if err != nil {
			return nil, err
		}
		vals, err := decodeAtRows(c, block, rowsNeeded)
		if err != nil {
			return nil, err
		}
		colVals[col] = vals
	}

	rowVals := make([]string, nCols)
	for i, r := range rowsNeeded {
		for col := 0; col < nCols; col++ {
			rowVals[col] = colVals[col][i]
		}
		out[r] = t.Render(rowVals)
	}

	return out, nil
}

// decodeAtRows streams one column and collects the values at the requested
// rows (sorted ascending). Returns values aligned with rowsNeeded.
func decodeAtRows(c *container.Container, block encoding.Block, rowsNeeded []int) ([]string, error) {
	if len(rowsNeeded) == 0 {
		return nil, nil
	}
	maxRow := rowsNeeded[len(rowsNeeded)-1]
	out := make([]string, 0, len(rowsNeeded))
	next := 0

	collect := func(r int, v string) {
		if next < len(rowsNeeded) && rowsNeeded[next] == r {
			out = append(out, v)
			next++
		}
	}

	switch block.Tag {
	case format.CodecVarint, format.CodecZigzagVarint:
		rd := encoding.NewIntColumnReader(block.Payload, block.Tag == format.CodecZigzagVarint)
		for r := 0; r <= maxRow; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			collect(r, strconv.FormatInt(v, 10))
		}

	case format.CodecDeltaVarint:
		layout, err := timestampLayout(block)
		if err != nil {
			return nil, err
		}
		rd := encoding.NewDeltaColumnReader(block.Payload)
		for r := 0; r <= maxRow; r++ {
			ms, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			if layout == "" {
				collect(r, strconv.FormatInt(ms, 10))
			} else {
				collect(r, time.UnixMilli(ms).UTC().Format(layout))
			}
		}

	case format.CodecDictLocal, format.CodecDictGlobal:
		dict, err := resolveDict(c, block)
		if err != nil {
			return nil, err
		}
		rd := encoding.NewDictColumnReader(block.Payload, dict)
		for r := 0; r <= maxRow; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, rd.Offset())
			}
			collect(r, v)
		}

	case format.CodecRaw:
		rd := encoding.NewRawColumnReader(block.Payload)
		for r := 0; r <= maxRow; r++ {
			v, ok := rd.Next()
			if !ok {
				return nil, payloadFault(rd.Err(), block, 0)
			}
			collect(r, v)
		}

	default:
		return nil, errs.Format(errs.ErrUnknownCodecTag, "column_block", block.PayloadBase,
			"column uses %s", block.Tag)
	}

	return out, nil
}

// timestampLayout reads the rendering layout from a delta block header.
func timestampLayout(block encoding.Block) (string, error) {
	if len(block.Header) == 0 {
		return "", nil
	}
	n, sz, err := encoding.Uvarint(block.Header, 0)
	if err != nil {
		return "", errs.Format(err, "column_block", block.PayloadBase, "layout length")
	}
	end := sz + int(n) //nolint:gosec
	if end > len(block.Header) {
		return "", errs.Format(errs.ErrTruncatedContainer, "column_block", block.PayloadBase,
			"layout of %d bytes exceeds header", n)
	}

	return string(block.Header[sz:end]), nil
}

package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/adam-bouafia/logsim/errs"
	"github.com/adam-bouafia/logsim/format"
	"github.com/adam-bouafia/logsim/internal/hash"
	"github.com/adam-bouafia/logsim/token"
)

// Config controls template extraction.
type Config struct {
	// MinSupport is the minimum number of lines that must share a shape to
	// form a template directly. Lines below support go through absorption.
	MinSupport int
	// TemplateCeiling bounds the total number of templates; exceeding it
	// aborts extraction with errs.ErrTemplateBudgetExceeded.
	TemplateCeiling int
	// AbsorbThreshold is the minimum position-wise agreement for absorbing
	// an unmatched line into an existing template.
	AbsorbThreshold float64
	// MinConfidence demotes classifier labels below it to LITERAL.
	MinConfidence float64
}

// DefaultConfig returns the extraction defaults: support 3, ceiling 10000,
// absorption at 80% agreement.
func DefaultConfig() Config {
	return Config{
		MinSupport:      3,
		TemplateCeiling: 10000,
		AbsorbThreshold: 0.8,
		MinConfidence:   token.MinConfidence,
	}
}

// Extraction is the result of template extraction over an ordered line set.
type Extraction struct {
	// Templates in id order; ids are dense and assigned by first appearance.
	Templates []*Template
	// Assignments holds the template id of each input line.
	Assignments []uint32
	// Rows holds, for each input line, its variable slot values indexed by
	// column ordinal. Empty for lines assigned to all-literal templates.
	Rows [][]string
}

// Extract recovers templates from lines and assigns every line to exactly
// one. The invariant Templates[Assignments[i]].Render(Rows[i]) == lines[i]
// holds for every input line without trailing "\r" or "\n" bytes; the
// tokenizer strips those, so they are not reconstructed.
func Extract(lines []string, cfg Config) (*Extraction, error) {
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = 3
	}
	if cfg.TemplateCeiling <= 0 {
		cfg.TemplateCeiling = 10000
	}
	if cfg.AbsorbThreshold <= 0 {
		cfg.AbsorbThreshold = 0.8
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = token.MinConfidence
	}

	ex := &extractor{cfg: cfg, buckets: make(map[uint64][]*bucket)}

	// Shape bucketing. Tokenize, demote low-confidence labels, split off
	// the free-form tail, and group lines by shape signature in
	// first-appearance order.
	annotated := make([][]token.Token, len(lines))
	tails := make([]int, len(lines))
	for i, line := range lines {
		toks := token.Annotate(line)
		for j := range toks {
			if toks[j].Confidence < cfg.MinConfidence {
				toks[j].Label = format.FieldLiteral
			}
		}
		annotated[i] = toks
		tails[i] = tailStart(toks)
		ex.bucketLine(i, lines[i], toks, tails[i])
	}

	// Support filter + alignment merge. Buckets above support become
	// templates; the rest re-enter as unmatched lines for absorption.
	var leftover []int
	for _, b := range ex.ordered {
		if len(b.lines) < cfg.MinSupport {
			leftover = append(leftover, b.lines...)
			continue
		}
		if err := ex.mergeBucket(b, lines, annotated, tails); err != nil {
			return nil, err
		}
	}

	// Greedy absorption in input order; unabsorbed lines become singleton
	// templates.
	sort.Ints(leftover)
	for _, li := range leftover {
		if err := ex.absorb(li, lines[li], annotated[li]); err != nil {
			return nil, err
		}
	}

	return ex.finish(lines)
}

// tailStart returns the index of the first token of the free-form tail: the
// trailing maximal run of unclassified word and whitespace tokens. The tail
// is collapsed into a single MESSAGE slot so that lines differing only in
// their message wording share a shape.
func tailStart(toks []token.Token) int {
	i := len(toks)
	for i > 0 {
		t := toks[i-1]
		if t.Label == format.FieldWhitespace {
			i--
			continue
		}
		if t.Label == format.FieldLiteral && !isStructural(t.Text) {
			i--
			continue
		}

		break
	}
	// A tail of pure whitespace stays literal.
	for i < len(toks) && toks[i].Label == format.FieldWhitespace {
		i++
	}

	return i
}

// isStructural reports whether a literal token is punctuation emitted by
// the tokenizer rather than a word.
func isStructural(text string) bool {
	if len(text) != 1 {
		return false
	}
	switch text[0] {
	case '[', ']', '(', ')', '{', '}', '<', '>', ',', ';', '|', '=', ':', '"', '\'':
		return true
	default:
		return false
	}
}

type bucket struct {
	sig   string
	lines []int
}

// builder is a template under construction. At most one slot is elastic: a
// MESSAGE slot that swallows a variable number of tokens (the collapsed
// tail or an absorbed middle).
type builder struct {
	id      uint32
	slots   []Slot
	elastic int // slot index of the elastic MESSAGE slot, -1 if none
	lines   []int
	vals    [][]string // per assigned line: one value per slot ("" for literal slots)
}

type extractor struct {
	cfg      Config
	buckets  map[uint64][]*bucket
	ordered  []*bucket
	builders []*builder
}

func (ex *extractor) bucketLine(lineIdx int, line string, toks []token.Token, tail int) {
	sig := signature(toks, tail)
	key := hash.ID(sig)
	for _, b := range ex.buckets[key] {
		if b.sig == sig {
			b.lines = append(b.lines, lineIdx)
			return
		}
	}

	b := &bucket{sig: sig, lines: []int{lineIdx}}
	ex.buckets[key] = append(ex.buckets[key], b)
	ex.ordered = append(ex.ordered, b)
}

// signature encodes the shape of a line: classified labels by kind, literal
// and whitespace tokens by their bytes, and the collapsed tail as a single
// marker. Lines share a template candidate iff their signatures are equal.
func signature(toks []token.Token, tail int) string {
	var sb strings.Builder
	for _, t := range toks[:tail] {
		if t.Label.IsVariable() {
			sb.WriteByte(0xFF)
			sb.WriteByte(byte(t.Label))
		} else {
			// Length-prefix literals so raw bytes can never alias the
			// marker bytes or a neighboring token.
			sb.WriteByte(0x1F)
			sb.WriteString(strconv.Itoa(len(t.Text)))
			sb.WriteByte(':')
			sb.WriteString(t.Text)
		}
	}
	if tail < len(toks) {
		sb.WriteByte(0xFE)
	}

	return sb.String()
}

func (ex *extractor) newBuilder() (*builder, error) {
	if len(ex.builders) >= ex.cfg.TemplateCeiling {
		return nil, fmt.Errorf("%w: ceiling %d", errs.ErrTemplateBudgetExceeded, ex.cfg.TemplateCeiling)
	}

	b := &builder{id: uint32(len(ex.builders)), elastic: -1} //nolint:gosec
	ex.builders = append(ex.builders, b)

	return b, nil
}

// mergeBucket aligns all lines of a supported bucket into one template.
// Head positions agree on arity and label by construction; positions where
// every line carries identical bytes freeze into literal slots, the rest
// become variable slots. The collapsed tail becomes an elastic MESSAGE slot
// unless every line's tail is identical.
func (ex *extractor) mergeBucket(b *bucket, lines []string, annotated [][]token.Token, tails []int) error {
	bld, err := ex.newBuilder()
	if err != nil {
		return err
	}

	first := annotated[b.lines[0]]
	head := tails[b.lines[0]]
	hasTail := head < len(first)

	for pos := 0; pos < head; pos++ {
		ref := first[pos]
		if !ref.Label.IsVariable() {
			bld.slots = append(bld.slots, Slot{Kind: format.SlotLiteral, Literal: ref.Text})
			continue
		}
		constant := true
		for _, li := range b.lines[1:] {
			if annotated[li][pos].Text != ref.Text {
				constant = false
				break
			}
		}
		if constant {
			bld.slots = append(bld.slots, Slot{Kind: format.SlotLiteral, Literal: ref.Text})
		} else {
			bld.slots = append(bld.slots, Slot{Kind: format.SlotVariable, Type: ref.Label})
		}
	}

	if hasTail {
		constant := true
		refTail := tailText(lines[b.lines[0]], annotated[b.lines[0]], head)
		for _, li := range b.lines[1:] {
			if tailText(lines[li], annotated[li], tails[li]) != refTail {
				constant = false
				break
			}
		}
		if constant {
			// Keep constant tails as per-token literal slots so the shape
			// still aligns position-wise with future absorption candidates.
			for _, tk := range annotated[b.lines[0]][head:] {
				bld.slots = append(bld.slots, Slot{Kind: format.SlotLiteral, Literal: tk.Text})
			}
		} else {
			bld.elastic = len(bld.slots)
			bld.slots = append(bld.slots, Slot{Kind: format.SlotVariable, Type: format.FieldMessage})
		}
	}

	for _, li := range b.lines {
		bld.assign(li, lines[li], annotated[li])
	}

	return nil
}

func tailText(line string, toks []token.Token, tail int) string {
	if tail >= len(toks) {
		return ""
	}

	return line[toks[tail].Start:toks[len(toks)-1].End]
}

// assign appends a line's per-slot values to the builder. The line is
// assumed to match the current shape (same head arity, elastic swallow).
func (bld *builder) assign(lineIdx int, line string, toks []token.Token) {
	vals := make([]string, len(bld.slots))
	pre, post := bld.split()

	for j := 0; j < pre; j++ {
		if bld.slots[j].IsVariable() {
			vals[j] = toks[j].Text
		}
	}
	if bld.elastic >= 0 {
		start := pre
		end := len(toks) - post
		if start < end {
			vals[bld.elastic] = line[toks[start].Start:toks[end-1].End]
		}
		for j := 0; j < post; j++ {
			slot := bld.elastic + 1 + j
			if bld.slots[slot].IsVariable() {
				vals[slot] = toks[end+j].Text
			}
		}
	}

	bld.lines = append(bld.lines, lineIdx)
	bld.vals = append(bld.vals, vals)
}

// split returns the number of slots before the elastic slot and after it.
// Without an elastic slot, pre covers everything.
func (bld *builder) split() (pre, post int) {
	if bld.elastic < 0 {
		return len(bld.slots), 0
	}

	return bld.elastic, len(bld.slots) - bld.elastic - 1
}

// absorb finds the template with the highest agreement for an unmatched
// line. At or above the threshold the line is absorbed, widening
// disagreeing positions to MESSAGE; otherwise the line becomes a singleton
// template of literal slots.
func (ex *extractor) absorb(lineIdx int, line string, toks []token.Token) error {
	bestAgreement := -1.0
	var best *builder
	for _, bld := range ex.builders {
		a := bld.agreement(toks)
		if a > bestAgreement {
			bestAgreement = a
			best = bld
		}
	}

	if best != nil && bestAgreement >= ex.cfg.AbsorbThreshold {
		best.widenFor(toks)
		best.assign(lineIdx, line, toks)

		return nil
	}

	bld, err := ex.newBuilder()
	if err != nil {
		return err
	}
	for _, t := range toks {
		bld.slots = append(bld.slots, Slot{Kind: format.SlotLiteral, Literal: t.Text})
	}
	bld.assign(lineIdx, line, toks)

	return nil
}

// agreement scores how well a token sequence fits the current shape, in
// [0,1]. MESSAGE slots match any token; the elastic slot matches any token
// run including the empty one.
func (bld *builder) agreement(toks []token.Token) float64 {
	nSlots := len(bld.slots)
	nToks := len(toks)
	if nSlots == 0 || nToks == 0 {
		if nSlots == 0 && nToks == 0 {
			return 1
		}

		return 0
	}

	if bld.elastic < 0 {
		if nToks == nSlots {
			matches := 0
			for j, s := range bld.slots {
				if slotMatches(s, toks[j]) {
					matches++
				}
			}

			return float64(matches) / float64(nSlots)
		}

		// Arity mismatch: longest matching prefix and suffix; absorbing
		// would collapse the middle into an elastic MESSAGE slot.
		p, s := bld.prefixSuffix(toks)
		maxLen := nSlots
		if nToks > maxLen {
			maxLen = nToks
		}

		return float64(p+s) / float64(maxLen)
	}

	pre, post := bld.split()
	if nToks < pre+post {
		return 0
	}
	matches := 1 // the elastic slot itself
	for j := 0; j < pre; j++ {
		if slotMatches(bld.slots[j], toks[j]) {
			matches++
		}
	}
	for j := 0; j < post; j++ {
		if slotMatches(bld.slots[bld.elastic+1+j], toks[nToks-post+j]) {
			matches++
		}
	}

	return float64(matches) / float64(nSlots)
}

func slotMatches(s Slot, t token.Token) bool {
	if s.IsVariable() {
		return s.Type == format.FieldMessage || s.Type == t.Label
	}

	return s.Literal == t.Text
}

// prefixSuffix computes the longest 1:1 matching prefix and suffix between
// the slots and an arity-mismatched token sequence, without overlap.
func (bld *builder) prefixSuffix(toks []token.Token) (p, s int) {
	nSlots := len(bld.slots)
	nToks := len(toks)
	minLen := nSlots
	if nToks < minLen {
		minLen = nToks
	}

	for p < minLen && slotMatches(bld.slots[p], toks[p]) {
		p++
	}
	for s < minLen-p && slotMatches(bld.slots[nSlots-1-s], toks[nToks-1-s]) {
		s++
	}

	return p, s
}

// widenFor mutates the shape so that toks fits: mismatched single positions
// widen to MESSAGE, and an arity mismatch collapses the middle into an
// elastic MESSAGE slot. Existing rows are rewritten to stay consistent.
func (bld *builder) widenFor(toks []token.Token) {
	nToks := len(toks)

	if bld.elastic < 0 && nToks == len(bld.slots) {
		for j := range bld.slots {
			if !slotMatches(bld.slots[j], toks[j]) {
				bld.widenSlot(j)
			}
		}

		return
	}

	if bld.elastic < 0 {
		p, s := bld.prefixSuffix(toks)
		bld.collapse(p, len(bld.slots)-s)

		return
	}

	pre, post := bld.split()
	for j := 0; j < pre; j++ {
		if !slotMatches(bld.slots[j], toks[j]) {
			bld.widenSlot(j)
		}
	}
	for j := 0; j < post; j++ {
		slot := bld.elastic + 1 + j
		if !slotMatches(bld.slots[slot], toks[nToks-post+j]) {
			bld.widenSlot(slot)
		}
	}
}

// widenSlot turns one slot into a single-token MESSAGE variable. Literal
// slots push their constant bytes down into every existing row.
func (bld *builder) widenSlot(j int) {
	s := bld.slots[j]
	if s.IsVariable() {
		bld.slots[j].Type = format.FieldMessage
		return
	}

	for r := range bld.vals {
		bld.vals[r][j] = s.Literal
	}
	bld.slots[j] = Slot{Kind: format.SlotVariable, Type: format.FieldMessage}
}

// collapse replaces slots [from, to) with one elastic MESSAGE slot and
// rewrites existing rows by joining the collapsed region's bytes.
func (bld *builder) collapse(from, to int) {
	for r := range bld.vals {
		var sb strings.Builder
		for j := from; j < to; j++ {
			if bld.slots[j].IsVariable() {
				sb.WriteString(bld.vals[r][j])
			} else {
				sb.WriteString(bld.slots[j].Literal)
			}
		}
		row := make([]string, 0, len(bld.vals[r])-(to-from)+1)
		row = append(row, bld.vals[r][:from]...)
		row = append(row, sb.String())
		row = append(row, bld.vals[r][to:]...)
		bld.vals[r] = row
	}

	slots := make([]Slot, 0, len(bld.slots)-(to-from)+1)
	slots = append(slots, bld.slots[:from]...)
	slots = append(slots, Slot{Kind: format.SlotVariable, Type: format.FieldMessage})
	slots = append(slots, bld.slots[to:]...)
	bld.slots = slots
	bld.elastic = from
}

// finish canonicalizes templates and rewrites per-slot values into
// column-ordered rows.
//
// Builder creation order is not first-appearance order: supported buckets
// materialize before absorbed leftovers, so a below-support line at index 0
// would otherwise rank behind a shape first seen later. Ids are therefore
// reassigned by each builder's earliest assigned line.
func (ex *extractor) finish(lines []string) (*Extraction, error) {
	ordered := make([]*builder, len(ex.builders))
	copy(ordered, ex.builders)
	sort.Slice(ordered, func(i, j int) bool {
		return firstLine(ordered[i]) < firstLine(ordered[j])
	})

	res := &Extraction{
		Templates:   make([]*Template, len(ordered)),
		Assignments: make([]uint32, len(lines)),
		Rows:        make([][]string, len(lines)),
	}

	for id, bld := range ordered {
		bld.id = uint32(id) //nolint:gosec
		col := 0
		for j := range bld.slots {
			if bld.slots[j].IsVariable() {
				bld.slots[j].Column = col
				col++
			}
		}
		res.Templates[bld.id] = &Template{ID: bld.id, Slots: bld.slots}

		for r, li := range bld.lines {
			row := make([]string, 0, col)
			for j := range bld.slots {
				if bld.slots[j].IsVariable() {
					row = append(row, bld.vals[r][j])
				}
			}
			res.Assignments[li] = bld.id
			res.Rows[li] = row
		}
	}

	return res, nil
}

// firstLine returns the smallest line index assigned to a builder: its
// first appearance in the input. Absorption can append an earlier line to a
// later-created builder, so the head of lines alone is not enough.
func firstLine(bld *builder) int {
	m := bld.lines[0]
	for _, li := range bld.lines[1:] {
		if li < m {
			m = li
		}
	}

	return m
}

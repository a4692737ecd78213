// Package template recovers the latent schema of a log collection: a small
// set of line templates, each an ordered sequence of literal slots and typed
// variable slots, such that every input line matches exactly one template
// and replaying a line through its template reconstructs the original bytes
// exactly.
package template

import (
	"strings"

	"github.com/adam-bouafia/logsim/format"
)

// Slot is one element of a template shape: either an exact byte string
// (literal) or a typed variable with a column ordinal.
type Slot struct {
	Kind    format.SlotTag
	Literal string           // exact bytes when Kind == SlotLiteral
	Type    format.FieldType // field type when Kind == SlotVariable
	Column  int              // ordinal among the template's variable slots
}

// IsVariable reports whether the slot is a variable slot.
func (s Slot) IsVariable() bool {
	return s.Kind == format.SlotVariable
}

// Template is a line schema shared by a set of input lines. Ids are dense
// in [0, n_templates) and assigned in order of first appearance.
type Template struct {
	ID    uint32
	Slots []Slot
}

// VariableCount returns the number of variable slots, which equals the
// number of columns the template owns.
func (t *Template) VariableCount() int {
	n := 0
	for _, s := range t.Slots {
		if s.IsVariable() {
			n++
		}
	}

	return n
}

// ColumnType returns the field type of the given column ordinal.
func (t *Template) ColumnType(column int) (format.FieldType, bool) {
	for _, s := range t.Slots {
		if s.IsVariable() && s.Column == column {
			return s.Type, true
		}
	}

	return format.FieldInvalid, false
}

// FindColumn returns the column ordinal of the first variable slot with the
// given field type.
func (t *Template) FindColumn(ft format.FieldType) (int, bool) {
	for _, s := range t.Slots {
		if s.IsVariable() && s.Type == ft {
			return s.Column, true
		}
	}

	return 0, false
}

// Render reconstructs a line by interleaving literal slot bytes with the
// given column values. values is indexed by column ordinal.
func (t *Template) Render(values []string) string {
	var sb strings.Builder
	for _, s := range t.Slots {
		if s.IsVariable() {
			sb.WriteString(values[s.Column])
		} else {
			sb.WriteString(s.Literal)
		}
	}

	return sb.String()
}

// Pattern returns a human-readable form of the shape with variable slots
// shown as <TYPE> placeholders, e.g. "[<TIMESTAMP>] [<SEVERITY>] LDAP: <MESSAGE>".
func (t *Template) Pattern() string {
	var sb strings.Builder
	for _, s := range t.Slots {
		if s.IsVariable() {
			sb.WriteByte('<')
			sb.WriteString(s.Type.String())
			sb.WriteByte('>')
		} else {
			sb.WriteString(s.Literal)
		}
	}

	return sb.String()
}

// FieldTypes returns the field types of the variable slots in column order.
func (t *Template) FieldTypes() []format.FieldType {
	types := make([]format.FieldType, t.VariableCount())
	for _, s := range t.Slots {
		if s.IsVariable() {
			types[s.Column] = s.Type
		}
	}

	return types
}

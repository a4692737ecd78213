// Package query evaluates structured predicates against an opened container
// with predicate pushdown: only the columns a predicate or the projection
// touches are ever decoded, and templates whose dictionaries cannot contain
// a match are skipped without visiting a single row.
package query

// TimeRange is an inclusive epoch-millisecond interval.
type TimeRange struct {
	Lo int64
	Hi int64
}

// Contains reports whether ms falls inside the range.
func (r TimeRange) Contains(ms int64) bool {
	return ms >= r.Lo && ms <= r.Hi
}

// Predicate is a conjunction of the supported filters. Zero-valued fields
// impose no constraint; the zero Predicate matches every line.
type Predicate struct {
	// Severities matches lines whose severity equals any of the given
	// words, case-insensitively.
	Severities []string
	// IPv4 matches lines carrying exactly this IPv4 address.
	IPv4 string
	// Time matches lines whose timestamp falls inside the range.
	Time *TimeRange
}

// Empty reports whether the predicate imposes no constraint.
func (p Predicate) Empty() bool {
	return len(p.Severities) == 0 && p.IPv4 == "" && p.Time == nil
}

// Match is one query hit: the global line index and the reconstructed line.
type Match struct {
	Line uint64
	Text string
}

// TemplateFault reports a template whose column blocks failed to decode.
// Queries continue over unrelated templates; the fault carries the typed
// error with section and offset.
type TemplateFault struct {
	TemplateID uint32
	Err        error
}

// Result is the outcome of a Filter call. Matches are in input line order.
type Result struct {
	Matches    []Match
	Unreadable []TemplateFault
}

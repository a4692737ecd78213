package token

import (
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/adam-bouafia/logsim/format"
)

// MinConfidence is the threshold below which the template extractor demotes
// a classified token to LITERAL. This prevents accidental variablization of
// words that merely resemble identifiers.
const MinConfidence = 0.5

// severityVocabulary is the bounded, case-insensitive severity word set.
// It is a compile-time constant; the per-container severity dictionary
// stores the surface forms actually encountered.
var severityVocabulary = map[string]struct{}{
	"trace":    {},
	"debug":    {},
	"info":     {},
	"notice":   {},
	"warn":     {},
	"warning":  {},
	"error":    {},
	"fatal":    {},
	"critical": {},
}

var (
	uuidRe    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	integerRe = regexp.MustCompile(`^[+-]?[0-9]+$`)
	hexRe     = regexp.MustCompile(`^(0[xX][0-9a-fA-F]+|[0-9a-fA-F]{6,})$`)
	hostRe    = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)+$`)
	urlRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)
	pathRe    = regexp.MustCompile(`^(/[^/\s]+)+/?$`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	alphaHex  = regexp.MustCompile(`[a-fA-F]`)
)

// Classify attaches a field type and a confidence in [0,1] to a word token.
//
// Classification is pattern-driven and ordered; the first accepting pattern
// fixes the label. Ties follow the fixed priority
// UUID > IPV4 > IPV6 > TIMESTAMP > INTEGER/HEX > HOST > PATH/URL >
// SEVERITY > LITERAL. MESSAGE is never produced here; it denotes the
// free-form tail and is assigned only by the template extractor.
func Classify(text string) (format.FieldType, float64) {
	if text == "" {
		return format.FieldLiteral, 1
	}

	if uuidRe.MatchString(text) {
		return format.FieldUUID, 1
	}

	if addr, err := netip.ParseAddr(text); err == nil {
		if addr.Is4() {
			return format.FieldIPv4, 1
		}

		return format.FieldIPv6, 0.95
	}

	if _, _, ok := ParseTimestamp(text); ok {
		return format.FieldTimestamp, 0.9
	}

	if integerRe.MatchString(text) {
		return format.FieldInteger, 0.95
	}

	if isHexToken(text) {
		return format.FieldHex, 0.8
	}

	if hostRe.MatchString(text) && lastLabelAlphabetic(text) {
		return format.FieldHost, 0.7
	}

	if urlRe.MatchString(text) {
		return format.FieldURL, 0.95
	}

	if pathRe.MatchString(text) {
		return format.FieldPath, 0.85
	}

	if _, ok := severityVocabulary[strings.ToLower(text)]; ok {
		return format.FieldSeverity, 1
	}

	return format.FieldLiteral, 1
}

// IsSeverityWord reports whether text is in the bounded severity vocabulary,
// matched case-insensitively.
func IsSeverityWord(text string) bool {
	_, ok := severityVocabulary[strings.ToLower(text)]
	return ok
}

// isHexToken accepts 0x-prefixed hex of any content, and bare hex runs of
// six or more digits only when they mix digits and letters; a pure word or
// a pure number is more plausibly something else.
func isHexToken(text string) bool {
	if !hexRe.MatchString(text) {
		return false
	}
	if len(text) > 2 && (text[1] == 'x' || text[1] == 'X') {
		return true
	}

	return digitRe.MatchString(text) && alphaHex.MatchString(text)
}

func lastLabelAlphabetic(text string) bool {
	idx := strings.LastIndexByte(text, '.')
	last := text[idx+1:]
	if len(last) < 2 {
		return false
	}
	for i := 0; i < len(last); i++ {
		c := last[i]
		if c < 'A' || (c > 'Z' && c < 'a') || c > 'z' {
			return false
		}
	}

	return true
}

// Timestamp layouts recognized by the classifier, in match order. A layout
// is accepted for a value only when re-rendering the parsed time with the
// same layout reproduces the original bytes, which is also the condition
// for byte-exact reconstruction from the container.
var singleTokenLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"02/Jan/2006:15:04:05",
	"2006-01-02",
	"15:04:05",
}

var multiTokenLayouts = []string{
	"Mon Jan 02 15:04:05 2006",
	"Mon Jan _2 15:04:05 2006",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"Jan 02 15:04:05",
	"Jan _2 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
}

// ParseTimestamp parses a textual timestamp against the recognized layouts
// and returns the parsed time plus the accepted layout. A layout is accepted
// only if it round-trips the input byte-exactly.
func ParseTimestamp(text string) (time.Time, string, bool) {
	layouts := singleTokenLayouts
	if strings.IndexByte(text, ' ') >= 0 {
		layouts = multiTokenLayouts
	}

	for _, layout := range layouts {
		if len(text) != len(layout) && !strings.ContainsAny(layout, "_7Z") {
			continue
		}
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		if t.Format(layout) == text {
			return t, layout, true
		}
	}

	return time.Time{}, "", false
}

// ParseWithLayout parses text with a specific layout and verifies the
// byte-exact round trip.
func ParseWithLayout(layout, text string) (time.Time, bool) {
	t, err := time.Parse(layout, text)
	if err != nil {
		return time.Time{}, false
	}

	return t, t.Format(layout) == text
}

// maxTimestampTokens bounds the coalescing window. The widest recognized
// layout ("Mon Jan 02 15:04:05 2006") spans 5 non-whitespace tokens plus 4
// interleaved whitespace tokens; the bound leaves headroom above that.
const maxTimestampTokens = 13

// coalesceTimestamps merges contiguous token spans whose concatenated text
// parses as a known multi-token timestamp layout into a single TIMESTAMP
// token. Longest span wins. Spans never include quoted strings and must
// start and end on non-whitespace tokens.
func coalesceTimestamps(line string, tokens []Token) []Token {
	out := tokens[:0:0]

	for i := 0; i < len(tokens); {
		tok := tokens[i]
		if !timestampStartCandidate(tok) {
			out = append(out, tok)
			i++

			continue
		}

		merged := false
		maxEnd := i + maxTimestampTokens
		if maxEnd > len(tokens) {
			maxEnd = len(tokens)
		}
		for j := maxEnd; j > i+1; j-- {
			last := tokens[j-1]
			if last.Label == format.FieldWhitespace || spanHasQuote(tokens[i:j]) {
				continue
			}
			text := line[tok.Start:last.End]
			if len(text) > 40 || strings.IndexByte(text, ' ') < 0 {
				continue
			}
			if _, _, ok := ParseTimestamp(text); ok {
				out = append(out, Token{
					Start:      tok.Start,
					End:        last.End,
					Text:       text,
					Label:      format.FieldTimestamp,
					Confidence: 0.9,
				})
				i = j
				merged = true

				break
			}
		}
		if !merged {
			out = append(out, tok)
			i++
		}
	}

	return out
}

var monthNames = map[string]struct{}{
	"Jan": {}, "Feb": {}, "Mar": {}, "Apr": {}, "May": {}, "Jun": {},
	"Jul": {}, "Aug": {}, "Sep": {}, "Oct": {}, "Nov": {}, "Dec": {},
}

var weekdayNames = map[string]struct{}{
	"Mon": {}, "Tue": {}, "Wed": {}, "Thu": {}, "Fri": {}, "Sat": {}, "Sun": {},
}

func timestampStartCandidate(tok Token) bool {
	if tok.Label == format.FieldWhitespace || tok.Label == format.FieldQuotedString {
		return false
	}
	if len(tok.Text) == 0 {
		return false
	}
	if tok.Text[0] >= '0' && tok.Text[0] <= '9' {
		return true
	}
	if _, ok := monthNames[tok.Text]; ok {
		return true
	}
	if _, ok := weekdayNames[tok.Text]; ok {
		return true
	}

	return false
}

func spanHasQuote(span []Token) bool {
	for _, t := range span {
		if t.Label == format.FieldQuotedString {
			return true
		}
	}

	return false
}

// relabelProcessIDs upgrades INTEGER tokens in the syslog "proc[pid]"
// position to PROCESS_ID.
func relabelProcessIDs(tokens []Token) {
	for k := 0; k+3 < len(tokens); k++ {
		if tokens[k].Label != format.FieldLiteral && tokens[k].Label != format.FieldHost {
			continue
		}
		if tokens[k+1].Text != "[" || tokens[k+3].Text != "]" {
			continue
		}
		if tokens[k+2].Label == format.FieldInteger {
			tokens[k+2].Label = format.FieldProcessID
			tokens[k+2].Confidence = 0.9
		}
	}
}

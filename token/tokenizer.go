package token

import (
	"strings"

	"github.com/adam-bouafia/logsim/format"
)

// Scanner states. The tokenizer is a table-free DFA: the state is implicit
// in the scan position and the character class of the current byte.
//
//	START      -> IN_SPACE | IN_QUOTE | delimiter emit | IN_WORD
//	IN_SPACE   -> emit WHITESPACE on class change
//	IN_QUOTE   -> emit QUOTED_STRING on closing quote, LITERAL if unterminated
//	IN_WORD    -> emit on delimiter, space, quote or EOL

// isDelimiter reports whether b terminates a token run and becomes a
// single-byte LITERAL token itself. Colons are handled separately: a colon
// inside a run (timestamps, IPv6) stays in the run, a colon followed by a
// boundary is split off.
func isDelimiter(b byte) bool {
	switch b {
	case '[', ']', '(', ')', '{', '}', '<', '>', ',', ';', '|', '=':
		return true
	default:
		return false
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

// Tokenize splits a line into an ordered sequence of tokens covering every
// byte. Trailing newlines are stripped first. Quoted strings are atomic
// tokens including their quotes. No line is rejected; unrecognized bytes
// become LITERAL runs.
//
// Only WHITESPACE, QUOTED_STRING and single-byte delimiter LITERAL labels
// are assigned here; word tokens are left unlabeled (FieldInvalid) for the
// classifier.
func Tokenize(line string) []Token {
	line = strings.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil
	}

	tokens := make([]Token, 0, 16)
	i := 0
	n := len(line)

	for i < n {
		b := line[i]

		switch {
		case isSpace(b):
			start := i
			for i < n && isSpace(line[i]) {
				i++
			}
			tokens = append(tokens, Token{Start: start, End: i, Text: line[start:i], Label: format.FieldWhitespace, Confidence: 1})

		case isQuote(b):
			if end := strings.IndexByte(line[i+1:], b); end >= 0 {
				stop := i + 1 + end + 1
				tokens = append(tokens, Token{Start: i, End: stop, Text: line[i:stop], Label: format.FieldQuotedString, Confidence: 1})
				i = stop
			} else {
				// Unterminated quote: the quote byte stands alone as a literal.
				tokens = append(tokens, Token{Start: i, End: i + 1, Text: line[i : i+1], Label: format.FieldLiteral, Confidence: 1})
				i++
			}

		case isDelimiter(b):
			tokens = append(tokens, Token{Start: i, End: i + 1, Text: line[i : i+1], Label: format.FieldLiteral, Confidence: 1})
			i++

		default:
			start := i
			for i < n {
				c := line[i]
				if isSpace(c) || isQuote(c) || isDelimiter(c) {
					break
				}
				if c == ':' && colonIsBoundary(line, i) {
					break
				}
				i++
			}
			if i == start {
				// Lone boundary colon.
				tokens = append(tokens, Token{Start: i, End: i + 1, Text: line[i : i+1], Label: format.FieldLiteral, Confidence: 1})
				i++

				continue
			}
			tokens = append(tokens, Token{Start: start, End: i, Text: line[start:i]})
		}
	}

	return tokens
}

// colonIsBoundary reports whether the colon at position i ends the current
// run. A colon followed by a space, delimiter, quote or end of line is a
// separator ("LDAP:", "sshd[42]:"); a colon followed by a run byte is part
// of the run ("06:07:04", "fe80::1").
func colonIsBoundary(line string, i int) bool {
	if i+1 >= len(line) {
		return true
	}
	next := line[i+1]

	return isSpace(next) || isDelimiter(next) || isQuote(next)
}

// Package token splits raw log lines into labeled surface tokens.
//
// Tokenization is a deterministic finite-state scan over character classes:
// identical input always yields identical tokens, every input byte is covered
// by exactly one token, and tokens never span line boundaries. Classification
// attaches one semantic label per token from the closed format.FieldType set,
// with a confidence in [0,1]; the template extractor treats low-confidence
// labels as LITERAL.
package token

import "github.com/adam-bouafia/logsim/format"

// Token is a contiguous substring of a line with a classifier label.
//
// Text always equals the original line's bytes in [Start, End); the slice is
// shared with the line, never copied.
type Token struct {
	Start      int
	End        int
	Text       string
	Label      format.FieldType
	Confidence float64
}

// Annotate tokenizes a line, classifies every token and coalesces
// multi-token timestamp spans into single TIMESTAMP tokens.
//
// This is the entry point used by the template extractor. The returned
// tokens cover every byte of the line (after trailing newline stripping);
// an empty line yields zero tokens.
func Annotate(line string) []Token {
	tokens := Tokenize(line)
	for i := range tokens {
		if tokens[i].Label != format.FieldInvalid {
			continue // label fixed by the tokenizer (whitespace, quotes, delimiters)
		}
		tokens[i].Label, tokens[i].Confidence = Classify(tokens[i].Text)
	}

	tokens = coalesceTimestamps(line, tokens)
	relabelProcessIDs(tokens)

	return tokens
}

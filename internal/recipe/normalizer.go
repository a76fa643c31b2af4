package recipe

import (
	"slices"
	"strings"
)

const (
	// SectionMarker separates the title, ingredients and directions sections.
	SectionMarker = "<section>"
	// SeparatorMarker separates items inside a list section.
	SeparatorMarker = "<sep>"
	// ItemDelimiter is the plain-text replacement for SeparatorMarker.
	ItemDelimiter = "--"
)

var structuralMarkers = strings.NewReplacer(
	SeparatorMarker, ItemDelimiter,
	SectionMarker, "\n",
)

// Normalizer strips tokenizer special tokens and remaps the structural markers.
// It is safe for concurrent use.
type Normalizer struct {
	stripper *strings.Replacer
}

// NewNormalizer builds a Normalizer for the given special token vocabulary.
// The structural markers are never stripped, even when the tokenizer lists them.
func NewNormalizer(specialTokens []string) *Normalizer {
	var tokens []string
	seen := make(map[string]struct{}, len(specialTokens))
	for _, tok := range specialTokens {
		if tok == "" || tok == SectionMarker || tok == SeparatorMarker {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	// strings.Replacer prefers earlier pairs, so a token that prefixes
	// another must come after it.
	slices.SortStableFunc(tokens, func(a, b string) int {
		return len(b) - len(a)
	})
	pairs := make([]string, 0, 2*len(tokens))
	for _, tok := range tokens {
		pairs = append(pairs, tok, "")
	}

	n := &Normalizer{}
	if len(pairs) > 0 {
		n.stripper = strings.NewReplacer(pairs...)
	}
	return n
}

// Normalize removes special tokens first, then rewrites the section marker to a
// newline and the separator marker to ItemDelimiter.
func (n *Normalizer) Normalize(text string) string {
	if n != nil && n.stripper != nil {
		text = n.stripper.Replace(text)
	}
	return structuralMarkers.Replace(text)
}

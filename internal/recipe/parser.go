package recipe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	titlePrefix       = "title:"
	ingredientsPrefix = "ingredients:"
	directionsPrefix  = "directions:"
)

// Parse builds a record from normalized text.
// Lines are classified by prefix; unknown lines are ignored and a repeated
// section overwrites the earlier one.
func Parse(text string) *Record {
	r := NewRecord()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, titlePrefix):
			r.Title = titleCase(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, ingredientsPrefix):
			r.Ingredients = splitItems(strings.TrimPrefix(line, ingredientsPrefix))
		case strings.HasPrefix(line, directionsPrefix):
			r.Directions = splitItems(strings.TrimPrefix(line, directionsPrefix))
		}
	}
	return r
}

// itemJoiner pads the delimiter so items that begin or end with a hyphen
// stay separate from it.
const itemJoiner = " " + ItemDelimiter + " "

// Format serializes a record back into normalized text.
// Parse(Format(r)) reproduces any record returned by Parse.
func Format(r *Record) string {
	var lines []string
	if r.Title != "" {
		lines = append(lines, titlePrefix+" "+r.Title)
	}
	if len(r.Ingredients) > 0 {
		lines = append(lines, ingredientsPrefix+" "+strings.Join(r.Ingredients, itemJoiner))
	}
	if len(r.Directions) > 0 {
		lines = append(lines, directionsPrefix+" "+strings.Join(r.Directions, itemJoiner))
	}
	return strings.Join(lines, "\n")
}

func splitItems(s string) []string {
	parts := strings.Split(s, ItemDelimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(w string) string {
	first, size := utf8.DecodeRuneInString(w)
	if first == utf8.RuneError && size <= 1 {
		return w
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
}

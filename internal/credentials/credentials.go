// Package credentials holds the rotating id/key pairs for the image search API.
package credentials

import "strings"

const (
	EnvAppIDs  = "EDAMAM_APP_ID"
	EnvAppKeys = "EDAMAM_APP_KEY"
)

// Pair is one rotation slot.
type Pair struct {
	ID  string
	Key string
}

// Set is an immutable, ordered list of credential pairs.
// The zero value is an empty set.
type Set struct {
	ids  []string
	keys []string
}

// Parse builds a Set from comma-separated id and key lists. Entries are
// trimmed of surrounding whitespace.
// If the lists have different lengths both are discarded, which disables
// enrichment instead of failing startup.
func Parse(rawIDs, rawKeys string) Set {
	ids := splitList(rawIDs)
	keys := splitList(rawKeys)
	if len(ids) != len(keys) {
		return Set{}
	}
	return Set{ids: ids, keys: keys}
}

// Len returns the number of pairs.
func (s Set) Len() int {
	if len(s.ids) != len(s.keys) {
		return 0
	}
	return len(s.ids)
}

// Empty reports whether enrichment is disabled.
func (s Set) Empty() bool {
	return s.Len() == 0
}

// Pairs returns the pairs in configuration order.
func (s Set) Pairs() []Pair {
	n := s.Len()
	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{ID: s.ids[i], Key: s.keys[i]}
	}
	return pairs
}

// IDs returns a copy of the credential ids, safe to log.
func (s Set) IDs() []string {
	if s.Empty() {
		return nil
	}
	return append([]string(nil), s.ids...)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

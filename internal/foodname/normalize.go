// Package foodname normalizes dish names so that lookups, storage keys
// and search queries all agree on what counts as the same dish.
package foodname

import (
	"regexp"
	"sort"
	"strings"
)

// descriptorWords are size and grade qualifiers that never change what
// the dish is. "Large Cheeseburger" and "cheeseburger" must normalize
// to the same string.
var descriptorWords = map[string]struct{}{
	"large":   {},
	"small":   {},
	"medium":  {},
	"extra":   {},
	"xl":      {},
	"mini":    {},
	"jumbo":   {},
	"special": {},
	"deluxe":  {},
	"premium": {},
}

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
	slugRe  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize casefolds a dish name, strips punctuation and descriptor
// words, and collapses whitespace. The result is stable: normalizing a
// normalized name is a no-op.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = punctRe.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := descriptorWords[f]; drop {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		// A name made only of descriptors still needs a key.
		kept = fields
	}
	return spaceRe.ReplaceAllString(strings.Join(kept, " "), " ")
}

// Tokens returns the normalized name split into words.
func Tokens(name string) []string {
	n := Normalize(name)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// Jaccard computes token-set similarity between two dish names in
// [0,1]. Both names are normalized first.
func Jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	var inter int
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(name string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range Tokens(name) {
		set[t] = struct{}{}
	}
	return set
}

// Slug turns a dish name into a storage-key-safe fragment: lowercase
// ASCII with runs of anything else collapsed to single underscores.
func Slug(name string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(Normalize(name)), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "dish"
	}
	return s
}

// SortedTokens is Tokens in lexical order, used for deterministic
// logging of near-match candidates.
func SortedTokens(name string) []string {
	ts := Tokens(name)
	sort.Strings(ts)
	return ts
}

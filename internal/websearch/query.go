package websearch

import (
	"regexp"
	"sort"
	"strings"
)

// Curated domains whose dish photos are consistently usable. Order
// matters: strict-pass queries restrict to the first few.
var foodDomains = []string{
	"wolt.com",
	"seriouseats.com", "bonappetit.com", "epicurious.com", "bbcgoodfood.com",
	"allrecipes.com", "foodnetwork.com", "tasteatlas.com", "justonecookbook.com",
	"thespruceeats.com", "foodgawker.com", "delish.com", "food52.com",
	"thekitchn.com", "simplyrecipes.com", "cookinglight.com", "eatingwell.com",
	"foodandwine.com", "saveur.com", "finecooking.com", "myrecipes.com",
	"ubereats.com", "doordash.com", "grubhub.com",
}

// strictDomainCount is how many of foodDomains the strict pass ORs
// into one query.
const strictDomainCount = 5

var (
	measurementRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:g|kg|oz|ml|l|cm|mm|in|inch|€|\$|£)\b`)
	querySpaceRe  = regexp.MustCompile(`\s+`)
	queryPunctRe  = regexp.MustCompile(`[(),/{}]`)
)

// modifierPriority ranks descriptors: proteins above cooking methods
// above garnish.
var modifierPriority = map[string]int{
	"beef": 3, "chicken": 3, "pork": 3, "fish": 3, "seafood": 3,
	"grilled": 2, "fried": 2, "baked": 2, "roasted": 2, "steamed": 2,
	"cheese": 2,
	"tomato": 1, "onion": 1, "lettuce": 1, "mushroom": 1,
}

var descriptionKeywords = []string{"grilled", "fried", "baked", "roasted", "fresh", "creamy", "spicy"}

// sweetCores mark a core term as a dessert; everything else is treated
// as savory for filtering purposes.
var sweetCores = []string{"cake", "dessert", "ice", "chocolate", "cookie", "brownie"}

// normalizeMenuItem reduces a raw menu line to a core search term plus
// ranked modifiers. Measurements, prices and stop words are discarded.
func normalizeMenuItem(raw string) (string, []string) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = measurementRe.ReplaceAllString(s, " ")
	s = queryPunctRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(querySpaceRe.ReplaceAllString(s, " "))

	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return "food", nil
	}

	core := tokens[0]
	has := func(t string) bool {
		for _, tok := range tokens {
			if tok == t {
				return true
			}
		}
		return false
	}
	switch {
	case has("burger") || has("cheeseburger") || has("hamburger"):
		switch {
		case has("cheese") || has("cheeseburger"):
			core = "cheeseburger"
		case has("hamburger"):
			core = "hamburger"
		default:
			core = "burger"
		}
	case has("pizza"):
		core = "pizza"
	case has("pasta") || has("spaghetti") || has("penne"):
		core = "pasta"
	case has("salad"):
		core = "salad"
	case has("soup"):
		core = "soup"
	case has("sandwich"):
		core = "sandwich"
	}

	stop := map[string]struct{}{
		core: {}, "with": {}, "and": {}, "the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {},
	}
	var modifiers []string
	for _, t := range tokens {
		if _, skip := stop[t]; !skip {
			modifiers = append(modifiers, t)
		}
	}
	sort.SliceStable(modifiers, func(i, j int) bool {
		return modifierPriority[modifiers[i]] > modifierPriority[modifiers[j]]
	})
	if len(modifiers) > 3 {
		modifiers = modifiers[:3]
	}
	return core, modifiers
}

// isSavoryCore reports whether the core term denotes a savory dish.
func isSavoryCore(core string) bool {
	for _, sweet := range sweetCores {
		if strings.Contains(core, sweet) {
			return false
		}
	}
	return true
}

// buildQuery assembles the CSE query: the core term, up to two ranked
// modifiers, at most one description keyword, optional photo context
// terms, and optional negative terms.
func buildQuery(core string, modifiers []string, description string, addContext, useNegatives bool) string {
	parts := []string{core}

	if len(modifiers) > 2 {
		modifiers = modifiers[:2]
	}
	parts = append(parts, modifiers...)

	if description != "" {
		descLower := strings.ToLower(description)
		for _, word := range descriptionKeywords {
			if strings.Contains(descLower, word) && !containsString(parts, word) {
				parts = append(parts, word)
				break
			}
		}
	}

	if addContext {
		parts = append(parts, `"restaurant"`, `"plated"`, `"food photography"`, "dish")
	}

	if useNegatives {
		if isSavoryCore(core) {
			parts = append(parts, "-dessert", "-cake", "-sweet")
		}
		parts = append(parts,
			"-menu", "-text", "-face", "-person", "-chef",
			"-logo", "-cartoon", "-illustration")
		parts = append(parts, genericNegativeTokens()...)
	}

	return strings.Join(parts, " ")
}

// strictQuery appends the curated-domain restriction to the full query.
func strictQuery(core string, modifiers []string, description string) string {
	sites := make([]string, 0, strictDomainCount)
	for _, d := range foodDomains[:strictDomainCount] {
		sites = append(sites, "site:"+d)
	}
	return buildQuery(core, modifiers, description, true, true) + " (" + strings.Join(sites, " OR ") + ")"
}

// looseQuery keeps only the strongest modifier and drops context and
// negatives, trading precision for recall.
func looseQuery(core string, modifiers []string, description string) string {
	if len(modifiers) > 1 {
		modifiers = modifiers[:1]
	}
	return buildQuery(core, modifiers, description, false, false)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var negativeTokensOnce []string

// genericNegativeTokens renders the generic and object term sets as
// query negatives, quoted when multi-word, deterministic order.
func genericNegativeTokens() []string {
	if negativeTokensOnce != nil {
		return negativeTokensOnce
	}
	merged := map[string]struct{}{}
	for term := range negativeGenericTerms {
		merged[term] = struct{}{}
	}
	for term := range negativeObjectTerms {
		merged[term] = struct{}{}
	}
	terms := make([]string, 0, len(merged))
	for term := range merged {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	seen := map[string]struct{}{
		"-menu": {}, "-text": {}, "-face": {}, "-person": {}, "-chef": {},
		"-logo": {}, "-cartoon": {}, "-illustration": {},
	}
	var tokens []string
	for _, term := range terms {
		token := "-" + term
		if strings.Contains(term, " ") {
			token = `-"` + term + `"`
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	negativeTokensOnce = tokens
	return tokens
}

package websearch

import (
	"net/url"
	"strings"
)

// Dessert vocabulary rejected when searching savory dishes.
var negativeSweetTerms = map[string]struct{}{
	"dessert": {}, "tart": {}, "pie": {}, "cake": {}, "brownie": {}, "cookie": {},
	"pudding": {}, "fruit": {}, "sweet": {}, "mousse": {}, "cheesecake": {},
	"galette": {}, "cobbler": {}, "pastry": {}, "cupcake": {}, "donut": {}, "muffin": {},
}

// Stock-photo and scene vocabulary that marks unusable results.
var negativeGenericTerms = map[string]struct{}{
	"logo": {}, "vector": {}, "illustration": {}, "clipart": {}, "packaging": {},
	"stock": {}, "getty": {}, "shutterstock": {}, "alamy": {}, "cartoon": {}, "drawing": {},
	"menu": {}, "text": {}, "writing": {}, "sign": {}, "board": {}, "blackboard": {},
	"face": {}, "person": {}, "people": {}, "chef": {}, "waiter": {}, "customer": {},
	"restaurant interior": {}, "kitchen": {}, "dining room": {}, "table setting": {},
	"cutlery": {}, "napkin": {}, "tablecloth": {}, "candle": {}, "flower": {}, "vase": {},
	"book": {}, "magazine": {}, "flyer": {}, "brochure": {}, "poster": {}, "advertisement": {},
}

// Product photography vocabulary: results about objects, not food.
var negativeObjectTerms = map[string]struct{}{
	"watch": {}, "wristwatch": {}, "smartwatch": {}, "chronograph": {}, "bracelet": {}, "strap": {},
	"clock": {}, "timepiece": {}, "jewelry": {}, "jewelery": {}, "necklace": {}, "earring": {}, "earrings": {},
	"handbag": {}, "purse": {}, "backpack": {}, "wallet": {}, "shoe": {}, "sneaker": {}, "boot": {},
	"clothing": {}, "apparel": {}, "outfit": {}, "garment": {}, "fashion": {}, "runway": {},
	"phone": {}, "smartphone": {}, "tablet": {}, "laptop": {}, "computer": {}, "keyboard": {},
}

var unwantedPhrases = []string{
	"stock photo", "clipart", "vector", "menu", "price list",
	"restaurant sign", "chef portrait", "kitchen staff", "dining room",
	"table setting", "cutlery", "advertisement", "flyer", "brochure",
}

var peopleTerms = []string{"face", "person", "people", "chef", "waiter"}

// isRelevant checks one search result against the dish keywords: the
// combined title/snippet/link/context text must mention a core keyword
// and must not trip the sweet (for savory dishes), object, stock or
// people vocabularies.
func isRelevant(item Result, coreKeywords map[string]struct{}, savory bool) bool {
	allText := strings.ToLower(strings.Join([]string{
		item.Title, item.Snippet, item.Link, item.ContextLink,
	}, " "))

	keywordHit := false
	for kw := range coreKeywords {
		if strings.Contains(allText, kw) {
			keywordHit = true
			break
		}
	}
	if !keywordHit {
		return false
	}

	if savory {
		for term := range negativeSweetTerms {
			if strings.Contains(allText, term) {
				return false
			}
		}
	}

	for term := range negativeObjectTerms {
		if strings.Contains(allText, term) {
			return false
		}
	}

	for _, phrase := range unwantedPhrases {
		if strings.Contains(allText, phrase) {
			return false
		}
	}

	for _, term := range peopleTerms {
		if strings.Contains(allText, term) {
			return false
		}
	}

	return true
}

// canonicalURL lowers host and path and drops the query string, so the
// same binary served with different tracking parameters deduplicates.
func canonicalURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.ToLower(parsed.Host) + strings.ToLower(parsed.Path)
}

// fromFoodDomain reports whether the display link belongs to a curated
// food domain.
func fromFoodDomain(displayLink string) bool {
	dl := strings.ToLower(displayLink)
	for _, d := range foodDomains {
		if strings.Contains(dl, d) {
			return true
		}
	}
	return false
}

package foodname

import "strings"

// CategoryGeneral is the fallback bucket for dishes no keyword claims.
const CategoryGeneral = "general"

// Classifier maps a dish name to a storage/search category.
type Classifier interface {
	Categorize(name string) string
}

// KeywordClassifier is the default Classifier: first keyword hit wins,
// in table order.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

type categoryEntry struct {
	name     string
	keywords []string
}

// Order matters: earlier rows win ties ("chicken pizza" is a pizza).
var categoryTable = []categoryEntry{
	{"pizza", []string{"pizza", "margherita", "pepperoni", "calzone"}},
	{"burger", []string{"burger", "cheeseburger", "hamburger"}},
	{"pasta", []string{"pasta", "spaghetti", "penne", "lasagna", "fettuccine", "ravioli"}},
	{"salad", []string{"salad", "caesar"}},
	{"sandwich", []string{"sandwich", "club", "blt", "wrap", "panini"}},
	{"chicken", []string{"chicken", "wings", "nuggets"}},
	{"seafood", []string{"fish", "salmon", "shrimp", "seafood", "tuna", "calamari"}},
	{"soup", []string{"soup", "ramen", "pho", "chowder", "bisque"}},
	{"dessert", []string{"cake", "ice cream", "dessert", "chocolate", "pie", "cookie", "tiramisu", "brownie"}},
	{"steak", []string{"steak", "beef", "ribeye", "sirloin"}},
	{"asian", []string{"sushi", "curry", "teriyaki", "pad thai", "noodles", "dumpling"}},
	{"mexican", []string{"taco", "burrito", "quesadilla", "nachos", "enchilada"}},
}

// Categorize classifies by keyword substring match against the
// normalized name, first hit wins.
func (KeywordClassifier) Categorize(name string) string {
	n := Normalize(name)
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(n, kw) {
				return entry.name
			}
		}
	}
	return CategoryGeneral
}

// Categories lists every category the default classifier can emit,
// CategoryGeneral excluded.
func Categories() []string {
	out := make([]string, 0, len(categoryTable))
	for _, e := range categoryTable {
		out = append(out, e.name)
	}
	return out
}

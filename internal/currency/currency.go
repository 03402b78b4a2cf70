// Package currency guesses the menu currency from extraction hints, price
// strings and the uploader's country.
package currency

import "strings"

// DefaultCode is used when no signal yields a currency.
const DefaultCode = "USD"

type symbolEntry struct {
	symbol string
	code   string
}

// Multi-character symbols sit first so "C$" resolves to CAD before the
// bare "$" claims it.
var currencySymbols = []symbolEntry{
	{"NZ$", "NZD"},
	{"HK$", "HKD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"S$", "SGD"},
	{"R$", "BRL"},
	{"CHF", "CHF"},
	{"zł", "PLN"},
	{"Kč", "CZK"},
	{"kr", "SEK"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"₩", "KRW"},
	{"¢", "USD"},
	{"₪", "ILS"},
	{"₦", "NGN"},
	{"₨", "PKR"},
	{"৳", "BDT"},
	{"₡", "CRC"},
	{"₱", "PHP"},
	{"₫", "VND"},
	{"₵", "GHS"},
	{"₸", "KZT"},
	{"₴", "UAH"},
}

var currencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CNY": {}, "CAD": {}, "AUD": {},
	"CHF": {}, "SEK": {}, "NOK": {}, "DKK": {}, "PLN": {}, "CZK": {}, "HUF": {},
	"RUB": {}, "INR": {}, "KRW": {}, "SGD": {}, "HKD": {}, "NZD": {}, "MXN": {},
	"BRL": {}, "ZAR": {}, "THB": {}, "MYR": {}, "IDR": {}, "PHP": {}, "VND": {},
	"EGP": {}, "ILS": {}, "TRY": {}, "AED": {}, "SAR": {},
}

var euroCountries = map[string]struct{}{
	"DE": {}, "FR": {}, "IT": {}, "ES": {}, "NL": {}, "BE": {}, "AT": {},
	"PT": {}, "IE": {}, "FI": {}, "GR": {}, "SK": {}, "SI": {}, "LV": {},
	"LT": {}, "EE": {}, "LU": {}, "MT": {}, "CY": {}, "HR": {},
}

var countryCurrencies = map[string]string{
	"US": "USD", "CA": "CAD", "GB": "GBP", "AU": "AUD", "NZ": "NZD",
	"JP": "JPY", "CN": "CNY", "IN": "INR", "KR": "KRW", "SG": "SGD",
	"HK": "HKD", "BR": "BRL", "MX": "MXN", "CH": "CHF", "SE": "SEK",
	"NO": "NOK", "DK": "DKK", "PL": "PLN", "CZ": "CZK", "HU": "HUF",
	"RU": "RUB", "IL": "ILS", "TR": "TRY", "AE": "AED", "SA": "SAR",
	"TH": "THB", "MY": "MYR", "ID": "IDR", "PH": "PHP", "VN": "VND",
	"EG": "EGP", "ZA": "ZAR",
}

// Resolve maps a raw hint (symbol or code) to an ISO code, or "" when the
// hint is unrecognized.
func Resolve(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	if upper := strings.ToUpper(hint); len(upper) == 3 {
		if _, ok := currencyCodes[upper]; ok {
			return upper
		}
	}
	for _, e := range currencySymbols {
		if strings.Contains(hint, e.symbol) {
			return e.code
		}
	}
	return ""
}

// FromCountry maps an ISO 3166-1 alpha-2 country to its currency, or ""
// when unknown.
func FromCountry(iso2 string) string {
	iso2 = strings.ToUpper(strings.TrimSpace(iso2))
	if iso2 == "" {
		return ""
	}
	if _, ok := euroCountries[iso2]; ok {
		return "EUR"
	}
	return countryCurrencies[iso2]
}

// Detect combines all signals: extractor hints and price strings vote, the
// most frequent recognized currency wins, the uploader's country breaks a
// total absence of votes, and USD remains the last resort.
func Detect(hints, prices []string, country string) string {
	counts := map[string]int{}
	order := []string{}
	vote := func(raw string) {
		code := Resolve(raw)
		if code == "" {
			return
		}
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}
	for _, h := range hints {
		vote(h)
	}
	for _, p := range prices {
		vote(p)
	}

	best, bestCount := "", 0
	for _, code := range order {
		if counts[code] > bestCount {
			best, bestCount = code, counts[code]
		}
	}
	if best != "" {
		return best
	}
	if code := FromCountry(country); code != "" {
		return code
	}
	return DefaultCode
}

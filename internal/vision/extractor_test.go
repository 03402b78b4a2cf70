package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
)

func TestDecodeMenuStripsFencesAndBlankItems(t *testing.T) {
	raw := "```json\n" + `{
		"items": [
			{"name": " Tom Kha Gai ", "description": "coconut soup", "price": "12.50 €", "section": "Soups"},
			{"name": "", "description": "orphan line"},
			{"name": "Pad Thai", "price": "€14"}
		],
		"currency_hints": ["€", "€"]
	}` + "\n```"

	menu, err := decodeMenu(raw)
	if err != nil {
		t.Fatalf("decodeMenu: %v", err)
	}
	if len(menu.Items) != 2 {
		t.Fatalf("items = %d, want 2 (blank name dropped)", len(menu.Items))
	}
	if menu.Items[0].Name != "Tom Kha Gai" {
		t.Errorf("name = %q, want trimmed", menu.Items[0].Name)
	}
	if menu.Items[0].Section != "Soups" || menu.Items[1].Price != "€14" {
		t.Errorf("items = %+v", menu.Items)
	}
	if len(menu.CurrencyHints) != 2 || menu.CurrencyHints[0] != "€" {
		t.Errorf("currency hints = %v", menu.CurrencyHints)
	}
}

func TestDecodeMenuRejectsNonJSON(t *testing.T) {
	if _, err := decodeMenu("I could not read the menu, sorry."); err == nil {
		t.Fatal("expected error for prose output")
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}\n```":     "{}",
		"{}":               "{}",
		"  {}  ":           "{}",
	}
	for in, want := range cases {
		if got := stripCodeFences(in); got != want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractGuards(t *testing.T) {
	e := NewGeminiExtractor("", "", zerolog.Nop())
	if _, err := e.Extract(context.Background(), []byte("img"), "image/jpeg"); err == nil {
		t.Fatal("expected error for missing api key")
	}

	e = NewGeminiExtractor("key", "", zerolog.Nop())
	if _, err := e.Extract(context.Background(), nil, "image/jpeg"); !errors.Is(err, domain.ErrInvalidImage) {
		t.Fatalf("err = %v, want ErrInvalidImage", err)
	}
}

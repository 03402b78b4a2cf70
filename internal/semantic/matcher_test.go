package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
	"menulens/internal/foodname"
)

type stubIndex struct {
	matches []Match
	err     error

	gotText      string
	gotThreshold float64
}

func (s *stubIndex) Search(ctx context.Context, text string, topK int, threshold float64) ([]Match, error) {
	s.gotText = text
	s.gotThreshold = threshold
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type stubMissing struct {
	calls      int
	name       string
	normalized string
	category   string
	err        error
}

func (s *stubMissing) LogMissing(ctx context.Context, name, normalized, category string) error {
	s.calls++
	s.name = name
	s.normalized = normalized
	s.category = category
	return s.err
}

func TestMatchReturnsCandidateOnHit(t *testing.T) {
	idx := &stubIndex{matches: []Match{{
		Record: domain.CacheRecord{
			DishName: "Margherita Pizza",
			URL:      "https://cdn.example/pizza/margherita_abc.jpg",
			Width:    1200,
			Height:   800,
		},
		Similarity: 0.91,
	}}}
	missing := &stubMissing{}
	m := NewMatcher(idx, missing, foodname.KeywordClassifier{}, 0.7, zerolog.Nop())

	cand, err := m.Match(context.Background(), domain.MenuItemRequest{Name: "Pizza Margherita", Description: "tomato and basil"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if cand.Source != domain.SourceSemantic {
		t.Errorf("source = %q, want semantic", cand.Source)
	}
	if cand.Score != 0.91 || cand.URL == "" {
		t.Errorf("candidate = %+v", cand)
	}
	if idx.gotText != "Pizza Margherita tomato and basil" {
		t.Errorf("query text = %q", idx.gotText)
	}
	if idx.gotThreshold != 0.7 {
		t.Errorf("threshold = %v", idx.gotThreshold)
	}
	if missing.calls != 0 {
		t.Errorf("missing log called %d times on a hit", missing.calls)
	}
}

func TestMatchLogsMissOnEmptyResult(t *testing.T) {
	missing := &stubMissing{}
	m := NewMatcher(&stubIndex{}, missing, foodname.KeywordClassifier{}, 0.7, zerolog.Nop())

	cand, err := m.Match(context.Background(), domain.MenuItemRequest{Name: "Large Pepperoni Pizza"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if cand != nil {
		t.Fatalf("candidate = %+v, want nil", cand)
	}
	if missing.calls != 1 {
		t.Fatalf("missing log called %d times, want 1", missing.calls)
	}
	if missing.normalized != "pepperoni pizza" {
		t.Errorf("normalized = %q, want %q", missing.normalized, "pepperoni pizza")
	}
	if missing.category != "pizza" {
		t.Errorf("category = %q, want pizza", missing.category)
	}
}

func TestMatchMissLogFailureIsNonFatal(t *testing.T) {
	missing := &stubMissing{err: errors.New("db down")}
	m := NewMatcher(&stubIndex{}, missing, foodname.KeywordClassifier{}, 0.7, zerolog.Nop())

	cand, err := m.Match(context.Background(), domain.MenuItemRequest{Name: "Green Curry"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if cand != nil {
		t.Fatalf("candidate = %+v, want nil", cand)
	}
}

func TestMatchPropagatesIndexError(t *testing.T) {
	idx := &stubIndex{err: errors.New("connection refused")}
	missing := &stubMissing{}
	m := NewMatcher(idx, missing, foodname.KeywordClassifier{}, 0.7, zerolog.Nop())

	if _, err := m.Match(context.Background(), domain.MenuItemRequest{Name: "Soup"}); err == nil {
		t.Fatal("expected error")
	}
	if missing.calls != 0 {
		t.Error("missing log must not run when the index errors")
	}
}

func TestNewMatcherDisabledWithoutIndex(t *testing.T) {
	if m := NewMatcher(nil, &stubMissing{}, foodname.KeywordClassifier{}, 0.7, zerolog.Nop()); m != nil {
		t.Fatal("expected nil matcher when the index is absent")
	}
}

func TestVectorLiteral(t *testing.T) {
	got := vectorLiteral([]float32{0.5, -1, 0.25})
	if got != "[0.5,-1,0.25]" {
		t.Errorf("vectorLiteral = %q", got)
	}
	if got := vectorLiteral(nil); got != "[]" {
		t.Errorf("empty literal = %q", got)
	}
}

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
)

type stubCache struct {
	hits  map[string][]domain.ImageCandidate
	calls int
}

func (s *stubCache) LookupBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate {
	s.calls++
	out := make(map[string][]domain.ImageCandidate, len(items))
	for _, it := range items {
		out[it.ID] = s.hits[it.ID]
	}
	return out
}

type stubMatcher struct {
	hits map[string]*domain.ImageCandidate

	mu    sync.Mutex
	calls int
}

func (s *stubMatcher) Match(ctx context.Context, item domain.MenuItemRequest) (*domain.ImageCandidate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.hits[item.ID], nil
}

type stubSearcher struct {
	hits  map[string][]domain.ImageCandidate
	calls int
}

func (s *stubSearcher) SearchBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate {
	s.calls++
	out := make(map[string][]domain.ImageCandidate, len(items))
	for _, it := range items {
		out[it.ID] = s.hits[it.ID]
	}
	return out
}

type stubGenerator struct {
	mu    sync.Mutex
	fails map[string]error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, name, description string) (domain.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.fails[name]; err != nil {
		return domain.CacheRecord{}, err
	}
	return domain.CacheRecord{
		DishName: name,
		URL:      "https://cdn.example/generated/" + name + ".jpg",
		Source:   domain.SourceGenerated,
	}, nil
}

type progressUpdate struct {
	stage   string
	percent float64
	meta    map[string]any
}

type recordingProgress struct {
	mu      sync.Mutex
	updates []progressUpdate
}

func (r *recordingProgress) Update(taskID, stage string, percent float64, meta map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, progressUpdate{stage: stage, percent: percent, meta: meta})
}

func (r *recordingProgress) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, u := range r.updates {
		if len(out) == 0 || out[len(out)-1] != u.stage {
			out = append(out, u.stage)
		}
	}
	return out
}

func item(id, name string) domain.MenuItemRequest {
	return domain.MenuItemRequest{ID: id, Name: name}
}

func candidateFor(source domain.ImageSource, url string) []domain.ImageCandidate {
	return []domain.ImageCandidate{{URL: url, Source: source}}
}

func TestResolveImagesCascade(t *testing.T) {
	items := []domain.MenuItemRequest{
		item("1", "Margherita Pizza"),
		item("2", "Espresso"),
		item("3", "Smoked Duck Breast"),
		item("4", "Chef Surprise"),
	}

	cache := &stubCache{hits: map[string][]domain.ImageCandidate{
		"1": candidateFor(domain.SourceCached, "https://cdn.example/pizza/margherita_abc.jpg"),
	}}
	matcher := &stubMatcher{hits: map[string]*domain.ImageCandidate{
		"2": {URL: "https://cdn.example/coffee/espresso_def.jpg", Source: domain.SourceSemantic},
	}}
	search := &stubSearcher{hits: map[string][]domain.ImageCandidate{
		"3": candidateFor(domain.SourceSearch, "https://wolt.com/img/duck.jpg"),
	}}
	gen := &stubGenerator{fails: map[string]error{
		"Chef Surprise": domain.ErrUnresolved,
	}}
	progress := &recordingProgress{}

	r := NewResolver(Config{
		Cache:          cache,
		Semantic:       matcher,
		Search:         search,
		Generator:      gen,
		Progress:       progress,
		PlaceholderURL: "https://placeholder.example/none.png",
		PerItemLimit:   2,
		Logger:         zerolog.Nop(),
	})

	results := r.ResolveImages(context.Background(), "task-1", items)

	if len(results) != len(items) {
		t.Fatalf("results cover %d items, want %d", len(results), len(items))
	}
	wantSources := map[string]domain.ImageSource{
		"1": domain.SourceCached,
		"2": domain.SourceSemantic,
		"3": domain.SourceSearch,
		"4": domain.SourcePlaceholder,
	}
	for id, want := range wantSources {
		cands := results[id]
		if len(cands) == 0 {
			t.Fatalf("item %s has no candidates", id)
		}
		for _, c := range cands {
			if c.Source != want {
				t.Errorf("item %s source = %q, want %q", id, c.Source, want)
			}
			if c.URL == "" {
				t.Errorf("item %s has an empty URL", id)
			}
		}
	}
	if results["4"][0].URL != "https://placeholder.example/none.png" {
		t.Errorf("placeholder URL = %q", results["4"][0].URL)
	}

	// Leftover consumption: each stage only sees what earlier stages left.
	if matcher.calls != 3 {
		t.Errorf("semantic saw %d items, want 3", matcher.calls)
	}
	if gen.calls != 1 {
		t.Errorf("generator saw %d items, want 1 (only the search miss)", gen.calls)
	}

	stages := progress.stages()
	want := []string{"cached", "semantic", "search", "generating", "resolved"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stages = %v, want %v", stages, want)
		}
	}
}

func TestResolveImagesEveryItemExactlyOneTerminalSource(t *testing.T) {
	items := []domain.MenuItemRequest{
		item("a", "Pizza"), item("b", "Burger"), item("c", "Salad"),
		item("d", "Soup"), item("e", "Mystery Dish"),
	}
	cache := &stubCache{hits: map[string][]domain.ImageCandidate{
		"a": candidateFor(domain.SourceCached, "u1"),
		"b": candidateFor(domain.SourceCached, "u2"),
	}}
	search := &stubSearcher{hits: map[string][]domain.ImageCandidate{
		"c": candidateFor(domain.SourceSearch, "u3"),
	}}
	r := NewResolver(Config{
		Cache:    cache,
		Search:   search,
		Progress: &recordingProgress{},
		Logger:   zerolog.Nop(),
	})

	results := r.ResolveImages(context.Background(), "task-2", items)

	for _, it := range items {
		cands, ok := results[it.ID]
		if !ok || len(cands) == 0 {
			t.Fatalf("item %s missing from results", it.ID)
		}
		first := cands[0].Source
		if first == domain.SourceUnresolved {
			t.Errorf("item %s left unresolved", it.ID)
		}
		for _, c := range cands {
			if c.Source != first {
				t.Errorf("item %s mixes sources %q and %q", it.ID, first, c.Source)
			}
		}
	}
	// d and e fell through the disabled generator to the placeholder.
	for _, id := range []string{"d", "e"} {
		if got := results[id][0].Source; got != domain.SourcePlaceholder {
			t.Errorf("item %s source = %q, want placeholder", id, got)
		}
	}
}

func TestResolveImagesCancelledContextSettlesWithPlaceholders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := &stubCache{hits: map[string][]domain.ImageCandidate{
		"a": candidateFor(domain.SourceCached, "u1"),
	}}
	search := &stubSearcher{}
	gen := &stubGenerator{}
	progress := &recordingProgress{}
	r := NewResolver(Config{
		Cache:     cache,
		Search:    search,
		Generator: gen,
		Progress:  progress,
		Logger:    zerolog.Nop(),
	})

	results := r.ResolveImages(ctx, "task-3", []domain.MenuItemRequest{item("a", "Pizza"), item("b", "Soup")})

	if cache.calls != 0 || search.calls != 0 || gen.calls != 0 {
		t.Errorf("stages ran after cancellation: cache=%d search=%d gen=%d", cache.calls, search.calls, gen.calls)
	}
	for _, id := range []string{"a", "b"} {
		if got := results[id][0].Source; got != domain.SourcePlaceholder {
			t.Errorf("item %s source = %q, want placeholder", id, got)
		}
	}
}

func TestResolveImagesEmptyInput(t *testing.T) {
	r := NewResolver(Config{Cache: &stubCache{}, Progress: &recordingProgress{}, Logger: zerolog.Nop()})
	results := r.ResolveImages(context.Background(), "task-4", nil)
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}

func TestResolveImagesGeneratorErrorNeverPropagates(t *testing.T) {
	gen := &stubGenerator{fails: map[string]error{"Soup": errors.New("api unreachable")}}
	r := NewResolver(Config{
		Cache:     &stubCache{},
		Generator: gen,
		Progress:  &recordingProgress{},
		Logger:    zerolog.Nop(),
	})

	results := r.ResolveImages(context.Background(), "task-5", []domain.MenuItemRequest{item("x", "Soup")})
	if got := results["x"][0].Source; got != domain.SourcePlaceholder {
		t.Errorf("source = %q, want placeholder", got)
	}
	if results["x"][0].URL == "" {
		t.Error("placeholder candidate must carry the configured URL")
	}
}

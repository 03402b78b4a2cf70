package websearch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
)

type stubSearchClient struct {
	mu      sync.Mutex
	queries []string
	nums    []int64
	respond func(query string, num int64) ([]Result, error)
}

func (c *stubSearchClient) SearchImages(ctx context.Context, query string, num int64) ([]Result, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.nums = append(c.nums, num)
	c.mu.Unlock()
	return c.respond(query, num)
}

type recordingStore struct {
	mu     sync.Mutex
	stored []string
}

func (r *recordingStore) StoreAsync(srcURL, name, description string, source domain.ImageSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, srcURL)
}

func pizzaHit(path string) Result {
	return Result{
		Title:       "Crispy Pepperoni Pizza",
		Snippet:     "a wood fired pepperoni pizza",
		Link:        "https://www.seriouseats.com" + path,
		DisplayLink: "www.seriouseats.com",
		ContextLink: "https://www.seriouseats.com/recipe" + path,
	}
}

func TestSearchFiltersAndDedups(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		if strings.Contains(query, "site:") {
			return []Result{
				pizzaHit("/images/pizza1.jpg"),
				// same binary, tracking query string and case changed
				{
					Title:       "Crispy Pepperoni Pizza",
					Snippet:     "same photo again",
					Link:        "https://www.seriouseats.com/IMAGES/pizza1.jpg?w=300",
					DisplayLink: "www.seriouseats.com",
					ContextLink: "https://www.seriouseats.com/other",
				},
				{
					Title:       "Pizza Shaped Dessert Cake",
					Snippet:     "a sweet pizza cake",
					Link:        "https://www.seriouseats.com/images/cake.jpg",
					DisplayLink: "www.seriouseats.com",
					ContextLink: "https://www.seriouseats.com/cake",
				},
				{
					Title:       "Pizza Slice Watch",
					Snippet:     "novelty pizza wristwatch",
					Link:        "https://www.seriouseats.com/images/watch.jpg",
					DisplayLink: "www.seriouseats.com",
					ContextLink: "https://www.seriouseats.com/watch",
				},
				pizzaHit("/images/pizza2.jpg"),
			}, nil
		}
		return nil, nil
	}}
	store := &recordingStore{}
	s := New(client, store, zerolog.Nop())

	found, err := s.Search(context.Background(), "Pepperoni Pizza", "", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(found), found)
	}
	for _, c := range found {
		if c.Source != domain.SourceSearch {
			t.Fatalf("source = %v, want search", c.Source)
		}
	}
	if found[0].URL == found[1].URL {
		t.Fatal("duplicate image URL survived dedup")
	}
	if len(store.stored) != 2 {
		t.Fatalf("async stores = %d, want one per returned hit", len(store.stored))
	}
}

func TestSearchLoosePassFillsShortfall(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		if strings.Contains(query, "site:") {
			return []Result{pizzaHit("/images/pizza1.jpg")}, nil
		}
		return []Result{{
			Title:       "Homemade Margherita Pizza",
			Snippet:     "neapolitan pizza at home",
			Link:        "https://blog.example.com/pizza-closeup.jpg",
			DisplayLink: "blog.example.com",
			ContextLink: "https://blog.example.com/post",
		}}, nil
	}}
	s := New(client, nil, zerolog.Nop())

	found, err := s.Search(context.Background(), "Pepperoni Pizza", "", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d candidates, want strict+loose = 2", len(found))
	}
	if len(client.queries) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(client.queries))
	}
	if !strings.Contains(client.queries[0], "site:") {
		t.Fatalf("first query not domain-restricted: %s", client.queries[0])
	}
	if strings.Contains(client.queries[1], "site:") {
		t.Fatalf("loose query still domain-restricted: %s", client.queries[1])
	}
}

func TestSearchSkipsLoosePassWhenSatisfied(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		return []Result{pizzaHit("/images/pizza1.jpg"), pizzaHit("/images/pizza2.jpg")}, nil
	}}
	s := New(client, nil, zerolog.Nop())

	found, err := s.Search(context.Background(), "Pepperoni Pizza", "", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d candidates, want 2", len(found))
	}
	if len(client.queries) != 1 {
		t.Fatalf("provider calls = %d, want strict only", len(client.queries))
	}
}

func TestSearchAbsorbsProviderErrors(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		return nil, errors.New("quota exceeded")
	}}
	s := New(client, nil, zerolog.Nop())

	found, err := s.Search(context.Background(), "Pepperoni Pizza", "", 2)
	if err != nil {
		t.Fatalf("Search returned error, want absorbed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("got %d candidates from a failing provider", len(found))
	}
}

func TestSearchBatchEveryItemPresent(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		if strings.Contains(query, "pizza") {
			return []Result{pizzaHit("/images/pizza1.jpg")}, nil
		}
		return nil, errors.New("backend down")
	}}
	s := New(client, nil, zerolog.Nop())

	items := []domain.MenuItemRequest{
		{ID: "a", Name: "Pepperoni Pizza"},
		{ID: "b", Name: "Tomato Soup"},
	}
	out := s.SearchBatch(context.Background(), items, 2)
	if len(out) != 2 {
		t.Fatalf("batch entries = %d, want 2", len(out))
	}
	if len(out["a"]) != 1 {
		t.Fatalf("pizza candidates = %d, want 1", len(out["a"]))
	}
	if len(out["b"]) != 0 {
		t.Fatalf("soup candidates = %d, want 0 on provider failure", len(out["b"]))
	}
}

func TestSearchStopsOnCancelledContext(t *testing.T) {
	client := &stubSearchClient{respond: func(query string, num int64) ([]Result, error) {
		return nil, context.Canceled
	}}
	s := New(client, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Search(ctx, "Pepperoni Pizza", "", 2); err == nil {
		t.Fatal("Search ignored cancelled context")
	}
}

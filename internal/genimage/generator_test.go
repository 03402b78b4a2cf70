package genimage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
	"menulens/internal/providers/genai"
)

type stubImageClient struct {
	errs  []error
	asset *genai.ImageAsset
	calls int
}

func (s *stubImageClient) GenerateDishImage(ctx context.Context, prompt string) (*genai.ImageAsset, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.asset, nil
}

type stubLimiter struct {
	acquired int
	err      error
}

func (s *stubLimiter) Acquire(ctx context.Context) error {
	s.acquired++
	return s.err
}

type stubCache struct {
	data   []byte
	name   string
	source domain.ImageSource
	calls  int
	err    error
}

func (s *stubCache) StoreBytes(ctx context.Context, data []byte, name, description string, source domain.ImageSource) (domain.CacheRecord, error) {
	s.calls++
	s.data = data
	s.name = name
	s.source = source
	if s.err != nil {
		return domain.CacheRecord{}, s.err
	}
	return domain.CacheRecord{DishName: name, URL: "https://cdn.example/dishes/generated.jpg", Source: source}, nil
}

func newTestGenerator(client ImageClient, limiter Limiter, cache CacheStore) (*Generator, *[]time.Duration) {
	g := NewGenerator(client, limiter, cache, zerolog.Nop())
	slept := &[]time.Duration{}
	g.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return g, slept
}

func rateLimitErr() error {
	return &genai.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
}

func transientErr() error {
	return &genai.APIError{StatusCode: 503, Status: "UNAVAILABLE", Message: "overloaded"}
}

func TestGenerateSucceedsAfterRateLimitBackoffs(t *testing.T) {
	client := &stubImageClient{
		errs:  []error{rateLimitErr(), rateLimitErr(), nil},
		asset: &genai.ImageAsset{Data: []byte("image-bytes"), MimeType: "image/png"},
	}
	limiter := &stubLimiter{}
	cache := &stubCache{}
	g, slept := newTestGenerator(client, limiter, cache)

	record, err := g.Generate(context.Background(), "pad thai", "rice noodles, peanuts")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.URL == "" {
		t.Error("expected a cached record URL")
	}
	if client.calls != 3 || limiter.acquired != 3 {
		t.Errorf("calls = %d, acquired = %d, want 3 and 3", client.calls, limiter.acquired)
	}
	if want := []time.Duration{10 * time.Second, 20 * time.Second}; len(*slept) != 2 || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("slept = %v, want %v", *slept, want)
	}
	if cache.calls != 1 || string(cache.data) != "image-bytes" || cache.source != domain.SourceGenerated {
		t.Errorf("cache store = %d calls, data %q, source %q", cache.calls, cache.data, cache.source)
	}
}

func TestGenerateUsesTransientSchedule(t *testing.T) {
	client := &stubImageClient{
		errs:  []error{transientErr(), transientErr(), nil},
		asset: &genai.ImageAsset{Data: []byte("x")},
	}
	g, slept := newTestGenerator(client, &stubLimiter{}, &stubCache{})

	if _, err := g.Generate(context.Background(), "ramen", ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; len(*slept) != 2 || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("slept = %v, want %v", *slept, want)
	}
}

func TestGenerateExhaustionReportsUnresolved(t *testing.T) {
	client := &stubImageClient{
		errs: []error{rateLimitErr(), rateLimitErr(), rateLimitErr()},
	}
	limiter := &stubLimiter{}
	cache := &stubCache{}
	g, slept := newTestGenerator(client, limiter, cache)

	_, err := g.Generate(context.Background(), "tom yum", "")
	if !errors.Is(err, domain.ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
	if len(*slept) != 2 {
		t.Errorf("slept %d times, want 2 (no sleep after the final attempt)", len(*slept))
	}
	if cache.calls != 0 {
		t.Errorf("cache stored %d times for a failed generation", cache.calls)
	}
}

func TestGeneratePermanentErrorFailsFast(t *testing.T) {
	client := &stubImageClient{
		errs: []error{&genai.APIError{StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "bad prompt"}},
	}
	g, slept := newTestGenerator(client, &stubLimiter{}, &stubCache{})

	_, err := g.Generate(context.Background(), "soup", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrUnresolved) {
		t.Error("permanent failures should not be reported as exhausted retries")
	}
	if client.calls != 1 || len(*slept) != 0 {
		t.Errorf("calls = %d, sleeps = %d, want 1 and 0", client.calls, len(*slept))
	}
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubImageClient{asset: &genai.ImageAsset{Data: []byte("x")}}
	limiter := &stubLimiter{err: ctx.Err()}
	g, _ := newTestGenerator(client, limiter, &stubCache{})

	if _, err := g.Generate(ctx, "soup", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times after cancellation", client.calls)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	a := BuildPrompt("margherita pizza", "tomato, mozzarella, basil")
	b := BuildPrompt("margherita pizza", "tomato, mozzarella, basil")
	if a != b {
		t.Fatal("prompt is not deterministic")
	}
	if !strings.Contains(a, "Margherita Pizza") {
		t.Errorf("prompt %q does not title-case the dish", a)
	}
	if !strings.Contains(a, "The dish contains: tomato, mozzarella, basil") {
		t.Errorf("prompt %q lacks the description clause", a)
	}
	if !strings.HasPrefix(a, "High-resolution, photorealistic image of ") {
		t.Errorf("prompt %q has the wrong lead-in", a)
	}

	bare := BuildPrompt("  ", "")
	if !strings.Contains(bare, "A Restaurant Dish") {
		t.Errorf("blank name prompt %q lacks the fallback subject", bare)
	}
	if strings.Contains(BuildPrompt("soup", ""), "dish contains") {
		t.Error("empty description must not add the contents clause")
	}
}

func TestSlidingWindowCapsRollingWindow(t *testing.T) {
	w := NewSlidingWindow(3, time.Minute)
	current := time.Unix(1_700_000_000, 0)
	var slept []time.Duration
	w.now = func() time.Time { return current }
	w.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if len(slept) != 0 {
		t.Fatalf("first %d acquisitions slept: %v", 3, slept)
	}

	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("fourth acquire: %v", err)
	}
	if len(slept) != 1 || slept[0] != time.Minute {
		t.Errorf("slept = %v, want one full window", slept)
	}
}

func TestSlidingWindowFreesSlotsAsTheyExpire(t *testing.T) {
	w := NewSlidingWindow(2, time.Minute)
	current := time.Unix(1_700_000_000, 0)
	var slept []time.Duration
	w.now = func() time.Time { return current }
	w.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	ctx := context.Background()
	_ = w.Acquire(ctx)
	current = current.Add(40 * time.Second)
	_ = w.Acquire(ctx)

	// Window is full; the oldest slot frees in 20s.
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if len(slept) != 1 || slept[0] != 20*time.Second {
		t.Errorf("slept = %v, want [20s]", slept)
	}
}

func TestSlidingWindowAcquireHonorsCancel(t *testing.T) {
	w := NewSlidingWindow(1, time.Minute)
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

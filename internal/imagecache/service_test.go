package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"menulens/internal/domain"
	"menulens/internal/foodname"
	"menulens/internal/imageproc"
)

type fakeRecords struct {
	mu      sync.Mutex
	recs    []domain.CacheRecord
	failFor string
}

func (f *fakeRecords) Insert(ctx context.Context, rec domain.CacheRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRecords) ByNormalizedName(ctx context.Context, normalized string, limit int) ([]domain.CacheRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != "" && normalized == f.failFor {
		return nil, errors.New("records offline")
	}
	var out []domain.CacheRecord
	for _, r := range f.recs {
		if r.NormalizedName == normalized && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecords) ByCategory(ctx context.Context, category string, limit int) ([]domain.CacheRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CacheRecord
	for _, r := range f.recs {
		if r.Category == category && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecords) ByContentHash(ctx context.Context, hash string) (domain.CacheRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ContentHash == hash {
			return r, nil
		}
	}
	return domain.CacheRecord{}, domain.ErrNotFound
}

type fakeObjects struct {
	mu   sync.Mutex
	puts int
	keys []string
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.keys = append(f.keys, key)
	return f.PublicURL(key), nil
}

func (f *fakeObjects) ReadAll(ctx context.Context, key string) ([]byte, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeObjects) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "http://img.test/" + key
}

func newTestService(recs *fakeRecords, objs *fakeObjects) *Service {
	return New(recs, objs, foodname.KeywordClassifier{}, zerolog.Nop())
}

func seedRecord(name string, hash string) domain.CacheRecord {
	return domain.CacheRecord{
		ID:             "seed-" + hash,
		DishName:       name,
		NormalizedName: foodname.Normalize(name),
		Category:       foodname.KeywordClassifier{}.Categorize(name),
		Key:            "seed/" + hash + ".jpg",
		URL:            "http://img.test/seed/" + hash + ".jpg",
		ContentHash:    hash,
		Source:         domain.SourceSearch,
	}
}

func TestLookupExactNormalizedMatch(t *testing.T) {
	recs := &fakeRecords{recs: []domain.CacheRecord{seedRecord("cheeseburger", "aaa111")}}
	svc := newTestService(recs, &fakeObjects{})

	found, err := svc.Lookup(context.Background(), "Large Cheeseburger!", "", 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d candidates, want 1", len(found))
	}
	if found[0].Source != domain.SourceCached {
		t.Fatalf("source = %v, want cached", found[0].Source)
	}
	if found[0].URL != "http://img.test/seed/aaa111.jpg" {
		t.Fatalf("url = %q", found[0].URL)
	}
}

func TestLookupSimilarityWithinCategory(t *testing.T) {
	recs := &fakeRecords{recs: []domain.CacheRecord{
		seedRecord("chicken caesar salad", "bbb222"),
		seedRecord("greek salad", "ccc333"),
	}}
	svc := newTestService(recs, &fakeObjects{})

	found, err := svc.Lookup(context.Background(), "Caesar Salad", "", 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d candidates, want 2 similar salads", len(found))
	}
	if found[0].Title != "chicken caesar salad" {
		t.Fatalf("best match = %q, want highest similarity first", found[0].Title)
	}
	if found[0].Score <= found[1].Score {
		t.Fatalf("scores not descending: %v then %v", found[0].Score, found[1].Score)
	}
}

func TestLookupBelowThresholdMisses(t *testing.T) {
	recs := &fakeRecords{recs: []domain.CacheRecord{seedRecord("pepperoni pizza", "ddd444")}}
	svc := newTestService(recs, &fakeObjects{})

	found, err := svc.Lookup(context.Background(), "Espresso", "", 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("got %d candidates for unrelated dish, want 0", len(found))
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestStoreIsIdempotentByContentHash(t *testing.T) {
	img := pngBytes(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	recs := &fakeRecords{}
	objs := &fakeObjects{}
	svc := newTestService(recs, objs)
	ctx := context.Background()

	first, err := svc.Store(ctx, srv.URL+"/a.png", "Margherita Pizza", "", domain.SourceSearch)
	if err != nil {
		t.Fatalf("first Store: %v", err)
	}
	second, err := svc.Store(ctx, srv.URL+"/b.png", "Pizza Margherita Classica", "", domain.SourceSearch)
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}

	if objs.puts != 1 {
		t.Fatalf("object uploads = %d, want 1 (same binary)", objs.puts)
	}
	if first.Key != second.Key {
		t.Fatalf("keys differ for identical content: %q vs %q", first.Key, second.Key)
	}
	if len(recs.recs) != 2 {
		t.Fatalf("metadata rows = %d, want one per stored name", len(recs.recs))
	}
	opt, err := imageproc.Optimize(img, imageproc.DefaultMaxWidth)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if first.ContentHash != ContentHash(opt.Data) {
		t.Fatalf("hash %q not derived from optimized bytes", first.ContentHash)
	}
}

func TestStoreKeyLayout(t *testing.T) {
	img := pngBytes(t, 32, 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	objs := &fakeObjects{}
	svc := newTestService(&fakeRecords{}, objs)

	rec, err := svc.Store(context.Background(), srv.URL, "Large Cheeseburger!", "", domain.SourceGenerated)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	want := fmt.Sprintf("burger/cheeseburger_%s.jpg", rec.ContentHash)
	if rec.Key != want {
		t.Fatalf("key = %q, want %q", rec.Key, want)
	}
	if rec.Source != domain.SourceGenerated {
		t.Fatalf("source = %v", rec.Source)
	}
}

func TestStoreRejectsNonImagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	svc := newTestService(&fakeRecords{}, &fakeObjects{})
	if _, err := svc.Store(context.Background(), srv.URL, "Pizza", "", domain.SourceSearch); err == nil {
		t.Fatal("Store accepted non-image payload")
	}
}

func TestLookupBatchIsolatesFailures(t *testing.T) {
	recs := &fakeRecords{
		recs:    []domain.CacheRecord{seedRecord("pepperoni pizza", "eee555")},
		failFor: "bomb soup",
	}
	svc := newTestService(recs, &fakeObjects{})

	items := []domain.MenuItemRequest{
		{ID: "1", Name: "Pepperoni Pizza"},
		{ID: "2", Name: "Bomb Soup"},
	}
	out := svc.LookupBatch(context.Background(), items, 3)
	if len(out) != 2 {
		t.Fatalf("batch results = %d entries, want 2", len(out))
	}
	if len(out["1"]) != 1 {
		t.Fatalf("item 1 candidates = %d, want 1", len(out["1"]))
	}
	if len(out["2"]) != 0 {
		t.Fatalf("item 2 candidates = %d, want 0 on store failure", len(out["2"]))
	}
}

package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func samplePage(n int) CachedPage {
	items := make([]CachedItem, n)
	for i := range items {
		items[i] = CachedItem{
			ID:    uuid.New(),
			Name:  "Walnut Desk",
			Code:  "WALNUT_DESK_01",
			Price: decimal.RequireFromString("249.99"),
		}
	}
	return CachedPage{Items: items, Total: int64(n)}
}

func TestListCache_SetGet(t *testing.T) {
	c := NewListCache(8, time.Minute)

	c.Set("name|name|asc|0|20", samplePage(3))

	got, ok := c.Get("name|name|asc|0|20")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Total != 3 || len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d/%d", got.Total, len(got.Items))
	}
}

func TestListCache_MissOnUnknownSignature(t *testing.T) {
	c := NewListCache(8, time.Minute)
	if _, ok := c.Get("absent|name|asc|0|20"); ok {
		t.Fatal("expected miss for unknown signature")
	}
}

func TestListCache_DistinctSignaturesAreIsolated(t *testing.T) {
	c := NewListCache(8, time.Minute)
	c.Set("a|name|asc|0|20", samplePage(1))
	c.Set("a|name|asc|1|20", samplePage(2))

	p0, _ := c.Get("a|name|asc|0|20")
	p1, _ := c.Get("a|name|asc|1|20")
	if p0.Total != 1 || p1.Total != 2 {
		t.Fatalf("pages crossed signatures: %d/%d", p0.Total, p1.Total)
	}
}

func TestListCache_PurgeDropsEverything(t *testing.T) {
	c := NewListCache(8, time.Minute)
	c.Set("a|name|asc|0|20", samplePage(1))
	c.Set("b|name|asc|0|20", samplePage(1))

	c.Purge()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d entries", c.Len())
	}
	if _, ok := c.Get("a|name|asc|0|20"); ok {
		t.Fatal("expected miss after purge")
	}
}

func TestListCache_TTLExpiry(t *testing.T) {
	c := NewListCache(8, 20*time.Millisecond)
	c.Set("a|name|asc|0|20", samplePage(1))

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("a|name|asc|0|20"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestListCache_DefaultsOnBadArguments(t *testing.T) {
	c := NewListCache(0, 0)
	c.Set("a|name|asc|0|20", samplePage(1))
	if _, ok := c.Get("a|name|asc|0|20"); !ok {
		t.Fatal("cache with defaulted settings must still work")
	}
}

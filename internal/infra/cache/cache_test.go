package cache_test

import (
	"testing"
	"time"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/cache"
)

func newDetailCache(t *testing.T, ttl time.Duration) *cache.InMemory[*domain.QuoteDetail] {
	t.Helper()
	c := cache.New[*domain.QuoteDetail](ttl)
	t.Cleanup(c.Close)
	return c
}

func TestDetailCache_SetAndGet(t *testing.T) {
	c := newDetailCache(t, 5*time.Minute)

	c.Set("quote:9", &domain.QuoteDetail{ID: 9, Status: "PENDING"})

	detail, ok := c.Get("quote:9")
	if !ok {
		t.Fatal("expected cached detail")
	}
	if detail.ID != 9 || detail.Status != "PENDING" {
		t.Errorf("detail = %+v", detail)
	}

	if _, ok := c.Get("quote:404"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestDetailCache_EntryExpires(t *testing.T) {
	c := newDetailCache(t, 40*time.Millisecond)

	c.Set("quote:9", &domain.QuoteDetail{ID: 9})
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("quote:9"); ok {
		t.Fatal("expected entry to be expired")
	}
}

func TestDetailCache_DeleteAndLen(t *testing.T) {
	c := newDetailCache(t, 5*time.Minute)

	c.Set("quote:9", &domain.QuoteDetail{ID: 9})
	c.Set("quote:12", &domain.QuoteDetail{ID: 12})
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}

	c.Delete("quote:9")
	if c.Len() != 1 {
		t.Errorf("len after delete = %d, want 1", c.Len())
	}
	if _, ok := c.Get("quote:9"); ok {
		t.Error("deleted entry still readable")
	}
}

func TestDetailCache_SweepRemovesExpired(t *testing.T) {
	c := newDetailCache(t, 30*time.Millisecond)

	c.Set("quote:9", &domain.QuoteDetail{ID: 9})
	time.Sleep(120 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("len after sweep = %d, want 0", n)
	}
}

func TestDetailCache_CloseStopsSweep(t *testing.T) {
	c := cache.New[*domain.QuoteDetail](30 * time.Millisecond)
	c.Close()

	c.Set("quote:9", &domain.QuoteDetail{ID: 9})
	time.Sleep(120 * time.Millisecond)

	// Expired for readers, but nothing removes it once the sweeper is gone.
	if _, ok := c.Get("quote:9"); ok {
		t.Error("expired entry still readable")
	}
	if n := c.Len(); n != 1 {
		t.Errorf("len = %d, want 1 (no sweeper left to remove it)", n)
	}

	// Closing again is a no-op.
	c.Close()
}

package ranking

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestMemoryScoreCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryScoreCache()

	if _, ok := cache.Get(ctx, "missing"); ok {
		t.Error("empty cache reported a hit")
	}

	now := time.Now()
	cache.Put(ctx, "p1", CachedScore{Score: 4.2, ComputedAt: now})

	entry, ok := cache.Get(ctx, "p1")
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if math.Abs(entry.Score-4.2) > eps {
		t.Errorf("cached score = %f, want 4.2", entry.Score)
	}
	if !entry.ComputedAt.Equal(now) {
		t.Errorf("computed at = %v, want %v", entry.ComputedAt, now)
	}

	// Overwrite replaces the entry.
	cache.Put(ctx, "p1", CachedScore{Score: 7})
	if entry, _ := cache.Get(ctx, "p1"); math.Abs(entry.Score-7) > eps {
		t.Errorf("overwritten score = %f, want 7", entry.Score)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

// TestMemoryScoreCacheConcurrent exercises the cache under parallel
// readers and writers; the race detector does the real checking.
func TestMemoryScoreCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryScoreCache()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := string(rune('a' + w%4))
			for i := 0; i < 200; i++ {
				cache.Put(ctx, key, CachedScore{Score: float64(i)})
				cache.Get(ctx, key)
			}
		}(w)
	}
	wg.Wait()

	if cache.Len() != 4 {
		t.Errorf("Len() = %d, want 4", cache.Len())
	}
}

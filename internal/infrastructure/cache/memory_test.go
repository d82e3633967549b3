package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/macrolens/foodrecon/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	clock := newFakeClock()
	cache := newMemoryCache(time.Hour, clock.Now)
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   []byte
		ttl     time.Duration
		advance time.Duration
		wantHit bool
	}{
		{name: "store and retrieve", key: "fdc:1", value: []byte(`{"fdcId":1}`), ttl: time.Minute, wantHit: true},
		{name: "expired entry misses", key: "fdc:2", value: []byte(`{}`), ttl: time.Minute, advance: 2 * time.Minute},
		{name: "empty payload is still a hit", key: "off:3", value: []byte{}, ttl: time.Minute, wantHit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			clock.Advance(tt.advance)

			got, err := cache.Get(ctx, tt.key)
			if !tt.wantHit {
				if !errors.Is(err, domain.ErrCacheMiss) {
					t.Errorf("Get() error = %v, want ErrCacheMiss", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	value := []byte("abc")
	_ = cache.Set(ctx, "k", value, time.Minute)
	value[0] = 'x'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value changed through caller slice: %q", got)
	}
	got[1] = 'y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value changed through returned slice: %q", again)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	clock := newFakeClock()
	cache := newMemoryCache(time.Hour, clock.Now)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete() of a missing key error = %v", err)
	}
	_ = cache.Set(ctx, "k", []byte("v"), time.Minute)
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	clock := newFakeClock()
	cache := newMemoryCache(time.Hour, clock.Now)
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "old", []byte("v"), time.Minute)
	_ = cache.Set(ctx, "new", []byte("v"), time.Hour)
	clock.Advance(5 * time.Minute)

	cache.removeExpired()
	if size := cache.Size(); size != 1 {
		t.Fatalf("Size() = %d, want 1", size)
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache()
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, []byte{byte(id)}, time.Minute); err != nil {
				t.Errorf("concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}

package cache

import (
	"context"
	"errors"
	"testing"
)

func TestCacheSetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := New(0)
	if err != nil {
		t.Fatalf("expected cache, got %v", err)
	}

	if _, ok, err := c.Get(ctx, "RECENT_ANNOUNCEMENTS"); err != nil || ok {
		t.Fatalf("expected miss, got %v (%v)", ok, err)
	}

	if err := c.Set(ctx, "RECENT_ANNOUNCEMENTS", "first"); err != nil {
		t.Fatalf("expected set to succeed, got %v", err)
	}
	if err := c.Set(ctx, "RECENT_ANNOUNCEMENTS", "second"); err != nil {
		t.Fatalf("expected overwrite to succeed, got %v", err)
	}
	value, ok, err := c.Get(ctx, "RECENT_ANNOUNCEMENTS")
	if err != nil || !ok || value != "second" {
		t.Fatalf("expected second, got %q (%v, %v)", value, ok, err)
	}

	if err := c.Delete(ctx, "RECENT_ANNOUNCEMENTS"); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if err := c.Delete(ctx, "RECENT_ANNOUNCEMENTS"); err != nil {
		t.Fatalf("expected repeated delete to succeed, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := New(2)
	if err != nil {
		t.Fatalf("expected cache, got %v", err)
	}
	_ = c.Set(ctx, "a", "1")
	_ = c.Set(ctx, "b", "2")
	if _, _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("expected get to succeed, got %v", err)
	}
	_ = c.Set(ctx, "c", "3")

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestCacheHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	c, err := New(4)
	if err != nil {
		t.Fatalf("expected cache, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Set(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package application

import (
	"context"
	"errors"
	"testing"
)

func TestFeaturedSpeakerEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()

	store := newMemStore()
	conference := store.seedConference("bob", Conference{Name: "GopherCon"})
	other := store.seedConference("bob", Conference{Name: "RustConf"})
	for range 4 {
		store.seedSession(conference, Session{Name: "Talk", Speaker: "Dr. X"})
	}
	for range 2 {
		store.seedSession(conference, Session{Name: "Talk", Speaker: "Dr. Y"})
	}
	store.seedSession(conference, Session{Name: "Talk", Speaker: "Dr. Z"})
	store.seedSession(other, Session{Name: "Talk", Speaker: "Dr. Z"})

	t.Run("four sessions feature the speaker", func(t *testing.T) {
		cache := newMemCache()
		evaluator := NewFeaturedSpeakerEvaluator(store, cache, nil)

		message, featured, err := evaluator.Evaluate(ctx, "Dr. X", conference.Key)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !featured || message != "Featured Speaker: Dr. X" {
			t.Fatalf("expected Dr. X to be featured, got %q (%v)", message, featured)
		}
		if got := cache.values[CacheKeyFeaturedSpeaker]; got != message {
			t.Fatalf("expected cache to hold %q, got %q", message, got)
		}
	})

	t.Run("exactly two sessions overwrite the slot", func(t *testing.T) {
		cache := newMemCache()
		cache.values[CacheKeyFeaturedSpeaker] = FeaturedSpeakerMessage("Dr. X")
		evaluator := NewFeaturedSpeakerEvaluator(store, cache, nil)

		if _, featured, err := evaluator.Evaluate(ctx, "Dr. Y", conference.Key); err != nil || !featured {
			t.Fatalf("expected Dr. Y to be featured, got %v (%v)", featured, err)
		}
		if got := cache.values[CacheKeyFeaturedSpeaker]; got != "Featured Speaker: Dr. Y" {
			t.Fatalf("expected Dr. Y in cache, got %q", got)
		}
	})

	t.Run("one session per conference leaves the slot untouched", func(t *testing.T) {
		cache := newMemCache()
		cache.values[CacheKeyFeaturedSpeaker] = FeaturedSpeakerMessage("Dr. X")
		evaluator := NewFeaturedSpeakerEvaluator(store, cache, nil)

		_, featured, err := evaluator.Evaluate(ctx, "Dr. Z", conference.Key)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if featured {
			t.Fatalf("expected Dr. Z not to be featured")
		}
		if got := cache.values[CacheKeyFeaturedSpeaker]; got != "Featured Speaker: Dr. X" {
			t.Fatalf("expected previous speaker to remain, got %q", got)
		}
	})

	t.Run("repeated evaluation is stable", func(t *testing.T) {
		cache := newMemCache()
		evaluator := NewFeaturedSpeakerEvaluator(store, cache, nil)
		for range 2 {
			if _, _, err := evaluator.Evaluate(ctx, "Dr. X", conference.Key); err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		}
		if len(cache.values) != 1 {
			t.Fatalf("expected a single cache entry, got %v", cache.values)
		}
	})

	t.Run("surfaces cache failures", func(t *testing.T) {
		cache := newMemCache()
		cache.setErr = errors.New("cache down")
		evaluator := NewFeaturedSpeakerEvaluator(store, cache, nil)

		if _, _, err := evaluator.Evaluate(ctx, "Dr. X", conference.Key); err == nil {
			t.Fatalf("expected cache error to be returned")
		}
	})
}

package application

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/example/conference-central/internal/key"
)

func TestLedger_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("takes a seat and records attendance", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "GopherCon", MaxAttendees: 10, SeatsAvailable: 10})
		ledger := NewLedger(store)

		registered, err := ledger.Register(ctx, alice(), conference.Key)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !registered {
			t.Fatalf("expected registration to be reported")
		}

		stored, _ := store.GetConference(ctx, conference.Key)
		if stored.SeatsAvailable != 9 {
			t.Fatalf("expected 9 seats, got %d", stored.SeatsAvailable)
		}
		profile, err := store.GetProfile(ctx, "alice")
		if err != nil {
			t.Fatalf("expected profile to be created, got %v", err)
		}
		if !slices.Equal(profile.ConferenceKeysToAttend, []string{conference.WebsafeKey()}) {
			t.Fatalf("expected attendance list to hold the conference, got %v", profile.ConferenceKeysToAttend)
		}
	})

	t.Run("rejects a second registration without writing", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "GopherCon", MaxAttendees: 10, SeatsAvailable: 10})
		ledger := NewLedger(store)

		if _, err := ledger.Register(ctx, alice(), conference.Key); err != nil {
			t.Fatalf("expected first registration to succeed, got %v", err)
		}
		_, err := ledger.Register(ctx, alice(), conference.Key)
		if !errors.Is(err, ErrAlreadyRegistered) {
			t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
		}

		stored, _ := store.GetConference(ctx, conference.Key)
		if stored.SeatsAvailable != 9 {
			t.Fatalf("expected seats to stay at 9, got %d", stored.SeatsAvailable)
		}
	})

	t.Run("rejects a full conference", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "Tiny", MaxAttendees: 1, SeatsAvailable: 0})
		ledger := NewLedger(store)

		_, err := ledger.Register(ctx, alice(), conference.Key)
		if !errors.Is(err, ErrNoSeats) {
			t.Fatalf("expected ErrNoSeats, got %v", err)
		}
		if _, err := store.GetProfile(ctx, "alice"); !errors.Is(mapRepoError(err), ErrNotFound) {
			t.Fatalf("expected no profile to be written, got %v", err)
		}
	})

	t.Run("reports missing conferences", func(t *testing.T) {
		store := newMemStore()
		ledger := NewLedger(store)

		_, err := ledger.Register(ctx, alice(), key.Conference(key.Profile("bob"), 99))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		ledger := NewLedger(newMemStore())
		_, err := ledger.Register(ctx, Principal{}, key.Conference(key.Profile("bob"), 1))
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestLedger_RegisterThenUnregisterRestoresSeats(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	conference := store.seedConference("bob", Conference{Name: "GopherCon", MaxAttendees: 3, SeatsAvailable: 3})
	ledger := NewLedger(store)

	if _, err := ledger.Register(ctx, alice(), conference.Key); err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
	unregistered, err := ledger.Unregister(ctx, alice(), conference.Key)
	if err != nil {
		t.Fatalf("expected unregister to succeed, got %v", err)
	}
	if !unregistered {
		t.Fatalf("expected unregister to report true")
	}

	stored, _ := store.GetConference(ctx, conference.Key)
	if stored.SeatsAvailable != 3 {
		t.Fatalf("expected seats to be restored to 3, got %d", stored.SeatsAvailable)
	}
	profile, _ := store.GetProfile(ctx, "alice")
	if len(profile.ConferenceKeysToAttend) != 0 {
		t.Fatalf("expected empty attendance list, got %v", profile.ConferenceKeysToAttend)
	}

	again, err := ledger.Unregister(ctx, alice(), conference.Key)
	if err != nil {
		t.Fatalf("expected repeated unregister to succeed, got %v", err)
	}
	if again {
		t.Fatalf("expected repeated unregister to report false")
	}
	stored, _ = store.GetConference(ctx, conference.Key)
	if stored.SeatsAvailable != 3 {
		t.Fatalf("expected seats to stay at 3, got %d", stored.SeatsAvailable)
	}
}

func TestLedger_Wishlist(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects keys of another kind before reading", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "GopherCon"})
		ledger := NewLedger(store)

		before := store.reads
		_, err := ledger.AddToWishlist(ctx, alice(), conference.Key)
		if !errors.Is(err, ErrInvalidKeyKind) {
			t.Fatalf("expected ErrInvalidKeyKind, got %v", err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if store.reads != before {
			t.Fatalf("expected no store reads, got %d", store.reads-before)
		}
		if store.transactions != 0 {
			t.Fatalf("expected no transaction, got %d", store.transactions)
		}
	})

	t.Run("adds once and removes", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "GopherCon"})
		session := store.seedSession(conference, Session{Name: "Generics", Speaker: "Dr. X"})
		ledger := NewLedger(store)

		added, err := ledger.AddToWishlist(ctx, alice(), session.Key)
		if err != nil || !added {
			t.Fatalf("expected add to succeed, got %v (%v)", added, err)
		}
		if _, err := ledger.AddToWishlist(ctx, alice(), session.Key); !errors.Is(err, ErrAlreadyInWishlist) {
			t.Fatalf("expected ErrAlreadyInWishlist, got %v", err)
		}

		removed, err := ledger.RemoveFromWishlist(ctx, alice(), session.Key)
		if err != nil || !removed {
			t.Fatalf("expected remove to succeed, got %v (%v)", removed, err)
		}
		removed, err = ledger.RemoveFromWishlist(ctx, alice(), session.Key)
		if err != nil || removed {
			t.Fatalf("expected repeated remove to report false, got %v (%v)", removed, err)
		}

		profile, _ := store.GetProfile(ctx, "alice")
		if len(profile.SessionKeysWishList) != 0 {
			t.Fatalf("expected empty wishlist, got %v", profile.SessionKeysWishList)
		}
	})

	t.Run("reports missing sessions", func(t *testing.T) {
		store := newMemStore()
		conference := store.seedConference("bob", Conference{Name: "GopherCon"})
		ledger := NewLedger(store)

		_, err := ledger.AddToWishlist(ctx, alice(), key.Session(conference.Key, 404))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

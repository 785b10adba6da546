package application

import (
	"context"
	"errors"
	"testing"
)

func TestProfileService_GetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a principal", func(t *testing.T) {
		svc := NewProfileService(newMemStore())
		if _, err := svc.GetProfile(ctx, Principal{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("creates the profile on first access", func(t *testing.T) {
		store := newMemStore()
		svc := NewProfileService(store)

		profile, err := svc.GetProfile(ctx, alice())
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if profile.DisplayName != "Alice" || profile.MainEmail != "alice@example.com" {
			t.Fatalf("unexpected profile %+v", profile)
		}
		if profile.TeeShirtSize != TeeShirtNotSpecified {
			t.Fatalf("expected NOT_SPECIFIED, got %q", profile.TeeShirtSize)
		}
		if profile.Version != 1 {
			t.Fatalf("expected stored profile, got version %d", profile.Version)
		}

		again, err := svc.GetProfile(ctx, alice())
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if again.Version != 1 {
			t.Fatalf("expected second read not to write, got version %d", again.Version)
		}
	})

	t.Run("falls back to the email local part", func(t *testing.T) {
		svc := NewProfileService(newMemStore())
		profile, err := svc.GetProfile(ctx, Principal{UserID: "u1", Email: "gopher@example.com"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if profile.DisplayName != "gopher" {
			t.Fatalf("expected gopher, got %q", profile.DisplayName)
		}
	})
}

func TestProfileService_SaveProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates provided fields", func(t *testing.T) {
		store := newMemStore()
		svc := NewProfileService(store)

		profile, err := svc.SaveProfile(ctx, alice(), ProfileInput{
			DisplayName:  strPtr("  Alice L.  "),
			TeeShirtSize: strPtr("xl_w"),
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if profile.DisplayName != "Alice L." {
			t.Fatalf("expected trimmed display name, got %q", profile.DisplayName)
		}
		if profile.TeeShirtSize != TeeShirtXLW {
			t.Fatalf("expected XL_W, got %q", profile.TeeShirtSize)
		}

		profile, err = svc.SaveProfile(ctx, alice(), ProfileInput{DisplayName: strPtr("")})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if profile.DisplayName != "Alice L." || profile.TeeShirtSize != TeeShirtXLW {
			t.Fatalf("expected blank fields to be ignored, got %+v", profile)
		}
	})

	t.Run("rejects unknown shirt sizes", func(t *testing.T) {
		store := newMemStore()
		svc := NewProfileService(store)

		_, err := svc.SaveProfile(ctx, alice(), ProfileInput{TeeShirtSize: strPtr("huge")})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["teeShirtSize"]; !ok {
			t.Fatalf("expected teeShirtSize error, got %v", vErr.FieldErrors)
		}
		if len(store.profiles) != 0 {
			t.Fatalf("expected nothing to be written")
		}
	})
}

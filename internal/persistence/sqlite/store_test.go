package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(
		TestConfig(filepath.Join(t.TempDir(), "conference.db")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return store
}

func date(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return &parsed
}

func createConference(t *testing.T, store *Store, owner string, conference persistence.Conference) persistence.Conference {
	t.Helper()
	conference.Key = key.Conference(key.Profile(owner), 0)
	conference.OrganizerUserID = owner
	created, err := store.Conferences().CreateConference(context.Background(), conference)
	if err != nil {
		t.Fatalf("CreateConference failed: %v", err)
	}
	return created
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestProfileRepositoryVersioning(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	repo := store.Profiles()

	if _, err := repo.GetProfile(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := repo.PutProfile(ctx, persistence.Profile{
		UserID:       "user-1",
		DisplayName:  "Ada",
		MainEmail:    "ada@example.com",
		TeeShirtSize: "NOT_SPECIFIED",
	})
	if err != nil {
		t.Fatalf("PutProfile insert failed: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	created.ConferenceKeysToAttend = []string{"conf-a", "conf-b"}
	updated, err := repo.PutProfile(ctx, created)
	if err != nil {
		t.Fatalf("PutProfile update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	// Writing with the stale version must fail.
	if _, err := repo.PutProfile(ctx, created); !errors.Is(err, persistence.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	// A second insert of the same user races with the first one.
	if _, err := repo.PutProfile(ctx, persistence.Profile{UserID: "user-1"}); !errors.Is(err, persistence.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification on duplicate insert, got %v", err)
	}

	fetched, err := repo.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if len(fetched.ConferenceKeysToAttend) != 2 || fetched.ConferenceKeysToAttend[1] != "conf-b" {
		t.Fatalf("unexpected attendance list %v", fetched.ConferenceKeysToAttend)
	}
	if fetched.SessionKeysWishList == nil || len(fetched.SessionKeysWishList) != 0 {
		t.Fatalf("expected empty wishlist, got %v", fetched.SessionKeysWishList)
	}
}

func TestConferenceRepositoryCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	repo := store.Conferences()

	created := createConference(t, store, "owner", persistence.Conference{
		Name:           "GopherCon",
		Topics:         []string{"Go", "Cloud"},
		City:           "Denver",
		StartDate:      date(t, "2026-07-01"),
		Month:          7,
		MaxAttendees:   10,
		SeatsAvailable: 10,
	})
	if created.Key.ID() <= 0 || created.Key.Root().Name() != "owner" {
		t.Fatalf("unexpected key %v", created.Key)
	}

	fetched, err := repo.GetConference(ctx, created.Key)
	if err != nil {
		t.Fatalf("GetConference failed: %v", err)
	}
	if fetched.Name != "GopherCon" || fetched.StartDate == nil || fetched.StartDate.Month() != time.July {
		t.Fatalf("unexpected conference %+v", fetched)
	}
	if fetched.EndDate != nil {
		t.Fatalf("expected nil end date, got %v", fetched.EndDate)
	}

	// The same id under another owner does not resolve.
	if _, err := repo.GetConference(ctx, key.Conference(key.Profile("intruder"), created.Key.ID())); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mismatched ancestor, got %v", err)
	}

	fetched.SeatsAvailable = 9
	updated, err := repo.PutConference(ctx, fetched)
	if err != nil {
		t.Fatalf("PutConference failed: %v", err)
	}
	if updated.Version != fetched.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}

	if _, err := repo.PutConference(ctx, fetched); !errors.Is(err, persistence.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	updated.SeatsAvailable = -1
	if _, err := repo.PutConference(ctx, updated); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for negative seats, got %v", err)
	}

	missing := key.Conference(key.Profile("owner"), 9999)
	batch, err := repo.GetConferences(ctx, []key.Key{missing, created.Key})
	if err != nil {
		t.Fatalf("GetConferences failed: %v", err)
	}
	if len(batch) != 1 || !batch[0].Key.Equal(created.Key) {
		t.Fatalf("expected batch get to skip missing keys, got %d results", len(batch))
	}
}

func TestQueryConferencesFiltersAndOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	createConference(t, store, "alice", persistence.Conference{Name: "Bravo", City: "London", Topics: []string{"Go"}, Month: 6, MaxAttendees: 100, SeatsAvailable: 3})
	createConference(t, store, "alice", persistence.Conference{Name: "Alpha", City: "London", Topics: []string{"Rust", "Go"}, Month: 3, MaxAttendees: 50, SeatsAvailable: 50})
	createConference(t, store, "bob", persistence.Conference{Name: "Charlie", City: "Paris", Topics: []string{"Python"}, Month: 6, MaxAttendees: 20, SeatsAvailable: 0})

	tests := []struct {
		name  string
		query persistence.ConferenceQuery
		want  []string
	}{
		{
			name:  "unfiltered by name",
			query: persistence.ConferenceQuery{Orders: []persistence.ConferenceField{persistence.ConferenceFieldName}},
			want:  []string{"Alpha", "Bravo", "Charlie"},
		},
		{
			name: "equality on city",
			query: persistence.ConferenceQuery{
				Filters: []persistence.ConferenceFilter{{Field: persistence.ConferenceFieldCity, Comparison: persistence.CompareEqual, Value: "London"}},
				Orders:  []persistence.ConferenceField{persistence.ConferenceFieldName},
			},
			want: []string{"Alpha", "Bravo"},
		},
		{
			name: "topic membership",
			query: persistence.ConferenceQuery{
				Filters: []persistence.ConferenceFilter{{Field: persistence.ConferenceFieldTopics, Comparison: persistence.CompareEqual, Value: "Go"}},
				Orders:  []persistence.ConferenceField{persistence.ConferenceFieldName},
			},
			want: []string{"Alpha", "Bravo"},
		},
		{
			name: "inequality ordered by field then name",
			query: persistence.ConferenceQuery{
				Filters: []persistence.ConferenceFilter{{Field: persistence.ConferenceFieldMaxAttendees, Comparison: persistence.CompareGreater, Value: 10}},
				Orders:  []persistence.ConferenceField{persistence.ConferenceFieldMaxAttendees, persistence.ConferenceFieldName},
			},
			want: []string{"Charlie", "Alpha", "Bravo"},
		},
		{
			name: "seat window",
			query: persistence.ConferenceQuery{
				Filters: []persistence.ConferenceFilter{
					{Field: persistence.ConferenceFieldSeatsAvailable, Comparison: persistence.CompareLessOrEqual, Value: 5},
					{Field: persistence.ConferenceFieldSeatsAvailable, Comparison: persistence.CompareGreater, Value: 0},
				},
			},
			want: []string{"Bravo"},
		},
		{
			name: "ancestor scoped",
			query: persistence.ConferenceQuery{
				Ancestor: func() *key.Key { k := key.Profile("bob"); return &k }(),
			},
			want: []string{"Charlie"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			conferences, err := store.Conferences().QueryConferences(ctx, tc.query)
			if err != nil {
				t.Fatalf("QueryConferences failed: %v", err)
			}
			var got []string
			for _, conference := range conferences {
				got = append(got, conference.Name)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestQueryConferencesRejectsMistypedValues(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, err := store.Conferences().QueryConferences(context.Background(), persistence.ConferenceQuery{
		Filters: []persistence.ConferenceFilter{{Field: persistence.ConferenceFieldMonth, Comparison: persistence.CompareEqual, Value: "six"}},
	})
	if !errors.Is(err, persistence.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSessionRepositoryQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	conference := createConference(t, store, "owner", persistence.Conference{Name: "DevFest", MaxAttendees: 10, SeatsAvailable: 10})
	other := createConference(t, store, "owner", persistence.Conference{Name: "Other"})

	clock := func(value string) *time.Time {
		parsed, err := time.Parse(clockLayout, value)
		if err != nil {
			t.Fatalf("invalid clock %q: %v", value, err)
		}
		return &parsed
	}

	sessions := []persistence.Session{
		{Key: key.Session(conference.Key, 0), Name: "Keynote", Speaker: "Dr. X", TypeOfSession: "keynote", Date: date(t, "2026-05-01"), StartTime: clock("09:00")},
		{Key: key.Session(conference.Key, 0), Name: "Lab", Speaker: "Dr. X", TypeOfSession: "workshop", Date: date(t, "2026-05-01"), StartTime: clock("08:00")},
		{Key: key.Session(conference.Key, 0), Name: "Untyped", Speaker: "Dr. Y"},
		{Key: key.Session(other.Key, 0), Name: "Elsewhere", Speaker: "Dr. X", TypeOfSession: "talk", Date: date(t, "2026-05-02")},
	}
	var created []persistence.Session
	for _, session := range sessions {
		stored, err := store.Sessions().CreateSession(ctx, session)
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		created = append(created, stored)
	}

	fetched, err := store.Sessions().GetSession(ctx, created[0].Key)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.StartTime == nil || fetched.StartTime.Format(clockLayout) != "09:00" {
		t.Fatalf("unexpected start time %v", fetched.StartTime)
	}

	count, err := store.Sessions().CountSessions(ctx, persistence.SessionQuery{Conference: &conference.Key, Speaker: "Dr. X"})
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sessions for Dr. X in conference, got %d", count)
	}

	excluded, err := store.Sessions().QuerySessions(ctx, persistence.SessionQuery{Conference: &conference.Key, ExcludeType: "workshop"})
	if err != nil {
		t.Fatalf("QuerySessions failed: %v", err)
	}
	if len(excluded) != 1 || excluded[0].Name != "Keynote" {
		t.Fatalf("expected only the typed non-workshop session, got %+v", excluded)
	}

	byDate, err := store.Sessions().QuerySessions(ctx, persistence.SessionQuery{Date: date(t, "2026-05-01"), Order: persistence.SessionOrderStartTime})
	if err != nil {
		t.Fatalf("QuerySessions by date failed: %v", err)
	}
	if len(byDate) != 2 || byDate[0].Name != "Lab" || byDate[1].Name != "Keynote" {
		t.Fatalf("expected sessions ordered by start time, got %+v", byDate)
	}

	bySpeaker, err := store.Sessions().QuerySessions(ctx, persistence.SessionQuery{Speaker: "Dr. X"})
	if err != nil {
		t.Fatalf("QuerySessions by speaker failed: %v", err)
	}
	if len(bySpeaker) != 3 {
		t.Fatalf("expected 3 sessions across conferences, got %d", len(bySpeaker))
	}

	missing := key.Session(conference.Key, 9999)
	batch, err := store.Sessions().GetSessions(ctx, []key.Key{created[2].Key, missing})
	if err != nil {
		t.Fatalf("GetSessions failed: %v", err)
	}
	if len(batch) != 1 || batch[0].Name != "Untyped" {
		t.Fatalf("expected batch get to skip missing keys, got %+v", batch)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	conference := createConference(t, store, "owner", persistence.Conference{Name: "Atomic", MaxAttendees: 5, SeatsAvailable: 5})

	sentinel := errors.New("abort")
	err := store.RunInTransaction(ctx, func(tx persistence.Tx) error {
		loaded, err := tx.Conferences().GetConference(ctx, conference.Key)
		if err != nil {
			return err
		}
		loaded.SeatsAvailable--
		if _, err := tx.Conferences().PutConference(ctx, loaded); err != nil {
			return err
		}
		if _, err := tx.Profiles().PutProfile(ctx, persistence.Profile{UserID: "attendee"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	reloaded, err := store.Conferences().GetConference(ctx, conference.Key)
	if err != nil {
		t.Fatalf("GetConference failed: %v", err)
	}
	if reloaded.SeatsAvailable != 5 {
		t.Fatalf("expected seats to be rolled back to 5, got %d", reloaded.SeatsAvailable)
	}
	if _, err := store.Profiles().GetProfile(ctx, "attendee"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected profile insert to be rolled back, got %v", err)
	}
}

func TestRunInTransactionRetriesStaleWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	conference := createConference(t, store, "owner", persistence.Conference{Name: "Retry", MaxAttendees: 5, SeatsAvailable: 5})

	attempts := 0
	err := store.RunInTransaction(ctx, func(tx persistence.Tx) error {
		attempts++
		loaded, err := tx.Conferences().GetConference(ctx, conference.Key)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// Simulate a write that lost the race against another transaction.
			loaded.Version--
		}
		loaded.SeatsAvailable--
		_, err = tx.Conferences().PutConference(ctx, loaded)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}

	reloaded, err := store.Conferences().GetConference(ctx, conference.Key)
	if err != nil {
		t.Fatalf("GetConference failed: %v", err)
	}
	if reloaded.SeatsAvailable != 4 {
		t.Fatalf("expected 4 seats, got %d", reloaded.SeatsAvailable)
	}
}

func TestTaskQueueLeasesAndReschedules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	queue := store.Tasks()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	for _, task := range []persistence.Task{
		{ID: "t1", Name: "send_confirmation_email", Payload: []byte{0xa0}, AvailableAt: now, CreatedAt: now},
		{ID: "t2", Name: "set_featured_speaker", Payload: []byte{0xa0}, AvailableAt: now.Add(time.Hour), CreatedAt: now},
	} {
		if err := queue.EnqueueTask(ctx, task); err != nil {
			t.Fatalf("EnqueueTask failed: %v", err)
		}
	}

	claimed, err := queue.ClaimDueTasks(ctx, now, time.Minute, 10)
	if err != nil {
		t.Fatalf("ClaimDueTasks failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != "t1" || claimed[0].Attempts != 1 {
		t.Fatalf("expected t1 claimed once, got %+v", claimed)
	}

	again, err := queue.ClaimDueTasks(ctx, now, time.Minute, 10)
	if err != nil {
		t.Fatalf("second ClaimDueTasks failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected leased task to be hidden, got %+v", again)
	}

	if err := queue.RescheduleTask(ctx, "t1", now, "boom"); err != nil {
		t.Fatalf("RescheduleTask failed: %v", err)
	}
	retried, err := queue.ClaimDueTasks(ctx, now, time.Minute, 10)
	if err != nil {
		t.Fatalf("third ClaimDueTasks failed: %v", err)
	}
	if len(retried) != 1 || retried[0].Attempts != 2 || retried[0].LastError != "boom" {
		t.Fatalf("expected rescheduled task with 2 attempts, got %+v", retried)
	}

	if err := queue.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := queue.DeleteTask(ctx, "t1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

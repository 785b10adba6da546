package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/conference-central/internal/persistence"
	"github.com/example/conference-central/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Store       *sqlite.Store
	Profiles    persistence.ProfileRepository
	Conferences persistence.ConferenceRepository
	Sessions    persistence.SessionRepository
	Tasks       persistence.TaskRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "conference.db")

	storage, err := sqlite.Open(sqlite.TestConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:       storage,
		Profiles:    storage.Profiles(),
		Conferences: storage.Conferences(),
		Sessions:    storage.Sessions(),
		Tasks:       storage.Tasks(),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedProfile stores the fixture and returns the stored row.
func (h *SQLiteHarness) SeedProfile(tb testing.TB, fixture ProfileFixture) persistence.Profile {
	tb.Helper()
	stored, err := h.Profiles.PutProfile(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed profile: %v", err)
	}
	return stored
}

// SeedConference stores the fixture and returns the stored row.
func (h *SQLiteHarness) SeedConference(tb testing.TB, fixture ConferenceFixture) persistence.Conference {
	tb.Helper()
	stored, err := h.Conferences.CreateConference(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed conference: %v", err)
	}
	return stored
}

// SeedSession stores the fixture and returns the stored row.
func (h *SQLiteHarness) SeedSession(tb testing.TB, fixture SessionFixture) persistence.Session {
	tb.Helper()
	stored, err := h.Sessions.CreateSession(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("failed to seed session: %v", err)
	}
	return stored
}

package persistence

import (
	"context"
	"time"

	"github.com/example/conference-central/internal/key"
)

// ProfileRepository stores user profiles keyed by user id.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	// PutProfile inserts the profile when Version is zero and otherwise
	// updates it conditionally on Version. It returns the stored row.
	PutProfile(ctx context.Context, profile Profile) (Profile, error)
}

// ConferenceRepository stores conferences under their owning profile.
type ConferenceRepository interface {
	// CreateConference allocates an id under the key's parent profile.
	CreateConference(ctx context.Context, conference Conference) (Conference, error)
	GetConference(ctx context.Context, k key.Key) (Conference, error)
	// GetConferences returns the conferences that exist, in request order.
	// Missing keys are skipped.
	GetConferences(ctx context.Context, keys []key.Key) ([]Conference, error)
	// PutConference updates the conference conditionally on Version.
	PutConference(ctx context.Context, conference Conference) (Conference, error)
	QueryConferences(ctx context.Context, query ConferenceQuery) ([]Conference, error)
}

// SessionRepository stores sessions under their conference.
type SessionRepository interface {
	// CreateSession allocates an id under the key's parent conference.
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, k key.Key) (Session, error)
	// GetSessions returns the sessions that exist, in request order.
	GetSessions(ctx context.Context, keys []key.Key) ([]Session, error)
	QuerySessions(ctx context.Context, query SessionQuery) ([]Session, error)
	CountSessions(ctx context.Context, query SessionQuery) (int, error)
}

// Tx exposes the repositories bound to a single atomic transaction.
type Tx interface {
	Profiles() ProfileRepository
	Conferences() ConferenceRepository
	Sessions() SessionRepository
}

// Transactor runs fn inside one transaction. The whole function is retried
// when the transaction loses a write race, so fn must not have side effects
// outside tx.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// TaskRepository stores queued work for the task dispatcher.
type TaskRepository interface {
	EnqueueTask(ctx context.Context, task Task) error
	// ClaimDueTasks returns up to limit tasks available at now, incrementing
	// their attempt counters and hiding them from other claimers for lease.
	ClaimDueTasks(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Task, error)
	RescheduleTask(ctx context.Context, id string, availableAt time.Time, lastError string) error
	DeleteTask(ctx context.Context, id string) error
}

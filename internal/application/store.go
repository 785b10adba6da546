package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

// ProfileRepository captures the profile operations needed by the services.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	// PutProfile inserts when Version is zero and otherwise writes
	// conditionally on Version.
	PutProfile(ctx context.Context, profile Profile) (Profile, error)
}

// ConferenceRepository captures the conference operations needed by the services.
type ConferenceRepository interface {
	CreateConference(ctx context.Context, conference Conference) (Conference, error)
	GetConference(ctx context.Context, k key.Key) (Conference, error)
	// GetConferences skips keys that do not resolve.
	GetConferences(ctx context.Context, keys []key.Key) ([]Conference, error)
	PutConference(ctx context.Context, conference Conference) (Conference, error)
	QueryConferences(ctx context.Context, plan QueryPlan) ([]Conference, error)
}

// SessionRepository captures the session operations needed by the services.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, k key.Key) (Session, error)
	// GetSessions skips keys that do not resolve.
	GetSessions(ctx context.Context, keys []key.Key) ([]Session, error)
	QuerySessions(ctx context.Context, query SessionQuery) ([]Session, error)
	CountSessions(ctx context.Context, query SessionQuery) (int, error)
}

// Tx exposes repositories bound to one atomic transaction.
type Tx interface {
	Profiles() ProfileRepository
	Conferences() ConferenceRepository
	Sessions() SessionRepository
}

// Transactor runs fn atomically, replaying it when the store reports
// contention. fn must not have effects outside tx.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the entity store: non-transactional repositories plus transactions.
type Store interface {
	Tx
	Transactor
}

// Cache is the shared key-value cache for derived announcement strings.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// TaskQueue queues deferred work by name.
type TaskQueue interface {
	Enqueue(ctx context.Context, name string, params map[string]string) error
}

// Well-known cache keys.
const (
	CacheKeyAnnouncement    = "RECENT_ANNOUNCEMENTS"
	CacheKeyFeaturedSpeaker = "FEATURED_SPEAKER"
)

// Task names understood by the worker.
const (
	TaskSendConfirmationEmail = "send_confirmation_email"
	TaskSetFeaturedSpeaker    = "set_featured_speaker"
)

// SessionQuery narrows session lookups. Zero-valued fields are ignored.
type SessionQuery struct {
	Conference       *key.Key
	Speaker          string
	TypeOfSession    string
	ExcludeType      string
	Date             *time.Time
	OrderByStartTime bool
}

// mapRepoError translates persistence failures into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"entity": err.Error()}}
	case errors.Is(err, persistence.ErrInvalidQuery):
		return &ValidationError{FieldErrors: map[string]string{"filters": err.Error()}}
	}
	return err
}

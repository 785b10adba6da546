package persistence

import (
	"time"

	"github.com/example/conference-central/internal/key"
)

// Profile is the stored view of a user's profile. Membership lists hold
// websafe keys and are weak references: entries may point at entities that
// no longer resolve.
type Profile struct {
	UserID                 string
	DisplayName            string
	MainEmail              string
	TeeShirtSize           string
	ConferenceKeysToAttend []string
	SessionKeysWishList    []string
	// Version is bumped on every write. A write carrying a stale version
	// fails with ErrConcurrentModification.
	Version int64
}

// Conference represents a conference row. Key is scoped under the owning
// profile.
type Conference struct {
	Key             key.Key
	Name            string
	Description     string
	OrganizerUserID string
	Topics          []string
	City            string
	StartDate       *time.Time
	EndDate         *time.Time
	Month           int
	MaxAttendees    int
	SeatsAvailable  int
	Version         int64
}

// Session represents a session row. Key is scoped under its conference.
type Session struct {
	Key           key.Key
	Name          string
	Highlights    string
	Speaker       string
	Duration      int
	TypeOfSession string
	Date          *time.Time
	// StartTime carries only the clock portion; the date is ignored.
	StartTime *time.Time
}

// Task is a unit of deferred work waiting in the queue.
type Task struct {
	ID          string
	Name        string
	Payload     []byte
	Attempts    int
	AvailableAt time.Time
	LastError   string
	CreatedAt   time.Time
}

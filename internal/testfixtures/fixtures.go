package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/conference-central/internal/application"
	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

var (
	profileCounter    uint64
	conferenceCounter uint64
	sessionCounter    uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Profile fixtures -----------------------------

// ProfileFixture represents a deterministic profile that can be materialised
// for application or persistence tests.
type ProfileFixture struct {
	UserID       string
	DisplayName  string
	MainEmail    string
	TeeShirtSize application.TeeShirtSize
}

// ProfileOption configures the generated profile fixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a deterministic profile fixture with optional overrides.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := ProfileFixture{
		UserID:       id,
		DisplayName:  fmt.Sprintf("User %03d", idx),
		MainEmail:    fmt.Sprintf("%s@example.com", id),
		TeeShirtSize: application.TeeShirtNotSpecified,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) ProfileOption {
	return func(f *ProfileFixture) {
		f.UserID = id
	}
}

// WithDisplayName overrides the generated display name.
func WithDisplayName(name string) ProfileOption {
	return func(f *ProfileFixture) {
		f.DisplayName = name
	}
}

// Principal returns the principal that owns the profile.
func (f ProfileFixture) Principal() application.Principal {
	return application.Principal{UserID: f.UserID, Email: f.MainEmail, Name: f.DisplayName}
}

// Key returns the profile key.
func (f ProfileFixture) Key() key.Key {
	return key.Profile(f.UserID)
}

// Persistence converts the fixture into an unsaved persistence profile.
func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		UserID:       f.UserID,
		DisplayName:  f.DisplayName,
		MainEmail:    f.MainEmail,
		TeeShirtSize: string(f.TeeShirtSize),
	}
}

// --------------------------- Conference fixtures ----------------------------

// ConferenceFixture represents a deterministic conference owned by a profile.
type ConferenceFixture struct {
	OrganizerUserID string
	Name            string
	Description     string
	City            string
	Topics          []string
	StartDate       *time.Time
	EndDate         *time.Time
	MaxAttendees    int
	SeatsAvailable  int
}

// ConferenceOption configures the generated conference fixture.
type ConferenceOption func(*ConferenceFixture)

// NewConferenceFixture returns a conference with 100 seats starting one month
// after ReferenceTime.
func NewConferenceFixture(organizerUserID string, opts ...ConferenceOption) ConferenceFixture {
	idx := atomic.AddUint64(&conferenceCounter, 1)
	start := referenceTime.AddDate(0, 1, 0).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 2)
	fixture := ConferenceFixture{
		OrganizerUserID: organizerUserID,
		Name:            fmt.Sprintf("Conference %03d", idx),
		City:            "Default City",
		Topics:          []string{"Default", "Topic"},
		StartDate:       &start,
		EndDate:         &end,
		MaxAttendees:    100,
		SeatsAvailable:  100,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithConferenceName overrides the generated name.
func WithConferenceName(name string) ConferenceOption {
	return func(f *ConferenceFixture) {
		f.Name = name
	}
}

// WithCity overrides the city.
func WithCity(city string) ConferenceOption {
	return func(f *ConferenceFixture) {
		f.City = city
	}
}

// WithTopics overrides the topics.
func WithTopics(topics ...string) ConferenceOption {
	return func(f *ConferenceFixture) {
		f.Topics = append([]string(nil), topics...)
	}
}

// WithSeats sets both capacity and the remaining seats.
func WithSeats(maxAttendees, seatsAvailable int) ConferenceOption {
	return func(f *ConferenceFixture) {
		f.MaxAttendees = maxAttendees
		f.SeatsAvailable = seatsAvailable
	}
}

// WithStartDate moves the conference to start on t.
func WithStartDate(t time.Time) ConferenceOption {
	return func(f *ConferenceFixture) {
		start := t
		f.StartDate = &start
	}
}

func (f ConferenceFixture) month() int {
	if f.StartDate == nil {
		return 0
	}
	return int(f.StartDate.Month())
}

// Persistence converts the fixture into an unsaved persistence conference
// whose key asks the store to allocate an id.
func (f ConferenceFixture) Persistence() persistence.Conference {
	return persistence.Conference{
		Key:             key.Conference(key.Profile(f.OrganizerUserID), 0),
		Name:            f.Name,
		Description:     f.Description,
		OrganizerUserID: f.OrganizerUserID,
		Topics:          append([]string(nil), f.Topics...),
		City:            f.City,
		StartDate:       f.StartDate,
		EndDate:         f.EndDate,
		Month:           f.month(),
		MaxAttendees:    f.MaxAttendees,
		SeatsAvailable:  f.SeatsAvailable,
	}
}

// Input converts the fixture into a service input.
func (f ConferenceFixture) Input() application.ConferenceInput {
	input := application.ConferenceInput{
		Name:         &f.Name,
		Topics:       append([]string(nil), f.Topics...),
		City:         &f.City,
		MaxAttendees: &f.MaxAttendees,
	}
	if f.Description != "" {
		input.Description = &f.Description
	}
	if f.StartDate != nil {
		start := f.StartDate.Format("2006-01-02")
		input.StartDate = &start
	}
	if f.EndDate != nil {
		end := f.EndDate.Format("2006-01-02")
		input.EndDate = &end
	}
	return input
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture represents a deterministic session scheduled under a conference.
type SessionFixture struct {
	Conference    key.Key
	Name          string
	Highlights    string
	Speaker       string
	Duration      int
	TypeOfSession string
	Date          *time.Time
	StartTime     *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a one hour lecture at 10:00 on the conference's
// reference date.
func NewSessionFixture(conference key.Key, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	date := referenceTime.AddDate(0, 1, 0).Truncate(24 * time.Hour)
	start := time.Date(0, 1, 1, 10, 0, 0, 0, time.UTC)
	fixture := SessionFixture{
		Conference:    conference,
		Name:          fmt.Sprintf("Session %03d", idx),
		Speaker:       fmt.Sprintf("Speaker %03d", idx),
		Duration:      60,
		TypeOfSession: "lecture",
		Date:          &date,
		StartTime:     &start,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpeaker overrides the speaker.
func WithSpeaker(speaker string) SessionOption {
	return func(f *SessionFixture) {
		f.Speaker = speaker
	}
}

// WithSessionType overrides the session type.
func WithSessionType(typeOfSession string) SessionOption {
	return func(f *SessionFixture) {
		f.TypeOfSession = typeOfSession
	}
}

// WithStartClock sets the start time of day.
func WithStartClock(hour, minute int) SessionOption {
	return func(f *SessionFixture) {
		start := time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
		f.StartTime = &start
	}
}

// Persistence converts the fixture into an unsaved persistence session.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		Key:           key.Session(f.Conference, 0),
		Name:          f.Name,
		Highlights:    f.Highlights,
		Speaker:       f.Speaker,
		Duration:      f.Duration,
		TypeOfSession: f.TypeOfSession,
		Date:          f.Date,
		StartTime:     f.StartTime,
	}
}

// Input converts the fixture into a service input.
func (f SessionFixture) Input() application.SessionInput {
	input := application.SessionInput{
		WebsafeConferenceKey: f.Conference.Encode(),
		Name:                 f.Name,
		Highlights:           f.Highlights,
		Speaker:              f.Speaker,
		Duration:             f.Duration,
		TypeOfSession:        f.TypeOfSession,
	}
	if f.Date != nil {
		input.Date = f.Date.Format("2006-01-02")
	}
	if f.StartTime != nil {
		input.StartTime = f.StartTime.Format("15:04")
	}
	return input
}

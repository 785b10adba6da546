package application

import (
	"time"

	"github.com/example/conference-central/internal/key"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
	// Name is the display name reported by the identity provider. It seeds
	// the profile created on first access.
	Name string
}

// Authenticated reports whether the principal carries a user id.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// ProfileKey returns the key of the principal's profile.
func (p Principal) ProfileKey() key.Key {
	return key.Profile(p.UserID)
}

// TeeShirtSize enumerates the shirt sizes a profile may select.
type TeeShirtSize string

const (
	TeeShirtNotSpecified TeeShirtSize = "NOT_SPECIFIED"
	TeeShirtXSM          TeeShirtSize = "XS_M"
	TeeShirtXSW          TeeShirtSize = "XS_W"
	TeeShirtSM           TeeShirtSize = "S_M"
	TeeShirtSW           TeeShirtSize = "S_W"
	TeeShirtMM           TeeShirtSize = "M_M"
	TeeShirtMW           TeeShirtSize = "M_W"
	TeeShirtLM           TeeShirtSize = "L_M"
	TeeShirtLW           TeeShirtSize = "L_W"
	TeeShirtXLM          TeeShirtSize = "XL_M"
	TeeShirtXLW          TeeShirtSize = "XL_W"
	TeeShirtXXLM         TeeShirtSize = "XXL_M"
	TeeShirtXXLW         TeeShirtSize = "XXL_W"
	TeeShirtXXXLM        TeeShirtSize = "XXXL_M"
	TeeShirtXXXLW        TeeShirtSize = "XXXL_W"
)

// Valid reports whether s is one of the known sizes.
func (s TeeShirtSize) Valid() bool {
	switch s {
	case TeeShirtNotSpecified,
		TeeShirtXSM, TeeShirtXSW,
		TeeShirtSM, TeeShirtSW,
		TeeShirtMM, TeeShirtMW,
		TeeShirtLM, TeeShirtLW,
		TeeShirtXLM, TeeShirtXLW,
		TeeShirtXXLM, TeeShirtXXLW,
		TeeShirtXXXLM, TeeShirtXXXLW:
		return true
	}
	return false
}

// Profile is a user's conference profile.
type Profile struct {
	UserID       string
	DisplayName  string
	MainEmail    string
	TeeShirtSize TeeShirtSize
	// ConferenceKeysToAttend and SessionKeysWishList hold websafe keys in
	// insertion order without duplicates.
	ConferenceKeysToAttend []string
	SessionKeysWishList    []string
	// Version is zero for a profile that has not been stored yet.
	Version int64
}

// ProfileInput carries the user-modifiable profile fields. Nil fields are left unchanged.
type ProfileInput struct {
	DisplayName  *string
	TeeShirtSize *string
}

// Conference is an event owned by the organizer's profile.
type Conference struct {
	Key             key.Key
	Name            string
	Description     string
	OrganizerUserID string
	// OrganizerDisplayName is resolved from the organizer profile on read.
	OrganizerDisplayName string
	Topics               []string
	City                 string
	StartDate            *time.Time
	EndDate              *time.Time
	Month                int
	MaxAttendees         int
	SeatsAvailable       int
	Version              int64
}

// WebsafeKey returns the encoded conference key.
func (c Conference) WebsafeKey() string {
	if c.Key.IsZero() {
		return ""
	}
	return c.Key.Encode()
}

// ConferenceInput captures caller provided conference fields. Nil or empty
// fields are treated as not provided.
type ConferenceInput struct {
	Name         *string
	Description  *string
	Topics       []string
	City         *string
	StartDate    *string
	EndDate      *string
	MaxAttendees *int
}

// CreateConferenceParams wraps the data required to create a conference.
type CreateConferenceParams struct {
	Principal Principal
	Input     ConferenceInput
}

// UpdateConferenceParams wraps the data required to update a conference.
type UpdateConferenceParams struct {
	Principal            Principal
	WebsafeConferenceKey string
	Input                ConferenceInput
}

// QueryConferencesParams carries client filters for queryConferences. When
// Expression is set it is parsed and appended after Filters.
type QueryConferencesParams struct {
	Filters    []FilterDescriptor
	Expression string
}

// Session is a talk or workshop scheduled under a conference.
type Session struct {
	Key           key.Key
	Name          string
	Highlights    string
	Speaker       string
	Duration      int
	TypeOfSession string
	Date          *time.Time
	StartTime     *time.Time
}

// WebsafeKey returns the encoded session key.
func (s Session) WebsafeKey() string {
	if s.Key.IsZero() {
		return ""
	}
	return s.Key.Encode()
}

// WebsafeConferenceKey returns the encoded key of the parent conference.
func (s Session) WebsafeConferenceKey() string {
	parent, ok := s.Key.Parent()
	if !ok {
		return ""
	}
	return parent.Encode()
}

// SessionInput captures caller provided session fields.
type SessionInput struct {
	WebsafeConferenceKey string
	Name                 string
	Highlights           string
	Speaker              string
	Duration             int
	TypeOfSession        string
	Date                 string
	StartTime            string
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

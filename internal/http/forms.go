package http

import (
	"strings"
	"time"

	"github.com/example/conference-central/internal/application"
)

const (
	wireDateLayout  = "2006-01-02"
	wireClockLayout = "15:04"
)

type profileForm struct {
	DisplayName            string   `json:"displayName"`
	MainEmail              string   `json:"mainEmail"`
	TeeShirtSize           string   `json:"teeShirtSize"`
	ConferenceKeysToAttend []string `json:"conferenceKeysToAttend"`
	SessionKeysWishList    []string `json:"sessionKeysWishList"`
}

func toProfileForm(profile application.Profile) profileForm {
	return profileForm{
		DisplayName:            profile.DisplayName,
		MainEmail:              profile.MainEmail,
		TeeShirtSize:           string(profile.TeeShirtSize),
		ConferenceKeysToAttend: nonNil(profile.ConferenceKeysToAttend),
		SessionKeysWishList:    nonNil(profile.SessionKeysWishList),
	}
}

type profileMiniForm struct {
	DisplayName  *string `json:"displayName"`
	TeeShirtSize *string `json:"teeShirtSize"`
}

func (f profileMiniForm) toInput() application.ProfileInput {
	return application.ProfileInput{
		DisplayName:  f.DisplayName,
		TeeShirtSize: f.TeeShirtSize,
	}
}

type conferenceRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Topics       []string `json:"topics"`
	City         *string  `json:"city"`
	StartDate    *string  `json:"startDate"`
	EndDate      *string  `json:"endDate"`
	MaxAttendees *int     `json:"maxAttendees"`
}

func (r conferenceRequest) toInput() application.ConferenceInput {
	return application.ConferenceInput{
		Name:         r.Name,
		Description:  r.Description,
		Topics:       r.Topics,
		City:         r.City,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		MaxAttendees: r.MaxAttendees,
	}
}

type conferenceForm struct {
	WebsafeKey           string   `json:"websafeKey"`
	Name                 string   `json:"name"`
	Description          string   `json:"description,omitempty"`
	OrganizerUserID      string   `json:"organizerUserId"`
	OrganizerDisplayName string   `json:"organizerDisplayName,omitempty"`
	Topics               []string `json:"topics"`
	City                 string   `json:"city,omitempty"`
	StartDate            string   `json:"startDate,omitempty"`
	EndDate              string   `json:"endDate,omitempty"`
	Month                int      `json:"month"`
	MaxAttendees         int      `json:"maxAttendees"`
	SeatsAvailable       int      `json:"seatsAvailable"`
}

func toConferenceForm(conference application.Conference) conferenceForm {
	return conferenceForm{
		WebsafeKey:           conference.WebsafeKey(),
		Name:                 conference.Name,
		Description:          conference.Description,
		OrganizerUserID:      conference.OrganizerUserID,
		OrganizerDisplayName: conference.OrganizerDisplayName,
		Topics:               nonNil(conference.Topics),
		City:                 conference.City,
		StartDate:            formatTime(conference.StartDate, wireDateLayout),
		EndDate:              formatTime(conference.EndDate, wireDateLayout),
		Month:                conference.Month,
		MaxAttendees:         conference.MaxAttendees,
		SeatsAvailable:       conference.SeatsAvailable,
	}
}

func toConferenceForms(conferences []application.Conference) []conferenceForm {
	forms := make([]conferenceForm, 0, len(conferences))
	for _, conference := range conferences {
		forms = append(forms, toConferenceForm(conference))
	}
	return forms
}

type conferenceQueryForm struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type conferenceQueryForms struct {
	Filters []conferenceQueryForm `json:"filters"`
	// Filter is an AIP-160 expression applied in addition to Filters.
	Filter string `json:"filter"`
}

func (f conferenceQueryForms) toParams() application.QueryConferencesParams {
	descriptors := make([]application.FilterDescriptor, 0, len(f.Filters))
	for _, filter := range f.Filters {
		descriptors = append(descriptors, application.FilterDescriptor{
			Field:    filter.Field,
			Operator: filter.Operator,
			Value:    filter.Value,
		})
	}
	return application.QueryConferencesParams{
		Filters:    descriptors,
		Expression: strings.TrimSpace(f.Filter),
	}
}

type sessionRequest struct {
	WebsafeConferenceKey string `json:"websafeConferenceKey"`
	Name                 string `json:"name"`
	Highlights           string `json:"highlights"`
	Speaker              string `json:"speaker"`
	Duration             int    `json:"duration"`
	TypeOfSession        string `json:"typeOfSession"`
	Date                 string `json:"date"`
	StartTime            string `json:"startTime"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		WebsafeConferenceKey: r.WebsafeConferenceKey,
		Name:                 r.Name,
		Highlights:           r.Highlights,
		Speaker:              r.Speaker,
		Duration:             r.Duration,
		TypeOfSession:        r.TypeOfSession,
		Date:                 r.Date,
		StartTime:            r.StartTime,
	}
}

type sessionForm struct {
	WebsafeKey           string `json:"websafeKey"`
	WebsafeConferenceKey string `json:"websafeConferenceKey"`
	Name                 string `json:"name"`
	Highlights           string `json:"highlights,omitempty"`
	Speaker              string `json:"speaker"`
	Duration             int    `json:"duration"`
	TypeOfSession        string `json:"typeOfSession,omitempty"`
	Date                 string `json:"date,omitempty"`
	StartTime            string `json:"startTime,omitempty"`
}

func toSessionForm(session application.Session) sessionForm {
	return sessionForm{
		WebsafeKey:           session.WebsafeKey(),
		WebsafeConferenceKey: session.WebsafeConferenceKey(),
		Name:                 session.Name,
		Highlights:           session.Highlights,
		Speaker:              session.Speaker,
		Duration:             session.Duration,
		TypeOfSession:        session.TypeOfSession,
		Date:                 formatTime(session.Date, wireDateLayout),
		StartTime:            formatTime(session.StartTime, wireClockLayout),
	}
}

func toSessionForms(sessions []application.Session) []sessionForm {
	forms := make([]sessionForm, 0, len(sessions))
	for _, session := range sessions {
		forms = append(forms, toSessionForm(session))
	}
	return forms
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

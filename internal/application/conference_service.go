package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/conference-central/internal/key"
)

// Defaults applied to fields missing from a new conference.
const (
	DefaultCity         = "Default City"
	DefaultMaxAttendees = 0
)

// DefaultTopics returns the topics given to a conference created without any.
func DefaultTopics() []string {
	return []string{"Default", "Topic"}
}

const announcementPrefix = "Last chance to attend! The following conferences are nearly sold out:"

// ConferenceService orchestrates conference creation, queries and registration.
type ConferenceService struct {
	store  Store
	cache  Cache
	tasks  TaskQueue
	ledger *Ledger
	logger *slog.Logger
}

// NewConferenceService constructs a conference service with the provided dependencies.
func NewConferenceService(store Store, cache Cache, tasks TaskQueue) *ConferenceService {
	return NewConferenceServiceWithLogger(store, cache, tasks, nil)
}

// NewConferenceServiceWithLogger constructs a conference service with a specified logger.
func NewConferenceServiceWithLogger(store Store, cache Cache, tasks TaskQueue, logger *slog.Logger) *ConferenceService {
	logger = defaultLogger(logger)
	return &ConferenceService{
		store:  store,
		cache:  cache,
		tasks:  tasks,
		ledger: NewLedgerWithLogger(store, logger),
		logger: logger,
	}
}

func (s *ConferenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConferenceService", operation, attrs...)
}

// CreateConference stores a new conference owned by the principal and queues
// a confirmation email to them.
func (s *ConferenceService) CreateConference(ctx context.Context, params CreateConferenceParams) (conference Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateConference", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create conference", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conference_key", conference.Key.String()).InfoContext(ctx, "conference created")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	conference, vErr := newConferenceFromInput(params.Principal, params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	conference, err = s.store.Conferences().CreateConference(ctx, conference)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	conference.OrganizerDisplayName = s.displayName(ctx, conference.OrganizerUserID)

	if s.tasks != nil {
		// The conference is already stored; a failed enqueue only loses the email.
		if qErr := s.tasks.Enqueue(ctx, TaskSendConfirmationEmail, map[string]string{
			"email":          params.Principal.Email,
			"conferenceInfo": describeConference(conference),
		}); qErr != nil {
			logger.WarnContext(ctx, "failed to queue confirmation email", "error", qErr)
		}
	}
	return
}

func newConferenceFromInput(principal Principal, input ConferenceInput) (Conference, *ValidationError) {
	vErr := &ValidationError{}

	conference := Conference{
		Key:             key.Conference(principal.ProfileKey(), 0),
		OrganizerUserID: principal.UserID,
		City:            DefaultCity,
		Topics:          DefaultTopics(),
		MaxAttendees:    DefaultMaxAttendees,
	}

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		vErr.add("name", "Conference 'name' field required")
	} else {
		conference.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		conference.Description = *input.Description
	}
	if topics := cleanTopics(input.Topics); len(topics) > 0 {
		conference.Topics = topics
	}
	if input.City != nil && strings.TrimSpace(*input.City) != "" {
		conference.City = strings.TrimSpace(*input.City)
	}
	if input.StartDate != nil {
		conference.StartDate = parseDateField(vErr, "startDate", *input.StartDate)
	}
	if input.EndDate != nil {
		conference.EndDate = parseDateField(vErr, "endDate", *input.EndDate)
	}
	if conference.StartDate != nil {
		conference.Month = int(conference.StartDate.Month())
	}
	if input.MaxAttendees != nil {
		if *input.MaxAttendees < 0 {
			vErr.add("maxAttendees", "must not be negative")
		} else {
			conference.MaxAttendees = *input.MaxAttendees
		}
	}
	if conference.MaxAttendees > 0 {
		conference.SeatsAvailable = conference.MaxAttendees
	}

	return conference, vErr
}

// UpdateConference copies the provided fields onto the conference. Only the
// organizer may update it. Changing maxAttendees moves seatsAvailable by the
// same amount and may not drop below the seats already taken.
func (s *ConferenceService) UpdateConference(ctx context.Context, params UpdateConferenceParams) (conference Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateConference",
		"principal_id", params.Principal.UserID,
		"conference_key", params.WebsafeConferenceKey,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update conference", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "conference updated")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	conferenceKey, err := decodeConferenceKey(params.WebsafeConferenceKey)
	if err != nil {
		return
	}

	err = s.store.RunInTransaction(ctx, func(tx Tx) error {
		current, err := tx.Conferences().GetConference(ctx, conferenceKey)
		if err != nil {
			return asConferenceNotFound(err, params.WebsafeConferenceKey)
		}
		if current.OrganizerUserID != params.Principal.UserID {
			return fmt.Errorf("%w: only the owner can update the conference", ErrUnauthorized)
		}

		updated, vErr := applyConferenceInput(current, params.Input)
		if vErr.HasErrors() {
			return vErr
		}

		conference, err = tx.Conferences().PutConference(ctx, updated)
		return err
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	conference.OrganizerDisplayName = s.displayName(ctx, conference.OrganizerUserID)
	return
}

func applyConferenceInput(conference Conference, input ConferenceInput) (Conference, *ValidationError) {
	vErr := &ValidationError{}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		conference.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil && *input.Description != "" {
		conference.Description = *input.Description
	}
	if topics := cleanTopics(input.Topics); len(topics) > 0 {
		conference.Topics = topics
	}
	if input.City != nil && strings.TrimSpace(*input.City) != "" {
		conference.City = strings.TrimSpace(*input.City)
	}
	if input.StartDate != nil {
		if start := parseDateField(vErr, "startDate", *input.StartDate); start != nil {
			conference.StartDate = start
			conference.Month = int(start.Month())
		}
	}
	if input.EndDate != nil {
		if end := parseDateField(vErr, "endDate", *input.EndDate); end != nil {
			conference.EndDate = end
		}
	}
	if input.MaxAttendees != nil && *input.MaxAttendees != conference.MaxAttendees {
		taken := conference.MaxAttendees - conference.SeatsAvailable
		switch {
		case *input.MaxAttendees < 0:
			vErr.add("maxAttendees", "must not be negative")
		case *input.MaxAttendees < taken:
			vErr.add("maxAttendees", fmt.Sprintf("must be at least the %d seats already taken", taken))
		default:
			conference.SeatsAvailable += *input.MaxAttendees - conference.MaxAttendees
			conference.MaxAttendees = *input.MaxAttendees
		}
	}

	return conference, vErr
}

// GetConference returns the conference named by the websafe key.
func (s *ConferenceService) GetConference(ctx context.Context, websafeConferenceKey string) (conference Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetConference", "conference_key", websafeConferenceKey)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get conference", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	conferenceKey, err := decodeConferenceKey(websafeConferenceKey)
	if err != nil {
		return
	}
	conference, err = s.store.Conferences().GetConference(ctx, conferenceKey)
	if err != nil {
		err = asConferenceNotFound(err, websafeConferenceKey)
		return
	}
	conference.OrganizerDisplayName = s.displayName(ctx, conference.OrganizerUserID)
	return
}

// GetConferencesCreated lists the conferences organized by the principal.
func (s *ConferenceService) GetConferencesCreated(ctx context.Context, principal Principal) (conferences []Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetConferencesCreated", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list created conferences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "created conferences listed", "count", len(conferences))
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	conferences, err = s.store.Conferences().QueryConferences(ctx, ownedByPlan(principal.ProfileKey()))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	s.attachDisplayNames(ctx, conferences)
	return
}

// QueryConferences compiles the client filters and runs the resulting plan.
func (s *ConferenceService) QueryConferences(ctx context.Context, params QueryConferencesParams) (conferences []Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "QueryConferences", "filters", len(params.Filters), "expression", params.Expression)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to query conferences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "conferences queried", "count", len(conferences))
	}()

	descriptors := append([]FilterDescriptor(nil), params.Filters...)
	if params.Expression != "" {
		parsed, parseErr := ParseFilterExpression(params.Expression)
		if parseErr != nil {
			err = parseErr
			return
		}
		descriptors = append(descriptors, parsed...)
	}

	plan, err := CompileFilters(descriptors)
	if err != nil {
		return
	}

	conferences, err = s.store.Conferences().QueryConferences(ctx, plan)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	s.attachDisplayNames(ctx, conferences)
	return
}

// GetConferencesToAttend lists the conferences the principal registered for.
// References to conferences that no longer resolve are skipped.
func (s *ConferenceService) GetConferencesToAttend(ctx context.Context, principal Principal) (conferences []Conference, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetConferencesToAttend", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list attended conferences", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	profile, err := ensureProfile(ctx, s.store, principal)
	if err != nil {
		return
	}

	conferences, err = s.store.Conferences().GetConferences(ctx, parseWebsafeKeys(profile.ConferenceKeysToAttend))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	s.attachDisplayNames(ctx, conferences)
	return
}

// RegisterForConference registers the principal for the conference.
func (s *ConferenceService) RegisterForConference(ctx context.Context, principal Principal, websafeConferenceKey string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("ConferenceService is nil")
	}
	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	conferenceKey, err := decodeConferenceKey(websafeConferenceKey)
	if err != nil {
		return false, err
	}
	return s.ledger.Register(ctx, principal, conferenceKey)
}

// UnregisterFromConference releases the principal's seat at the conference.
func (s *ConferenceService) UnregisterFromConference(ctx context.Context, principal Principal, websafeConferenceKey string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("ConferenceService is nil")
	}
	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	conferenceKey, err := decodeConferenceKey(websafeConferenceKey)
	if err != nil {
		return false, err
	}
	return s.ledger.Unregister(ctx, principal, conferenceKey)
}

// GetAnnouncement returns the cached announcement or an empty string.
func (s *ConferenceService) GetAnnouncement(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ConferenceService is nil")
	}
	value, ok, err := s.cache.Get(ctx, CacheKeyAnnouncement)
	if err != nil {
		s.loggerWith(ctx, "GetAnnouncement").ErrorContext(ctx, "failed to read announcement", "error", err)
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// RefreshAnnouncement caches the list of nearly sold out conferences, or
// clears the cached announcement when there are none.
func (s *ConferenceService) RefreshAnnouncement(ctx context.Context) (announcement string, err error) {
	if s == nil {
		err = fmt.Errorf("ConferenceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RefreshAnnouncement")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh announcement", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "announcement refreshed", "empty", announcement == "")
	}()

	conferences, err := s.store.Conferences().QueryConferences(ctx, nearlySoldOutPlan())
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if len(conferences) == 0 {
		err = s.cache.Delete(ctx, CacheKeyAnnouncement)
		return
	}

	names := make([]string, 0, len(conferences))
	for _, conference := range conferences {
		names = append(names, conference.Name)
	}
	announcement = announcementPrefix + " " + strings.Join(names, ", ")
	err = s.cache.Set(ctx, CacheKeyAnnouncement, announcement)
	return
}

// displayName resolves a user's display name, or "" when they have no profile.
func (s *ConferenceService) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	profile, err := s.store.Profiles().GetProfile(ctx, userID)
	if err != nil {
		return ""
	}
	return profile.DisplayName
}

func (s *ConferenceService) attachDisplayNames(ctx context.Context, conferences []Conference) {
	names := make(map[string]string)
	for i := range conferences {
		organizer := conferences[i].OrganizerUserID
		name, ok := names[organizer]
		if !ok {
			name = s.displayName(ctx, organizer)
			names[organizer] = name
		}
		conferences[i].OrganizerDisplayName = name
	}
}

func cleanTopics(topics []string) []string {
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			cleaned = append(cleaned, topic)
		}
	}
	return cleaned
}

// describeConference renders the summary sent in confirmation emails.
func describeConference(conference Conference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", conference.Name)
	if conference.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", conference.Description)
	}
	fmt.Fprintf(&b, "City: %s\n", conference.City)
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(conference.Topics, ", "))
	if conference.StartDate != nil {
		fmt.Fprintf(&b, "Starts: %s\n", conference.StartDate.Format(dateLayout))
	}
	if conference.EndDate != nil {
		fmt.Fprintf(&b, "Ends: %s\n", conference.EndDate.Format(dateLayout))
	}
	fmt.Fprintf(&b, "Max attendees: %d\n", conference.MaxAttendees)
	fmt.Fprintf(&b, "Key: %s", conference.WebsafeKey())
	return b.String()
}

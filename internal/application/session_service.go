package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-central/internal/key"
)

const workshopType = "workshop"

// eveningCutoff is the start time before which a session counts as daytime.
var eveningCutoff = time.Date(0, 1, 1, 19, 0, 0, 0, time.UTC)

// SessionService manages conference sessions and the session wishlist.
type SessionService struct {
	store  Store
	cache  Cache
	tasks  TaskQueue
	ledger *Ledger
	logger *slog.Logger
}

// NewSessionService constructs a session service with the provided dependencies.
func NewSessionService(store Store, cache Cache, tasks TaskQueue) *SessionService {
	return NewSessionServiceWithLogger(store, cache, tasks, nil)
}

// NewSessionServiceWithLogger constructs a session service with a specified logger.
func NewSessionServiceWithLogger(store Store, cache Cache, tasks TaskQueue, logger *slog.Logger) *SessionService {
	logger = defaultLogger(logger)
	return &SessionService{
		store:  store,
		cache:  cache,
		tasks:  tasks,
		ledger: NewLedgerWithLogger(store, logger),
		logger: logger,
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession stores a session under a conference owned by the principal and
// queues the featured speaker evaluation for its speaker.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateSession",
		"principal_id", params.Principal.UserID,
		"conference_key", input.WebsafeConferenceKey,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_key", session.Key.String()).InfoContext(ctx, "session created")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	conferenceKey, err := decodeConferenceKey(input.WebsafeConferenceKey)
	if err != nil {
		return
	}
	conference, err := s.store.Conferences().GetConference(ctx, conferenceKey)
	if err != nil {
		err = asConferenceNotFound(err, input.WebsafeConferenceKey)
		return
	}
	if conference.OrganizerUserID != params.Principal.UserID {
		err = fmt.Errorf("%w: sessions can be only created by conference owner", ErrUnauthorized)
		return
	}

	draft, vErr := newSessionFromInput(conferenceKey, input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	session, err = s.store.Sessions().CreateSession(ctx, draft)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if s.tasks != nil {
		if qErr := s.tasks.Enqueue(ctx, TaskSetFeaturedSpeaker, map[string]string{
			"speaker":              session.Speaker,
			"websafeConferenceKey": conferenceKey.Encode(),
		}); qErr != nil {
			logger.WarnContext(ctx, "failed to queue featured speaker evaluation", "error", qErr)
		}
	}
	return
}

func newSessionFromInput(conferenceKey key.Key, input SessionInput) (Session, *ValidationError) {
	vErr := &ValidationError{}

	session := Session{
		Key:           key.Session(conferenceKey, 0),
		Name:          strings.TrimSpace(input.Name),
		Highlights:    input.Highlights,
		Speaker:       strings.TrimSpace(input.Speaker),
		Duration:      input.Duration,
		TypeOfSession: strings.TrimSpace(input.TypeOfSession),
	}
	if session.Name == "" {
		vErr.add("name", "Name field required")
	}
	if session.Speaker == "" {
		vErr.add("speaker", "Speaker field required")
	}
	if session.Duration < 0 {
		vErr.add("duration", "must not be negative")
	}
	session.Date = parseDateField(vErr, "date", input.Date)
	session.StartTime = parseClockField(vErr, "startTime", input.StartTime)

	return session, vErr
}

// GetConferenceSessions lists every session of the conference.
func (s *SessionService) GetConferenceSessions(ctx context.Context, websafeConferenceKey string) ([]Session, error) {
	return s.listConferenceSessions(ctx, "GetConferenceSessions", websafeConferenceKey, SessionQuery{}, "")
}

// GetConferenceSessionsByType lists the conference's sessions of one type.
func (s *SessionService) GetConferenceSessionsByType(ctx context.Context, websafeConferenceKey, typeOfSession string) ([]Session, error) {
	return s.listConferenceSessions(ctx, "GetConferenceSessionsByType", websafeConferenceKey,
		SessionQuery{TypeOfSession: typeOfSession},
		fmt.Sprintf("no sessions found with type: %s", typeOfSession),
	)
}

// GetConferenceSessionsExcludingType lists the conference's sessions whose
// type is set and differs from excludedType.
func (s *SessionService) GetConferenceSessionsExcludingType(ctx context.Context, websafeConferenceKey, excludedType string) ([]Session, error) {
	return s.listConferenceSessions(ctx, "GetConferenceSessionsExcludingType", websafeConferenceKey,
		SessionQuery{ExcludeType: excludedType},
		"no sessions found for specified request",
	)
}

// listConferenceSessions runs query scoped to the conference. A non-empty
// emptyMessage turns an empty result into ErrNotFound.
func (s *SessionService) listConferenceSessions(ctx context.Context, operation, websafeConferenceKey string, query SessionQuery, emptyMessage string) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, operation, "conference_key", websafeConferenceKey)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "sessions listed", "count", len(sessions))
	}()

	conferenceKey, err := decodeConferenceKey(websafeConferenceKey)
	if err != nil {
		return
	}
	if _, err = s.store.Conferences().GetConference(ctx, conferenceKey); err != nil {
		err = asConferenceNotFound(err, websafeConferenceKey)
		return
	}

	query.Conference = &conferenceKey
	sessions, err = s.store.Sessions().QuerySessions(ctx, query)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(sessions) == 0 && emptyMessage != "" {
		err = fmt.Errorf("%w: %s", ErrNotFound, emptyMessage)
	}
	return
}

// GetSessionsBySpeaker lists the speaker's sessions across all conferences.
func (s *SessionService) GetSessionsBySpeaker(ctx context.Context, speaker string) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetSessionsBySpeaker", "speaker", speaker)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(speaker) == "" {
		err = newValidationError("speaker", "Speaker field required")
		return
	}

	sessions, err = s.store.Sessions().QuerySessions(ctx, SessionQuery{Speaker: speaker})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(sessions) == 0 {
		err = fmt.Errorf("%w: no sessions found with speaker: %s", ErrNotFound, speaker)
	}
	return
}

// GetSessionsByDate lists the sessions held on date across all conferences,
// ordered by start time.
func (s *SessionService) GetSessionsByDate(ctx context.Context, date string) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetSessionsByDate", "date", date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	vErr := &ValidationError{}
	day := parseDateField(vErr, "date", date)
	if day == nil && !vErr.HasErrors() {
		vErr.add("date", "must be a date formatted as YYYY-MM-DD")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	sessions, err = s.store.Sessions().QuerySessions(ctx, SessionQuery{Date: day, OrderByStartTime: true})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(sessions) == 0 {
		err = fmt.Errorf("%w: no sessions found with date: %s", ErrNotFound, date)
	}
	return
}

// GetSessionsNonWorkshopBeforeSeven lists sessions that are not workshops and
// start before 19:00. Sessions without a start time are left out.
func (s *SessionService) GetSessionsNonWorkshopBeforeSeven(ctx context.Context) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetSessionsNonWorkshopBeforeSeven")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	candidates, err := s.store.Sessions().QuerySessions(ctx, SessionQuery{ExcludeType: workshopType})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(candidates) == 0 {
		err = fmt.Errorf("%w: no sessions found for specified request", ErrNotFound)
		return
	}

	sessions = make([]Session, 0, len(candidates))
	for _, session := range candidates {
		if session.StartTime != nil && startsBefore(*session.StartTime, eveningCutoff) {
			sessions = append(sessions, session)
		}
	}
	return
}

func startsBefore(start, cutoff time.Time) bool {
	return start.Hour()*60+start.Minute() < cutoff.Hour()*60+cutoff.Minute()
}

// AddSessionToWishlist adds the session to the principal's wishlist.
func (s *SessionService) AddSessionToWishlist(ctx context.Context, principal Principal, websafeSessionKey string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("SessionService is nil")
	}
	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	sessionKey, err := decodeKey("websafeSessionKey", websafeSessionKey)
	if err != nil {
		return false, err
	}
	return s.ledger.AddToWishlist(ctx, principal, sessionKey)
}

// RemoveSessionFromWishlist drops the session from the principal's wishlist.
func (s *SessionService) RemoveSessionFromWishlist(ctx context.Context, principal Principal, websafeSessionKey string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("SessionService is nil")
	}
	if !principal.Authenticated() {
		return false, ErrUnauthenticated
	}
	sessionKey, err := decodeKey("websafeSessionKey", websafeSessionKey)
	if err != nil {
		return false, err
	}
	return s.ledger.RemoveFromWishlist(ctx, principal, sessionKey)
}

// GetSessionsWishlist resolves the principal's wishlist. Entries that no
// longer resolve are skipped.
func (s *SessionService) GetSessionsWishlist(ctx context.Context, principal Principal) (sessions []Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetSessionsWishlist", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load wishlist", "error", err, "error_kind", ErrorKind(err))
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

	sessions, err = s.store.Sessions().GetSessions(ctx, parseWebsafeKeys(profile.SessionKeysWishList))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(sessions) == 0 {
		err = fmt.Errorf("%w: no sessions found in wish list", ErrNotFound)
	}
	return
}

// GetFeaturedSpeaker returns the cached featured speaker announcement or an
// empty string.
func (s *SessionService) GetFeaturedSpeaker(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("SessionService is nil")
	}
	value, ok, err := s.cache.Get(ctx, CacheKeyFeaturedSpeaker)
	if err != nil {
		s.loggerWith(ctx, "GetFeaturedSpeaker").ErrorContext(ctx, "failed to read featured speaker", "error", err)
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

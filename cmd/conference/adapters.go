package main

import (
	"context"
	"fmt"

	"github.com/example/conference-central/internal/application"
	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

// entityStore is what the SQLite store offers to the application layer.
type entityStore interface {
	persistence.Tx
	persistence.Transactor
}

type storeAdapter struct {
	store entityStore
}

func newStoreAdapter(store entityStore) *storeAdapter {
	return &storeAdapter{store: store}
}

func (a *storeAdapter) Profiles() application.ProfileRepository {
	return profileRepositoryAdapter{repo: a.store.Profiles()}
}

func (a *storeAdapter) Conferences() application.ConferenceRepository {
	return conferenceRepositoryAdapter{repo: a.store.Conferences()}
}

func (a *storeAdapter) Sessions() application.SessionRepository {
	return sessionRepositoryAdapter{repo: a.store.Sessions()}
}

func (a *storeAdapter) RunInTransaction(ctx context.Context, fn func(tx application.Tx) error) error {
	return a.store.RunInTransaction(ctx, func(tx persistence.Tx) error {
		return fn(txAdapter{tx: tx})
	})
}

type txAdapter struct {
	tx persistence.Tx
}

func (a txAdapter) Profiles() application.ProfileRepository {
	return profileRepositoryAdapter{repo: a.tx.Profiles()}
}

func (a txAdapter) Conferences() application.ConferenceRepository {
	return conferenceRepositoryAdapter{repo: a.tx.Conferences()}
}

func (a txAdapter) Sessions() application.SessionRepository {
	return sessionRepositoryAdapter{repo: a.tx.Sessions()}
}

type profileRepositoryAdapter struct {
	repo persistence.ProfileRepository
}

func (a profileRepositoryAdapter) GetProfile(ctx context.Context, userID string) (application.Profile, error) {
	stored, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

func (a profileRepositoryAdapter) PutProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	stored, err := a.repo.PutProfile(ctx, toPersistenceProfile(profile))
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

type conferenceRepositoryAdapter struct {
	repo persistence.ConferenceRepository
}

func (a conferenceRepositoryAdapter) CreateConference(ctx context.Context, conference application.Conference) (application.Conference, error) {
	stored, err := a.repo.CreateConference(ctx, toPersistenceConference(conference))
	if err != nil {
		return application.Conference{}, err
	}
	return toApplicationConference(stored), nil
}

func (a conferenceRepositoryAdapter) GetConference(ctx context.Context, k key.Key) (application.Conference, error) {
	stored, err := a.repo.GetConference(ctx, k)
	if err != nil {
		return application.Conference{}, err
	}
	return toApplicationConference(stored), nil
}

func (a conferenceRepositoryAdapter) GetConferences(ctx context.Context, keys []key.Key) ([]application.Conference, error) {
	models, err := a.repo.GetConferences(ctx, keys)
	if err != nil {
		return nil, err
	}
	return toApplicationConferences(models), nil
}

func (a conferenceRepositoryAdapter) PutConference(ctx context.Context, conference application.Conference) (application.Conference, error) {
	stored, err := a.repo.PutConference(ctx, toPersistenceConference(conference))
	if err != nil {
		return application.Conference{}, err
	}
	return toApplicationConference(stored), nil
}

func (a conferenceRepositoryAdapter) QueryConferences(ctx context.Context, plan application.QueryPlan) ([]application.Conference, error) {
	query, err := toConferenceQuery(plan)
	if err != nil {
		return nil, err
	}
	models, err := a.repo.QueryConferences(ctx, query)
	if err != nil {
		return nil, err
	}
	return toApplicationConferences(models), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func (a sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a sessionRepositoryAdapter) GetSession(ctx context.Context, k key.Key) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, k)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a sessionRepositoryAdapter) GetSessions(ctx context.Context, keys []key.Key) ([]application.Session, error) {
	models, err := a.repo.GetSessions(ctx, keys)
	if err != nil {
		return nil, err
	}
	return toApplicationSessions(models), nil
}

func (a sessionRepositoryAdapter) QuerySessions(ctx context.Context, query application.SessionQuery) ([]application.Session, error) {
	models, err := a.repo.QuerySessions(ctx, toPersistenceSessionQuery(query))
	if err != nil {
		return nil, err
	}
	return toApplicationSessions(models), nil
}

func (a sessionRepositoryAdapter) CountSessions(ctx context.Context, query application.SessionQuery) (int, error) {
	return a.repo.CountSessions(ctx, toPersistenceSessionQuery(query))
}

func toApplicationProfile(model persistence.Profile) application.Profile {
	return application.Profile{
		UserID:                 model.UserID,
		DisplayName:            model.DisplayName,
		MainEmail:              model.MainEmail,
		TeeShirtSize:           application.TeeShirtSize(model.TeeShirtSize),
		ConferenceKeysToAttend: append([]string(nil), model.ConferenceKeysToAttend...),
		SessionKeysWishList:    append([]string(nil), model.SessionKeysWishList...),
		Version:                model.Version,
	}
}

func toPersistenceProfile(profile application.Profile) persistence.Profile {
	return persistence.Profile{
		UserID:                 profile.UserID,
		DisplayName:            profile.DisplayName,
		MainEmail:              profile.MainEmail,
		TeeShirtSize:           string(profile.TeeShirtSize),
		ConferenceKeysToAttend: append([]string(nil), profile.ConferenceKeysToAttend...),
		SessionKeysWishList:    append([]string(nil), profile.SessionKeysWishList...),
		Version:                profile.Version,
	}
}

func toApplicationConference(model persistence.Conference) application.Conference {
	return application.Conference{
		Key:             model.Key,
		Name:            model.Name,
		Description:     model.Description,
		OrganizerUserID: model.OrganizerUserID,
		Topics:          append([]string(nil), model.Topics...),
		City:            model.City,
		StartDate:       model.StartDate,
		EndDate:         model.EndDate,
		Month:           model.Month,
		MaxAttendees:    model.MaxAttendees,
		SeatsAvailable:  model.SeatsAvailable,
		Version:         model.Version,
	}
}

func toApplicationConferences(models []persistence.Conference) []application.Conference {
	if len(models) == 0 {
		return nil
	}
	conferences := make([]application.Conference, 0, len(models))
	for _, model := range models {
		conferences = append(conferences, toApplicationConference(model))
	}
	return conferences
}

func toPersistenceConference(conference application.Conference) persistence.Conference {
	return persistence.Conference{
		Key:             conference.Key,
		Name:            conference.Name,
		Description:     conference.Description,
		OrganizerUserID: conference.OrganizerUserID,
		Topics:          append([]string(nil), conference.Topics...),
		City:            conference.City,
		StartDate:       conference.StartDate,
		EndDate:         conference.EndDate,
		Month:           conference.Month,
		MaxAttendees:    conference.MaxAttendees,
		SeatsAvailable:  conference.SeatsAvailable,
		Version:         conference.Version,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		Key:           model.Key,
		Name:          model.Name,
		Highlights:    model.Highlights,
		Speaker:       model.Speaker,
		Duration:      model.Duration,
		TypeOfSession: model.TypeOfSession,
		Date:          model.Date,
		StartTime:     model.StartTime,
	}
}

func toApplicationSessions(models []persistence.Session) []application.Session {
	if len(models) == 0 {
		return nil
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		Key:           session.Key,
		Name:          session.Name,
		Highlights:    session.Highlights,
		Speaker:       session.Speaker,
		Duration:      session.Duration,
		TypeOfSession: session.TypeOfSession,
		Date:          session.Date,
		StartTime:     session.StartTime,
	}
}

func toPersistenceSessionQuery(query application.SessionQuery) persistence.SessionQuery {
	order := persistence.SessionOrderKey
	if query.OrderByStartTime {
		order = persistence.SessionOrderStartTime
	}
	return persistence.SessionQuery{
		Conference:    query.Conference,
		Speaker:       query.Speaker,
		TypeOfSession: query.TypeOfSession,
		ExcludeType:   query.ExcludeType,
		Date:          query.Date,
		Order:         order,
	}
}

func toConferenceQuery(plan application.QueryPlan) (persistence.ConferenceQuery, error) {
	query := persistence.ConferenceQuery{
		Ancestor: plan.Ancestor,
		Filters:  make([]persistence.ConferenceFilter, 0, len(plan.Filters)),
		Orders:   make([]persistence.ConferenceField, 0, len(plan.Orders)),
	}
	for _, filter := range plan.Filters {
		field, err := toConferenceField(filter.Field)
		if err != nil {
			return persistence.ConferenceQuery{}, err
		}
		comparison, err := toComparison(filter.Operator)
		if err != nil {
			return persistence.ConferenceQuery{}, err
		}
		query.Filters = append(query.Filters, persistence.ConferenceFilter{
			Field:      field,
			Comparison: comparison,
			Value:      filter.Value,
		})
	}
	for _, order := range plan.Orders {
		field, err := toConferenceField(order)
		if err != nil {
			return persistence.ConferenceQuery{}, err
		}
		query.Orders = append(query.Orders, field)
	}
	return query, nil
}

func toConferenceField(field application.FilterField) (persistence.ConferenceField, error) {
	switch field {
	case application.FilterFieldName:
		return persistence.ConferenceFieldName, nil
	case application.FilterFieldCity:
		return persistence.ConferenceFieldCity, nil
	case application.FilterFieldTopics:
		return persistence.ConferenceFieldTopics, nil
	case application.FilterFieldMonth:
		return persistence.ConferenceFieldMonth, nil
	case application.FilterFieldMaxAttendees:
		return persistence.ConferenceFieldMaxAttendees, nil
	case application.FilterFieldSeatsAvailable:
		return persistence.ConferenceFieldSeatsAvailable, nil
	}
	return "", fmt.Errorf("%w: unsupported field %s", persistence.ErrInvalidQuery, field)
}

func toComparison(operator application.FilterOperator) (persistence.Comparison, error) {
	switch operator {
	case application.OperatorEqual:
		return persistence.CompareEqual, nil
	case application.OperatorNotEqual:
		return persistence.CompareNotEqual, nil
	case application.OperatorLess:
		return persistence.CompareLess, nil
	case application.OperatorLessOrEqual:
		return persistence.CompareLessOrEqual, nil
	case application.OperatorGreater:
		return persistence.CompareGreater, nil
	case application.OperatorGreaterOrEqual:
		return persistence.CompareGreaterOrEqual, nil
	}
	return "", fmt.Errorf("%w: unsupported operator %s", persistence.ErrInvalidQuery, operator)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/conference-central/internal/key"
	"github.com/example/conference-central/internal/persistence"
)

const dateLayout = "2006-01-02"

const conferenceColumns = `id, profile_id, name, description, organizer_user_id, topics, city,
	start_date, end_date, month, max_attendees, seats_available, version`

// ConferenceRepository implements persistence.ConferenceRepository using SQLite
type ConferenceRepository struct {
	q      querier
	mapper *ErrorMapper
}

func newConferenceRepository(q querier, mapper *ErrorMapper) *ConferenceRepository {
	return &ConferenceRepository{q: q, mapper: mapper}
}

// CreateConference inserts a conference and allocates its id under the
// owning profile taken from conference.Key.
func (r *ConferenceRepository) CreateConference(ctx context.Context, conference persistence.Conference) (persistence.Conference, error) {
	owner, err := conferenceOwner(conference.Key)
	if err != nil {
		return persistence.Conference{}, err
	}

	topics, err := encodeStrings(conference.Topics)
	if err != nil {
		return persistence.Conference{}, err
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO conferences (profile_id, name, description, organizer_user_id, topics, city,
			start_date, end_date, month, max_attendees, seats_available, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		owner.Name(),
		conference.Name,
		conference.Description,
		conference.OrganizerUserID,
		topics,
		nullString(conference.City),
		formatDate(conference.StartDate),
		formatDate(conference.EndDate),
		conference.Month,
		conference.MaxAttendees,
		conference.SeatsAvailable,
	)
	if err != nil {
		return persistence.Conference{}, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Conference{}, fmt.Errorf("failed to read conference id: %w", err)
	}

	conference.Key = key.Conference(owner, id)
	conference.Version = 1
	return conference, nil
}

// GetConference retrieves a conference by key. The key's ancestor must match
// the stored owner.
func (r *ConferenceRepository) GetConference(ctx context.Context, k key.Key) (persistence.Conference, error) {
	if k.Kind() != key.KindConference {
		return persistence.Conference{}, persistence.ErrNotFound
	}
	owner, _ := k.Parent()

	row := r.q.QueryRowContext(ctx,
		`SELECT `+conferenceColumns+` FROM conferences WHERE id = ? AND profile_id = ?`,
		k.ID(), owner.Name(),
	)
	conference, err := scanConference(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Conference{}, persistence.ErrNotFound
		}
		return persistence.Conference{}, r.mapper.MapError(err)
	}
	return conference, nil
}

// GetConferences performs a batch get. Keys that do not resolve are skipped.
func (r *ConferenceRepository) GetConferences(ctx context.Context, keys []key.Key) ([]persistence.Conference, error) {
	conferences := make([]persistence.Conference, 0, len(keys))
	for _, k := range keys {
		conference, err := r.GetConference(ctx, k)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		conferences = append(conferences, conference)
	}
	return conferences, nil
}

// PutConference writes all mutable columns conditionally on Version.
func (r *ConferenceRepository) PutConference(ctx context.Context, conference persistence.Conference) (persistence.Conference, error) {
	owner, err := conferenceOwner(conference.Key)
	if err != nil {
		return persistence.Conference{}, err
	}
	if conference.Key.ID() <= 0 {
		return persistence.Conference{}, persistence.ErrNotFound
	}

	topics, err := encodeStrings(conference.Topics)
	if err != nil {
		return persistence.Conference{}, err
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE conferences
		SET name = ?, description = ?, topics = ?, city = ?, start_date = ?, end_date = ?, month = ?,
			max_attendees = ?, seats_available = ?, version = version + 1
		WHERE id = ? AND profile_id = ? AND version = ?
	`,
		conference.Name,
		conference.Description,
		topics,
		nullString(conference.City),
		formatDate(conference.StartDate),
		formatDate(conference.EndDate),
		conference.Month,
		conference.MaxAttendees,
		conference.SeatsAvailable,
		conference.Key.ID(),
		owner.Name(),
		conference.Version,
	)
	if err != nil {
		return persistence.Conference{}, r.mapper.MapError(err)
	}

	if err := checkVersionedWrite(ctx, r.q, r.mapper, result,
		`SELECT 1 FROM conferences WHERE id = ? AND profile_id = ?`, conference.Key.ID(), owner.Name()); err != nil {
		return persistence.Conference{}, err
	}

	conference.Version++
	return conference, nil
}

// QueryConferences executes a conference query plan.
func (r *ConferenceRepository) QueryConferences(ctx context.Context, query persistence.ConferenceQuery) ([]persistence.Conference, error) {
	statement, args, err := buildConferenceQuery(query)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var conferences []persistence.Conference
	for rows.Next() {
		conference, err := scanConference(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		conferences = append(conferences, conference)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return conferences, nil
}

// sqlCondition is a WHERE fragment with its positional parameters.
type sqlCondition struct {
	clause string
	params []any
}

func buildConferenceQuery(query persistence.ConferenceQuery) (string, []any, error) {
	var conditions []sqlCondition

	if query.Ancestor != nil {
		if query.Ancestor.Kind() != key.KindProfile {
			return "", nil, fmt.Errorf("%w: conference ancestor must be a profile key", persistence.ErrInvalidQuery)
		}
		conditions = append(conditions, sqlCondition{clause: "profile_id = ?", params: []any{query.Ancestor.Name()}})
	}

	for _, filter := range query.Filters {
		condition, err := filterCondition(filter)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, condition)
	}

	var (
		builder strings.Builder
		args    []any
	)
	builder.WriteString("SELECT " + conferenceColumns + " FROM conferences")
	for i, condition := range conditions {
		if i == 0 {
			builder.WriteString(" WHERE ")
		} else {
			builder.WriteString(" AND ")
		}
		builder.WriteString(condition.clause)
		args = append(args, condition.params...)
	}

	builder.WriteString(" ORDER BY ")
	for _, field := range query.Orders {
		expression, err := orderExpression(field)
		if err != nil {
			return "", nil, err
		}
		builder.WriteString(expression + " ASC, ")
	}
	builder.WriteString("id ASC")

	return builder.String(), args, nil
}

func filterCondition(filter persistence.ConferenceFilter) (sqlCondition, error) {
	operator, err := sqlOperator(filter.Comparison)
	if err != nil {
		return sqlCondition{}, err
	}

	switch filter.Field {
	case persistence.ConferenceFieldName, persistence.ConferenceFieldCity:
		value, ok := filter.Value.(string)
		if !ok {
			return sqlCondition{}, fmt.Errorf("%w: %s expects a string value", persistence.ErrInvalidQuery, filter.Field)
		}
		return sqlCondition{clause: string(filter.Field) + " " + operator + " ?", params: []any{value}}, nil
	case persistence.ConferenceFieldMonth, persistence.ConferenceFieldMaxAttendees, persistence.ConferenceFieldSeatsAvailable:
		value, ok := filter.Value.(int)
		if !ok {
			return sqlCondition{}, fmt.Errorf("%w: %s expects an integer value", persistence.ErrInvalidQuery, filter.Field)
		}
		return sqlCondition{clause: string(filter.Field) + " " + operator + " ?", params: []any{value}}, nil
	case persistence.ConferenceFieldTopics:
		value, ok := filter.Value.(string)
		if !ok {
			return sqlCondition{}, fmt.Errorf("%w: topics expects a string value", persistence.ErrInvalidQuery)
		}
		return sqlCondition{
			clause: "EXISTS (SELECT 1 FROM json_each(conferences.topics) AS topic WHERE topic.value " + operator + " ?)",
			params: []any{value},
		}, nil
	}
	return sqlCondition{}, fmt.Errorf("%w: unknown field %q", persistence.ErrInvalidQuery, filter.Field)
}

func sqlOperator(comparison persistence.Comparison) (string, error) {
	switch comparison {
	case persistence.CompareEqual:
		return "=", nil
	case persistence.CompareNotEqual:
		return "!=", nil
	case persistence.CompareLess:
		return "<", nil
	case persistence.CompareLessOrEqual:
		return "<=", nil
	case persistence.CompareGreater:
		return ">", nil
	case persistence.CompareGreaterOrEqual:
		return ">=", nil
	}
	return "", fmt.Errorf("%w: unknown comparison %q", persistence.ErrInvalidQuery, comparison)
}

func orderExpression(field persistence.ConferenceField) (string, error) {
	switch field {
	case persistence.ConferenceFieldName, persistence.ConferenceFieldCity,
		persistence.ConferenceFieldMonth, persistence.ConferenceFieldMaxAttendees,
		persistence.ConferenceFieldSeatsAvailable:
		return string(field), nil
	case persistence.ConferenceFieldTopics:
		// A multi-valued field sorts by its smallest value.
		return "(SELECT MIN(topic.value) FROM json_each(conferences.topics) AS topic)", nil
	}
	return "", fmt.Errorf("%w: unknown order field %q", persistence.ErrInvalidQuery, field)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConference(row rowScanner) (persistence.Conference, error) {
	var (
		conference persistence.Conference
		id         int64
		profileID  string
		topics     string
		city       sql.NullString
		startDate  sql.NullString
		endDate    sql.NullString
	)
	if err := row.Scan(
		&id,
		&profileID,
		&conference.Name,
		&conference.Description,
		&conference.OrganizerUserID,
		&topics,
		&city,
		&startDate,
		&endDate,
		&conference.Month,
		&conference.MaxAttendees,
		&conference.SeatsAvailable,
		&conference.Version,
	); err != nil {
		return persistence.Conference{}, err
	}

	var err error
	conference.Key = key.Conference(key.Profile(profileID), id)
	conference.City = city.String
	if conference.Topics, err = decodeStrings(topics); err != nil {
		return persistence.Conference{}, fmt.Errorf("decode topics for conference %d: %w", id, err)
	}
	if conference.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Conference{}, fmt.Errorf("parse start_date for conference %d: %w", id, err)
	}
	if conference.EndDate, err = parseDate(endDate); err != nil {
		return persistence.Conference{}, fmt.Errorf("parse end_date for conference %d: %w", id, err)
	}
	return conference, nil
}

func conferenceOwner(k key.Key) (key.Key, error) {
	owner, ok := k.Parent()
	if k.Kind() != key.KindConference || !ok || owner.Kind() != key.KindProfile {
		return key.Key{}, fmt.Errorf("%w: conference key must be scoped under a profile", persistence.ErrConstraintViolation)
	}
	return owner, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func formatDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Format(dateLayout), Valid: true}
}

func parseDate(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

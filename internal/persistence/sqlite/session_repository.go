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

const clockLayout = "15:04"

const sessionColumns = `id, conference_id, profile_id, name, highlights, speaker, duration,
	type_of_session, date, start_time`

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	q      querier
	mapper *ErrorMapper
}

func newSessionRepository(q querier, mapper *ErrorMapper) *SessionRepository {
	return &SessionRepository{q: q, mapper: mapper}
}

// CreateSession inserts a session and allocates its id under the parent
// conference taken from session.Key.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	conference, ok := session.Key.Parent()
	if session.Key.Kind() != key.KindSession || !ok || conference.Kind() != key.KindConference {
		return persistence.Session{}, fmt.Errorf("%w: session key must be scoped under a conference", persistence.ErrConstraintViolation)
	}
	owner, _ := conference.Parent()

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (conference_id, profile_id, name, highlights, speaker, duration, type_of_session, date, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		conference.ID(),
		owner.Name(),
		session.Name,
		session.Highlights,
		session.Speaker,
		session.Duration,
		nullString(session.TypeOfSession),
		formatDate(session.Date),
		formatClock(session.StartTime),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to read session id: %w", err)
	}

	session.Key = key.Session(conference, id)
	return session, nil
}

// GetSession retrieves a session by key, checking its full ancestor path.
func (r *SessionRepository) GetSession(ctx context.Context, k key.Key) (persistence.Session, error) {
	conference, ok := k.Parent()
	if k.Kind() != key.KindSession || !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	owner, _ := conference.Parent()

	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND conference_id = ? AND profile_id = ?`,
		k.ID(), conference.ID(), owner.Name(),
	)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetSessions performs a batch get. Keys that do not resolve are skipped.
func (r *SessionRepository) GetSessions(ctx context.Context, keys []key.Key) ([]persistence.Session, error) {
	sessions := make([]persistence.Session, 0, len(keys))
	for _, k := range keys {
		session, err := r.GetSession(ctx, k)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// QuerySessions returns the sessions matching query.
func (r *SessionRepository) QuerySessions(ctx context.Context, query persistence.SessionQuery) ([]persistence.Session, error) {
	where, args, err := sessionWhere(query)
	if err != nil {
		return nil, err
	}

	order := "id ASC"
	if query.Order == persistence.SessionOrderStartTime {
		order = "start_time ASC, id ASC"
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions`+where+` ORDER BY `+order, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// CountSessions returns how many sessions match query.
func (r *SessionRepository) CountSessions(ctx context.Context, query persistence.SessionQuery) (int, error) {
	where, args, err := sessionWhere(query)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// sessionWhere renders the WHERE clause for a session query. NULL columns
// never satisfy a != comparison, so sessions without a type are excluded
// from ExcludeType queries.
func sessionWhere(query persistence.SessionQuery) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if query.Conference != nil {
		owner, ok := query.Conference.Parent()
		if query.Conference.Kind() != key.KindConference || !ok {
			return "", nil, fmt.Errorf("%w: session ancestor must be a conference key", persistence.ErrInvalidQuery)
		}
		clauses = append(clauses, "conference_id = ?", "profile_id = ?")
		args = append(args, query.Conference.ID(), owner.Name())
	}
	if query.Speaker != "" {
		clauses = append(clauses, "speaker = ?")
		args = append(args, query.Speaker)
	}
	if query.TypeOfSession != "" {
		clauses = append(clauses, "type_of_session = ?")
		args = append(args, query.TypeOfSession)
	}
	if query.ExcludeType != "" {
		clauses = append(clauses, "type_of_session != ?")
		args = append(args, query.ExcludeType)
	}
	if query.Date != nil {
		clauses = append(clauses, "date = ?")
		args = append(args, query.Date.Format(dateLayout))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session       persistence.Session
		id            int64
		conferenceID  int64
		profileID     string
		typeOfSession sql.NullString
		date          sql.NullString
		startTime     sql.NullString
	)
	if err := row.Scan(
		&id,
		&conferenceID,
		&profileID,
		&session.Name,
		&session.Highlights,
		&session.Speaker,
		&session.Duration,
		&typeOfSession,
		&date,
		&startTime,
	); err != nil {
		return persistence.Session{}, err
	}

	var err error
	session.Key = key.Session(key.Conference(key.Profile(profileID), conferenceID), id)
	session.TypeOfSession = typeOfSession.String
	if session.Date, err = parseDate(date); err != nil {
		return persistence.Session{}, fmt.Errorf("parse date for session %d: %w", id, err)
	}
	if startTime.Valid && startTime.String != "" {
		parsed, err := time.Parse(clockLayout, startTime.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("parse start_time for session %d: %w", id, err)
		}
		session.StartTime = &parsed
	}
	return session, nil
}

func formatClock(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Format(clockLayout), Valid: true}
}

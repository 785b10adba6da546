package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/conference-central/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	q      querier
	mapper *ErrorMapper
}

func newProfileRepository(q querier, mapper *ErrorMapper) *ProfileRepository {
	return &ProfileRepository{q: q, mapper: mapper}
}

// GetProfile retrieves a profile by user id.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (persistence.Profile, error) {
	if userID == "" {
		return persistence.Profile{}, persistence.ErrNotFound
	}

	var (
		profile        persistence.Profile
		conferenceKeys string
		sessionKeys    string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT user_id, display_name, main_email, tee_shirt_size, conference_keys, session_keys, version
		FROM profiles
		WHERE user_id = ?
	`, userID).Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.MainEmail,
		&profile.TeeShirtSize,
		&conferenceKeys,
		&sessionKeys,
		&profile.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Profile{}, persistence.ErrNotFound
		}
		return persistence.Profile{}, r.mapper.MapError(err)
	}

	if profile.ConferenceKeysToAttend, err = decodeStrings(conferenceKeys); err != nil {
		return persistence.Profile{}, fmt.Errorf("decode conference_keys for %s: %w", userID, err)
	}
	if profile.SessionKeysWishList, err = decodeStrings(sessionKeys); err != nil {
		return persistence.Profile{}, fmt.Errorf("decode session_keys for %s: %w", userID, err)
	}

	return profile, nil
}

// PutProfile inserts a new profile (Version 0) or updates an existing one
// conditionally on its version.
func (r *ProfileRepository) PutProfile(ctx context.Context, profile persistence.Profile) (persistence.Profile, error) {
	if profile.UserID == "" {
		return persistence.Profile{}, persistence.ErrConstraintViolation
	}

	conferenceKeys, err := encodeStrings(profile.ConferenceKeysToAttend)
	if err != nil {
		return persistence.Profile{}, err
	}
	sessionKeys, err := encodeStrings(profile.SessionKeysWishList)
	if err != nil {
		return persistence.Profile{}, err
	}

	if profile.Version == 0 {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO profiles (user_id, display_name, main_email, tee_shirt_size, conference_keys, session_keys, version)
			VALUES (?, ?, ?, ?, ?, ?, 1)
		`, profile.UserID, profile.DisplayName, profile.MainEmail, profile.TeeShirtSize, conferenceKeys, sessionKeys)
		if err != nil {
			mapped := r.mapper.MapError(err)
			if errors.Is(mapped, persistence.ErrDuplicate) {
				// Another writer created the profile first.
				return persistence.Profile{}, fmt.Errorf("%w: profile %s", persistence.ErrConcurrentModification, profile.UserID)
			}
			return persistence.Profile{}, mapped
		}
		profile.Version = 1
		return profile, nil
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE profiles
		SET display_name = ?, main_email = ?, tee_shirt_size = ?, conference_keys = ?, session_keys = ?, version = version + 1
		WHERE user_id = ? AND version = ?
	`, profile.DisplayName, profile.MainEmail, profile.TeeShirtSize, conferenceKeys, sessionKeys, profile.UserID, profile.Version)
	if err != nil {
		return persistence.Profile{}, r.mapper.MapError(err)
	}

	if err := checkVersionedWrite(ctx, r.q, r.mapper, result, `SELECT 1 FROM profiles WHERE user_id = ?`, profile.UserID); err != nil {
		return persistence.Profile{}, err
	}

	profile.Version++
	return profile, nil
}

// checkVersionedWrite distinguishes a missing row from a stale version when a
// conditional UPDATE touched nothing.
func checkVersionedWrite(ctx context.Context, q querier, mapper *ErrorMapper, result sql.Result, existsQuery string, args ...any) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx, existsQuery, args...).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		return mapper.MapError(err)
	}
	return persistence.ErrConcurrentModification
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode string list: %w", err)
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	var values []string
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

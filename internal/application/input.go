package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/conference-central/internal/key"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// parseDateField parses the YYYY-MM-DD prefix of value. Blank values yield nil.
func parseDateField(v *ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		v.add(field, "must be a date formatted as YYYY-MM-DD")
		return nil
	}
	return &parsed
}

// parseClockField parses the HH:MM prefix of value. Blank values yield nil.
func parseClockField(v *ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if len(value) > len(clockLayout) {
		value = value[:len(clockLayout)]
	}
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		v.add(field, "must be a time formatted as HH:MM")
		return nil
	}
	return &parsed
}

// decodeKey decodes a websafe key, reporting malformed input on field.
func decodeKey(field, websafe string) (key.Key, error) {
	k, err := key.Decode(strings.TrimSpace(websafe))
	if err != nil {
		return key.Key{}, newValidationError(field, "malformed key")
	}
	return k, nil
}

// decodeConferenceKey decodes a websafe conference key. A key of another kind
// cannot name a conference and is reported as not found.
func decodeConferenceKey(websafe string) (key.Key, error) {
	k, err := decodeKey("websafeConferenceKey", websafe)
	if err != nil {
		return key.Key{}, err
	}
	if k.Kind() != key.KindConference {
		return key.Key{}, conferenceNotFound(websafe)
	}
	return k, nil
}

func conferenceNotFound(websafe string) error {
	return fmt.Errorf("%w: no conference found with key: %s", ErrNotFound, websafe)
}

// asConferenceNotFound rewrites a repository miss into a keyed not found error.
func asConferenceNotFound(err error, websafe string) error {
	err = mapRepoError(err)
	if errors.Is(err, ErrNotFound) {
		return conferenceNotFound(websafe)
	}
	return err
}

// parseWebsafeKeys decodes stored membership keys, dropping any that no
// longer decode.
func parseWebsafeKeys(values []string) []key.Key {
	keys := make([]key.Key, 0, len(values))
	for _, value := range values {
		k, err := key.Decode(value)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func asSessionNotFound(err error, websafe string) error {
	err = mapRepoError(err)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: no session found with key: %s", ErrNotFound, websafe)
	}
	return err
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProfileService exposes the caller's own profile.
type ProfileService struct {
	store  Store
	logger *slog.Logger
}

// NewProfileService constructs a profile service.
func NewProfileService(store Store) *ProfileService {
	return NewProfileServiceWithLogger(store, nil)
}

// NewProfileServiceWithLogger constructs a profile service with a specified logger.
func NewProfileServiceWithLogger(store Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: store, logger: defaultLogger(logger)}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

// GetProfile returns the principal's profile, creating it on first access.
func (s *ProfileService) GetProfile(ctx context.Context, principal Principal) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetProfile", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "profile loaded")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	profile, err = ensureProfile(ctx, s.store, principal)
	return
}

// SaveProfile updates the display name and shirt size of the principal's
// profile. Blank fields are left unchanged.
func (s *ProfileService) SaveProfile(ctx context.Context, principal Principal, input ProfileInput) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SaveProfile", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile saved")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	var (
		displayName string
		size        TeeShirtSize
	)
	if input.DisplayName != nil {
		displayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.TeeShirtSize != nil && strings.TrimSpace(*input.TeeShirtSize) != "" {
		size = TeeShirtSize(cases.Upper(language.Und).String(strings.TrimSpace(*input.TeeShirtSize)))
		if !size.Valid() {
			err = newValidationError("teeShirtSize", "unknown shirt size")
			return
		}
	}

	err = s.store.RunInTransaction(ctx, func(tx Tx) error {
		current, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}
		if displayName != "" {
			current.DisplayName = displayName
		}
		if size != "" {
			current.TeeShirtSize = size
		}
		profile, err = tx.Profiles().PutProfile(ctx, current)
		return err
	})
	err = mapRepoError(err)
	return
}

// ensureProfile loads the principal's profile and stores a new one when
// none exists.
func ensureProfile(ctx context.Context, store Store, principal Principal) (profile Profile, err error) {
	err = store.RunInTransaction(ctx, func(tx Tx) error {
		current, err := loadProfile(ctx, tx.Profiles(), principal)
		if err != nil {
			return err
		}
		if current.Version != 0 {
			profile = current
			return nil
		}
		profile, err = tx.Profiles().PutProfile(ctx, current)
		return err
	})
	if err != nil {
		return Profile{}, mapRepoError(err)
	}
	return profile, nil
}

func newProfile(principal Principal) Profile {
	displayName := principal.Name
	if displayName == "" {
		displayName, _, _ = strings.Cut(principal.Email, "@")
	}
	if displayName == "" {
		displayName = principal.UserID
	}
	return Profile{
		UserID:                 principal.UserID,
		DisplayName:            displayName,
		MainEmail:              principal.Email,
		TeeShirtSize:           TeeShirtNotSpecified,
		ConferenceKeysToAttend: []string{},
		SessionKeysWishList:    []string{},
	}
}
